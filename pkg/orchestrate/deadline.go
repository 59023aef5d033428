package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

// DeadlineGuard bounds an operation by a fixed wall-clock budget
type DeadlineGuard struct {
	budget time.Duration
	log    *logrus.Entry
}

// NewDeadlineGuard creates a guard with the given budget
func NewDeadlineGuard(budget time.Duration, log *logrus.Entry) *DeadlineGuard {
	return &DeadlineGuard{budget: budget, log: log}
}

// Budget returns the guard's wall-clock budget
func (g *DeadlineGuard) Budget() time.Duration {
	return g.budget
}

type outcome[T any] struct {
	value T
	err   error
}

// Run races op against the guard's budget.
//
// If op finishes first its result is returned unchanged. If the deadline passes first,
// onTimeout runs to completion and then an error wrapping utils.ErrTimeout is returned.
// op receives a context that is cancelled at the deadline, but Run does not wait for op
// to notice: a late op finishes detached and its result is dropped. onTimeout must
// therefore tolerate op's own cleanup running concurrently or afterwards.
//
// onTimeout is not itself bounded: Run cannot return before onTimeout does, so when
// onTimeout closes a render engine the call may outlast the budget by however long
// Engine.Close takes.
//
// Cancellation of ctx by the caller also runs onTimeout, and returns ctx's error.
// A panic in op is recovered and reported as utils.ErrInternal.
func Run[T any](ctx context.Context, g *DeadlineGuard, op func(context.Context) (T, error), onTimeout func()) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()

	done := make(chan outcome[T], 1) // Buffered so a detached op never blocks
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("%w: panic: %v", utils.ErrInternal, r)}
			}
		}()
		value, err := op(ctx)
		done <- outcome[T]{value: value, err: err}
	}()

	select {
	case out := <-done:
		// An op that failed because the deadline hit is a timeout, not its own failure
		if out.err == nil || ctx.Err() == nil {
			return out.value, out.err
		}
	case <-ctx.Done():
	}

	var zero T
	return zero, g.expire(ctx, onTimeout)
}

func (g *DeadlineGuard) expire(ctx context.Context, onTimeout func()) error {
	cause := ctx.Err()
	if errors.Is(cause, context.DeadlineExceeded) {
		g.log.WithField("budget", g.budget).Warn("Deadline exceeded, running cleanup")
	} else {
		g.log.Warnf("Operation abandoned (%v), running cleanup", cause)
	}

	if onTimeout != nil {
		onTimeout()
	}

	if errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("%w: budget of %v exceeded", utils.ErrTimeout, g.budget)
	}
	return cause
}
