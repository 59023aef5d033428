package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/page-fetcher/pkg/render"
	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

// MaxNavigationAttempts is the total number of navigation attempts (one retry)
const MaxNavigationAttempts = 2

// RetryingNavigator drives a session to a URL, retrying a failed navigation once after a flat delay
type RetryingNavigator struct {
	attempts  int
	delay     time.Duration
	readiness render.Readiness
	log       *logrus.Entry
}

// NewRetryingNavigator creates a navigator that waits for readiness on every attempt
func NewRetryingNavigator(delay time.Duration, readiness render.Readiness, log *logrus.Entry) *RetryingNavigator {
	return &RetryingNavigator{
		attempts:  MaxNavigationAttempts,
		delay:     delay,
		readiness: readiness,
		log:       log,
	}
}

// Navigate loads url in session. The error of the final attempt is returned wrapped in
// utils.ErrNavigationFailed; an earlier failure that is followed by a success is not reported.
func (n *RetryingNavigator) Navigate(ctx context.Context, session render.Session, url string) error {
	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		attemptLog := n.log.WithField("attempt", attempt)

		if attempt > 1 {
			attemptLog.WithField("delay", n.delay).Warn("Retrying navigation...")
			timer := time.NewTimer(n.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w: %w (retry aborted: %v)", utils.ErrNavigationFailed, lastErr, ctx.Err())
			case <-timer.C:
			}
		}

		err := session.Navigate(ctx, url, n.readiness)
		if err == nil {
			if attempt > 1 {
				attemptLog.Info("Navigation succeeded on retry")
			}
			return nil
		}
		lastErr = err
		attemptLog.Warnf("Navigation attempt failed: %v", err)
	}
	return fmt.Errorf("%w: %w", utils.ErrNavigationFailed, lastErr)
}
