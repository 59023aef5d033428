package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/page-fetcher/pkg/config"
	"github.com/Sriram-PR/page-fetcher/pkg/fetch"
	"github.com/Sriram-PR/page-fetcher/pkg/models"
	"github.com/Sriram-PR/page-fetcher/pkg/render"
	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

// HostChecker decides whether a URL's host may be contacted. *fetch.HostSafetyChecker satisfies it.
type HostChecker interface {
	Check(ctx context.Context, rawURL string) ([]netip.Addr, error)
}

// Orchestrator runs single fetches: host safety, one render session, a bounded retry and
// a global deadline. It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	appCfg    *config.AppConfig
	checker   HostChecker
	launcher  render.Launcher
	navigator *RetryingNavigator
	guard     *DeadlineGuard
	log       *logrus.Entry
}

// NewOrchestrator creates an orchestrator from a validated configuration
func NewOrchestrator(appCfg *config.AppConfig, checker HostChecker, launcher render.Launcher, log *logrus.Entry) *Orchestrator {
	log = log.WithField("component", "orchestrator")
	return &Orchestrator{
		appCfg:    appCfg,
		checker:   checker,
		launcher:  launcher,
		navigator: NewRetryingNavigator(appCfg.RetryDelay, render.ParseReadiness(appCfg.Renderer.WaitUntil), log),
		guard:     NewDeadlineGuard(appCfg.FetchTimeout, log),
		log:       log,
	}
}

// Fetch loads req.TargetURL and extracts either the summary fields or the full content.
// Every failure is returned as a *utils.FetchError. A render session, once acquired, is
// closed exactly once before Fetch returns, on every path.
func (o *Orchestrator) Fetch(ctx context.Context, req models.FetchRequest) (result *models.FetchResult, err error) {
	startTime := time.Now()
	requestID := uuid.NewString()
	reqLog := o.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"url":        req.TargetURL,
		"mode":       req.Mode.String(),
	})

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = o.fail(reqLog, models.ErrorKindInternal, fmt.Errorf("%w: panic: %v", utils.ErrInternal, r))
		}
	}()

	// 1. Syntax, before anything touches the network
	if _, vErr := fetch.ValidateURL(req.TargetURL); vErr != nil {
		return nil, o.fail(reqLog, models.ErrorKindInvalidInput, vErr)
	}

	// 2. Host safety strictly precedes renderer allocation
	if _, cErr := o.checker.Check(ctx, req.TargetURL); cErr != nil {
		return nil, o.fail(reqLog, models.ErrorKindDisallowedHost, cErr)
	}

	// 3. Acquire the session
	handle, aErr := o.acquire(ctx, reqLog)
	if aErr != nil {
		return nil, o.fail(reqLog, models.ErrorKindRendererUnavailable, aErr)
	}
	defer handle.Close()

	// 4. Navigation times out inside the renderer before the outer budget does
	navTimeout := o.appCfg.EffectiveNavigationTimeout()
	handle.Session().SetTimeouts(navTimeout, navTimeout)

	// 5. Navigate and extract under the global budget
	result, err = Run(ctx, o.guard,
		func(opCtx context.Context) (*models.FetchResult, error) {
			return o.navigateAndExtract(opCtx, handle.Session(), req)
		},
		func() {
			if cErr := handle.Close(); cErr != nil {
				reqLog.Warnf("Error closing session after timeout: %v", cErr)
			}
		},
	)

	// 6/7. Close on the normal path; a no-op if the timeout cleanup already ran
	_ = handle.Close()

	if err != nil {
		switch {
		case errors.Is(err, utils.ErrTimeout):
			return nil, o.fail(reqLog, models.ErrorKindTimeout, err)
		case errors.Is(err, utils.ErrNavigationFailed):
			return nil, o.fail(reqLog, models.ErrorKindNavigationFailed, err)
		default:
			// 8. Anything unclassified
			return nil, o.fail(reqLog, models.ErrorKindInternal, err)
		}
	}

	result.RequestID = requestID
	result.Duration = time.Since(startTime)
	reqLog.WithField("duration", result.Duration).Info("Fetch completed")
	return result, nil
}

// acquire launches an engine and opens one page session on it with the fixed User-Agent
func (o *Orchestrator) acquire(ctx context.Context, reqLog *logrus.Entry) (*render.Handle, error) {
	engine, err := o.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %w", utils.ErrRendererUnavailable, err)
	}
	session, err := engine.NewSession(ctx, o.appCfg.UserAgent)
	if err != nil {
		if cErr := engine.Close(); cErr != nil {
			reqLog.Warnf("Error closing engine after failed session: %v", cErr)
		}
		return nil, fmt.Errorf("%w: new session: %w", utils.ErrRendererUnavailable, err)
	}
	reqLog.Debug("Render session acquired")
	return render.NewHandle(engine, session, reqLog), nil
}

func (o *Orchestrator) navigateAndExtract(ctx context.Context, session render.Session, req models.FetchRequest) (*models.FetchResult, error) {
	if err := o.navigator.Navigate(ctx, session, req.TargetURL); err != nil {
		return nil, err
	}

	result := &models.FetchResult{URL: req.TargetURL, Mode: req.Mode}
	switch req.Mode {
	case models.ModeFullContent:
		html, err := session.ExtractFullContent(ctx)
		if err != nil {
			return nil, fmt.Errorf("extract full content: %w", err)
		}
		result.HTML = html
	default:
		summary, err := session.ExtractStructured(ctx)
		if err != nil {
			return nil, fmt.Errorf("extract summary: %w", err)
		}
		result.Summary = &summary
	}
	return result, nil
}

// fail classifies err as kind and logs it with its category
func (o *Orchestrator) fail(reqLog *logrus.Entry, kind models.ErrorKind, err error) error {
	reqLog.WithFields(logrus.Fields{
		"kind":     kind.String(),
		"category": utils.CategorizeError(err),
	}).Warnf("Fetch failed: %v", err)
	return utils.NewFetchError(kind, err)
}

// BatchResult is the outcome of one fetch in a batch
type BatchResult struct {
	Request models.FetchRequest
	Result  *models.FetchResult
	Err     error
}

// FetchAll runs each request as an independent Fetch in parallel and returns the outcomes
// in request order. One failure does not affect the others.
func (o *Orchestrator) FetchAll(ctx context.Context, reqs []models.FetchRequest) []BatchResult {
	startTime := time.Now()
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	for i, req := range reqs {
		g.Go(func() error {
			res, err := o.Fetch(ctx, req)
			results[i] = BatchResult{Request: req, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	o.logSummary(results, time.Since(startTime))
	return results
}

// logSummary logs a summary of a batch
func (o *Orchestrator) logSummary(results []BatchResult, totalDuration time.Duration) {
	if len(results) < 2 {
		return
	}
	failCount := 0
	for _, r := range results {
		if r.Err != nil {
			failCount++
			o.log.Infof("  %s: FAILED - %v", r.Request.TargetURL, r.Err)
		}
	}
	o.log.Infof("Fetched %d URLs in %v (%d success, %d failed)",
		len(results), totalDuration, len(results)-failCount, failCount)
}
