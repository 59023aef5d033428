package orchestrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/page-fetcher/pkg/config"
	"github.com/Sriram-PR/page-fetcher/pkg/fetch"
	"github.com/Sriram-PR/page-fetcher/pkg/models"
	"github.com/Sriram-PR/page-fetcher/pkg/render"
	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

const pageHTML = `<html><head><title>A</title><meta name="description" content="B"></head><body><h1>C</h1></body></html>`

func publicResolver() *fakeResolver {
	return &fakeResolver{answers: map[string][]string{
		"example.com":      {"93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946"},
		"round-robin.test": {"93.184.216.34", "10.0.0.5"},
		"rebind.test":      {"::ffff:127.0.0.1"},
	}}
}

func newTestOrchestrator(cfg *config.AppConfig, resolver *fakeResolver, launcher render.Launcher) *Orchestrator {
	checker := fetch.NewHostSafetyChecker(resolver, time.Second, testLogger())
	return NewOrchestrator(cfg, checker, launcher, testLogger())
}

func requireFetchError(t *testing.T, err error, kind models.ErrorKind) *utils.FetchError {
	t.Helper()
	require.Error(t, err)
	var fe *utils.FetchError
	require.True(t, errors.As(err, &fe), "expected *utils.FetchError, got %T", err)
	assert.Equal(t, kind, fe.Kind, "error: %v", err)
	return fe
}

func TestFetch_Summary(t *testing.T) {
	launcher, engine, session := newFakes(pageHTML)
	cfg := testConfig()
	o := newTestOrchestrator(cfg, publicResolver(), launcher)

	res, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com", Mode: models.ModeSummary})
	require.NoError(t, err)

	require.NotNil(t, res.Summary)
	assert.Equal(t, "A", *res.Summary.Title)
	assert.Equal(t, "B", *res.Summary.MetaDescription)
	assert.Equal(t, "C", *res.Summary.H1)
	assert.Empty(t, res.HTML)
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, "https://example.com", res.URL)

	assert.Equal(t, int32(1), launcher.launches.Load())
	assert.Equal(t, int32(1), engine.closes.Load())
	assert.Equal(t, cfg.UserAgent, engine.userAgent)
	assert.Equal(t, cfg.FetchTimeout-cfg.NavigationMargin, session.navTimeout)
	assert.Equal(t, render.ReadinessNetworkIdle, session.readiness)
}

func TestFetch_MissingElementsAreNil(t *testing.T) {
	launcher, _, _ := newFakes(`<html><body><p>bare</p></body></html>`)
	o := newTestOrchestrator(testConfig(), publicResolver(), launcher)

	res, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com"})
	require.NoError(t, err)

	require.NotNil(t, res.Summary)
	assert.Nil(t, res.Summary.Title)
	assert.Nil(t, res.Summary.MetaDescription)
	assert.Nil(t, res.Summary.H1)
}

func TestFetch_FullContent(t *testing.T) {
	launcher, engine, _ := newFakes(pageHTML)
	o := newTestOrchestrator(testConfig(), publicResolver(), launcher)

	res, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com/docs", Mode: models.ModeFullContent})
	require.NoError(t, err)

	assert.Equal(t, pageHTML, res.HTML)
	assert.Nil(t, res.Summary)
	assert.Equal(t, int32(1), engine.closes.Load())
}

func TestFetch_InvalidInput(t *testing.T) {
	for _, raw := range []string{"not a url", "", "ftp://example.com/file", "file:///etc/passwd", "javascript:alert(1)", "http://"} {
		t.Run(raw, func(t *testing.T) {
			launcher, _, _ := newFakes(pageHTML)
			resolver := publicResolver()
			o := newTestOrchestrator(testConfig(), resolver, launcher)

			_, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: raw})

			requireFetchError(t, err, models.ErrorKindInvalidInput)
			assert.Equal(t, int32(0), resolver.calls.Load(), "no DNS lookup")
			assert.Equal(t, int32(0), launcher.launches.Load(), "no renderer")
		})
	}
}

func TestFetch_DisallowedHost(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"metadata service", "http://169.254.169.254/"},
		{"localhost", "http://localhost:8080/admin"},
		{"loopback literal", "http://127.0.0.1/"},
		{"ipv6 loopback", "http://[::1]/"},
		{"one private address among public ones", "https://round-robin.test/"},
		{"mapped loopback", "https://rebind.test/"},
		{"resolution fails", "https://does-not-exist.invalid/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			launcher, _, _ := newFakes(pageHTML)
			o := newTestOrchestrator(testConfig(), publicResolver(), launcher)

			_, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: tt.url})

			fe := requireFetchError(t, err, models.ErrorKindDisallowedHost)
			assert.Equal(t, 400, fe.StatusCode())
			assert.Equal(t, int32(0), launcher.launches.Load(), "safety check precedes allocation")
		})
	}
}

func TestFetch_RendererUnavailable(t *testing.T) {
	t.Run("launch fails", func(t *testing.T) {
		launcher := &fakeLauncher{launchErr: errors.New("executable doesn't exist at /ms-playwright/chromium")}
		o := newTestOrchestrator(testConfig(), publicResolver(), launcher)

		_, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com"})

		fe := requireFetchError(t, err, models.ErrorKindRendererUnavailable)
		assert.Equal(t, 500, fe.StatusCode())
	})

	t.Run("session fails and engine is closed", func(t *testing.T) {
		launcher, engine, _ := newFakes(pageHTML)
		engine.sessionErr = errors.New("browser has been closed")
		o := newTestOrchestrator(testConfig(), publicResolver(), launcher)

		_, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com"})

		requireFetchError(t, err, models.ErrorKindRendererUnavailable)
		assert.Equal(t, int32(1), engine.closes.Load())
	})
}

func TestFetch_RetryIsTransparent(t *testing.T) {
	firstLauncher, _, _ := newFakes(pageHTML)
	retryLauncher, retryEngine, retrySession := newFakes(pageHTML)
	retrySession.navErrs = []error{errors.New("net::ERR_CONNECTION_RESET")}

	direct, err := newTestOrchestrator(testConfig(), publicResolver(), firstLauncher).
		Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com"})
	require.NoError(t, err)
	retried, err := newTestOrchestrator(testConfig(), publicResolver(), retryLauncher).
		Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com"})
	require.NoError(t, err)

	assert.Equal(t, direct.Summary, retried.Summary)
	assert.Equal(t, direct.URL, retried.URL)
	assert.Equal(t, int32(2), retrySession.navigations.Load())
	assert.Equal(t, int32(1), retryEngine.closes.Load())
}

func TestFetch_NavigationFailed(t *testing.T) {
	launcher, engine, session := newFakes(pageHTML)
	session.navErrs = []error{errors.New("net::ERR_CONNECTION_RESET"), errors.New("net::ERR_NAME_NOT_RESOLVED")}
	o := newTestOrchestrator(testConfig(), publicResolver(), launcher)

	_, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com"})

	fe := requireFetchError(t, err, models.ErrorKindNavigationFailed)
	assert.Contains(t, fe.Detail(), "net::ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, "navigation_failed", fe.Public(false), "no detail without verbose")
	assert.Contains(t, fe.Public(true), "net::ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, int32(2), session.navigations.Load())
	assert.Equal(t, int32(1), engine.closes.Load())
}

func TestFetch_Timeout(t *testing.T) {
	launcher, engine, session := newFakes(pageHTML)
	session.block = make(chan struct{})
	defer close(session.block)

	cfg := testConfig()
	cfg.FetchTimeout = 50 * time.Millisecond
	cfg.NavigationMargin = 10 * time.Millisecond
	o := newTestOrchestrator(cfg, publicResolver(), launcher)

	_, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com"})

	fe := requireFetchError(t, err, models.ErrorKindTimeout)
	assert.Equal(t, 504, fe.StatusCode())
	assert.Equal(t, int32(1), engine.closes.Load(), "closed exactly once by the time timeout is reported")
}

func TestFetch_ExtractionFailureIsInternal(t *testing.T) {
	launcher, engine, session := newFakes(pageHTML)
	session.extractErr = errors.New("execution context was destroyed")
	o := newTestOrchestrator(testConfig(), publicResolver(), launcher)

	_, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com", Mode: models.ModeFullContent})

	fe := requireFetchError(t, err, models.ErrorKindInternal)
	assert.Equal(t, "internal", fe.Public(false))
	assert.Contains(t, fe.Public(true), "execution context was destroyed")
	assert.Equal(t, int32(1), engine.closes.Load())
}

func TestFetch_PanicIsInternal(t *testing.T) {
	launcher, engine, session := newFakes(pageHTML)
	session.panicMsg = "nil page"
	o := newTestOrchestrator(testConfig(), publicResolver(), launcher)

	_, err := o.Fetch(context.Background(), models.FetchRequest{TargetURL: "https://example.com"})

	requireFetchError(t, err, models.ErrorKindInternal)
	assert.Equal(t, int32(1), engine.closes.Load())
}

func TestFetchAll(t *testing.T) {
	launcher, _, _ := newFakes(pageHTML)
	o := newTestOrchestrator(testConfig(), publicResolver(), launcher)

	reqs := []models.FetchRequest{
		{TargetURL: "https://example.com"},
		{TargetURL: "http://169.254.169.254/"},
		{TargetURL: "not a url"},
	}
	results := o.FetchAll(context.Background(), reqs)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, reqs[0], results[0].Request)
	assert.Equal(t, models.ErrorKindDisallowedHost, utils.Classify(results[1].Err).Kind)
	assert.Equal(t, models.ErrorKindInvalidInput, utils.Classify(results[2].Err).Kind)
}
