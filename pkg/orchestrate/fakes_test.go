package orchestrate

import (
	"context"
	"errors"
	"io"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/page-fetcher/pkg/config"
	"github.com/Sriram-PR/page-fetcher/pkg/models"
	"github.com/Sriram-PR/page-fetcher/pkg/render"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// testConfig returns a validated config with a short budget and retry delay
func testConfig() *config.AppConfig {
	cfg := config.NewDefault()
	cfg.FetchTimeout = 2 * time.Second
	cfg.NavigationMargin = 200 * time.Millisecond
	cfg.RetryDelay = 5 * time.Millisecond
	return cfg
}

// fakeResolver answers from a static table and counts lookups
type fakeResolver struct {
	answers map[string][]string
	calls   atomic.Int32
}

func (r *fakeResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	r.calls.Add(1)
	raw, ok := r.answers[host]
	if !ok {
		return nil, errors.New("lookup " + host + ": no such host")
	}
	addrs := make([]netip.Addr, 0, len(raw))
	for _, s := range raw {
		addrs = append(addrs, netip.MustParseAddr(s))
	}
	return addrs, nil
}

type fakeLauncher struct {
	engine    *fakeEngine
	launchErr error
	launches  atomic.Int32
}

func (l *fakeLauncher) Launch(ctx context.Context) (render.Engine, error) {
	l.launches.Add(1)
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	return l.engine, nil
}

type fakeEngine struct {
	session    *fakeSession
	sessionErr error
	userAgent  string
	closes     atomic.Int32
}

func (e *fakeEngine) NewSession(ctx context.Context, userAgent string) (render.Session, error) {
	e.userAgent = userAgent
	if e.sessionErr != nil {
		return nil, e.sessionErr
	}
	return e.session, nil
}

func (e *fakeEngine) Close() error {
	e.closes.Add(1)
	return nil
}

// fakeSession fails the first len(navErrs) navigations with those errors, then succeeds
type fakeSession struct {
	html       string
	navErrs    []error
	block      chan struct{} // when set, Navigate waits on it and ignores ctx
	extractErr error
	panicMsg   string

	mu          sync.Mutex
	navTimeout  time.Duration
	readiness   render.Readiness
	navigations atomic.Int32
}

func (s *fakeSession) SetTimeouts(navigation, action time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navTimeout = navigation
}

func (s *fakeSession) Navigate(ctx context.Context, url string, readiness render.Readiness) error {
	n := int(s.navigations.Add(1))
	s.mu.Lock()
	s.readiness = readiness
	s.mu.Unlock()

	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.block != nil {
		<-s.block
	}
	if n <= len(s.navErrs) {
		return s.navErrs[n-1]
	}
	return nil
}

func (s *fakeSession) ExtractStructured(ctx context.Context) (models.Summary, error) {
	if s.extractErr != nil {
		return models.Summary{}, s.extractErr
	}
	return render.ExtractSummary(s.html)
}

func (s *fakeSession) ExtractFullContent(ctx context.Context) (string, error) {
	if s.extractErr != nil {
		return "", s.extractErr
	}
	return s.html, nil
}

func newFakes(html string) (*fakeLauncher, *fakeEngine, *fakeSession) {
	session := &fakeSession{html: html}
	engine := &fakeEngine{session: session}
	return &fakeLauncher{engine: engine}, engine, session
}
