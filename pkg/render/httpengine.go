package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/page-fetcher/pkg/config"
	"github.com/Sriram-PR/page-fetcher/pkg/fetch"
	"github.com/Sriram-PR/page-fetcher/pkg/models"
)

var (
	errNoDocument   = errors.New("no document loaded")
	errBodyTooLarge = errors.New("response body too large")
)

// HTTPLauncher is a raw-HTTP renderer backend: it performs a plain GET and extracts from
// the returned HTML without executing scripts. Readiness is implied by a complete response.
type HTTPLauncher struct {
	newClient    func() *http.Client
	maxBodyBytes int64
	log          *logrus.Entry
}

// NewHTTPLauncher builds a launcher whose engines use the SSRF-safe client from pkg/fetch
func NewHTTPLauncher(cfg *config.AppConfig, log *logrus.Entry) *HTTPLauncher {
	log = log.WithField("component", "http_renderer")
	settings := cfg.HTTPClientSettings
	return &HTTPLauncher{
		newClient:    func() *http.Client { return fetch.NewClient(settings, log) },
		maxBodyBytes: cfg.Renderer.MaxBodyBytes,
		log:          log,
	}
}

// Launch creates a fresh client for this fetch
func (l *HTTPLauncher) Launch(ctx context.Context) (Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpEngine{client: l.newClient(), maxBodyBytes: l.maxBodyBytes, log: l.log}, nil
}

type httpEngine struct {
	client       *http.Client
	maxBodyBytes int64
	closed       atomic.Bool
	log          *logrus.Entry
}

func (e *httpEngine) NewSession(ctx context.Context, userAgent string) (Session, error) {
	if e.closed.Load() {
		return nil, errors.New("engine closed")
	}
	return &httpSession{engine: e, userAgent: userAgent}, nil
}

func (e *httpEngine) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		e.client.CloseIdleConnections()
	}
	return nil
}

type httpSession struct {
	engine     *httpEngine
	userAgent  string
	navTimeout time.Duration

	mu   sync.Mutex
	body string
	have bool
}

func (s *httpSession) SetTimeouts(navigation, action time.Duration) {
	s.navTimeout = navigation
}

func (s *httpSession) Navigate(ctx context.Context, url string, readiness Readiness) error {
	if s.engine.closed.Load() {
		return errors.New("engine closed")
	}
	if s.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.navTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.engine.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return fmt.Errorf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var reader io.Reader = resp.Body
	if s.engine.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, s.engine.maxBodyBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if s.engine.maxBodyBytes > 0 && int64(len(data)) > s.engine.maxBodyBytes {
		s.engine.log.WithFields(logrus.Fields{"url": url, "limit": s.engine.maxBodyBytes}).Warn("Response body exceeds size limit")
		return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, s.engine.maxBodyBytes)
	}

	s.mu.Lock()
	s.body, s.have = string(data), true
	s.mu.Unlock()

	s.engine.log.WithFields(logrus.Fields{"url": url, "status": resp.StatusCode, "bytes": len(data)}).Debug("Document loaded")
	return nil
}

func (s *httpSession) document() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have {
		return "", errNoDocument
	}
	return s.body, nil
}

func (s *httpSession) ExtractStructured(ctx context.Context) (models.Summary, error) {
	html, err := s.document()
	if err != nil {
		return models.Summary{}, err
	}
	return ExtractSummary(html)
}

func (s *httpSession) ExtractFullContent(ctx context.Context) (string, error) {
	return s.document()
}
