package render

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/page-fetcher/pkg/config"
	"github.com/Sriram-PR/page-fetcher/pkg/models"
	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

// Readiness is the load state a navigation waits for before it counts as done
type Readiness string

const (
	ReadinessNetworkIdle      Readiness = "networkidle"      // No in-flight network activity
	ReadinessLoad             Readiness = "load"             // Load event fired
	ReadinessDOMContentLoaded Readiness = "domcontentloaded" // DOMContentLoaded fired
	ReadinessCommit           Readiness = "commit"           // Response received
)

// ParseReadiness maps a config value to a Readiness, defaulting to network idle
func ParseReadiness(s string) Readiness {
	switch r := Readiness(s); r {
	case ReadinessNetworkIdle, ReadinessLoad, ReadinessDOMContentLoaded, ReadinessCommit:
		return r
	}
	return ReadinessNetworkIdle
}

// Launcher starts a renderer engine. One engine is launched per fetch.
type Launcher interface {
	Launch(ctx context.Context) (Engine, error)
}

// NewLauncher returns the launcher for the configured backend
func NewLauncher(cfg *config.AppConfig, log *logrus.Entry) (Launcher, error) {
	switch cfg.Renderer.Backend {
	case config.BackendPlaywright, "":
		return NewPlaywrightLauncher(cfg.Renderer, log), nil
	case config.BackendHTTP:
		return NewHTTPLauncher(cfg, log), nil
	}
	return nil, fmt.Errorf("%w: unknown renderer backend %q", utils.ErrConfigValidation, cfg.Renderer.Backend)
}

// Engine is a running renderer instance that can open a page session
type Engine interface {
	NewSession(ctx context.Context, userAgent string) (Session, error)
	// Close releases the engine and every session it opened. Safe to call more than once.
	Close() error
}

// Session is a single navigable page context
type Session interface {
	SetTimeouts(navigation, action time.Duration)
	Navigate(ctx context.Context, url string, readiness Readiness) error
	// ExtractStructured returns title, meta description and first h1; missing elements are nil
	ExtractStructured(ctx context.Context) (models.Summary, error)
	ExtractFullContent(ctx context.Context) (string, error)
}
