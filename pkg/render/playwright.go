package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/page-fetcher/pkg/config"
	pflog "github.com/Sriram-PR/page-fetcher/pkg/log"
	"github.com/Sriram-PR/page-fetcher/pkg/models"
)

// PlaywrightLauncher starts a dedicated Playwright driver and headless browser per fetch.
type PlaywrightLauncher struct {
	browser  string
	headless bool
	install  bool

	installOnce sync.Once
	installErr  error
	log         *logrus.Entry
}

// NewPlaywrightLauncher creates a launcher from the renderer configuration
func NewPlaywrightLauncher(cfg config.RendererConfig, log *logrus.Entry) *PlaywrightLauncher {
	return &PlaywrightLauncher{
		browser:  cfg.Browser,
		headless: cfg.IsHeadless(),
		install:  cfg.InstallBrowsers,
		log:      log.WithField("component", "playwright"),
	}
}

func (l *PlaywrightLauncher) runOptions(driverOut *pflog.LineWriter) *playwright.RunOptions {
	return &playwright.RunOptions{
		Browsers: []string{l.browser},
		Verbose:  false,
		Stdout:   driverOut,
		Stderr:   driverOut,
	}
}

// Launch installs the driver on first use when configured, then starts the driver and a browser.
// Missing driver or browser binaries surface here.
func (l *PlaywrightLauncher) Launch(ctx context.Context) (Engine, error) {
	driverOut := pflog.NewLineWriter(l.log.WithField("stream", "driver"), logrus.DebugLevel)
	opts := l.runOptions(driverOut)

	if l.install {
		l.installOnce.Do(func() {
			l.log.Info("Installing Playwright driver and browsers...")
			l.installErr = playwright.Install(opts)
		})
		if l.installErr != nil {
			return nil, fmt.Errorf("install playwright: %w", l.installErr)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var browserType playwright.BrowserType
	switch l.browser {
	case "firefox":
		browserType = pw.Firefox
	case "webkit":
		browserType = pw.WebKit
	default:
		browserType = pw.Chromium
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch %s: %w", l.browser, err)
	}

	l.log.WithField("browser", l.browser).Debug("Browser launched")
	return &playwrightEngine{pw: pw, browser: browser, driverOut: driverOut, log: l.log}, nil
}

type playwrightEngine struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	driverOut *pflog.LineWriter
	closed    atomic.Bool
	log       *logrus.Entry
}

func (e *playwrightEngine) NewSession(ctx context.Context, userAgent string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, err := e.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &playwrightSession{page: page}, nil
}

// Close closes the browser (and with it every context and page) and stops the driver
func (e *playwrightEngine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	if err := e.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := e.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	e.driverOut.Flush()
	return errors.Join(errs...)
}

type playwrightSession struct {
	page playwright.Page
}

func (s *playwrightSession) SetTimeouts(navigation, action time.Duration) {
	s.page.SetDefaultNavigationTimeout(float64(navigation.Milliseconds()))
	s.page.SetDefaultTimeout(float64(action.Milliseconds()))
}

func (s *playwrightSession) Navigate(ctx context.Context, url string, readiness Readiness) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	waitUntil := playwright.WaitUntilState(readiness)
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (s *playwrightSession) ExtractStructured(ctx context.Context) (models.Summary, error) {
	var summary models.Summary
	var err error

	if summary.Title, err = s.queryText(ctx, "title"); err != nil {
		return models.Summary{}, err
	}
	if summary.MetaDescription, err = s.queryAttr(ctx, `meta[name="description"]`, "content"); err != nil {
		return models.Summary{}, err
	}
	if summary.H1, err = s.queryText(ctx, "h1"); err != nil {
		return models.Summary{}, err
	}
	return summary, nil
}

func (s *playwrightSession) ExtractFullContent(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return content, nil
}

// queryText returns the trimmed text of the first match, or nil if nothing matches
func (s *playwrightSession) queryText(ctx context.Context, selector string) (*string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if element == nil {
		return nil, nil
	}
	text, err := element.TextContent()
	if err != nil {
		return nil, fmt.Errorf("text of %s: %w", selector, err)
	}
	return stringPtr(strings.TrimSpace(text)), nil
}

// queryAttr returns an attribute of the first match, or nil if nothing matches or the attribute is unset
func (s *playwrightSession) queryAttr(ctx context.Context, selector, attr string) (*string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	if element == nil {
		return nil, nil
	}
	// GetAttribute cannot tell a missing attribute from an empty one
	value, err := element.Evaluate("(el, name) => el.getAttribute(name)", attr)
	if err != nil {
		return nil, fmt.Errorf("attribute %s of %s: %w", attr, selector, err)
	}
	str, ok := value.(string)
	if !ok {
		return nil, nil
	}
	return stringPtr(str), nil
}
