package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// UserAgent
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = DefaultUserAgent
	}

	// FetchTimeout
	if c.FetchTimeout < 0 {
		warnings = append(warnings, fmt.Sprintf("fetch_timeout cannot be negative, defaulting to %v", DefaultFetchTimeout))
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}

	// NavigationMargin
	if c.NavigationMargin < 0 {
		warnings = append(warnings, fmt.Sprintf("navigation_margin cannot be negative, defaulting to %v", DefaultNavigationMargin))
		c.NavigationMargin = 0
	}
	if c.NavigationMargin == 0 {
		c.NavigationMargin = DefaultNavigationMargin
	}
	if c.NavigationMargin >= c.FetchTimeout {
		margin := c.FetchTimeout / 10
		warnings = append(warnings, fmt.Sprintf(
			"navigation_margin (%v) >= fetch_timeout (%v), using %v",
			c.NavigationMargin, c.FetchTimeout, margin))
		c.NavigationMargin = margin
	}

	// RetryDelay
	if c.RetryDelay < 0 {
		warnings = append(warnings, "retry_delay cannot be negative, setting to 0")
		c.RetryDelay = 0
	} else if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}

	// DNSTimeout
	if c.DNSTimeout <= 0 {
		c.DNSTimeout = DefaultDNSTimeout
	}

	if c.TokenizerEncoding == "" {
		c.TokenizerEncoding = DefaultTokenizer
	}

	if err := c.validateRenderer(&warnings); err != nil {
		return warnings, err
	}

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateRenderer applies renderer defaults; an unknown backend is fatal.
func (c *AppConfig) validateRenderer(warnings *[]string) error {
	r := &c.Renderer
	r.Backend = strings.ToLower(strings.TrimSpace(r.Backend))
	switch r.Backend {
	case "":
		r.Backend = BackendPlaywright
	case BackendPlaywright, BackendHTTP:
	default:
		return fmt.Errorf("%w: unknown renderer backend %q (supported: %s, %s)",
			utils.ErrConfigValidation, r.Backend, BackendPlaywright, BackendHTTP)
	}

	r.Browser = strings.ToLower(strings.TrimSpace(r.Browser))
	switch r.Browser {
	case "":
		r.Browser = "chromium"
	case "chromium", "firefox", "webkit":
	default:
		*warnings = append(*warnings, fmt.Sprintf("unknown renderer browser %q, defaulting to chromium", r.Browser))
		r.Browser = "chromium"
	}

	switch r.WaitUntil {
	case "":
		r.WaitUntil = "networkidle"
	case "networkidle", "load", "domcontentloaded", "commit":
	default:
		*warnings = append(*warnings, fmt.Sprintf("unknown wait_until %q, defaulting to networkidle", r.WaitUntil))
		r.WaitUntil = "networkidle"
	}

	if r.MaxBodyBytes < 0 {
		*warnings = append(*warnings, "max_body_bytes cannot be negative, using default")
		r.MaxBodyBytes = 0
	}
	if r.MaxBodyBytes == 0 {
		r.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
	if h.MaxRedirects <= 0 {
		h.MaxRedirects = 10
	}
}
