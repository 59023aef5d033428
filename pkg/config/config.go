package config

import "time"

// Defaults for the fetch pipeline
const (
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultFetchTimeout     = 20 * time.Second
	DefaultNavigationMargin = 2 * time.Second
	DefaultRetryDelay       = 250 * time.Millisecond
	DefaultDNSTimeout       = 5 * time.Second
	DefaultMaxBodyBytes     = 50 * 1024 * 1024 // 50 MB
	DefaultTokenizer        = "cl100k_base"

	BackendPlaywright = "playwright"
	BackendHTTP       = "http"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent          string           `yaml:"user_agent,omitempty"`        // Fixed override User-Agent for every session
	FetchTimeout       time.Duration    `yaml:"fetch_timeout,omitempty"`     // Global budget for navigation + extraction
	NavigationMargin   time.Duration    `yaml:"navigation_margin,omitempty"` // Renderer nav timeout = FetchTimeout - NavigationMargin
	RetryDelay         time.Duration    `yaml:"retry_delay,omitempty"`       // Flat delay before the single navigation retry
	DNSTimeout         time.Duration    `yaml:"dns_timeout,omitempty"`       // Upper bound for host safety resolution
	Verbose            bool             `yaml:"verbose,omitempty"`           // Default for surfacing raw error detail
	TokenizerEncoding  string           `yaml:"tokenizer_encoding,omitempty"`
	Renderer           RendererConfig   `yaml:"renderer,omitempty"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// RendererConfig selects and tunes the page renderer backend
type RendererConfig struct {
	Backend         string `yaml:"backend,omitempty"`          // "playwright" or "http"
	Browser         string `yaml:"browser,omitempty"`          // chromium, firefox, webkit (playwright only)
	Headless        *bool  `yaml:"headless,omitempty"`         // nil = true
	InstallBrowsers bool   `yaml:"install_browsers,omitempty"` // Download driver/browsers on first launch
	WaitUntil       string `yaml:"wait_until,omitempty"`       // Readiness predicate: networkidle, load, domcontentloaded
	MaxBodyBytes    int64  `yaml:"max_body_bytes,omitempty"`   // Response size cap (http backend only)
}

// HTTPClientConfig holds settings for the http backend's client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
	MaxRedirects          int           `yaml:"max_redirects,omitempty"`
}

// NewDefault returns a validated configuration with every default applied
func NewDefault() *AppConfig {
	cfg := &AppConfig{}
	_, _ = cfg.Validate()
	return cfg
}

// IsHeadless reports the effective headless setting
func (r RendererConfig) IsHeadless() bool {
	if r.Headless != nil {
		return *r.Headless
	}
	return true
}

// EffectiveNavigationTimeout is the per-navigation timeout handed to the renderer.
// It expires before the global budget so navigation failures surface as classified errors.
func (c *AppConfig) EffectiveNavigationTimeout() time.Duration {
	nav := c.FetchTimeout - c.NavigationMargin
	if nav <= 0 {
		return c.FetchTimeout
	}
	return nav
}
