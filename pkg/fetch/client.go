package fetch

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/page-fetcher/pkg/config"
	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

// safeDialControl rejects a connection whose peer address is private. It runs after DNS
// resolution, so it also catches rebinding between the safety check and the dial.
func safeDialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: bad dial address %q", utils.ErrDisallowedHost, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: unparsable dial address %q", utils.ErrDisallowedHost, host)
	}
	if IsPrivateAddr(addr) {
		return fmt.Errorf("%w: refusing to dial private address %s", utils.ErrDisallowedHost, addr)
	}
	return nil
}

// NewClient creates an HTTP client based on the provided configuration.
// Every dial and every redirect hop is re-checked against the private address ranges;
// proxies are never used.
func NewClient(cfg config.HTTPClientConfig, log *logrus.Entry) *http.Client {
	log.Debug("Initializing HTTP client...")

	// Create custom dialer with configured timeouts
	dialer := &net.Dialer{
		Timeout:   cfg.DialerTimeout,
		KeepAlive: cfg.DialerKeepAlive,
		Control:   safeDialControl,
	}

	transport := &http.Transport{
		Proxy:                  nil, // A proxy would bypass the dial-time address check
		DialContext:            dialer.DialContext,
		ForceAttemptHTTP2:      true,
		MaxIdleConns:           cfg.MaxIdleConns,
		MaxIdleConnsPerHost:    cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:        cfg.IdleConnTimeout,
		TLSHandshakeTimeout:    cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout:  cfg.ExpectContinueTimeout,
		MaxResponseHeaderBytes: 1 << 20, // 1MB max header size
	}
	if cfg.ForceAttemptHTTP2 != nil {
		transport.ForceAttemptHTTP2 = *cfg.ForceAttemptHTTP2
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if _, err := ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("%w: redirect target rejected: %v", utils.ErrDisallowedHost, err)
			}
			if host, err := normalizeHost(req.URL.Hostname()); err != nil || isLocalhostName(host) {
				return errors.Join(utils.ErrDisallowedHost, fmt.Errorf("redirect to %s rejected", req.URL.Host))
			}
			log.Debugf("Redirecting: %s -> %s (hop %d)", via[len(via)-1].URL, req.URL, len(via))
			return nil
		},
	}
}
