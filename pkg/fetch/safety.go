package fetch

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"

	"github.com/Sriram-PR/page-fetcher/pkg/utils"
)

// Resolver looks up every address bound to a hostname. *net.Resolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// privatePrefixes are never contacted, whatever the hostname says.
var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// IsPrivateAddr reports whether addr is in a private, loopback, link-local or reserved range.
// IPv4-mapped IPv6 addresses are classified by their IPv4 form; zones are ignored.
func IsPrivateAddr(addr netip.Addr) bool {
	if !addr.IsValid() {
		return true
	}
	addr = addr.Unmap().WithZone("")
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ValidateURL parses rawURL and checks it is an absolute http(s) URL with a host.
// Failures wrap utils.ErrInvalidInput.
func ValidateURL(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: empty URL", utils.ErrInvalidInput)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", utils.ErrInvalidInput, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: URL has no host", utils.ErrInvalidInput)
	}
	return u, nil
}

// hostProfile is the IDNA lookup profile without STD3 rules: DNS names such as
// my_site.example.com are valid even though they are not valid host names.
var hostProfile = idna.New(idna.MapForLookup(), idna.BidiRule(), idna.StrictDomainName(false))

// normalizeHost lower-cases host, strips a trailing dot and converts IDN labels to ASCII
func normalizeHost(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", fmt.Errorf("empty host")
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return host, nil
	}
	ascii, err := hostProfile.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid hostname %q: %v", host, err)
	}
	return ascii, nil
}

func isLocalhostName(host string) bool {
	return host == "localhost" || strings.HasSuffix(host, ".localhost")
}

// HostSafetyChecker rejects URLs whose host is, or resolves to, an internal address.
// DNS failures are rejections: the check fails closed.
type HostSafetyChecker struct {
	resolver Resolver
	timeout  time.Duration
	log      *logrus.Entry
}

// NewHostSafetyChecker creates a checker. A nil resolver uses net.DefaultResolver.
func NewHostSafetyChecker(resolver Resolver, timeout time.Duration, log *logrus.Entry) *HostSafetyChecker {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &HostSafetyChecker{
		resolver: resolver,
		timeout:  timeout,
		log:      log.WithField("component", "host_safety"),
	}
}

// Check validates rawURL and resolves its host. It returns the full resolved address set
// when every address is public, or an error wrapping utils.ErrDisallowedHost otherwise.
func (c *HostSafetyChecker) Check(ctx context.Context, rawURL string) ([]netip.Addr, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDisallowedHost, err)
	}
	return c.CheckHost(ctx, u.Hostname())
}

// CheckHost applies the safety rules to a bare hostname or IP literal
func (c *HostSafetyChecker) CheckHost(ctx context.Context, hostname string) ([]netip.Addr, error) {
	host, err := normalizeHost(hostname)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDisallowedHost, err)
	}
	hostLog := c.log.WithField("host", host)

	if isLocalhostName(host) {
		hostLog.Warn("Rejected localhost target")
		return nil, fmt.Errorf("%w: %s is never allowed", utils.ErrDisallowedHost, host)
	}

	var addrs []netip.Addr
	if literal, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{literal}
	} else {
		addrs, err = c.resolve(ctx, host)
		if err != nil {
			hostLog.Warnf("DNS resolution failed, rejecting: %v", err)
			return nil, fmt.Errorf("%w: cannot resolve %s: %v", utils.ErrDisallowedHost, host, err)
		}
		if len(addrs) == 0 {
			hostLog.Warn("DNS returned no addresses, rejecting")
			return nil, fmt.Errorf("%w: cannot resolve %s: no addresses", utils.ErrDisallowedHost, host)
		}
	}

	for _, addr := range addrs {
		if IsPrivateAddr(addr) {
			hostLog.WithField("addr", addr.String()).Warn("Host resolves to a private address, rejecting")
			return nil, fmt.Errorf("%w: %s resolves to private address %s", utils.ErrDisallowedHost, host, addr)
		}
	}

	hostLog.WithField("addrs", len(addrs)).Debug("Host passed safety check")
	return addrs, nil
}

func (c *HostSafetyChecker) resolve(ctx context.Context, host string) ([]netip.Addr, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.resolver.LookupNetIP(ctx, "ip", host)
}
