// Package service holds URL validation, the short id registry and the
// shortening use case built on top of them.
package service

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atinyakov/shorturl/internal/metrics"
)

// DefaultDNSTimeout bounds a host lookup when no timeout is configured.
const DefaultDNSTimeout = 3 * time.Second

// URLResolver validates URLs: it parses them and checks that the host resolves.
type URLResolver struct {
	resolver HostResolver
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// NewURLResolver creates a validator. A nil resolver means net.DefaultResolver.
func NewURLResolver(resolver HostResolver, timeout time.Duration, m *metrics.Metrics) *URLResolver {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if timeout <= 0 {
		timeout = DefaultDNSTimeout
	}
	if m == nil {
		m = metrics.New()
	}

	return &URLResolver{
		resolver: resolver,
		timeout:  timeout,
		metrics:  m,
	}
}

// Validate returns rawURL unchanged if it is an absolute http(s) URL whose
// host resolves. Resolution failures, including timeouts, are permanent.
func (u *URLResolver) Validate(ctx context.Context, rawURL string) (string, error) {
	// stored and echoed as-is, so it has to survive JSON and a UTF8 database
	if !utf8.ValidString(rawURL) {
		u.metrics.ValidationFailure("malformed")
		return "", fmt.Errorf("%w: invalid utf-8", ErrMalformedURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		u.metrics.ValidationFailure("malformed")
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := parsed.Hostname()
	if (scheme != "http" && scheme != "https") || host == "" {
		u.metrics.ValidationFailure("malformed")
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, rawURL)
	}

	// IP literals need no lookup.
	if net.ParseIP(host) != nil {
		return rawURL, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	start := time.Now()
	addrs, err := u.resolver.LookupHost(lookupCtx, host)
	ok := err == nil && len(addrs) > 0
	u.metrics.ObserveDNS(time.Since(start), ok)

	if !ok {
		u.metrics.ValidationFailure("unresolvable")
		if err == nil {
			return "", fmt.Errorf("%w: %s has no addresses", ErrUnresolvableHost, host)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrUnresolvableHost, host, err)
	}

	return rawURL, nil
}
