package safehttp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrPrivateAddress is returned when DenyPrivate rejects a dialed address.
var ErrPrivateAddress = errors.New("access to private address denied")

// Options configures the transport used for policy server requests.
type Options struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// DenyPrivate rejects connections to private or loopback IP ranges to
	// reduce SSRF risk.
	DenyPrivate bool

	DialTimeout time.Duration
	KeepAlive   time.Duration

	// MaxIdleConnsPerHost bounds pooled connections per endpoint.
	MaxIdleConnsPerHost int
}

// DefaultOptions returns the transport settings used by the dispatcher.
func DefaultOptions() Options {
	return Options{
		DialTimeout:         5 * time.Second,
		KeepAlive:           120 * time.Second,
		MaxIdleConnsPerHost: 4,
	}
}

// NewTransport builds an http.Transport from opts.
func NewTransport(opts Options) *http.Transport {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	dialer := &net.Dialer{Timeout: opts.DialTimeout, KeepAlive: opts.KeepAlive}

	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       opts.KeepAlive,
		TLSHandshakeTimeout:   opts.DialTimeout,
		ExpectContinueTimeout: time.Second,
	}
	if opts.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
	}
	if opts.DenyPrivate {
		t.DialContext = guardedDial(dialer)
	}
	return t
}

func guardedDial(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		ip := net.ParseIP(host)
		if ip == nil {
			conn.Close()
			return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
		}

		if IsPrivate(ip) {
			conn.Close()
			return nil, fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
		}

		return conn, nil
	}
}

// IsPrivate reports whether ip is loopback, private or link-local.
func IsPrivate(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

// IsLoopbackHost reports whether host names the local machine.
func IsLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
