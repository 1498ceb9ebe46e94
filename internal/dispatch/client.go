// Package dispatch delivers serialized envelopes to an ordered list of policy
// servers, retrying per failure class and failing over between endpoints.
package dispatch

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/hookrelay/internal/core/ports"
	"github.com/tjfontaine/hookrelay/internal/metrics"
	"github.com/tjfontaine/hookrelay/internal/pkg/safehttp"
)

const (
	// DefaultTimeout applies to endpoints without their own timeout.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxResponseBytes bounds a policy server response body.
	DefaultMaxResponseBytes = 1 << 20

	defaultUserAgent = "hookrelay/dev"
	tracerName       = "github.com/tjfontaine/hookrelay/internal/dispatch"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient uses hc instead of building a pooled client. The caller
// keeps ownership; Close will not close its idle connections.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
		c.ownsClient = false
	}
}

// WithTransportOptions sets the options of the lazily built transport.
func WithTransportOptions(opts safehttp.Options) ClientOption {
	return func(c *Client) {
		c.transportOpts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records attempts and failovers on m.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithProgress reports connection milestones to p.
func WithProgress(p ports.Progress) ClientOption {
	return func(c *Client) {
		if p != nil {
			c.progress = p
		}
	}
}

// WithJitter replaces the random jitter source.
func WithJitter(j Jitter) ClientOption {
	return func(c *Client) {
		if j != nil {
			c.jitter = j
		}
	}
}

// WithSleep replaces the backoff sleep. fn must return ctx.Err() when ctx is
// done before d elapses.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxResponseBytes bounds the accepted response body size.
func WithMaxResponseBytes(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// Client owns the pooled HTTP client used for every dispatch. It is safe for
// concurrent use.
type Client struct {
	mu            sync.Mutex
	httpClient    *http.Client
	ownsClient    bool
	transportOpts safehttp.Options

	logger           *slog.Logger
	metrics          *metrics.Metrics
	progress         ports.Progress
	tracer           trace.Tracer
	jitter           Jitter
	sleep            func(ctx context.Context, d time.Duration) error
	userAgent        string
	maxResponseBytes int
}

// NewClient creates a dispatch client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		ownsClient:       true,
		transportOpts:    safehttp.DefaultOptions(),
		logger:           slog.Default(),
		progress:         noProgress{},
		tracer:           otel.Tracer(tracerName),
		jitter:           RandomJitter,
		sleep:            sleepContext,
		userAgent:        defaultUserAgent,
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the pooled client, building it on first use.
func (c *Client) HTTPClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(safehttp.NewTransport(c.transportOpts)),
		}
		c.ownsClient = true
	}
	return c.httpClient
}

// SetHTTPClient replaces the pooled client. A client built by c is closed
// first.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient != nil && c.ownsClient {
		c.httpClient.CloseIdleConnections()
	}
	c.httpClient = hc
	c.ownsClient = false
}

// Close releases pooled connections. The client rebuilds its pool if used
// again.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient != nil && c.ownsClient {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type noProgress struct{}

func (noProgress) Connecting(string, bool) {}
func (noProgress) Retrying(int, int, int) {}
func (noProgress) ClientError(int) {}
func (noProgress) EndpointUnavailable(string) {}
func (noProgress) FallbackConnected() {}
