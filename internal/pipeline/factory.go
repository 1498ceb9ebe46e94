package pipeline

import (
	"fmt"

	"github.com/tjfontaine/hookrelay/internal/dispatch"
	"github.com/tjfontaine/hookrelay/internal/envelope"
	"github.com/tjfontaine/hookrelay/internal/interpret"
	"github.com/tjfontaine/hookrelay/internal/pkg/config"
	"github.com/tjfontaine/hookrelay/internal/pkg/safehttp"
)

// NewFromConfig builds a pipeline from loaded configuration. opts are applied
// after the configured values and may replace any component. Unless opts set
// a dispatcher, an HTTP client is built that shares the pipeline's logger and
// metrics.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: nil config")
	}

	all := []Option{
		WithTransformer(envelope.New(envelope.WithNamespace(cfg.Namespace.TypePrefix, cfg.Namespace.Source))),
		WithInterpreter(interpret.New()),
		WithEndpoints(cfg.ResolvedEndpoints()...),
		WithRetryPolicy(cfg.RetryPolicy()),
		WithFailOpen(cfg.FailOpen),
		WithDeadline(cfg.Deadline()),
	}
	all = append(all, opts...)

	transport := safehttp.DefaultOptions()
	transport.InsecureSkipVerify = cfg.Insecure
	transport.DenyPrivate = cfg.DenyPrivate
	all = append(all, withHTTPDispatcher(transport))

	return New(all...)
}

// NewDefault creates a pipeline with the standard transformer, HTTP
// dispatcher and interpreter. opts may replace any of them; endpoints must
// be given with WithEndpoints.
func NewDefault(opts ...Option) (*Pipeline, error) {
	all := []Option{
		WithTransformer(envelope.New()),
		WithInterpreter(interpret.New()),
	}
	all = append(all, opts...)
	all = append(all, withHTTPDispatcher(safehttp.DefaultOptions()))
	return New(all...)
}

func withHTTPDispatcher(transport safehttp.Options) Option {
	return func(p *Pipeline) error {
		if p.dispatcher != nil {
			return nil
		}
		client := dispatch.NewClient(
			dispatch.WithTransportOptions(transport),
			dispatch.WithLogger(p.logger),
			dispatch.WithMetrics(p.metrics),
			dispatch.WithUserAgent(p.userAgent),
			dispatch.WithProgress(p.progress),
		)
		return WithDispatcher(client)(p)
	}
}
