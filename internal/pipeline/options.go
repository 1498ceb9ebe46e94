package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/core/ports"
	"github.com/tjfontaine/hookrelay/internal/metrics"
)

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline) error

// WithTransformer sets the envelope transformer.
func WithTransformer(t ports.Transformer) Option {
	return func(p *Pipeline) error {
		p.transformer = t
		return nil
	}
}

// WithDispatcher sets the transport. If it has a Close method, Pipeline.Close
// calls it.
func WithDispatcher(d ports.Dispatcher) Option {
	return func(p *Pipeline) error {
		p.dispatcher = d
		if c, ok := d.(interface{ Close() }); ok {
			p.closers = append(p.closers, c.Close)
		}
		return nil
	}
}

// WithInterpreter sets the response interpreter.
func WithInterpreter(i ports.Interpreter) Option {
	return func(p *Pipeline) error {
		p.interpreter = i
		return nil
	}
}

// WithEndpoints sets the policy servers in try order.
func WithEndpoints(eps ...domain.Endpoint) Option {
	return func(p *Pipeline) error {
		if len(eps) == 0 {
			return errors.New("at least one endpoint is required")
		}
		p.endpoints = append([]domain.Endpoint(nil), eps...)
		return nil
	}
}

// WithRetryPolicy overrides the per-endpoint attempt budgets.
func WithRetryPolicy(rp domain.RetryPolicy) Option {
	return func(p *Pipeline) error {
		if rp.NetworkAttempts < 1 || rp.ServerAttempts < 1 {
			return fmt.Errorf("retry attempts must be at least 1, got %+v", rp)
		}
		p.policy = rp
		return nil
	}
}

// WithFailOpen allows events through when no server gives a usable answer.
func WithFailOpen(failOpen bool) Option {
	return func(p *Pipeline) error {
		p.failOpen = failOpen
		return nil
	}
}

// WithDeadline bounds the whole dispatch sequence. Zero means unbounded.
func WithDeadline(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return fmt.Errorf("deadline must not be negative, got %v", d)
		}
		p.deadline = d
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = m
		return nil
	}
}

// WithUserAgent sets the User-Agent of the HTTP dispatcher built by
// NewFromConfig and NewDefault.
func WithUserAgent(ua string) Option {
	return func(p *Pipeline) error {
		p.userAgent = ua
		return nil
	}
}

// WithProgress reports dispatch milestones of the HTTP dispatcher built by
// NewFromConfig and NewDefault.
func WithProgress(progress ports.Progress) Option {
	return func(p *Pipeline) error {
		p.progress = progress
		return nil
	}
}
