package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/core/ports"
	"github.com/tjfontaine/hookrelay/internal/metrics"
	"github.com/tjfontaine/hookrelay/internal/pkg/logging"
)

// Pipeline turns one raw hook event into a decision.
type Pipeline struct {
	transformer ports.Transformer
	dispatcher  ports.Dispatcher
	interpreter ports.Interpreter

	endpoints []domain.Endpoint
	policy    domain.RetryPolicy
	failOpen  bool
	deadline  time.Duration

	logger    *slog.Logger
	metrics   *metrics.Metrics
	userAgent string
	progress  ports.Progress
	closers   []func()
}

// Result is the outcome of one Run.
type Result struct {
	Decision domain.Decision

	// Envelope is nil when the input failed validation.
	Envelope *domain.Envelope

	// Output is what the caller should write back: the modified payload,
	// the original input, or nil when output is suppressed.
	Output []byte

	// Endpoint is the server that answered, empty when none did.
	Endpoint string
	Attempts int

	// Err is the validation or transport failure, if any.
	Err error
}

// ExitCode returns the process exit status for the result.
func (r *Result) ExitCode() domain.ExitCode {
	return r.Decision.ExitCode
}

// New creates a pipeline. A transformer, dispatcher and interpreter are
// required.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		policy: domain.DefaultRetryPolicy(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.transformer == nil {
		return nil, errors.New("pipeline: transformer is required")
	}
	if p.dispatcher == nil {
		return nil, errors.New("pipeline: dispatcher is required")
	}
	if p.interpreter == nil {
		return nil, errors.New("pipeline: interpreter is required")
	}
	return p, nil
}

// Endpoints returns the servers in try order.
func (p *Pipeline) Endpoints() []domain.Endpoint {
	return p.endpoints
}

// Run validates, dispatches and interprets input. It always returns a
// result with a definite exit code.
func (p *Pipeline) Run(ctx context.Context, input []byte) *Result {
	logger := logging.FromContext(ctx, p.logger)

	env, err := p.transformer.Transform(input)
	if err != nil {
		return p.rejected(logger, err)
	}
	logger = logger.With(
		logging.EventID(env.ID),
		logging.EventType(env.Type),
		logging.SessionID(env.SessionID),
	)
	for _, w := range env.Warnings {
		logger.Warn("hook event accepted with warning", slog.String("warning", w))
	}

	payload, err := p.transformer.Serialize(env)
	if err != nil {
		return p.rejected(logger, err)
	}

	if p.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.deadline)
		defer cancel()
	}

	res := &Result{Envelope: env}

	resp, err := p.dispatcher.Dispatch(ctx, payload, p.endpoints, p.policy)
	if err != nil {
		res.Err = err
		res.Decision = p.interpreter.Resolve(err, p.failOpen)

		var te *domain.TransportError
		if errors.As(err, &te) {
			res.Attempts = te.Attempts
		}
		logger.Warn("policy servers unavailable",
			logging.Error(err),
			logging.Attempts(res.Attempts),
			slog.Bool("fail_open", p.failOpen),
		)
	} else {
		res.Endpoint = resp.Endpoint
		res.Attempts = resp.Attempts
		res.Decision = p.interpreter.Interpret(resp, p.failOpen)
		resp.Release()
	}

	var pe *domain.ProtocolError
	if errors.As(res.Decision.Cause, &pe) {
		logger.Warn("unusable policy response",
			logging.Endpoint(res.Endpoint),
			logging.Error(pe),
			slog.Bool("fail_open", p.failOpen),
		)
	}

	res.Output = output(res.Decision, input)
	p.metrics.Decision(res.Decision)

	logger.Debug("hook decided",
		logging.ExitCode(int(res.Decision.ExitCode)),
		logging.Source(string(res.Decision.Source)),
		logging.Endpoint(res.Endpoint),
		logging.Attempts(res.Attempts),
	)
	return res
}

// rejected builds the result for input that never reached the network.
func (p *Pipeline) rejected(logger *slog.Logger, err error) *Result {
	d := domain.Decision{
		ExitCode:       domain.ExitCodeOf(err),
		Source:         domain.SourceValidation,
		SuppressOutput: true,
		Cause:          err,
	}
	logger.Error("hook event rejected", logging.Error(err), logging.ExitCode(int(d.ExitCode)))
	p.metrics.Decision(d)
	return &Result{Decision: d, Err: fmt.Errorf("validate hook event: %w", err)}
}

func output(d domain.Decision, input []byte) []byte {
	switch {
	case d.SuppressOutput:
		return nil
	case d.Modified():
		return d.ModifiedPayload
	default:
		return input
	}
}

// Close releases resources held by the pipeline's components.
func (p *Pipeline) Close() {
	for _, fn := range p.closers {
		fn()
	}
	p.closers = nil
}
