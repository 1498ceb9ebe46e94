package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/pkg/secure"
)

type state int

const (
	stateAttempting state = iota
	stateBackoff
	stateAdvanceEndpoint
	stateSuccess
	stateExhausted
)

func (s state) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateBackoff:
		return "backoff"
	case stateAdvanceEndpoint:
		return "advance_endpoint"
	case stateSuccess:
		return "success"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// outcome is the result of one request. Status is the HTTP status, or the
// negated network exit code when the request failed below HTTP.
type outcome struct {
	status int
	class  domain.FailureClass
	err    error
}

// run tracks one dispatch sequence.
type run struct {
	endpoints []domain.Endpoint
	policy    domain.RetryPolicy

	index    int // current endpoint
	attempt  int // 0-based attempt on the current endpoint
	attempts int // requests sent overall
	tried    int // endpoints tried

	last       outcome
	lastStatus int // last HTTP status, zero when none was received
}

func (r *run) endpoint() domain.Endpoint {
	return r.endpoints[r.index]
}

// Dispatch POSTs payload to each endpoint in order until one answers 200.
// A successful response owns a sensitive buffer; the caller must Release it.
// When every endpoint fails the error is a *domain.TransportError carrying
// the last observed outcome.
func (c *Client) Dispatch(ctx context.Context, payload []byte, endpoints []domain.Endpoint, policy domain.RetryPolicy) (*domain.Response, error) {
	if len(endpoints) == 0 {
		return nil, &domain.TransportError{Kind: domain.TransportNoEndpoints}
	}

	ctx, span := c.tracer.Start(ctx, "hookrelay.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("hookrelay.endpoints", len(endpoints)),
			attribute.Int("hookrelay.payload_bytes", len(payload)),
		))
	defer span.End()

	started := time.Now()
	defer func() { c.metrics.ObserveDispatch(time.Since(started)) }()

	buf := secure.Acquire(4096, c.maxResponseBytes)
	handedOff := false
	defer func() {
		if !handedOff {
			buf.Release()
		}
	}()

	r := &run{endpoints: endpoints, policy: policy, tried: 1}
	st := stateAttempting

	for {
		switch st {
		case stateAttempting:
			if err := ctx.Err(); err != nil {
				return nil, c.abort(span, r, err)
			}
			if r.attempt == 0 {
				c.progress.Connecting(r.endpoint().URL, r.index > 0)
			}
			buf.Reset()
			r.attempts++
			r.last = c.attemptOnce(ctx, r.endpoint(), payload, buf)
			r.lastStatus = 0
			if r.last.status > 0 && r.last.class != domain.ClassInvalidResponse {
				r.lastStatus = r.last.status
			}
			c.metrics.Attempt(r.last.class)
			span.AddEvent("attempt", trace.WithAttributes(
				attribute.String("hookrelay.endpoint", r.endpoint().URL),
				attribute.Int("hookrelay.attempt", r.attempt+1),
				attribute.Int("hookrelay.status", r.last.status),
				attribute.String("hookrelay.class", r.last.class.String()),
			))
			if err := ctx.Err(); err != nil && r.last.class != domain.ClassNone {
				return nil, c.abort(span, r, err)
			}
			st = c.next(r)
			switch {
			case st == stateBackoff:
				c.progress.Retrying(r.last.status, r.attempt+1, r.policy.MaxAttempts(r.last.class))
			case st == stateAdvanceEndpoint && r.last.class == domain.ClassClientError:
				c.progress.ClientError(r.last.status)
			}
			c.logger.Debug("dispatch attempt",
				slog.String("endpoint", r.endpoint().URL),
				slog.Int("attempt", r.attempt+1),
				slog.Int("status", r.last.status),
				slog.String("class", r.last.class.String()),
				slog.String("next", st.String()),
			)

		case stateBackoff:
			d := Delay(r.last.class, r.attempt, c.jitter)
			if timeout := endpointTimeout(r.endpoint()); d > timeout {
				d = timeout
			}
			c.logger.Debug("dispatch backoff",
				slog.String("endpoint", r.endpoint().URL),
				slog.String("class", r.last.class.String()),
				slog.Duration("delay", d),
			)
			if err := c.sleep(ctx, d); err != nil {
				return nil, c.abort(span, r, err)
			}
			r.attempt++
			st = stateAttempting

		case stateAdvanceEndpoint:
			c.logger.Warn("policy server failed",
				slog.String("endpoint", r.endpoint().URL),
				slog.Int("attempts", r.attempt+1),
				slog.String("class", r.last.class.String()),
				slog.Any("error", r.last.err),
			)
			if r.index+1 >= len(r.endpoints) {
				st = stateExhausted
				continue
			}
			c.progress.EndpointUnavailable(r.endpoint().URL)
			r.index++
			r.attempt = 0
			r.tried++
			c.metrics.Failover()
			st = stateAttempting

		case stateSuccess:
			if r.index > 0 {
				c.progress.FallbackConnected()
			}
			handedOff = true
			span.SetAttributes(
				attribute.String("hookrelay.endpoint", r.endpoint().URL),
				attribute.Int("hookrelay.attempts", r.attempts),
			)
			return domain.NewResponse(r.last.status, buf.Bytes(), r.endpoint().URL, r.attempts, buf.Release), nil

		case stateExhausted:
			c.metrics.Exhausted()
			err := &domain.TransportError{
				Kind:       domain.TransportAllEndpointsFailed,
				LastStatus: r.lastStatus,
				LastClass:  r.last.class,
				Attempts:   r.attempts,
				Endpoints:  r.tried,
				Err:        r.last.err,
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, string(err.Kind))
			return nil, err
		}
	}
}

// next picks the transition after an attempt.
func (c *Client) next(r *run) state {
	class := r.last.class
	if class == domain.ClassNone {
		return stateSuccess
	}
	if class.Retryable() && r.attempt+1 < r.policy.MaxAttempts(class) {
		return stateBackoff
	}
	return stateAdvanceEndpoint
}

func (c *Client) abort(span trace.Span, r *run, cause error) error {
	kind := domain.TransportCanceled
	class := domain.ClassCanceled
	if errors.Is(cause, context.DeadlineExceeded) {
		kind = domain.TransportDeadlineExceeded
		class = domain.ClassTimeout
	}
	err := &domain.TransportError{
		Kind:       kind,
		LastStatus: r.lastStatus,
		LastClass:  class,
		Attempts:   r.attempts,
		Endpoints:  r.tried,
		Err:        cause,
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	return err
}

// attemptOnce sends a single request. The response body is read into buf.
func (c *Client) attemptOnce(ctx context.Context, ep domain.Endpoint, payload []byte, buf *secure.Buffer) outcome {
	if err := ValidateURL(ep.URL); err != nil {
		return failed(domain.ClassInvalidURL, fmt.Errorf("invalid endpoint %q: %w", ep.URL, err))
	}

	ctx, cancel := context.WithTimeout(ctx, endpointTimeout(ep))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		return failed(domain.ClassInvalidURL, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if ep.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}

	resp, err := c.HTTPClient().Do(req)
	if err != nil {
		return failed(Classify(err), err)
	}
	defer resp.Body.Close()

	if _, err := buf.ReadFrom(resp.Body); err != nil {
		if errors.Is(err, secure.ErrTooLarge) {
			return outcome{status: resp.StatusCode, class: domain.ClassInvalidResponse, err: fmt.Errorf("response body over %d bytes: %w", c.maxResponseBytes, err)}
		}
		return failed(Classify(err), fmt.Errorf("read response: %w", err))
	}

	class := ClassifyStatus(resp.StatusCode)
	if class == domain.ClassNone {
		return outcome{status: resp.StatusCode}
	}
	return outcome{status: resp.StatusCode, class: class, err: fmt.Errorf("policy server returned status %d", resp.StatusCode)}
}

func failed(class domain.FailureClass, err error) outcome {
	return outcome{status: class.Status(), class: class, err: err}
}

func endpointTimeout(ep domain.Endpoint) time.Duration {
	if ep.Timeout > 0 {
		return ep.Timeout
	}
	return DefaultTimeout
}
