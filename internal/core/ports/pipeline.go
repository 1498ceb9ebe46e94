// Package ports defines the interfaces between the stages of the hook
// pipeline: transform, dispatch and interpret.
package ports

import (
	"context"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

// Transformer validates a raw hook event and wraps it in an envelope.
type Transformer interface {
	// Transform returns a *domain.ValidationError when raw is unusable.
	Transform(raw []byte) (*domain.Envelope, error)
	// Serialize renders the envelope as wire JSON.
	Serialize(env *domain.Envelope) ([]byte, error)
}

// Dispatcher delivers a payload to the first endpoint that accepts it.
type Dispatcher interface {
	// Dispatch returns a *domain.TransportError when every endpoint failed.
	// The caller must Release a successful response.
	Dispatch(ctx context.Context, payload []byte, endpoints []domain.Endpoint, policy domain.RetryPolicy) (*domain.Response, error)
}

// Interpreter turns a dispatch outcome into exactly one decision.
type Interpreter interface {
	// Interpret resolves a successful response.
	Interpret(resp *domain.Response, failOpen bool) domain.Decision
	// Resolve resolves a dispatch failure.
	Resolve(err error, failOpen bool) domain.Decision
}

// Progress receives dispatch milestones meant for a person watching the
// terminal. Implementations must not block.
type Progress interface {
	Connecting(endpoint string, fallback bool)
	// Retrying reports a failed attempt that will be retried. status is the
	// HTTP status, or the negated network exit code.
	Retrying(status, attempt, maxAttempts int)
	ClientError(status int)
	EndpointUnavailable(endpoint string)
	FallbackConnected()
}
