package interpret

import (
	"errors"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

// Interpreter adapts Interpret and Resolve to the pipeline's interpreter
// port.
type Interpreter struct{}

// New returns an Interpreter.
func New() Interpreter {
	return Interpreter{}
}

// Interpret resolves a successful response.
func (Interpreter) Interpret(resp *domain.Response, failOpen bool) domain.Decision {
	if resp == nil {
		return domain.FailurePolicyDecision(failOpen, &domain.ProtocolError{Kind: domain.ProtocolEmptyBody})
	}
	return Interpret(resp.Status, resp.Body, failOpen)
}

// Resolve turns a dispatch failure into a decision.
func (Interpreter) Resolve(err error, failOpen bool) domain.Decision {
	return Resolve(err, failOpen)
}

// Resolve turns a dispatch failure into a decision. When the last outcome
// was an HTTP status, that status is interpreted. Failures below HTTP allow
// under failOpen and otherwise exit with the transport error's code, which is
// ExitAllServersFailed once every endpoint has been tried. Fail-closed
// resolutions never echo the input.
func Resolve(err error, failOpen bool) domain.Decision {
	var te *domain.TransportError
	if !errors.As(err, &te) {
		d := domain.FailurePolicyDecision(failOpen, err)
		if !failOpen {
			d.ExitCode = domain.ExitCodeOf(err)
			d.SuppressOutput = true
		}
		return d
	}

	var d domain.Decision
	switch {
	case te.LastStatus > 0 && te.Kind == domain.TransportAllEndpointsFailed:
		d = Interpret(te.LastStatus, nil, failOpen)
		d.Cause = te
	case failOpen:
		d = domain.FailurePolicyDecision(true, te)
	default:
		d = domain.FailurePolicyDecision(false, te)
		d.ExitCode = te.ExitCode()
	}

	if !failOpen {
		d.SuppressOutput = true
	}
	return d
}
