// Package domain holds the core types of the hook dispatch pipeline: events,
// envelopes, decisions, exit codes and the error taxonomy.
package domain

import (
	"errors"
	"fmt"
)

// ValidationKind is the category of an input validation failure.
type ValidationKind string

const (
	// ValidationInvalidJSON indicates the input is not parseable JSON.
	ValidationInvalidJSON ValidationKind = "invalid_json"

	// ValidationNotObject indicates the input parsed but is not a JSON object.
	ValidationNotObject ValidationKind = "not_object"

	// ValidationMissingField indicates a required field is absent or empty.
	ValidationMissingField ValidationKind = "missing_field"

	// ValidationTypeMismatch indicates a required field has the wrong JSON type.
	ValidationTypeMismatch ValidationKind = "type_mismatch"

	// ValidationInternal indicates the envelope could not be serialized.
	ValidationInternal ValidationKind = "internal"
)

// ValidationError is returned when a raw event cannot be turned into an
// envelope. It is always fatal and never retried.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ExitCode returns the input-band code for this failure. Unparseable input
// and structurally invalid events are distinguished.
func (e *ValidationError) ExitCode() ExitCode {
	switch e.Kind {
	case ValidationInvalidJSON:
		return ExitInvalidJSON
	case ValidationInternal:
		return ExitInternal
	default:
		return ExitInvalidHook
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(kind ValidationKind, message string) *ValidationError {
	return &ValidationError{Kind: kind, Message: message}
}

// WithField records the offending field name.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithCause attaches the underlying error.
func (e *ValidationError) WithCause(err error) *ValidationError {
	e.Err = err
	return e
}

// TransportKind is the terminal state of a dispatch that produced no 200.
type TransportKind string

const (
	TransportAllEndpointsFailed TransportKind = "all_endpoints_failed"
	TransportNoEndpoints        TransportKind = "no_endpoints"
	TransportDeadlineExceeded   TransportKind = "deadline_exceeded"
	TransportCanceled           TransportKind = "canceled"
)

// TransportError is surfaced only after every endpoint has been tried (or the
// overall budget ran out). It carries the last observed outcome so the caller
// can resolve fail-open or fail-closed behaviour.
type TransportError struct {
	Kind TransportKind

	// LastStatus is the last HTTP status received, or zero when the last
	// attempt failed below HTTP.
	LastStatus int

	// LastClass is the classification of the last attempt.
	LastClass FailureClass

	// Attempts counts every request sent across all endpoints.
	Attempts int

	// Endpoints counts the endpoints that were tried.
	Endpoints int

	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s after %d attempt(s) across %d endpoint(s)", e.Kind, e.Attempts, e.Endpoints)
	if e.LastStatus > 0 {
		msg += fmt.Sprintf(": last status %d", e.LastStatus)
	} else if e.LastClass != ClassNone {
		msg += ": last failure " + e.LastClass.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExitCode returns the code used when the failure is not absorbed by
// fail-open handling.
func (e *TransportError) ExitCode() ExitCode {
	switch e.Kind {
	case TransportNoEndpoints:
		return ExitInvalidURL
	case TransportDeadlineExceeded:
		return ExitTimeout
	case TransportCanceled:
		return ExitSignal
	}
	// The last class is reported in logs and the JSON result, never as the
	// exit code.
	return ExitAllServersFailed
}

// ProtocolKind distinguishes the ways a response body can be unusable.
type ProtocolKind string

const (
	ProtocolInvalidJSON ProtocolKind = "invalid_json"
	ProtocolNotObject   ProtocolKind = "not_object"
	ProtocolEmptyBody   ProtocolKind = "empty_body"
)

// ProtocolError records that the policy server answered but the answer could
// not be understood. It never aborts the pipeline; the fail-open switch
// decides the outcome.
type ProtocolError struct {
	Kind   ProtocolKind
	Status int
	Err    error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("server protocol error (%s) with status %d", e.Kind, e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ExitCode returns the server-response band code for the failure.
func (e *ProtocolError) ExitCode() ExitCode {
	if e.Kind == ProtocolInvalidJSON {
		return ExitProtocol
	}
	return ExitServerInvalid
}

// ExitCoder is implemented by errors that know their process exit code.
type ExitCoder interface {
	ExitCode() ExitCode
}

// ExitCodeOf returns the exit code carried by err, or ExitInternal when err
// does not carry one. A nil error maps to ExitAllow.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitAllow
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitInternal
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
