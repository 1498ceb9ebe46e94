package logging

import (
	"log/slog"
	"time"
)

// Common field names for hook dispatch logs.
const (
	FieldRunID     = "run_id"
	FieldEventID   = "event_id"
	FieldEventType = "event_type"
	FieldSessionID = "session_id"
	FieldEndpoint  = "endpoint"
	FieldAttempts  = "attempts"
	FieldStatus    = "status"
	FieldExitCode  = "exit_code"
	FieldSource    = "source"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

// RunID returns a slog attribute for the invocation id.
func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

// EventID returns a slog attribute for the envelope id.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// EventType returns a slog attribute for the envelope type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// SessionID returns a slog attribute for the hook session.
func SessionID(id string) slog.Attr {
	return slog.String(FieldSessionID, id)
}

// Endpoint returns a slog attribute for a policy server URL.
func Endpoint(url string) slog.Attr {
	return slog.String(FieldEndpoint, url)
}

// Attempts returns a slog attribute for the number of requests sent.
func Attempts(n int) slog.Attr {
	return slog.Int(FieldAttempts, n)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// ExitCode returns a slog attribute for the process exit code.
func ExitCode(code int) slog.Attr {
	return slog.Int(FieldExitCode, code)
}

// Source returns a slog attribute for the decision source.
func Source(s string) slog.Attr {
	return slog.String(FieldSource, s)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
