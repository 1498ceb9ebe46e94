package domain

import "time"

// Hook event names emitted by the event producer.
const (
	EventPreToolUse       = "PreToolUse"
	EventPostToolUse      = "PostToolUse"
	EventNotification     = "Notification"
	EventUserPromptSubmit = "UserPromptSubmit"
	EventStop             = "Stop"
	EventSubagentStop     = "SubagentStop"
	EventPreCompact       = "PreCompact"
)

// Field names read from the raw event document.
const (
	FieldHookEventName = "hook_event_name"
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldToolName      = "tool_name"
)

var knownEvents = map[string]bool{
	EventPreToolUse:       true,
	EventPostToolUse:      true,
	EventNotification:     true,
	EventUserPromptSubmit: true,
	EventStop:             true,
	EventSubagentStop:     true,
	EventPreCompact:       true,
}

// KnownEvent reports whether name is an event kind this version recognizes.
// Unknown kinds are still dispatched.
func KnownEvent(name string) bool {
	return knownEvents[name]
}

// IsToolEvent reports whether the event wraps a tool invocation.
func IsToolEvent(name string) bool {
	return name == EventPreToolUse || name == EventPostToolUse
}

// Endpoint is one candidate policy server. Endpoints are tried in list order.
type Endpoint struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// RetryPolicy bounds the attempts made against a single endpoint.
type RetryPolicy struct {
	// NetworkAttempts applies to connection, DNS, timeout and I/O failures.
	NetworkAttempts int
	// ServerAttempts applies to 5xx and 429 responses.
	ServerAttempts int
}

// DefaultRetryPolicy returns three attempts for network failures and two for
// server backpressure.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{NetworkAttempts: 3, ServerAttempts: 2}
}

// MaxAttempts returns the attempt budget for a classified outcome.
func (p RetryPolicy) MaxAttempts(class FailureClass) int {
	switch class {
	case ClassServerError, ClassRateLimited:
		return max(p.ServerAttempts, 1)
	case ClassConnection, ClassDNS, ClassTimeout, ClassNetwork:
		return max(p.NetworkAttempts, 1)
	default:
		return 1
	}
}
