package domain

import "encoding/json"

const (
	// SpecVersion is the envelope format version.
	SpecVersion = "1.0"

	// DataContentType describes the encoding of Envelope.Data.
	DataContentType = "application/json"

	// DefaultTypePrefix namespaces the envelope type in reverse-DNS form.
	DefaultTypePrefix = "com.claudecode.hook"

	// DefaultSource identifies the hooks subsystem as the event origin.
	DefaultSource = "/claude-code/hooks"
)

// Envelope wraps a raw hook event with routing and identity metadata.
// Data is a private copy of the full input document.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	ID              string          `json:"id"`
	Time            string          `json:"time,omitempty"`
	DataContentType string          `json:"datacontenttype"`
	SessionID       string          `json:"sessionid,omitempty"`
	CorrelationID   string          `json:"correlationid,omitempty"`
	Data            json.RawMessage `json:"data"`

	// EventName is the hook_event_name the envelope was built from.
	EventName string `json:"-"`

	// Warnings lists non-fatal findings, such as an unknown event kind.
	Warnings []string `json:"-"`
}

// Response is the successful answer of a policy server. Body may live in a
// sensitive buffer; call Release once the body has been consumed.
type Response struct {
	Status   int
	Body     []byte
	Endpoint string
	Attempts int

	release func()
}

// NewResponse creates a response whose body is released by release.
func NewResponse(status int, body []byte, endpoint string, attempts int, release func()) *Response {
	return &Response{
		Status:   status,
		Body:     body,
		Endpoint: endpoint,
		Attempts: attempts,
		release:  release,
	}
}

// Release wipes and frees the body. It is safe to call more than once.
func (r *Response) Release() {
	if r == nil {
		return
	}
	if r.release != nil {
		r.release()
		r.release = nil
	}
	r.Body = nil
}
