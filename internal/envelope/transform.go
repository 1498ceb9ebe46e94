// Package envelope wraps raw hook events into routing envelopes.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

// Option configures a Transformer.
type Option func(*Transformer)

// WithNamespace overrides the type prefix and source. Empty values keep the
// defaults.
func WithNamespace(typePrefix, source string) Option {
	return func(t *Transformer) {
		if typePrefix != "" {
			t.typePrefix = typePrefix
		}
		if source != "" {
			t.source = source
		}
	}
}

// WithClock sets the clock used for envelope time and identifiers.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		t.now = now
		t.ids = NewIDGenerator(now)
	}
}

// Transformer validates raw events and builds envelopes from them.
type Transformer struct {
	typePrefix string
	source     string
	now        func() time.Time
	ids        *IDGenerator
}

// New creates a Transformer with the default namespace.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		typePrefix: domain.DefaultTypePrefix,
		source:     domain.DefaultSource,
		now:        time.Now,
	}
	t.ids = NewIDGenerator(t.now)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform validates raw and wraps it. The returned envelope owns a compacted
// copy of raw; the caller's slice is never retained.
func (t *Transformer) Transform(raw []byte) (*domain.Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, domain.NewValidationError(domain.ValidationInvalidJSON, "empty input")
	}
	if !json.Valid(trimmed) {
		var v any
		err := json.Unmarshal(trimmed, &v)
		return nil, domain.NewValidationError(domain.ValidationInvalidJSON, "input is not valid JSON").WithCause(err)
	}
	if trimmed[0] != '{' {
		return nil, domain.NewValidationError(domain.ValidationNotObject, "input must be a JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, domain.NewValidationError(domain.ValidationInvalidJSON, "decode input").WithCause(err)
	}

	eventName, err := requiredString(fields, domain.FieldHookEventName)
	if err != nil {
		return nil, err
	}
	sessionID, err := requiredString(fields, domain.FieldSessionID)
	if err != nil {
		return nil, err
	}

	var data bytes.Buffer
	data.Grow(len(trimmed))
	if err := json.Compact(&data, trimmed); err != nil {
		return nil, domain.NewValidationError(domain.ValidationInternal, "copy event data").WithCause(err)
	}

	env := &domain.Envelope{
		SpecVersion:     domain.SpecVersion,
		Type:            t.typePrefix + "." + eventName,
		Source:          t.source,
		ID:              t.ids.Next(),
		Time:            t.timestamp(),
		DataContentType: domain.DataContentType,
		SessionID:       sessionID,
		CorrelationID:   optionalString(fields, domain.FieldCorrelationID),
		Data:            json.RawMessage(data.Bytes()),
		EventName:       eventName,
	}

	if !domain.KnownEvent(eventName) {
		env.Warnings = append(env.Warnings, fmt.Sprintf("unknown hook event %q", eventName))
	}
	if domain.IsToolEvent(eventName) && optionalString(fields, domain.FieldToolName) == "" {
		env.Warnings = append(env.Warnings, fmt.Sprintf("%s event without %s", eventName, domain.FieldToolName))
	}

	return env, nil
}

// Serialize renders env as wire JSON. Failures are reported as internal
// validation errors and nothing is returned.
func Serialize(env *domain.Envelope) ([]byte, error) {
	if env == nil {
		return nil, domain.NewValidationError(domain.ValidationInternal, "nil envelope")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, domain.NewValidationError(domain.ValidationInternal, "serialize envelope").WithCause(err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// TransformAndSerialize is Transform followed by Serialize.
func (t *Transformer) TransformAndSerialize(raw []byte) (*domain.Envelope, []byte, error) {
	env, err := t.Transform(raw)
	if err != nil {
		return nil, nil, err
	}
	payload, err := Serialize(env)
	if err != nil {
		return nil, nil, err
	}
	return env, payload, nil
}

// timestamp returns the RFC 3339 time, or "" when the clock is unusable.
func (t *Transformer) timestamp() string {
	now := t.now()
	if !clockOK(now) {
		return ""
	}
	return now.UTC().Format(time.RFC3339)
}

func requiredString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return "", domain.NewValidationError(domain.ValidationMissingField, "field is required").WithField(name)
	}
	if len(raw) == 0 || raw[0] != '"' {
		return "", domain.NewValidationError(domain.ValidationTypeMismatch, "field must be a string").WithField(name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", domain.NewValidationError(domain.ValidationTypeMismatch, "field must be a string").WithField(name).WithCause(err)
	}
	if s == "" {
		return "", domain.NewValidationError(domain.ValidationMissingField, "field must not be empty").WithField(name)
	}
	return s, nil
}

func optionalString(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok || len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Serialize renders env as wire JSON.
func (t *Transformer) Serialize(env *domain.Envelope) ([]byte, error) {
	return Serialize(env)
}
