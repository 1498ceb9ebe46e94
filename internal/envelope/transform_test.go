package envelope

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 30, 45, 123456789, time.UTC)
}

func transform(t *testing.T, tr *Transformer, raw string) *domain.Envelope {
	t.Helper()
	env, err := tr.Transform([]byte(raw))
	if err != nil {
		t.Fatalf("Transform(%s) error = %v", raw, err)
	}
	return env
}

func jsonEqual(t *testing.T, a, b []byte) bool {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		t.Fatalf("decode %s: %v", a, err)
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return reflect.DeepEqual(va, vb)
}

var idPattern = regexp.MustCompile(`^[0-9a-f]+-[0-9a-f]+$`)

func TestTransform_Envelope(t *testing.T) {
	env := transform(t, New(WithClock(fixedClock)), `{"hook_event_name":"PreToolUse","session_id":"s1","tool_name":"Bash","correlation_id":"c9"}`)

	tests := []struct {
		field string
		got   string
		want  string
	}{
		{"specversion", env.SpecVersion, "1.0"},
		{"type", env.Type, "com.claudecode.hook.PreToolUse"},
		{"source", env.Source, "/claude-code/hooks"},
		{"time", env.Time, "2024-05-01T12:30:45Z"},
		{"datacontenttype", env.DataContentType, "application/json"},
		{"sessionid", env.SessionID, "s1"},
		{"correlationid", env.CorrelationID, "c9"},
		{"event name", env.EventName, "PreToolUse"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.field, tt.got, tt.want)
		}
	}
	if len(env.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", env.Warnings)
	}
	if !idPattern.MatchString(env.ID) {
		t.Errorf("ID = %q, want <hex>-<hex>", env.ID)
	}
}

func TestTransform_Namespace(t *testing.T) {
	env := transform(t, New(WithNamespace("org.example.hooks", "/agents/hooks")), `{"hook_event_name":"Stop","session_id":"s"}`)

	if env.Type != "org.example.hooks.Stop" {
		t.Errorf("Type = %q, want org.example.hooks.Stop", env.Type)
	}
	if env.Source != "/agents/hooks" {
		t.Errorf("Source = %q, want /agents/hooks", env.Source)
	}
}

func TestTransform_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  domain.ValidationKind
		field string
		code  domain.ExitCode
	}{
		{"empty", "  ", domain.ValidationInvalidJSON, "", domain.ExitInvalidJSON},
		{"garbage", "{not json", domain.ValidationInvalidJSON, "", domain.ExitInvalidJSON},
		{"array", `[1,2]`, domain.ValidationNotObject, "", domain.ExitInvalidHook},
		{"string", `"hello"`, domain.ValidationNotObject, "", domain.ExitInvalidHook},
		{"missing event", `{"session_id":"s"}`, domain.ValidationMissingField, "hook_event_name", domain.ExitInvalidHook},
		{"missing session", `{"hook_event_name":"Stop"}`, domain.ValidationMissingField, "session_id", domain.ExitInvalidHook},
		{"null session", `{"hook_event_name":"Stop","session_id":null}`, domain.ValidationMissingField, "session_id", domain.ExitInvalidHook},
		{"empty event", `{"hook_event_name":"","session_id":"s"}`, domain.ValidationMissingField, "hook_event_name", domain.ExitInvalidHook},
		{"numeric event", `{"hook_event_name":42,"session_id":"s"}`, domain.ValidationTypeMismatch, "hook_event_name", domain.ExitInvalidHook},
		{"object session", `{"hook_event_name":"Stop","session_id":{}}`, domain.ValidationTypeMismatch, "session_id", domain.ExitInvalidHook},
	}

	tr := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := tr.Transform([]byte(tt.input))
			if err == nil {
				t.Fatal("Transform() error = nil, want validation error")
			}
			if env != nil {
				t.Errorf("Transform() envelope = %+v, want nil", env)
			}

			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error %T is not a *domain.ValidationError", err)
			}
			if ve.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", ve.Kind, tt.kind)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if got := domain.ExitCodeOf(err); got != tt.code {
				t.Errorf("ExitCodeOf() = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestTransform_Warnings(t *testing.T) {
	tr := New()

	env := transform(t, tr, `{"hook_event_name":"FutureEvent","session_id":"s"}`)
	if len(env.Warnings) != 1 || !strings.Contains(env.Warnings[0], "FutureEvent") {
		t.Errorf("Warnings = %v, want one naming FutureEvent", env.Warnings)
	}
	if env.Type != "com.claudecode.hook.FutureEvent" {
		t.Errorf("Type = %q", env.Type)
	}

	env = transform(t, tr, `{"hook_event_name":"PostToolUse","session_id":"s"}`)
	if len(env.Warnings) != 1 || !strings.Contains(env.Warnings[0], "tool_name") {
		t.Errorf("Warnings = %v, want one naming tool_name", env.Warnings)
	}
}

func TestTransform_DataIsCopy(t *testing.T) {
	raw := []byte(`{ "hook_event_name" : "Stop", "session_id" : "s" }`)
	const want = `{"hook_event_name":"Stop","session_id":"s"}`

	env, err := New().Transform(raw)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if string(env.Data) != want {
		t.Errorf("Data = %s, want %s", env.Data, want)
	}

	for i := range raw {
		raw[i] = 'x'
	}
	if string(env.Data) != want {
		t.Errorf("Data changed with the input: %s", env.Data)
	}
}

func TestTransform_ClockFailure(t *testing.T) {
	env := transform(t, New(WithClock(func() time.Time { return time.Time{} })), `{"hook_event_name":"Stop","session_id":"s"}`)

	if env.Time != "" {
		t.Errorf("Time = %q, want empty", env.Time)
	}
	if env.ID == "" {
		t.Error("ID is empty")
	}

	payload, err := Serialize(env)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if strings.Contains(string(payload), `"time"`) {
		t.Errorf("payload %s carries a time attribute", payload)
	}
}

// Random events survive the round trip with data equal to the input.
func TestSerialize_RoundTrip(t *testing.T) {
	gofakeit.Seed(42)
	tr := New()

	for i := 0; i < 25; i++ {
		event := map[string]any{
			"hook_event_name": gofakeit.RandomString([]string{"PreToolUse", "PostToolUse", "Notification", "UserPromptSubmit", "Stop"}),
			"session_id":      gofakeit.UUID(),
			"tool_name":       gofakeit.RandomString([]string{"Bash", "Write", "Edit", "Read"}),
			"tool_input": map[string]any{
				"command":  gofakeit.Sentence(6),
				"path":     "/" + gofakeit.Word() + "/" + gofakeit.Word() + ".go",
				"lines":    gofakeit.Number(1, 5000),
				"dry_run":  gofakeit.Bool(),
				"nullable": nil,
			},
			"prompt": gofakeit.Paragraph(1, 3, 12, " "),
		}
		raw, err := json.MarshalIndent(event, "", "  ")
		if err != nil {
			t.Fatalf("marshal event: %v", err)
		}

		env, payload, err := tr.TransformAndSerialize(raw)
		if err != nil {
			t.Fatalf("TransformAndSerialize() error = %v", err)
		}

		var wire map[string]json.RawMessage
		if err := json.Unmarshal(payload, &wire); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if !jsonEqual(t, raw, wire["data"]) {
			t.Errorf("data = %s, want %s", wire["data"], raw)
		}
		if !jsonEqual(t, []byte(`"`+env.ID+`"`), wire["id"]) {
			t.Errorf("id = %s, want %q", wire["id"], env.ID)
		}
	}
}

func TestSerialize_NoHTMLEscaping(t *testing.T) {
	env := transform(t, New(), `{"hook_event_name":"Stop","session_id":"s","note":"<b>a & b</b>"}`)

	payload, err := Serialize(env)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if !strings.Contains(string(payload), `"<b>a & b</b>"`) {
		t.Errorf("payload %s escapes HTML", payload)
	}
}

func TestSerialize_Nil(t *testing.T) {
	_, err := Serialize(nil)
	if err == nil {
		t.Fatal("Serialize(nil) error = nil")
	}
	if got := domain.ExitCodeOf(err); got != domain.ExitInternal {
		t.Errorf("ExitCodeOf() = %d, want %d", got, domain.ExitInternal)
	}
}
