package cli

import (
	"bytes"
	"testing"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/pipeline"
)

func TestWriteOutput(t *testing.T) {
	modified := domain.NewDecision()
	modified.ModifiedPayload = []byte(`{"a":1}`)

	blocked := domain.NewDecision()
	blocked.ExitCode = domain.ExitBlock

	failed := domain.NewDecision()
	failed.ExitCode = domain.ExitAllServersFailed

	tests := []struct {
		name string
		mode string
		res  *pipeline.Result
		want string
	}{
		{"suppressed", "default", &pipeline.Result{Decision: domain.NewDecision()}, ""},
		{"echo trims trailing newlines", "default", &pipeline.Result{Decision: domain.NewDecision(), Output: []byte("{}\n\n")}, "{}\n"},
		{"plain", "plain", &pipeline.Result{Decision: blocked, Output: []byte(`{"x":true}`)}, "{\"x\":true}\n"},
		{"json allowed", "json", &pipeline.Result{Decision: domain.NewDecision(), Output: []byte(`{}`)}, `{"status":"allowed","exit_code":0,"modified":false}` + "\n"},
		{"json modified", "json", &pipeline.Result{Decision: modified, Output: modified.ModifiedPayload}, `{"status":"allowed","exit_code":0,"modified":true,"data":{"a":1}}` + "\n"},
		{"json blocked", "json", &pipeline.Result{Decision: blocked, Output: []byte(`{}`)}, `{"status":"blocked","exit_code":1,"modified":false}` + "\n"},
		{"json error", "json", &pipeline.Result{Decision: failed, Output: []byte(`{}`)}, `{"status":"error","exit_code":32,"modified":false}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeOutput(&buf, tt.mode, tt.res); err != nil {
				t.Fatalf("writeOutput() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("writeOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrinter_Notices(t *testing.T) {
	d := domain.NewDecision()
	d.Notices = []domain.Notice{
		{Kind: domain.NoticeBlocked, Text: "b"},
		{Kind: domain.NoticeDenied, Text: "d"},
		{Kind: domain.NoticeAllowed, Text: "a"},
		{Kind: domain.NoticeAskUser, Text: "q"},
		{Kind: domain.NoticeStopped, Text: "s"},
	}

	var buf bytes.Buffer
	newPrinter(&buf, false, false, true).Notices(d)

	want := "✗ Blocked: b\n✗ Denied: d\n✓ Allowed: a\n⚠ User approval required: q\nStopped: s\n"
	if got := buf.String(); got != want {
		t.Errorf("Notices() =\n%s\nwant\n%s", got, want)
	}

	buf.Reset()
	newPrinter(&buf, true, false, true).Notices(d)
	if buf.Len() != 0 {
		t.Errorf("silent printer wrote %q", buf.String())
	}
}

func TestPrinter_Colors(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf, false, true, true).Error("boom")
	if !bytes.Contains(buf.Bytes(), []byte("\x1b[")) {
		t.Errorf("expected ANSI escapes, got %q", buf.String())
	}

	buf.Reset()
	newPrinter(&buf, false, false, true).Error("boom")
	if bytes.Contains(buf.Bytes(), []byte("\x1b[")) {
		t.Errorf("unexpected ANSI escapes in %q", buf.String())
	}
}

func TestPrinter_Unavailable(t *testing.T) {
	var buf bytes.Buffer
	err := &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastClass: domain.ClassConnection}
	newPrinter(&buf, false, false, false).Unavailable([]string{"http://a/hook", "http://b/hook"}, err)

	out := buf.String()
	for _, want := range []string{"Server unavailable", "  • http://a/hook", "  • http://b/hook", "Is the policy server running?", "--fail-open"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter_Progress(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false, false, false)

	p.Connecting("http://a/hook", false)
	p.Retrying(503, 1, 2)
	p.EndpointUnavailable("http://a/hook")
	p.Connecting("http://b/hook", true)
	p.ClientError(403)
	p.Connecting("http://c/hook", true)
	p.FallbackConnected()

	want := "Connecting to http://a/hook...\n" +
		"Request failed (HTTP 503, attempt 1/2), retrying...\n" +
		"Server http://a/hook unavailable, trying next server...\n" +
		"Trying fallback server http://b/hook...\n" +
		"Client error (HTTP 403) - not retrying\n" +
		"Trying fallback server http://c/hook...\n" +
		"Successfully connected to fallback server\n"
	if got := buf.String(); got != want {
		t.Errorf("progress =\n%s\nwant\n%s", got, want)
	}

	buf.Reset()
	silent := newPrinter(&buf, true, false, true)
	silent.Connecting("http://a/hook", false)
	silent.FallbackConnected()
	if buf.Len() != 0 {
		t.Errorf("silent printer wrote %q", buf.String())
	}
}
