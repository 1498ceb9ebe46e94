package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelWarn, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "json")

	logger.Debug("hidden")
	logger.Info("dispatched", Endpoint("http://policy/hook"), Attempts(2), Duration(1500*time.Millisecond))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %s", out)
	}
	for _, want := range []string{`"endpoint":"http://policy/hook"`, `"attempts":2`, `"duration_ms":1500`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "text")

	ctx := WithRunID(context.Background(), "run-123")
	FromContext(ctx, logger).Info("hello")

	if !strings.Contains(buf.String(), "run_id=run-123") {
		t.Errorf("expected run_id in %q", buf.String())
	}
	if RunIDFrom(context.Background()) != "" {
		t.Error("expected empty run id")
	}
}

func TestError(t *testing.T) {
	if got := Error(errors.New("boom")); got.Value.String() != "boom" {
		t.Errorf("Error() = %v", got)
	}
	if got := Error(nil); got.Value.String() != "" {
		t.Errorf("Error(nil) = %v", got)
	}
}
