package telemetry

import (
	"bytes"
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitTracer(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	var buf bytes.Buffer
	shutdown, err := InitTracer("hookrelay-test", "v0.0.0", &buf, nil)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "hook.dispatch")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte(`"hook.dispatch"`)) {
		t.Errorf("exported spans missing span name: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte("hookrelay-test")) {
		t.Errorf("exported spans missing service name: %s", out)
	}
}
