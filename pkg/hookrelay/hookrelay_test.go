package hookrelay_test

import (
	"context"
	"testing"

	"github.com/tjfontaine/hookrelay/internal/testutil"
	"github.com/tjfontaine/hookrelay/pkg/hookrelay"
)

func TestNewDefault(t *testing.T) {
	ps := testutil.NewPolicyServer(t, testutil.OK(`{"decision":"block","reason":"no"}`))

	p, err := hookrelay.NewDefault(
		hookrelay.WithEndpoints(hookrelay.Endpoint{URL: ps.URL()}),
		hookrelay.WithFailOpen(true),
	)
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}
	defer p.Close()

	res := p.Run(context.Background(), []byte(`{"hook_event_name":"Stop","session_id":"s"}`))
	if res.ExitCode() != hookrelay.ExitBlock {
		t.Errorf("ExitCode() = %d, want %d", res.ExitCode(), hookrelay.ExitBlock)
	}
	if len(res.Decision.Notices) != 1 || res.Decision.Notices[0].Text != "no" {
		t.Errorf("Notices = %+v", res.Decision.Notices)
	}
}

func TestNewDefault_NoEndpoints(t *testing.T) {
	p, err := hookrelay.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}
	defer p.Close()

	res := p.Run(context.Background(), []byte(`{"hook_event_name":"Stop","session_id":"s"}`))
	if res.ExitCode() != 4 {
		t.Errorf("ExitCode() = %d, want 4", res.ExitCode())
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("HOOKRELAY_CONFIG_PATH", "")
	cfg, err := hookrelay.LoadConfig(hookrelay.LoadOptions{
		SearchPaths: []string{},
		Overrides:   map[string]any{"server_urls": []string{"https://policy.example.com/hook"}},
	})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	p, err := hookrelay.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig() error = %v", err)
	}
	defer p.Close()

	if got := p.Endpoints(); len(got) != 1 || got[0].URL != "https://policy.example.com/hook" {
		t.Errorf("Endpoints() = %+v", got)
	}
	if hookrelay.DefaultRetryPolicy().NetworkAttempts != 3 {
		t.Error("unexpected default retry policy")
	}
}
