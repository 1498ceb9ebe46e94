package dispatch

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/testutil"
)

func TestDispatch_ReplayedServerRecovery(t *testing.T) {
	r, cleanup := testutil.NewVCRRecorder(t, "policy_retry_then_block")
	defer cleanup()

	c, rec := newTestClient(t, WithHTTPClient(testutil.VCRHTTPClient(r)))

	eps := []domain.Endpoint{{URL: "https://policy.example.com/hook", APIKey: "test-key"}}
	resp, err := c.Dispatch(context.Background(), []byte(payload), eps, domain.DefaultRetryPolicy())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	defer resp.Release()

	if resp.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", resp.Attempts)
	}
	if n := len(rec.recorded()); n != 1 {
		t.Errorf("backoff sleeps = %d, want 1", n)
	}

	var got, want map[string]any
	if err := json.Unmarshal(resp.Body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	json.Unmarshal([]byte(`{"decision":"block","reason":"rm -rf outside the workspace is not allowed"}`), &want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Body = %s", resp.Body)
	}
}
