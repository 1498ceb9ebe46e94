package interpret

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		failOpen bool
		want     domain.ExitCode
		suppress bool
	}{
		{
			name:     "5xx fail open",
			err:      &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastStatus: 500, LastClass: domain.ClassServerError},
			failOpen: true,
			want:     domain.ExitAllow,
		},
		{
			name:     "5xx fail closed",
			err:      &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastStatus: 502, LastClass: domain.ClassServerError},
			want:     domain.ExitBlock,
			suppress: true,
		},
		{
			name:     "4xx blocks even when fail open",
			err:      &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastStatus: 401, LastClass: domain.ClassClientError},
			failOpen: true,
			want:     domain.ExitBlock,
		},
		{
			name:     "connection fail open",
			err:      &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastClass: domain.ClassConnection},
			failOpen: true,
			want:     domain.ExitAllow,
		},
		{
			name:     "connection fail closed",
			err:      &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastClass: domain.ClassConnection},
			want:     domain.ExitAllServersFailed,
			suppress: true,
		},
		{
			name:     "dns fail closed",
			err:      &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastClass: domain.ClassDNS},
			want:     domain.ExitAllServersFailed,
			suppress: true,
		},
		{
			name:     "tls fail closed",
			err:      &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastClass: domain.ClassTLS},
			want:     domain.ExitAllServersFailed,
			suppress: true,
		},
		{
			name:     "invalid url fail closed",
			err:      &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastClass: domain.ClassInvalidURL},
			want:     domain.ExitAllServersFailed,
			suppress: true,
		},
		{
			name:     "network failures across endpoints fail closed",
			err:      &domain.TransportError{Kind: domain.TransportAllEndpointsFailed, LastClass: domain.ClassTimeout, Attempts: 6, Endpoints: 2},
			want:     domain.ExitAllServersFailed,
			suppress: true,
		},
		{
			name:     "deadline fail closed",
			err:      &domain.TransportError{Kind: domain.TransportDeadlineExceeded, LastStatus: 503, LastClass: domain.ClassTimeout, Err: context.DeadlineExceeded},
			want:     domain.ExitTimeout,
			suppress: true,
		},
		{
			name:     "deadline fail open",
			err:      &domain.TransportError{Kind: domain.TransportDeadlineExceeded, LastClass: domain.ClassTimeout},
			failOpen: true,
			want:     domain.ExitAllow,
		},
		{
			name:     "unknown error fail closed",
			err:      errors.New("boom"),
			want:     domain.ExitInternal,
			suppress: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Resolve(fmt.Errorf("dispatch: %w", tt.err), tt.failOpen)
			if d.ExitCode != tt.want {
				t.Errorf("ExitCode = %d, want %d", d.ExitCode, tt.want)
			}
			if d.SuppressOutput != tt.suppress {
				t.Errorf("SuppressOutput = %v, want %v", d.SuppressOutput, tt.suppress)
			}
			if d.Cause == nil {
				t.Error("expected Cause to be set")
			}
		})
	}
}

func TestInterpreter_NilResponse(t *testing.T) {
	d := New().Interpret(nil, false)
	if d.ExitCode != domain.ExitBlock {
		t.Errorf("ExitCode = %d, want %d", d.ExitCode, domain.ExitBlock)
	}
}

func TestInterpreter_Response(t *testing.T) {
	resp := domain.NewResponse(200, []byte(`{"decision":"block"}`), "http://policy/hook", 1, nil)
	d := New().Interpret(resp, true)
	if d.ExitCode != domain.ExitBlock {
		t.Errorf("ExitCode = %d, want %d", d.ExitCode, domain.ExitBlock)
	}
}
