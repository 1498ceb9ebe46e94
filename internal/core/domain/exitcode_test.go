package domain

import "testing"

func TestExitCode_Status(t *testing.T) {
	tests := []struct {
		code     ExitCode
		expected string
	}{
		{ExitAllow, "allowed"},
		{ExitBlock, "blocked"},
		{ExitAskUser, "ask_user"},
		{ExitInvalidJSON, "error"},
		{ExitAllServersFailed, "error"},
	}

	for _, tt := range tests {
		if got := tt.code.Status(); got != tt.expected {
			t.Errorf("ExitCode(%d).Status() = %q, want %q", tt.code, got, tt.expected)
		}
	}
}

func TestExitCode_String(t *testing.T) {
	if got := ExitTimeout.String(); got != "request timed out" {
		t.Errorf("String() = %q", got)
	}
	if got := ExitCode(77).String(); got != "exit code 77" {
		t.Errorf("String() = %q", got)
	}
}

func TestExitCode_IsDecision(t *testing.T) {
	for code := ExitCode(0); code <= 40; code++ {
		want := code <= ExitAskUser
		if got := code.IsDecision(); got != want {
			t.Errorf("ExitCode(%d).IsDecision() = %v, want %v", code, got, want)
		}
	}
}
