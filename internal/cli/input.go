package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/pkg/secure"
)

const (
	// MaxInputBytes bounds a hook event read from stdin.
	MaxInputBytes = 512 << 10

	initialInputBytes = 8 << 10
)

// readInput reads the whole event into a locked buffer. The caller must
// Release the buffer.
func readInput(r io.Reader) (*secure.Buffer, error) {
	buf := secure.Acquire(initialInputBytes, MaxInputBytes)
	if _, err := buf.ReadFrom(r); err != nil {
		buf.Release()
		if errors.Is(err, secure.ErrTooLarge) {
			return nil, exitErrorf(domain.ExitIO, "input exceeds %d bytes", MaxInputBytes)
		}
		return nil, exitErrorf(domain.ExitIO, "read input: %v", err)
	}
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		buf.Release()
		return nil, exitErrorf(domain.ExitInvalidJSON, "empty input, expected a JSON hook event on stdin")
	}
	return buf, nil
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code domain.ExitCode
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() domain.ExitCode {
	return e.code
}

func exitErrorf(code domain.ExitCode, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}
