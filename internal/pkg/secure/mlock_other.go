//go:build !unix

package secure

import "errors"

var errUnsupported = errors.New("secure: memory locking not supported")

func lock([]byte) error { return errUnsupported }

func unlock([]byte) error { return nil }
