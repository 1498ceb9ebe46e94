//go:build unix

package secure

import "golang.org/x/sys/unix"

func lock(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return unix.Mlock(p)
}

func unlock(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return unix.Munlock(p)
}
