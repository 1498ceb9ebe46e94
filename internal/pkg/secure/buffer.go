// Package secure provides a scoped buffer for sensitive bytes. The buffer is
// pinned in memory where the platform allows and zeroed on every reset and
// release.
package secure

import (
	"errors"
	"io"
)

// ErrTooLarge is returned when a write would grow the buffer past its limit.
var ErrTooLarge = errors.New("secure: buffer limit exceeded")

const minCapacity = 512

// Buffer is a growable, single-owner byte buffer. The zero value is not
// usable; call Acquire.
type Buffer struct {
	data   []byte
	limit  int
	locked bool
}

// Acquire returns a buffer with the given initial capacity. limit bounds the
// total size; zero means unbounded.
func Acquire(capacity, limit int) *Buffer {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	if limit > 0 && capacity > limit {
		capacity = limit
	}
	b := &Buffer{limit: limit}
	b.alloc(capacity)
	return b
}

// With acquires a buffer, passes it to fn and releases it afterwards.
func With(capacity, limit int, fn func(*Buffer) error) error {
	b := Acquire(capacity, limit)
	defer b.Release()
	return fn(b)
}

func (b *Buffer) alloc(capacity int) {
	b.data = make([]byte, 0, capacity)
	b.locked = lock(b.data[:capacity]) == nil
}

// Write appends p, growing the buffer when needed. The old backing array is
// wiped before it is dropped.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.data == nil {
		return 0, errors.New("secure: write to released buffer")
	}
	need := len(b.data) + len(p)
	if b.limit > 0 && need > b.limit {
		return 0, ErrTooLarge
	}
	if need > cap(b.data) {
		b.grow(need)
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *Buffer) grow(need int) {
	newCap := cap(b.data) * 2
	if newCap < need {
		newCap = need
	}
	if b.limit > 0 && newCap > b.limit {
		newCap = b.limit
	}
	old := b.data
	oldLocked := b.locked
	b.alloc(newCap)
	b.data = append(b.data, old...)
	wipe(old[:cap(old)])
	if oldLocked {
		_ = unlock(old[:cap(old)])
	}
}

// ReadFrom reads r until EOF. Reading past the limit fails with ErrTooLarge.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	chunk := make([]byte, 4096)
	defer wipe(chunk)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if _, werr := b.Write(chunk[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Bytes returns the buffered bytes. The slice is only valid until the next
// Reset, Write or Release.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Locked reports whether the backing memory is pinned.
func (b *Buffer) Locked() bool {
	return b.locked
}

// Reset wipes the content but keeps the allocation.
func (b *Buffer) Reset() {
	if b.data == nil {
		return
	}
	wipe(b.data[:cap(b.data)])
	b.data = b.data[:0]
}

// Release wipes and unpins the memory. Calling it again is a no-op.
func (b *Buffer) Release() {
	if b.data == nil {
		return
	}
	full := b.data[:cap(b.data)]
	wipe(full)
	if b.locked {
		_ = unlock(full)
	}
	b.data = nil
	b.locked = false
}

func wipe(p []byte) {
	clear(p)
}
