package envelope

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// IDGenerator hands out envelope identifiers of the form
// "<hex seconds>-<hex nanoseconds>". Identifiers are strictly increasing for
// the lifetime of the generator.
type IDGenerator struct {
	mu        sync.Mutex
	now       func() time.Time
	lastNanos int64

	// fallback state used when the clock cannot be read
	wall    func() time.Time
	counter atomic.Uint64
}

// NewIDGenerator creates a generator reading the given clock. A nil clock
// uses time.Now.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now, wall: time.Now}
}

// Next returns the next identifier.
func (g *IDGenerator) Next() string {
	t := g.now()
	if !clockOK(t) {
		return g.fallback()
	}

	g.mu.Lock()
	ns := t.UnixNano()
	if ns <= g.lastNanos {
		ns = g.lastNanos + 1
	}
	g.lastNanos = ns
	g.mu.Unlock()

	return fmt.Sprintf("%x-%x", ns/int64(time.Second), ns%int64(time.Second))
}

// fallback combines wall seconds with a process-local counter.
func (g *IDGenerator) fallback() string {
	var sec int64
	if w := g.wall(); clockOK(w) {
		sec = w.Unix()
	}
	return fmt.Sprintf("%x-%x", sec, g.counter.Add(1))
}

func clockOK(t time.Time) bool {
	return !t.IsZero() && t.Unix() > 0
}
