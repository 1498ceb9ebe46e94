package dispatch

import (
	"math/rand/v2"
	"time"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

// Jitter returns a random duration in [0, span].
type Jitter func(span time.Duration) time.Duration

// RandomJitter draws uniformly from [0, span].
func RandomJitter(span time.Duration) time.Duration {
	if span <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(span) + 1))
}

type curve struct {
	lo, hi time.Duration
	cap    time.Duration
	linear bool
}

var curves = map[domain.FailureClass]curve{
	domain.ClassConnection:  {lo: 250 * time.Millisecond, hi: 500 * time.Millisecond, cap: 3 * time.Second},
	domain.ClassDNS:         {lo: 250 * time.Millisecond, hi: 500 * time.Millisecond, cap: 3 * time.Second},
	domain.ClassTimeout:     {lo: 1000 * time.Millisecond, hi: 1500 * time.Millisecond, cap: 5 * time.Second},
	domain.ClassNetwork:     {lo: 500 * time.Millisecond, hi: 1000 * time.Millisecond, cap: 3 * time.Second},
	domain.ClassServerError: {lo: 1000 * time.Millisecond, hi: 1500 * time.Millisecond, cap: 10 * time.Second, linear: true},
	domain.ClassRateLimited: {lo: 5000 * time.Millisecond, hi: 7000 * time.Millisecond, cap: 30 * time.Second},
}

// multiplier is 2^attempt for exponential curves and (2+attempt) after the
// first retry for linear ones.
func (c curve) multiplier(attempt int) int64 {
	if attempt <= 0 {
		return 1
	}
	if c.linear {
		return int64(2 + attempt)
	}
	return int64(1) << min(attempt, 16)
}

func (c curve) scale(d time.Duration, attempt int) time.Duration {
	m := c.multiplier(attempt)
	if d > c.cap/time.Duration(m) {
		return c.cap
	}
	return min(d*time.Duration(m), c.cap)
}

// Bounds returns the smallest and largest delay Delay can produce for class
// after the given 0-based attempt. Classes that are never retried yield zero.
func Bounds(class domain.FailureClass, attempt int) (time.Duration, time.Duration) {
	c, ok := curves[class]
	if !ok {
		return 0, 0
	}
	return c.scale(c.lo, attempt), c.scale(c.hi, attempt)
}

// Delay computes the wait before the retry that follows the given 0-based
// attempt. It is pure apart from jitter.
func Delay(class domain.FailureClass, attempt int, jitter Jitter) time.Duration {
	c, ok := curves[class]
	if !ok {
		return 0
	}
	if jitter == nil {
		jitter = RandomJitter
	}
	span := c.hi - c.lo
	j := min(max(jitter(span), 0), span)
	return c.scale(c.lo+j, attempt)
}
