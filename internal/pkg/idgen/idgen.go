// Package idgen produces time-ordered 64-bit identifiers.
//
// An identifier is millis*10^7 + low, where millis counts milliseconds since
// Epoch and low is a value below 10^7. Within one process every identifier is
// strictly greater than the previous one. Across processes identifiers are
// ordered by their millisecond component only.
package idgen

import (
	"math/rand"
	"sync/atomic"
	"time"
)

const (
	// Epoch is 2020-01-01T00:00:00Z in unix milliseconds.
	Epoch int64 = 1577836800000

	lowSpan   int64 = 10_000_000
	jitterMax int64 = 1000
)

// Generator hands out identifiers. The zero value is not usable; call New.
type Generator struct {
	last atomic.Int64
	now  func() time.Time
	rand func(n int64) int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithJitter overrides the source of the low-order jitter.
func WithJitter(fn func(n int64) int64) Option {
	return func(g *Generator) { g.rand = fn }
}

// New creates a generator backed by the wall clock.
func New(opts ...Option) *Generator {
	g := &Generator{
		now:  time.Now,
		rand: rand.Int63n,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the next identifier.
func (g *Generator) Generate() int64 {
	millis := g.now().UnixMilli() - Epoch
	if millis < 0 {
		millis = 0
	}
	candidate := FromParts(millis, g.rand(jitterMax))

	for {
		last := g.last.Load()
		next := candidate
		if next <= last {
			next = last + 1
		}
		if g.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// FromParts composes an identifier from its millisecond and low components.
func FromParts(millis, low int64) int64 {
	return millis*lowSpan + low%lowSpan
}

// Time decodes the wall-clock instant an identifier was produced at.
func Time(id int64) time.Time {
	return time.UnixMilli(id/lowSpan + Epoch).UTC()
}
