// Package checkin holds the rotating shared check-in code shown on devices.
package checkin

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultCodeLength = 16
	DefaultGrace      = time.Minute
)

// CodeGenerator produces a fresh random code.
type CodeGenerator func() (string, error)

// Rotator owns the current and previous check-in codes. A code is accepted
// when it equals the current code, or equals the previous code while the
// grace window after the last rotation is still open. All state lives behind
// one mutex so accept-and-rotate is a single step.
type Rotator struct {
	mu          sync.Mutex
	current     string
	previous    string
	generatedAt time.Time

	generate CodeGenerator
	now      func() time.Time
	grace    time.Duration
}

// Option customises a Rotator.
type Option func(*Rotator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Rotator) {
		if now != nil {
			r.now = now
		}
	}
}

// WithGrace overrides the window during which the previous code is honoured.
func WithGrace(grace time.Duration) Option {
	return func(r *Rotator) {
		if grace >= 0 {
			r.grace = grace
		}
	}
}

// NewRotator builds a rotator with no code issued yet. Call Rotate before use.
func NewRotator(generate CodeGenerator, opts ...Option) *Rotator {
	r := &Rotator{
		generate: generate,
		now:      time.Now,
		grace:    DefaultGrace,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rotate replaces the current code and keeps the old one as previous.
func (r *Rotator) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotateLocked()
}

func (r *Rotator) rotateLocked() error {
	if r.generate == nil {
		return fmt.Errorf("checkin: code generator not configured")
	}
	code, err := r.generate()
	if err != nil {
		return fmt.Errorf("checkin: generate code: %w", err)
	}
	r.previous = r.current
	r.current = code
	r.generatedAt = r.now().UTC()
	return nil
}

// Accept reports whether code is currently valid without changing state.
func (r *Rotator) Accept(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acceptLocked(code)
}

func (r *Rotator) acceptLocked(code string) bool {
	if code == "" {
		return false
	}
	if code == r.current {
		return true
	}
	if code == r.previous {
		return !r.now().UTC().After(r.generatedAt.Add(r.grace))
	}
	return false
}

// Consume accepts code and, on success, rotates twice so the accepted code
// drops out of both slots. It reports whether the code was accepted.
func (r *Rotator) Consume(code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.acceptLocked(code) {
		return false, nil
	}
	for i := 0; i < 2; i++ {
		if err := r.rotateLocked(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Current returns the code devices should display.
func (r *Rotator) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// GeneratedAt returns when the current code was issued.
func (r *Rotator) GeneratedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generatedAt
}
