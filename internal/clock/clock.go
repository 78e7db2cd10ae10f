// Package clock allows injecting time into the booking core so that
// expansion and hold-expiry logic stay deterministic under test.
package clock

import "time"

// Clock supplies the current instant.  All implementations return UTC.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always reports the same instant.  Used in
// tests that exercise hold expiry and lead-time filtering.
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}
