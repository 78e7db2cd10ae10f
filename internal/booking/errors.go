// Package booking implements the reservation core: capacity accounting,
// the reservation lifecycle, slot management and race-safe admission.
// All services operate on storage ports so the algorithms can be tested
// against in-memory fakes.
package booking

import (
	"errors"
	"fmt"
	"time"
)

// ErrExperienceNotFound is returned when the referenced experience does
// not exist or is inactive.
var ErrExperienceNotFound = errors.New("booking: experience not found")

// ErrSlotNotFound is returned when a slot id cannot be resolved.
var ErrSlotNotFound = errors.New("booking: slot not found")

// ErrReservationNotFound is returned when a reservation id cannot be resolved.
var ErrReservationNotFound = errors.New("booking: reservation not found")

// ErrCapacityExceeded is returned by the pre-admission capacity check.
var ErrCapacityExceeded = errors.New("booking: capacity exceeded")

// ErrCapacityExceededRace is returned when the post-commit re-check found
// the slot oversold by a concurrent admission.  The losing reservation and
// its payment artifact have already been rolled back when this surfaces.
var ErrCapacityExceededRace = errors.New("booking: capacity exceeded by concurrent booking")

// ErrCapacityBelowCommitted rejects capacity edits that would drop a limit
// below what is already committed on the slot.
var ErrCapacityBelowCommitted = errors.New("booking: capacity below committed reservations")

// ErrCartLocked signals that another checkout for the same cart session is
// still in flight.
var ErrCartLocked = errors.New("booking: cart session locked")

// ValidationError reports malformed input rejected before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Reason)
}

// BufferConflictError reports that a candidate slot window, once widened by
// the experience buffers, overlaps another non-cancelled slot.
type BufferConflictError struct {
	ExperienceID uint64
	Start        time.Time
	End          time.Time
	ConflictID   uint64
}

func (e *BufferConflictError) Error() string {
	return fmt.Sprintf("booking: slot %s-%s conflicts with slot %d of experience %d",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.ConflictID, e.ExperienceID)
}

// SlotUnavailableError reports that a requested occurrence can no longer be
// resolved to a valid slot.  It carries the attempted boundaries so the
// storefront can refresh its availability view.
type SlotUnavailableError struct {
	ExperienceID uint64
	Start        time.Time
	End          time.Time
	Reason       string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("booking: occurrence %s-%s of experience %d unavailable: %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.ExperienceID, e.Reason)
}

// InvalidTransitionError reports a state change not allowed from the
// reservation's current status.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking: invalid transition %s -> %s", e.From, e.To)
}
