package booking

import (
	"context"
	"time"

	"github.com/franpass87/fp-experiences/internal/model"
)

// Lifecycle event types fired synchronously at the point of state
// transition.  The notification system consumes them; the core never
// formats or sends messages itself.
const (
	EventReservationCreated   = "reservation_created"
	EventReservationPaid      = "reservation_paid"
	EventReservationCancelled = "reservation_cancelled"
	EventRequestCreated       = "rtb_request_created"
	EventRequestApproved      = "rtb_request_approved"
	EventRequestDeclined      = "rtb_request_declined"
)

// Event carries a reservation lifecycle change plus enough denormalized
// context for downstream consumers to render a message without a lookup.
type Event struct {
	Type            string
	ReservationID   uint64
	ExperienceID    uint64
	ExperienceTitle string
	SlotStartUTC    time.Time
	SlotEndUTC      time.Time
	Status          model.ReservationStatus
	Quantities      model.CategoryQuantities
	Contact         *model.ContactInfo
	OccurredAt      time.Time
}

// EventPublisher delivers lifecycle events to collaborators.  Publish
// failures must not abort the state transition that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher discards events.  Used in tests and when the broker is not
// configured.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
