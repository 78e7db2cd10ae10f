package booking

import (
	"context"
	"log"
	"time"

	"github.com/franpass87/fp-experiences/internal/clock"
	"github.com/franpass87/fp-experiences/internal/model"
)

// transitions is the reservation state machine.  Cancellation is allowed
// from every non-terminal state; paid reservations may only be checked in.
var transitions = map[model.ReservationStatus][]model.ReservationStatus{
	model.ReservationPending: {
		model.ReservationPaid,
		model.ReservationCancelled,
	},
	model.ReservationPendingRequest: {
		model.ReservationApprovedConfirmed,
		model.ReservationApprovedPendingPayment,
		model.ReservationDeclined,
		model.ReservationCancelled,
	},
	model.ReservationApprovedPendingPayment: {
		model.ReservationPaid,
		model.ReservationCancelled,
	},
	model.ReservationApprovedConfirmed: {
		model.ReservationCheckedIn,
		model.ReservationCancelled,
	},
	model.ReservationPaid: {
		model.ReservationCheckedIn,
	},
}

// ReservationLedger owns the reservation lifecycle: creation, status
// transitions with their hold side effects, whitelisted field updates and
// the hard delete used by the admission rollback.
type ReservationLedger struct {
	reservations ReservationRepository
	experiences  ExperienceRepository
	slots        SlotRepository
	events       EventPublisher
	clock        clock.Clock
}

// NewReservationLedger wires the ledger to its ports.
func NewReservationLedger(reservations ReservationRepository, experiences ExperienceRepository, slots SlotRepository, events EventPublisher, clk clock.Clock) *ReservationLedger {
	return &ReservationLedger{
		reservations: reservations,
		experiences:  experiences,
		slots:        slots,
		events:       events,
		clock:        clk,
	}
}

// Create persists a new reservation.  Entering PENDING_REQUEST sets the
// hold deadline to now plus the experience's configured timeout; all other
// initial states carry no hold.
func (l *ReservationLedger) Create(ctx context.Context, exp *model.Experience, res *model.Reservation) error {
	if res.Status == "" {
		res.Status = model.ReservationPending
	}
	if res.Status == model.ReservationPendingRequest {
		deadline := l.clock.Now().Add(time.Duration(exp.HoldTimeoutMin) * time.Minute)
		res.HoldExpiresAt = &deadline
	} else {
		res.HoldExpiresAt = nil
	}
	return l.reservations.Insert(ctx, res)
}

// UpdateStatus applies a lifecycle transition.  Invalid transitions return
// InvalidTransitionError and change nothing.  Hold side effects: leaving
// PENDING_REQUEST for APPROVED_PENDING_PAYMENT starts a fresh payment
// hold; every other transition out of a held state clears the deadline.
func (l *ReservationLedger) UpdateStatus(ctx context.Context, id uint64, next model.ReservationStatus) (*model.Reservation, error) {
	res, err := l.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allowed(res.Status, next) {
		return nil, &InvalidTransitionError{From: string(res.Status), To: string(next)}
	}

	var hold *time.Time
	if next == model.ReservationApprovedPendingPayment {
		exp, err := l.experiences.GetByID(ctx, res.ExperienceID)
		if err != nil {
			return nil, err
		}
		deadline := l.clock.Now().Add(time.Duration(exp.HoldTimeoutMin) * time.Minute)
		hold = &deadline
	}

	if err := l.reservations.UpdateStatus(ctx, id, next, hold); err != nil {
		return nil, err
	}
	res.Status = next
	res.HoldExpiresAt = hold

	l.emit(ctx, res, next)
	return res, nil
}

// UpdateFields merges only the whitelisted fields of the patch.
func (l *ReservationLedger) UpdateFields(ctx context.Context, id uint64, patch ReservationPatch) error {
	return l.reservations.UpdateFields(ctx, id, patch)
}

// Delete hard-deletes a reservation.  Used solely by the admission
// rollback path; cancellation goes through UpdateStatus.
func (l *ReservationLedger) Delete(ctx context.Context, id uint64) error {
	return l.reservations.Delete(ctx, id)
}

// Get returns a reservation by id.
func (l *ReservationLedger) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	return l.reservations.GetByID(ctx, id)
}

// ListRequests returns request-to-book reservations for the review screen.
func (l *ReservationLedger) ListRequests(ctx context.Context, filter RequestFilter) ([]model.Reservation, error) {
	return l.reservations.ListRequests(ctx, filter)
}

// CancelExpiredHolds marks pending requests whose hold lapsed before the
// cutoff as cancelled.  Optional hygiene; accounting never needs it.
func (l *ReservationLedger) CancelExpiredHolds(ctx context.Context, olderThan time.Duration) (int64, error) {
	return l.reservations.CancelExpiredHolds(ctx, l.clock.Now().Add(-olderThan))
}

func allowed(from, to model.ReservationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// emit publishes the lifecycle event matching the transition.  Publish
// failures are logged and swallowed so the committed transition stands.
func (l *ReservationLedger) emit(ctx context.Context, res *model.Reservation, next model.ReservationStatus) {
	var evType string
	switch next {
	case model.ReservationPaid:
		evType = EventReservationPaid
	case model.ReservationCancelled:
		evType = EventReservationCancelled
	case model.ReservationApprovedConfirmed, model.ReservationApprovedPendingPayment:
		evType = EventRequestApproved
	case model.ReservationDeclined:
		evType = EventRequestDeclined
	default:
		return
	}
	ev := Event{
		Type:          evType,
		ReservationID: res.ID,
		ExperienceID:  res.ExperienceID,
		Status:        next,
		Quantities:    res.Quantities,
		Contact:       res.Meta.Contact,
		OccurredAt:    l.clock.Now(),
	}
	if exp, err := l.experiences.GetByID(ctx, res.ExperienceID); err == nil {
		ev.ExperienceTitle = exp.Title
	}
	if slot, err := l.slots.GetByID(ctx, res.SlotID); err == nil {
		ev.SlotStartUTC = slot.StartUTC
		ev.SlotEndUTC = slot.EndUTC
	}
	if err := l.events.Publish(ctx, ev); err != nil {
		log.Printf("ledger: publish %s event for reservation %d failed: %v", evType, res.ID, err)
	}
}
