package booking

import (
	"context"
	"log"
	"time"

	"github.com/franpass87/fp-experiences/internal/clock"
	"github.com/franpass87/fp-experiences/internal/model"
)

// AdmissionRequest describes one booking attempt.  SlotID may name an
// already-materialized slot; otherwise Start/End identify the virtual
// occurrence to book and the backing slot is created lazily.
type AdmissionRequest struct {
	ExperienceID     uint64
	SlotID           uint64
	Start            time.Time
	End              time.Time
	Quantities       model.CategoryQuantities
	Meta             model.ReservationMeta
	TotalAmountCents uint32
	// CreateOrder asks the external payment system for an order artifact
	// tied 1:1 to the reservation.  Both succeed or both are rolled back.
	CreateOrder bool
}

// ConcurrencyGuard orchestrates race-safe admission: optimistic capacity
// check, reservation insert, then a mandatory re-check that rolls the
// insert (and any payment artifact) back when a concurrent admission
// oversold the slot.  No lock is held around the slot at any point; the
// later committer loses and retries against fresh availability.
type ConcurrencyGuard struct {
	slots       *SlotService
	ledger      *ReservationLedger
	accountant  *CapacityAccountant
	experiences ExperienceRepository
	orders      OrderService
	events      EventPublisher
	clock       clock.Clock
}

// NewConcurrencyGuard wires the guard to the services it coordinates.
func NewConcurrencyGuard(slots *SlotService, ledger *ReservationLedger, accountant *CapacityAccountant, experiences ExperienceRepository, orders OrderService, events EventPublisher, clk clock.Clock) *ConcurrencyGuard {
	return &ConcurrencyGuard{
		slots:       slots,
		ledger:      ledger,
		accountant:  accountant,
		experiences: experiences,
		orders:      orders,
		events:      events,
		clock:       clk,
	}
}

// Admit runs the two-phase admission sequence and returns the committed
// reservation.  Typed failures: ValidationError for malformed input,
// SlotUnavailableError / BufferConflictError from slot resolution,
// ErrCapacityExceeded from the pre-check and ErrCapacityExceededRace when
// the post-insert re-check loses a race (after full rollback).
func (g *ConcurrencyGuard) Admit(ctx context.Context, req AdmissionRequest) (*model.Reservation, error) {
	exp, err := g.experiences.GetByID(ctx, req.ExperienceID)
	if err != nil {
		return nil, err
	}
	if !exp.IsActive {
		return nil, ErrExperienceNotFound
	}
	if err := validateQuantities(exp, req.Quantities); err != nil {
		return nil, err
	}

	slot, err := g.resolveSlot(ctx, req)
	if err != nil {
		return nil, err
	}

	decision, err := g.accountant.CheckCapacity(ctx, slot, exp.BlockCapacityOnHold, req.Quantities)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, ErrCapacityExceeded
	}

	res := &model.Reservation{
		ExperienceID:     exp.ID,
		SlotID:           slot.ID,
		Quantities:       req.Quantities,
		TotalAmountCents: req.TotalAmountCents,
		Meta:             req.Meta,
		Status:           model.ReservationPending,
	}
	if exp.RequireApproval {
		res.Status = model.ReservationPendingRequest
	}
	if err := g.ledger.Create(ctx, exp, res); err != nil {
		return nil, err
	}

	var orderRef string
	if req.CreateOrder {
		orderRef, err = g.orders.CreateOrder(ctx, res)
		if err != nil {
			// Artifact creation and reservation are atomic as a pair.
			g.rollback(ctx, res.ID, "")
			return nil, err
		}
		res.OrderRef = &orderRef
		if err := g.ledger.UpdateFields(ctx, res.ID, ReservationPatch{OrderRef: &orderRef}); err != nil {
			g.rollback(ctx, res.ID, orderRef)
			return nil, err
		}
	}

	// Post-commit re-verification.  A concurrent admission may have passed
	// the pre-check before this insert became visible; the later committer
	// discards its own work rather than blocking anyone.
	if raced, err := g.oversold(ctx, exp, slot); err != nil {
		g.rollback(ctx, res.ID, orderRef)
		return nil, err
	} else if raced {
		g.rollback(ctx, res.ID, orderRef)
		return nil, ErrCapacityExceededRace
	}

	g.emitCreated(ctx, exp, slot, res)
	return res, nil
}

// resolveSlot finds the admission target: by id when given, otherwise via
// the lazy ensure path for the requested boundary.
func (g *ConcurrencyGuard) resolveSlot(ctx context.Context, req AdmissionRequest) (*model.Slot, error) {
	if req.SlotID != 0 {
		slot, err := g.slots.Get(ctx, req.SlotID)
		if err != nil {
			return nil, err
		}
		if slot.Status != model.SlotOpen {
			return nil, &SlotUnavailableError{ExperienceID: req.ExperienceID, Start: slot.StartUTC, End: slot.EndUTC, Reason: "slot is closed"}
		}
		return slot, nil
	}
	return g.slots.EnsureSlotForOccurrence(ctx, req.ExperienceID, req.Start, req.End)
}

// oversold re-reads the committed snapshot after the insert and reports
// whether any limit is now exceeded.
func (g *ConcurrencyGuard) oversold(ctx context.Context, exp *model.Experience, slot *model.Slot) (bool, error) {
	snap, err := g.accountant.SnapshotBySlot(ctx, slot.ID, exp.BlockCapacityOnHold)
	if err != nil {
		return false, err
	}
	if slot.CapacityTotal > 0 && snap.TotalCommitted > slot.CapacityTotal {
		return true, nil
	}
	for key, limit := range slot.CapacityPerCategory {
		if limit > 0 && snap.PerCategory[key] > limit {
			return true, nil
		}
	}
	return false, nil
}

// rollback is the compensating action for a lost race or a failed artifact
// pairing: the reservation is hard-deleted and the order voided.  Errors
// here are logged, not surfaced; the admission error wins.
func (g *ConcurrencyGuard) rollback(ctx context.Context, reservationID uint64, orderRef string) {
	if err := g.ledger.Delete(ctx, reservationID); err != nil {
		log.Printf("guard: rollback delete of reservation %d failed: %v", reservationID, err)
	}
	if orderRef != "" {
		if err := g.orders.VoidOrder(ctx, orderRef); err != nil {
			log.Printf("guard: rollback void of order %s failed: %v", orderRef, err)
		}
	}
}

func (g *ConcurrencyGuard) emitCreated(ctx context.Context, exp *model.Experience, slot *model.Slot, res *model.Reservation) {
	evType := EventReservationCreated
	if res.Status == model.ReservationPendingRequest {
		evType = EventRequestCreated
	}
	ev := Event{
		Type:            evType,
		ReservationID:   res.ID,
		ExperienceID:    exp.ID,
		ExperienceTitle: exp.Title,
		SlotStartUTC:    slot.StartUTC,
		SlotEndUTC:      slot.EndUTC,
		Status:          res.Status,
		Quantities:      res.Quantities,
		Contact:         res.Meta.Contact,
		OccurredAt:      g.clock.Now(),
	}
	if err := g.events.Publish(ctx, ev); err != nil {
		log.Printf("guard: publish %s event for reservation %d failed: %v", evType, res.ID, err)
	}
}

// validateQuantities rejects empty requests, non-positive counts and
// categories outside the experience's configured set.
func validateQuantities(exp *model.Experience, quantities model.CategoryQuantities) error {
	if len(quantities) == 0 {
		return &ValidationError{Field: "quantities", Reason: "at least one ticket category is required"}
	}
	for key, n := range quantities {
		if n <= 0 {
			return &ValidationError{Field: string(key), Reason: "quantity must be positive"}
		}
		if !exp.ValidCategory(key) {
			return &ValidationError{Field: string(key), Reason: "unknown ticket category"}
		}
	}
	return nil
}
