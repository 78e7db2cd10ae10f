package booking

import (
	"context"
	"time"

	"github.com/franpass87/fp-experiences/internal/clock"
	"github.com/franpass87/fp-experiences/internal/model"
)

// CapacitySnapshot is the derived view of how many seats are committed on
// a slot.  It is recomputed from the live reservation set on every check
// and never persisted; there is no stored counter to fall out of sync.
type CapacitySnapshot struct {
	TotalCommitted int
	PerCategory    model.CategoryQuantities
}

// CapacityDecision is the outcome of an admission pre-check.  Remaining
// values are post-hypothetical (as if the request were admitted) and are
// returned for display regardless of the verdict.  -1 means unlimited.
type CapacityDecision struct {
	Allowed        bool
	RemainingTotal int
	PerCategory    map[model.CategoryKey]int
	Reason         string
}

// CapacityAccountant computes committed capacity from raw reservation rows.
type CapacityAccountant struct {
	reservations ReservationRepository
	clock        clock.Clock
}

// NewCapacityAccountant binds the accountant to its reservation source and
// time source.
func NewCapacityAccountant(reservations ReservationRepository, clk clock.Clock) *CapacityAccountant {
	return &CapacityAccountant{reservations: reservations, clock: clk}
}

// SnapshotBySlot aggregates committed seats for a persisted slot.
// blockOnHold is the experience's "block capacity during hold" flag.
func (a *CapacityAccountant) SnapshotBySlot(ctx context.Context, slotID uint64, blockOnHold bool) (CapacitySnapshot, error) {
	rows, err := a.reservations.ListBySlot(ctx, slotID)
	if err != nil {
		return CapacitySnapshot{}, err
	}
	return a.aggregate(rows, blockOnHold), nil
}

// SnapshotByWindow aggregates committed seats for an occurrence that may
// not have a slot id yet, keyed by experience and exact time boundary.
func (a *CapacityAccountant) SnapshotByWindow(ctx context.Context, experienceID uint64, start, end time.Time, blockOnHold bool) (CapacitySnapshot, error) {
	rows, err := a.reservations.ListByWindow(ctx, experienceID, start, end)
	if err != nil {
		return CapacitySnapshot{}, err
	}
	return a.aggregate(rows, blockOnHold), nil
}

func (a *CapacityAccountant) aggregate(rows []model.Reservation, blockOnHold bool) CapacitySnapshot {
	now := a.clock.Now()
	snap := CapacitySnapshot{PerCategory: model.CategoryQuantities{}}
	for _, r := range rows {
		if !countsTowardCapacity(&r, blockOnHold, now) {
			continue
		}
		snap.TotalCommitted += r.Quantities.Total()
		for key, n := range r.Quantities {
			snap.PerCategory[key] += n
		}
	}
	return snap
}

// countsTowardCapacity applies the inclusion rule: declined and cancelled
// rows never count; pending requests count only while their hold is alive
// and the experience blocks capacity during holds.  Expiry is evaluated
// lazily here; no sweep is required for correctness.
func countsTowardCapacity(r *model.Reservation, blockOnHold bool, now time.Time) bool {
	switch r.Status {
	case model.ReservationDeclined, model.ReservationCancelled:
		return false
	case model.ReservationPendingRequest:
		if !blockOnHold {
			return false
		}
		return r.HoldExpiresAt != nil && r.HoldExpiresAt.After(now)
	default:
		return true
	}
}

// CheckCapacity decides whether the requested quantities fit into the slot.
// A zero total capacity and an absent per-category limit both mean
// unlimited for that dimension.
func (a *CapacityAccountant) CheckCapacity(ctx context.Context, slot *model.Slot, blockOnHold bool, requested model.CategoryQuantities) (CapacityDecision, error) {
	snap, err := a.SnapshotBySlot(ctx, slot.ID, blockOnHold)
	if err != nil {
		return CapacityDecision{}, err
	}
	return evaluate(slot.CapacityTotal, slot.CapacityPerCategory, snap, requested), nil
}

func evaluate(capacityTotal int, limits model.CategoryQuantities, snap CapacitySnapshot, requested model.CategoryQuantities) CapacityDecision {
	dec := CapacityDecision{Allowed: true, RemainingTotal: -1, PerCategory: map[model.CategoryKey]int{}}
	requestedTotal := requested.Total()

	if capacityTotal > 0 {
		dec.RemainingTotal = capacityTotal - snap.TotalCommitted - requestedTotal
		if snap.TotalCommitted+requestedTotal > capacityTotal {
			dec.Allowed = false
			dec.Reason = "total capacity exceeded"
		}
	}
	for key, limit := range limits {
		if limit <= 0 {
			continue
		}
		remaining := limit - snap.PerCategory[key] - requested[key]
		dec.PerCategory[key] = remaining
		if snap.PerCategory[key]+requested[key] > limit {
			dec.Allowed = false
			if dec.Reason == "" {
				dec.Reason = "category limit exceeded: " + string(key)
			}
		}
	}
	return dec
}
