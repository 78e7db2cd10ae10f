package booking

import (
	"context"
	"time"

	"github.com/franpass87/fp-experiences/internal/clock"
	"github.com/franpass87/fp-experiences/internal/model"
	"github.com/franpass87/fp-experiences/internal/recurrence"
)

// CapacityProfile bundles the capacity settings applied to a slot at
// creation time.  Zero total and absent category limits mean unlimited.
type CapacityProfile struct {
	Total       int
	PerCategory model.CategoryQuantities
}

// MaterializeOptions controls durable slot generation.
type MaterializeOptions struct {
	// ReplaceExisting overwrites the capacity of slots already present at
	// an expanded boundary instead of skipping them.
	ReplaceExisting bool
	// Capacity overrides the experience defaults when non-nil.
	Capacity *CapacityProfile
}

// SlotService owns persisted slots: durable materialization from rules,
// the lazy ensure path used when a virtual occurrence is booked, moves,
// capacity edits and the buffer-conflict check they all share.  Both
// creation entry points funnel through one get-or-create path.
type SlotService struct {
	slots       SlotRepository
	experiences ExperienceRepository
	accountant  *CapacityAccountant
	clock       clock.Clock
	defaultLoc  *time.Location
}

// NewSlotService wires the service to its ports.  defaultLoc is the zone
// used when an experience carries no timezone of its own.
func NewSlotService(slots SlotRepository, experiences ExperienceRepository, accountant *CapacityAccountant, clk clock.Clock, defaultLoc *time.Location) *SlotService {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &SlotService{
		slots:       slots,
		experiences: experiences,
		accountant:  accountant,
		clock:       clk,
		defaultLoc:  defaultLoc,
	}
}

// Location resolves the expansion timezone for an experience.
func (s *SlotService) Location(exp *model.Experience) *time.Location {
	if exp.Timezone != "" {
		if loc, err := time.LoadLocation(exp.Timezone); err == nil {
			return loc
		}
	}
	return s.defaultLoc
}

// Materialize expands the rule and persists a slot for every occurrence.
// Occurrences already materialized are skipped (or their capacity is
// overwritten with ReplaceExisting); occurrences that would violate the
// buffer policy are skipped rather than failing the batch.  Returns the
// number of slots created.  Running it twice with identical inputs and
// ReplaceExisting off creates nothing the second time.
func (s *SlotService) Materialize(ctx context.Context, experienceID uint64, rule recurrence.Rule, exceptions []recurrence.Exception, opts MaterializeOptions) (int, error) {
	exp, err := s.experiences.GetByID(ctx, experienceID)
	if err != nil {
		return 0, err
	}

	expander := recurrence.NewExpander(s.Location(exp))
	occs, err := expander.Expand(rule, exceptions, recurrence.Options{})
	if err != nil {
		return 0, &ValidationError{Field: "rule", Reason: err.Error()}
	}

	capacity := s.capacityFor(exp, opts.Capacity)
	created := 0
	for _, occ := range occs {
		existing, err := s.slots.FindByBoundary(ctx, experienceID, occ.Start, occ.End)
		switch {
		case err == nil:
			if opts.ReplaceExisting {
				if err := s.slots.UpdateCapacity(ctx, existing.ID, capacity.Total, capacity.PerCategory); err != nil {
					return created, err
				}
			}
			continue
		case err != ErrSlotNotFound:
			return created, err
		}
		if err := s.bufferConflict(ctx, exp, occ.Start, occ.End, 0); err != nil {
			continue // conflicting occurrence, leave the neighbours alone
		}
		if _, err := s.insertSlot(ctx, exp, occ.Start, occ.End, capacity); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// EnsureSlotForOccurrence resolves the slot backing a virtual occurrence,
// creating it on first booking.  The occurrence must still match a window
// derived from the experience's active rules (lead time included); a stale
// or never-valid boundary fails with SlotUnavailableError, a buffer clash
// with BufferConflictError.
func (s *SlotService) EnsureSlotForOccurrence(ctx context.Context, experienceID uint64, start, end time.Time) (*model.Slot, error) {
	exp, err := s.experiences.GetByID(ctx, experienceID)
	if err != nil {
		return nil, err
	}

	slot, err := s.slots.FindByBoundary(ctx, experienceID, start, end)
	switch {
	case err == nil:
		if slot.Status != model.SlotOpen {
			return nil, &SlotUnavailableError{ExperienceID: experienceID, Start: start, End: end, Reason: "slot is closed"}
		}
		return slot, nil
	case err != ErrSlotNotFound:
		return nil, err
	}

	ok, err := s.matchesRule(ctx, exp, start, end)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &SlotUnavailableError{ExperienceID: experienceID, Start: start, End: end, Reason: "no matching rule-derived window"}
	}

	if err := s.bufferConflict(ctx, exp, start, end, 0); err != nil {
		return nil, err
	}
	return s.insertSlot(ctx, exp, start, end, s.capacityFor(exp, nil))
}

// MoveSlot changes a slot's window after re-running the buffer check with
// the slot itself excluded.  On conflict the slot is left unchanged.
func (s *SlotService) MoveSlot(ctx context.Context, id uint64, newStart, newEnd time.Time) (*model.Slot, error) {
	if !newEnd.After(newStart) {
		return nil, &ValidationError{Field: "end", Reason: "must be after start"}
	}
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	exp, err := s.experiences.GetByID(ctx, slot.ExperienceID)
	if err != nil {
		return nil, err
	}
	if err := s.bufferConflict(ctx, exp, newStart, newEnd, id); err != nil {
		return nil, err
	}
	if err := s.slots.UpdateTimes(ctx, id, newStart, newEnd); err != nil {
		return nil, err
	}
	slot.StartUTC = newStart
	slot.EndUTC = newEnd
	return slot, nil
}

// UpdateCapacity edits a slot's limits.  Edits that would drop the total,
// or any configured category limit, below the currently committed snapshot
// are rejected.
func (s *SlotService) UpdateCapacity(ctx context.Context, id uint64, capacity CapacityProfile) error {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return err
	}
	exp, err := s.experiences.GetByID(ctx, slot.ExperienceID)
	if err != nil {
		return err
	}
	snap, err := s.accountant.SnapshotBySlot(ctx, id, exp.BlockCapacityOnHold)
	if err != nil {
		return err
	}
	if capacity.Total > 0 && capacity.Total < snap.TotalCommitted {
		return ErrCapacityBelowCommitted
	}
	for key, limit := range capacity.PerCategory {
		if limit > 0 && limit < snap.PerCategory[key] {
			return ErrCapacityBelowCommitted
		}
	}
	return s.slots.UpdateCapacity(ctx, id, capacity.Total, capacity.PerCategory)
}

// CancelSlot soft-cancels a slot.  Rows are never hard-deleted while
// reservations reference them.
func (s *SlotService) CancelSlot(ctx context.Context, id uint64) error {
	if _, err := s.slots.GetByID(ctx, id); err != nil {
		return err
	}
	return s.slots.UpdateStatus(ctx, id, model.SlotCancelled)
}

// Get returns a slot by id.
func (s *SlotService) Get(ctx context.Context, id uint64) (*model.Slot, error) {
	return s.slots.GetByID(ctx, id)
}

// matchesRule reports whether the boundary equals an occurrence expanded
// from any of the experience's active rules, honoring its lead time.
func (s *SlotService) matchesRule(ctx context.Context, exp *model.Experience, start, end time.Time) (bool, error) {
	rules, err := s.experiences.ListRules(ctx, exp.ID)
	if err != nil {
		return false, err
	}
	expander := recurrence.NewExpander(s.Location(exp))
	opts := recurrence.Options{
		Window:   recurrence.Window{Start: start.AddDate(0, 0, -1), End: end.AddDate(0, 0, 1)},
		Now:      s.clock.Now(),
		LeadTime: time.Duration(exp.LeadTimeMin) * time.Minute,
	}
	for _, sr := range rules {
		if !sr.IsActive {
			continue
		}
		occs, err := expander.Expand(sr.Rule, sr.Exceptions, opts)
		if err != nil {
			continue // malformed stored rule, cannot match
		}
		for _, occ := range occs {
			if occ.Start.Equal(start) && occ.End.Equal(end) {
				return true, nil
			}
		}
	}
	return false, nil
}

// bufferConflict widens the candidate window by the experience buffers and
// tests overlap against all other non-cancelled slots of the experience.
func (s *SlotService) bufferConflict(ctx context.Context, exp *model.Experience, start, end time.Time, excludeID uint64) error {
	bufferedStart := start.Add(-time.Duration(exp.BufferBeforeMin) * time.Minute)
	bufferedEnd := end.Add(time.Duration(exp.BufferAfterMin) * time.Minute)
	overlapping, err := s.slots.ListOverlapping(ctx, exp.ID, bufferedStart, bufferedEnd, excludeID)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return &BufferConflictError{
			ExperienceID: exp.ID,
			Start:        start,
			End:          end,
			ConflictID:   overlapping[0].ID,
		}
	}
	return nil
}

// insertSlot creates an OPEN slot, falling back to the existing row when a
// concurrent creator won the insert for the same boundary.
func (s *SlotService) insertSlot(ctx context.Context, exp *model.Experience, start, end time.Time, capacity CapacityProfile) (*model.Slot, error) {
	slot := &model.Slot{
		ExperienceID:        exp.ID,
		StartUTC:            start,
		EndUTC:              end,
		CapacityTotal:       capacity.Total,
		CapacityPerCategory: capacity.PerCategory,
		Status:              model.SlotOpen,
	}
	if err := s.slots.Insert(ctx, slot); err != nil {
		if existing, ferr := s.slots.FindByBoundary(ctx, exp.ID, start, end); ferr == nil {
			return existing, nil
		}
		return nil, err
	}
	return slot, nil
}

func (s *SlotService) capacityFor(exp *model.Experience, override *CapacityProfile) CapacityProfile {
	if override != nil {
		return *override
	}
	perCategory := make(model.CategoryQuantities, len(exp.CapacityPerCategory))
	for key, limit := range exp.CapacityPerCategory {
		perCategory[key] = limit
	}
	return CapacityProfile{Total: exp.CapacityTotal, PerCategory: perCategory}
}
