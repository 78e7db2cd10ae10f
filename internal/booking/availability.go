package booking

import (
	"context"
	"sort"
	"time"

	"github.com/franpass87/fp-experiences/internal/model"
	"github.com/franpass87/fp-experiences/internal/recurrence"
)

// AvailableOccurrence is one bookable window with its remaining capacity,
// as shown to the storefront.  SlotID is zero while the occurrence is
// still virtual.  RemainingTotal is -1 for unlimited slots.
type AvailableOccurrence struct {
	SlotID         uint64                    `json:"slot_id,omitempty"`
	Start          time.Time                 `json:"start"`
	End            time.Time                 `json:"end"`
	CapacityTotal  int                       `json:"capacity_total"`
	RemainingTotal int                       `json:"remaining_total"`
	PerCategory    map[model.CategoryKey]int `json:"remaining_per_category,omitempty"`
}

// VirtualOccurrences projects the experience's rules over the window and
// attaches remaining capacity to every occurrence, without requiring any
// slot to be materialized first.  Persisted slots found at an occurrence
// boundary contribute their own capacity settings; virtual occurrences use
// the experience defaults and aggregate reservations by exact boundary.
func (s *SlotService) VirtualOccurrences(ctx context.Context, experienceID uint64, window recurrence.Window) ([]AvailableOccurrence, error) {
	exp, err := s.experiences.GetByID(ctx, experienceID)
	if err != nil {
		return nil, err
	}
	if !exp.IsActive {
		return nil, ErrExperienceNotFound
	}
	rules, err := s.experiences.ListRules(ctx, experienceID)
	if err != nil {
		return nil, err
	}

	expander := recurrence.NewExpander(s.Location(exp))
	opts := recurrence.Options{
		Window:   window,
		Now:      s.clock.Now(),
		LeadTime: time.Duration(exp.LeadTimeMin) * time.Minute,
	}

	var occs []recurrence.Occurrence
	for _, sr := range rules {
		if !sr.IsActive {
			continue
		}
		expanded, err := expander.Expand(sr.Rule, sr.Exceptions, opts)
		if err != nil {
			continue // malformed stored rule contributes nothing
		}
		occs = append(occs, expanded...)
	}
	sort.Slice(occs, func(i, j int) bool { return occs[i].Start.Before(occs[j].Start) })

	out := make([]AvailableOccurrence, 0, len(occs))
	var lastStart, lastEnd time.Time
	for _, occ := range occs {
		if occ.Start.Equal(lastStart) && occ.End.Equal(lastEnd) {
			continue // same window produced by two rules
		}
		lastStart, lastEnd = occ.Start, occ.End

		avail, err := s.occurrenceAvailability(ctx, exp, occ)
		if err != nil {
			return nil, err
		}
		if avail != nil {
			out = append(out, *avail)
		}
	}
	return out, nil
}

// occurrenceAvailability computes remaining seats for one occurrence.
// Returns nil for occurrences backed by a closed slot.
func (s *SlotService) occurrenceAvailability(ctx context.Context, exp *model.Experience, occ recurrence.Occurrence) (*AvailableOccurrence, error) {
	capacity := s.capacityFor(exp, nil)
	var slotID uint64
	var snap CapacitySnapshot

	slot, err := s.slots.FindByBoundary(ctx, exp.ID, occ.Start, occ.End)
	switch {
	case err == nil:
		if slot.Status != model.SlotOpen {
			return nil, nil
		}
		slotID = slot.ID
		capacity = CapacityProfile{Total: slot.CapacityTotal, PerCategory: slot.CapacityPerCategory}
		snap, err = s.accountant.SnapshotBySlot(ctx, slot.ID, exp.BlockCapacityOnHold)
		if err != nil {
			return nil, err
		}
	case err == ErrSlotNotFound:
		snap, err = s.accountant.SnapshotByWindow(ctx, exp.ID, occ.Start, occ.End, exp.BlockCapacityOnHold)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	avail := AvailableOccurrence{
		SlotID:        slotID,
		Start:         occ.Start,
		End:           occ.End,
		CapacityTotal: capacity.Total,
	}
	if capacity.Total > 0 {
		avail.RemainingTotal = capacity.Total - snap.TotalCommitted
		if avail.RemainingTotal < 0 {
			avail.RemainingTotal = 0
		}
	} else {
		avail.RemainingTotal = -1
	}
	if len(capacity.PerCategory) > 0 {
		avail.PerCategory = make(map[model.CategoryKey]int, len(capacity.PerCategory))
		for key, limit := range capacity.PerCategory {
			if limit <= 0 {
				continue
			}
			remaining := limit - snap.PerCategory[key]
			if remaining < 0 {
				remaining = 0
			}
			avail.PerCategory[key] = remaining
		}
	}
	return &avail, nil
}
