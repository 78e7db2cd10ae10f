package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/franpass87/fp-experiences/internal/clock"
	"github.com/franpass87/fp-experiences/internal/model"
	"github.com/franpass87/fp-experiences/internal/recurrence"
)

type slotFixture struct {
	service      *SlotService
	slots        *fakeSlotRepo
	reservations *fakeReservationRepo
	experiences  *fakeExperienceRepo
	exp          *model.Experience
}

func newSlotFixture() *slotFixture {
	exp := &model.Experience{
		ID:                  1,
		Title:               "Wine tasting",
		IsActive:            true,
		CapacityTotal:       10,
		CapacityPerCategory: model.CategoryQuantities{"adult": 8},
		Categories:          []model.CategoryKey{"adult", "child"},
		BlockCapacityOnHold: true,
		HoldTimeoutMin:      30,
	}
	slots := newFakeSlotRepo()
	reservations := newFakeReservationRepo(slots)
	experiences := newFakeExperienceRepo(exp)
	accountant := NewCapacityAccountant(reservations, clock.NewFixed(testNow))
	service := NewSlotService(slots, experiences, accountant, clock.NewFixed(testNow), time.UTC)
	return &slotFixture{service: service, slots: slots, reservations: reservations, experiences: experiences, exp: exp}
}

func dailyRule(start, end string, times ...string) recurrence.Rule {
	return recurrence.Rule{
		Kind:        recurrence.KindDaily,
		Times:       times,
		RangeStart:  start,
		RangeEnd:    end,
		DurationMin: 60,
	}
}

func TestMaterialize(t *testing.T) {
	ctx := context.Background()

	t.Run("creates one slot per occurrence with experience defaults", func(t *testing.T) {
		f := newSlotFixture()
		created, err := f.service.Materialize(ctx, 1, dailyRule("2026-07-10", "2026-07-12", "09:00"), nil, MaterializeOptions{})
		if err != nil {
			t.Fatalf("Materialize: %v", err)
		}
		if created != 3 {
			t.Fatalf("created = %d, want 3", created)
		}
		slot, err := f.slots.FindByBoundary(ctx, 1,
			time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC),
			time.Date(2026, time.July, 10, 10, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("FindByBoundary: %v", err)
		}
		if slot.CapacityTotal != 10 || slot.CapacityPerCategory["adult"] != 8 {
			t.Fatalf("capacity not seeded from experience: %+v", slot)
		}
		if slot.Status != model.SlotOpen {
			t.Fatalf("status = %s", slot.Status)
		}
	})

	t.Run("second run creates nothing", func(t *testing.T) {
		f := newSlotFixture()
		rule := dailyRule("2026-07-10", "2026-07-12", "09:00")
		if _, err := f.service.Materialize(ctx, 1, rule, nil, MaterializeOptions{}); err != nil {
			t.Fatalf("first run: %v", err)
		}
		created, err := f.service.Materialize(ctx, 1, rule, nil, MaterializeOptions{})
		if err != nil {
			t.Fatalf("second run: %v", err)
		}
		if created != 0 {
			t.Fatalf("created = %d, want 0", created)
		}
	})

	t.Run("replace existing overwrites capacity", func(t *testing.T) {
		f := newSlotFixture()
		rule := dailyRule("2026-07-10", "2026-07-10", "09:00")
		if _, err := f.service.Materialize(ctx, 1, rule, nil, MaterializeOptions{}); err != nil {
			t.Fatalf("first run: %v", err)
		}
		override := &CapacityProfile{Total: 4}
		if _, err := f.service.Materialize(ctx, 1, rule, nil, MaterializeOptions{ReplaceExisting: true, Capacity: override}); err != nil {
			t.Fatalf("replace run: %v", err)
		}
		slot, err := f.slots.GetByID(ctx, 1)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if slot.CapacityTotal != 4 {
			t.Fatalf("capacity = %d, want 4", slot.CapacityTotal)
		}
	})

	t.Run("buffer-conflicting occurrences are skipped, not fatal", func(t *testing.T) {
		f := newSlotFixture()
		f.exp.BufferBeforeMin = 30
		f.experiences.experiences[1] = f.exp
		// 09:00-10:00 and 10:15-11:15: the second starts less than the
		// required 30 minute gap after the first.
		first := dailyRule("2026-07-10", "2026-07-10", "09:00")
		if _, err := f.service.Materialize(ctx, 1, first, nil, MaterializeOptions{}); err != nil {
			t.Fatalf("first: %v", err)
		}
		second := dailyRule("2026-07-10", "2026-07-10", "10:15")
		created, err := f.service.Materialize(ctx, 1, second, nil, MaterializeOptions{})
		if err != nil {
			t.Fatalf("second: %v", err)
		}
		if created != 0 {
			t.Fatalf("created = %d, want 0 (buffer conflict)", created)
		}
	})

	t.Run("invalid rule fails validation", func(t *testing.T) {
		f := newSlotFixture()
		var vErr *ValidationError
		_, err := f.service.Materialize(ctx, 1, recurrence.Rule{Kind: recurrence.KindDaily}, nil, MaterializeOptions{})
		if !errors.As(err, &vErr) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
	})
}

func TestEnsureSlotForOccurrence(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	withRule := func(f *slotFixture) {
		f.experiences.rules[1] = []model.ScheduleRule{{
			ID:           1,
			ExperienceID: 1,
			Rule:         dailyRule("2026-07-01", "2026-07-31", "09:00"),
			IsActive:     true,
		}}
	}

	t.Run("creates the slot on first booking", func(t *testing.T) {
		f := newSlotFixture()
		withRule(f)
		slot, err := f.service.EnsureSlotForOccurrence(ctx, 1, start, end)
		if err != nil {
			t.Fatalf("EnsureSlotForOccurrence: %v", err)
		}
		if slot.ID == 0 || slot.CapacityTotal != 10 {
			t.Fatalf("slot = %+v", slot)
		}
	})

	t.Run("returns the existing slot on later bookings", func(t *testing.T) {
		f := newSlotFixture()
		withRule(f)
		first, err := f.service.EnsureSlotForOccurrence(ctx, 1, start, end)
		if err != nil {
			t.Fatalf("first: %v", err)
		}
		second, err := f.service.EnsureSlotForOccurrence(ctx, 1, start, end)
		if err != nil {
			t.Fatalf("second: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("got two slots: %d and %d", first.ID, second.ID)
		}
	})

	t.Run("rejects boundaries no rule produces", func(t *testing.T) {
		f := newSlotFixture()
		withRule(f)
		var slotErr *SlotUnavailableError
		_, err := f.service.EnsureSlotForOccurrence(ctx, 1, start.Add(5*time.Minute), end.Add(5*time.Minute))
		if !errors.As(err, &slotErr) {
			t.Fatalf("err = %v, want SlotUnavailableError", err)
		}
	})

	t.Run("rejects closed slots", func(t *testing.T) {
		f := newSlotFixture()
		withRule(f)
		slot, err := f.service.EnsureSlotForOccurrence(ctx, 1, start, end)
		if err != nil {
			t.Fatalf("ensure: %v", err)
		}
		if err := f.slots.UpdateStatus(ctx, slot.ID, model.SlotClosed); err != nil {
			t.Fatalf("close: %v", err)
		}
		var slotErr *SlotUnavailableError
		if _, err := f.service.EnsureSlotForOccurrence(ctx, 1, start, end); !errors.As(err, &slotErr) {
			t.Fatalf("err = %v, want SlotUnavailableError", err)
		}
	})

	t.Run("honors the lead time", func(t *testing.T) {
		f := newSlotFixture()
		withRule(f)
		f.exp.LeadTimeMin = 24 * 60
		f.experiences.experiences[1] = f.exp
		// testNow is July 1st 12:00; July 2nd 09:00 is inside the 24h lead.
		tooSoon := time.Date(2026, time.July, 2, 9, 0, 0, 0, time.UTC)
		var slotErr *SlotUnavailableError
		if _, err := f.service.EnsureSlotForOccurrence(ctx, 1, tooSoon, tooSoon.Add(time.Hour)); !errors.As(err, &slotErr) {
			t.Fatalf("err = %v, want SlotUnavailableError", err)
		}
	})
}

func TestMoveSlot(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture()
	f.exp.BufferAfterMin = 15
	f.experiences.experiences[1] = f.exp

	seed := func(hh int) uint64 {
		slot := &model.Slot{
			ExperienceID: 1,
			StartUTC:     time.Date(2026, time.July, 10, hh, 0, 0, 0, time.UTC),
			EndUTC:       time.Date(2026, time.July, 10, hh+1, 0, 0, 0, time.UTC),
			Status:       model.SlotOpen,
		}
		if err := f.slots.Insert(ctx, slot); err != nil {
			t.Fatalf("seed: %v", err)
		}
		return slot.ID
	}
	movingID := seed(9)
	seed(12)

	t.Run("conflicting move leaves the slot unchanged", func(t *testing.T) {
		// 11:00-12:00 touches the 12:00 slot exactly; the 15 minute
		// after-buffer turns the adjacency into a conflict.
		var bufErr *BufferConflictError
		newStart := time.Date(2026, time.July, 10, 11, 0, 0, 0, time.UTC)
		_, err := f.service.MoveSlot(ctx, movingID, newStart, newStart.Add(time.Hour))
		if !errors.As(err, &bufErr) {
			t.Fatalf("err = %v, want BufferConflictError", err)
		}
		slot, err := f.slots.GetByID(ctx, movingID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if slot.StartUTC.Hour() != 9 {
			t.Fatalf("slot moved despite conflict: %v", slot.StartUTC)
		}
	})

	t.Run("self overlap does not block the move", func(t *testing.T) {
		// Shift by 30 minutes; the new window overlaps the old one, which
		// must be excluded from the conflict check.
		newStart := time.Date(2026, time.July, 10, 9, 30, 0, 0, time.UTC)
		slot, err := f.service.MoveSlot(ctx, movingID, newStart, newStart.Add(time.Hour))
		if err != nil {
			t.Fatalf("MoveSlot: %v", err)
		}
		if !slot.StartUTC.Equal(newStart) {
			t.Fatalf("start = %v", slot.StartUTC)
		}
	})

	t.Run("inverted window is rejected", func(t *testing.T) {
		var vErr *ValidationError
		start := time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC)
		if _, err := f.service.MoveSlot(ctx, movingID, start, start); !errors.As(err, &vErr) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
	})
}

func TestUpdateCapacity(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture()

	slot := &model.Slot{
		ExperienceID:        1,
		StartUTC:            time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC),
		EndUTC:              time.Date(2026, time.July, 10, 10, 0, 0, 0, time.UTC),
		CapacityTotal:       10,
		CapacityPerCategory: model.CategoryQuantities{"adult": 8},
		Status:              model.SlotOpen,
	}
	if err := f.slots.Insert(ctx, slot); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res := reservation(slot.ID, model.ReservationPaid, model.CategoryQuantities{"adult": 4}, nil)
	if err := f.reservations.Insert(ctx, res); err != nil {
		t.Fatalf("seed: %v", err)
	}

	t.Run("below committed total is rejected", func(t *testing.T) {
		err := f.service.UpdateCapacity(ctx, slot.ID, CapacityProfile{Total: 3})
		if !errors.Is(err, ErrCapacityBelowCommitted) {
			t.Fatalf("err = %v, want ErrCapacityBelowCommitted", err)
		}
	})

	t.Run("below committed category is rejected", func(t *testing.T) {
		err := f.service.UpdateCapacity(ctx, slot.ID, CapacityProfile{Total: 10, PerCategory: model.CategoryQuantities{"adult": 2}})
		if !errors.Is(err, ErrCapacityBelowCommitted) {
			t.Fatalf("err = %v, want ErrCapacityBelowCommitted", err)
		}
	})

	t.Run("valid edit persists", func(t *testing.T) {
		if err := f.service.UpdateCapacity(ctx, slot.ID, CapacityProfile{Total: 6}); err != nil {
			t.Fatalf("UpdateCapacity: %v", err)
		}
		got, err := f.slots.GetByID(ctx, slot.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.CapacityTotal != 6 {
			t.Fatalf("capacity = %d, want 6", got.CapacityTotal)
		}
	})

	t.Run("zero total always passes, it means unlimited", func(t *testing.T) {
		if err := f.service.UpdateCapacity(ctx, slot.ID, CapacityProfile{Total: 0}); err != nil {
			t.Fatalf("UpdateCapacity: %v", err)
		}
	})
}

func TestVirtualOccurrences(t *testing.T) {
	ctx := context.Background()
	window := recurrence.Window{
		Start: time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.July, 13, 0, 0, 0, 0, time.UTC),
	}

	withRule := func(f *slotFixture) {
		f.experiences.rules[1] = []model.ScheduleRule{{
			ID:           1,
			ExperienceID: 1,
			Rule:         dailyRule("2026-07-01", "2026-07-31", "09:00"),
			IsActive:     true,
		}}
	}

	t.Run("lists occurrences without any persisted slot", func(t *testing.T) {
		f := newSlotFixture()
		withRule(f)
		occs, err := f.service.VirtualOccurrences(ctx, 1, window)
		if err != nil {
			t.Fatalf("VirtualOccurrences: %v", err)
		}
		if len(occs) != 3 {
			t.Fatalf("occurrences = %d, want 3", len(occs))
		}
		if occs[0].SlotID != 0 {
			t.Fatalf("virtual occurrence carries slot id %d", occs[0].SlotID)
		}
		if occs[0].RemainingTotal != 10 {
			t.Fatalf("remaining = %d, want 10", occs[0].RemainingTotal)
		}
	})

	t.Run("persisted slot contributes its own capacity and bookings", func(t *testing.T) {
		f := newSlotFixture()
		withRule(f)
		start := time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC)
		slot := &model.Slot{
			ExperienceID:  1,
			StartUTC:      start,
			EndUTC:        start.Add(time.Hour),
			CapacityTotal: 5,
			Status:        model.SlotOpen,
		}
		if err := f.slots.Insert(ctx, slot); err != nil {
			t.Fatalf("seed slot: %v", err)
		}
		res := reservation(slot.ID, model.ReservationPaid, model.CategoryQuantities{"adult": 2}, nil)
		if err := f.reservations.Insert(ctx, res); err != nil {
			t.Fatalf("seed reservation: %v", err)
		}

		occs, err := f.service.VirtualOccurrences(ctx, 1, window)
		if err != nil {
			t.Fatalf("VirtualOccurrences: %v", err)
		}
		if occs[0].SlotID != slot.ID {
			t.Fatalf("slot id = %d", occs[0].SlotID)
		}
		if occs[0].CapacityTotal != 5 || occs[0].RemainingTotal != 3 {
			t.Fatalf("capacity/remaining = %d/%d, want 5/3", occs[0].CapacityTotal, occs[0].RemainingTotal)
		}
	})

	t.Run("closed slots hide their occurrence", func(t *testing.T) {
		f := newSlotFixture()
		withRule(f)
		start := time.Date(2026, time.July, 10, 9, 0, 0, 0, time.UTC)
		slot := &model.Slot{ExperienceID: 1, StartUTC: start, EndUTC: start.Add(time.Hour), Status: model.SlotClosed}
		if err := f.slots.Insert(ctx, slot); err != nil {
			t.Fatalf("seed: %v", err)
		}
		occs, err := f.service.VirtualOccurrences(ctx, 1, window)
		if err != nil {
			t.Fatalf("VirtualOccurrences: %v", err)
		}
		if len(occs) != 2 {
			t.Fatalf("occurrences = %d, want 2", len(occs))
		}
	})

	t.Run("inactive experience is not browsable", func(t *testing.T) {
		f := newSlotFixture()
		withRule(f)
		f.exp.IsActive = false
		f.experiences.experiences[1] = f.exp
		if _, err := f.service.VirtualOccurrences(ctx, 1, window); !errors.Is(err, ErrExperienceNotFound) {
			t.Fatalf("err = %v, want ErrExperienceNotFound", err)
		}
	})
}
