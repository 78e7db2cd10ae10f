package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/franpass87/fp-experiences/internal/clock"
	"github.com/franpass87/fp-experiences/internal/model"
)

func newLedgerFixture() (*ReservationLedger, *fakeReservationRepo, *recordingPublisher, *model.Experience) {
	slots := newFakeSlotRepo()
	reservations := newFakeReservationRepo(slots)
	events := &recordingPublisher{}
	exp := &model.Experience{
		ID:              1,
		Title:           "Sunset kayak tour",
		IsActive:        true,
		HoldTimeoutMin:  30,
		RequireApproval: true,
	}
	experiences := newFakeExperienceRepo(exp)
	ledger := NewReservationLedger(reservations, experiences, slots, events, clock.NewFixed(testNow))
	return ledger, reservations, events, exp
}

func TestLedgerCreateSetsHoldForRequests(t *testing.T) {
	ctx := context.Background()
	ledger, _, _, exp := newLedgerFixture()

	t.Run("pending request gets the configured hold", func(t *testing.T) {
		res := &model.Reservation{ExperienceID: 1, SlotID: 1, Status: model.ReservationPendingRequest}
		if err := ledger.Create(ctx, exp, res); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if res.HoldExpiresAt == nil {
			t.Fatal("expected hold deadline")
		}
		want := testNow.Add(30 * time.Minute)
		if !res.HoldExpiresAt.Equal(want) {
			t.Fatalf("hold = %v, want %v", res.HoldExpiresAt, want)
		}
	})

	t.Run("direct booking carries no hold", func(t *testing.T) {
		res := &model.Reservation{ExperienceID: 1, SlotID: 1}
		if err := ledger.Create(ctx, exp, res); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if res.Status != model.ReservationPending {
			t.Fatalf("status = %s, want PENDING", res.Status)
		}
		if res.HoldExpiresAt != nil {
			t.Fatal("unexpected hold deadline")
		}
	})
}

func TestLedgerTransitions(t *testing.T) {
	ctx := context.Background()

	seed := func(status model.ReservationStatus) (*ReservationLedger, *recordingPublisher, uint64) {
		ledger, reservations, events, _ := newLedgerFixture()
		res := &model.Reservation{ExperienceID: 1, SlotID: 1, Status: status}
		if err := reservations.Insert(ctx, res); err != nil {
			t.Fatalf("seed: %v", err)
		}
		return ledger, events, res.ID
	}

	t.Run("pending to paid emits the paid event", func(t *testing.T) {
		ledger, events, id := seed(model.ReservationPending)
		res, err := ledger.UpdateStatus(ctx, id, model.ReservationPaid)
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if res.Status != model.ReservationPaid {
			t.Fatalf("status = %s", res.Status)
		}
		if len(events.events) != 1 || events.events[0].Type != EventReservationPaid {
			t.Fatalf("events = %v", events.types())
		}
	})

	t.Run("approval with payment starts a fresh hold", func(t *testing.T) {
		ledger, events, id := seed(model.ReservationPendingRequest)
		res, err := ledger.UpdateStatus(ctx, id, model.ReservationApprovedPendingPayment)
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if res.HoldExpiresAt == nil || !res.HoldExpiresAt.Equal(testNow.Add(30*time.Minute)) {
			t.Fatalf("hold = %v", res.HoldExpiresAt)
		}
		if events.events[0].Type != EventRequestApproved {
			t.Fatalf("event = %s", events.events[0].Type)
		}
	})

	t.Run("approval without payment clears the hold", func(t *testing.T) {
		ledger, _, id := seed(model.ReservationPendingRequest)
		res, err := ledger.UpdateStatus(ctx, id, model.ReservationApprovedConfirmed)
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if res.HoldExpiresAt != nil {
			t.Fatalf("hold not cleared: %v", res.HoldExpiresAt)
		}
	})

	t.Run("decline emits the declined event", func(t *testing.T) {
		ledger, events, id := seed(model.ReservationPendingRequest)
		if _, err := ledger.UpdateStatus(ctx, id, model.ReservationDeclined); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if events.events[0].Type != EventRequestDeclined {
			t.Fatalf("event = %s", events.events[0].Type)
		}
	})

	t.Run("paid may only be checked in", func(t *testing.T) {
		ledger, _, id := seed(model.ReservationPaid)
		var transErr *InvalidTransitionError
		if _, err := ledger.UpdateStatus(ctx, id, model.ReservationCancelled); !errors.As(err, &transErr) {
			t.Fatalf("err = %v, want InvalidTransitionError", err)
		}
		if _, err := ledger.UpdateStatus(ctx, id, model.ReservationCheckedIn); err != nil {
			t.Fatalf("check-in: %v", err)
		}
	})

	t.Run("terminal states admit nothing", func(t *testing.T) {
		for _, status := range []model.ReservationStatus{
			model.ReservationCancelled, model.ReservationDeclined, model.ReservationCheckedIn,
		} {
			ledger, _, id := seed(status)
			var transErr *InvalidTransitionError
			if _, err := ledger.UpdateStatus(ctx, id, model.ReservationPaid); !errors.As(err, &transErr) {
				t.Fatalf("%s -> PAID: err = %v, want InvalidTransitionError", status, err)
			}
		}
	})

	t.Run("invalid transition changes nothing", func(t *testing.T) {
		ledger, events, id := seed(model.ReservationPending)
		if _, err := ledger.UpdateStatus(ctx, id, model.ReservationCheckedIn); err == nil {
			t.Fatal("expected error")
		}
		res, err := ledger.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if res.Status != model.ReservationPending {
			t.Fatalf("status mutated to %s", res.Status)
		}
		if len(events.events) != 0 {
			t.Fatalf("events emitted on failed transition: %v", events.types())
		}
	})
}

func TestLedgerCancelExpiredHolds(t *testing.T) {
	ctx := context.Background()
	ledger, reservations, _, _ := newLedgerFixture()

	lapsed := testNow.Add(-time.Hour)
	alive := testNow.Add(time.Hour)
	expired := &model.Reservation{ExperienceID: 1, SlotID: 1, Status: model.ReservationPendingRequest, HoldExpiresAt: &lapsed}
	held := &model.Reservation{ExperienceID: 1, SlotID: 1, Status: model.ReservationPendingRequest, HoldExpiresAt: &alive}
	for _, res := range []*model.Reservation{expired, held} {
		if err := reservations.Insert(ctx, res); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := ledger.CancelExpiredHolds(ctx, 0)
	if err != nil {
		t.Fatalf("CancelExpiredHolds: %v", err)
	}
	if n != 1 {
		t.Fatalf("cancelled = %d, want 1", n)
	}
	got, err := ledger.Get(ctx, expired.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.ReservationCancelled {
		t.Fatalf("status = %s, want CANCELLED", got.Status)
	}
	kept, err := ledger.Get(ctx, held.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if kept.Status != model.ReservationPendingRequest {
		t.Fatalf("live hold mutated to %s", kept.Status)
	}
}
