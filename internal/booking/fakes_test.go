package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/franpass87/fp-experiences/internal/model"
)

// In-memory fakes for the storage ports. They mimic the MySQL
// implementations closely enough for the core algorithms: boundary
// uniqueness on slots, status filters, and the window join.

type fakeExperienceRepo struct {
	experiences map[uint64]*model.Experience
	rules       map[uint64][]model.ScheduleRule
}

func newFakeExperienceRepo(exps ...*model.Experience) *fakeExperienceRepo {
	r := &fakeExperienceRepo{
		experiences: make(map[uint64]*model.Experience),
		rules:       make(map[uint64][]model.ScheduleRule),
	}
	for _, e := range exps {
		r.experiences[e.ID] = e
	}
	return r
}

func (r *fakeExperienceRepo) GetByID(_ context.Context, id uint64) (*model.Experience, error) {
	exp, ok := r.experiences[id]
	if !ok {
		return nil, ErrExperienceNotFound
	}
	cp := *exp
	return &cp, nil
}

func (r *fakeExperienceRepo) ListRules(_ context.Context, experienceID uint64) ([]model.ScheduleRule, error) {
	return r.rules[experienceID], nil
}

type fakeSlotRepo struct {
	seq   uint64
	slots map[uint64]*model.Slot
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[uint64]*model.Slot)}
}

func (r *fakeSlotRepo) GetByID(_ context.Context, id uint64) (*model.Slot, error) {
	slot, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *fakeSlotRepo) FindByBoundary(_ context.Context, experienceID uint64, start, end time.Time) (*model.Slot, error) {
	for _, slot := range r.slots {
		if slot.ExperienceID == experienceID && slot.Status != model.SlotCancelled &&
			slot.StartUTC.Equal(start) && slot.EndUTC.Equal(end) {
			cp := *slot
			return &cp, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (r *fakeSlotRepo) ListOverlapping(_ context.Context, experienceID uint64, start, end time.Time, excludeID uint64) ([]model.Slot, error) {
	var out []model.Slot
	for _, slot := range r.slots {
		if slot.ExperienceID != experienceID || slot.Status == model.SlotCancelled || slot.ID == excludeID {
			continue
		}
		if slot.StartUTC.Before(end) && slot.EndUTC.After(start) {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) Insert(_ context.Context, slot *model.Slot) error {
	for _, existing := range r.slots {
		if existing.ExperienceID == slot.ExperienceID &&
			existing.StartUTC.Equal(slot.StartUTC) && existing.EndUTC.Equal(slot.EndUTC) {
			return fmt.Errorf("duplicate slot boundary")
		}
	}
	r.seq++
	slot.ID = r.seq
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *fakeSlotRepo) UpdateTimes(_ context.Context, id uint64, start, end time.Time) error {
	slot, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	slot.StartUTC = start
	slot.EndUTC = end
	return nil
}

func (r *fakeSlotRepo) UpdateCapacity(_ context.Context, id uint64, total int, perCategory model.CategoryQuantities) error {
	slot, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	slot.CapacityTotal = total
	slot.CapacityPerCategory = perCategory
	return nil
}

func (r *fakeSlotRepo) UpdateStatus(_ context.Context, id uint64, status model.SlotStatus) error {
	slot, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	slot.Status = status
	return nil
}

type fakeReservationRepo struct {
	seq          uint64
	reservations map[uint64]*model.Reservation
	slots        *fakeSlotRepo // for the boundary join in ListByWindow
}

func newFakeReservationRepo(slots *fakeSlotRepo) *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[uint64]*model.Reservation), slots: slots}
}

func (r *fakeReservationRepo) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	res, ok := r.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *fakeReservationRepo) ListBySlot(_ context.Context, slotID uint64) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, res := range r.reservations {
		if res.SlotID == slotID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) ListByWindow(_ context.Context, experienceID uint64, start, end time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, res := range r.reservations {
		if res.ExperienceID != experienceID {
			continue
		}
		slot, ok := r.slots.slots[res.SlotID]
		if !ok {
			continue
		}
		if slot.StartUTC.Equal(start) && slot.EndUTC.Equal(end) {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *fakeReservationRepo) Insert(_ context.Context, res *model.Reservation) error {
	r.seq++
	res.ID = r.seq
	cp := *res
	r.reservations[res.ID] = &cp
	return nil
}

func (r *fakeReservationRepo) UpdateStatus(_ context.Context, id uint64, status model.ReservationStatus, holdExpiresAt *time.Time) error {
	res, ok := r.reservations[id]
	if !ok {
		return ErrReservationNotFound
	}
	res.Status = status
	res.HoldExpiresAt = holdExpiresAt
	return nil
}

func (r *fakeReservationRepo) UpdateFields(_ context.Context, id uint64, patch ReservationPatch) error {
	res, ok := r.reservations[id]
	if !ok {
		return ErrReservationNotFound
	}
	if patch.OrderRef != nil {
		res.OrderRef = patch.OrderRef
	}
	if patch.Quantities != nil {
		res.Quantities = patch.Quantities
	}
	if patch.TotalAmountCents != nil {
		res.TotalAmountCents = *patch.TotalAmountCents
	}
	if patch.Meta != nil {
		res.Meta = *patch.Meta
	}
	return nil
}

func (r *fakeReservationRepo) Delete(_ context.Context, id uint64) error {
	delete(r.reservations, id)
	return nil
}

func (r *fakeReservationRepo) ListRequests(_ context.Context, filter RequestFilter) ([]model.Reservation, error) {
	reviewSet := map[model.ReservationStatus]bool{
		model.ReservationPendingRequest:          true,
		model.ReservationApprovedConfirmed:       true,
		model.ReservationApprovedPendingPayment:  true,
		model.ReservationDeclined:                true,
	}
	var out []model.Reservation
	for _, res := range r.reservations {
		if filter.Status != "" {
			if res.Status != filter.Status {
				continue
			}
		} else if !reviewSet[res.Status] {
			continue
		}
		if filter.ExperienceID != 0 && res.ExperienceID != filter.ExperienceID {
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *fakeReservationRepo) CancelExpiredHolds(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for _, res := range r.reservations {
		if res.Status == model.ReservationPendingRequest &&
			res.HoldExpiresAt != nil && res.HoldExpiresAt.Before(before) {
			res.Status = model.ReservationCancelled
			res.HoldExpiresAt = nil
			n++
		}
	}
	return n, nil
}

// recordingOrders stands in for the external order system.
type recordingOrders struct {
	seq        int
	created    []string
	voided     map[string]bool
	failCreate bool
}

func newRecordingOrders() *recordingOrders {
	return &recordingOrders{voided: make(map[string]bool)}
}

func (o *recordingOrders) CreateOrder(_ context.Context, _ *model.Reservation) (string, error) {
	if o.failCreate {
		return "", errors.New("order system down")
	}
	o.seq++
	ref := fmt.Sprintf("ord_%d", o.seq)
	o.created = append(o.created, ref)
	return ref, nil
}

func (o *recordingOrders) VoidOrder(_ context.Context, ref string) error {
	o.voided[ref] = true
	return nil
}

// recordingPublisher collects emitted lifecycle events.
type recordingPublisher struct {
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}
