package booking

import (
	"context"
	"time"

	"github.com/franpass87/fp-experiences/internal/model"
)

// SlotRepository is the storage port for persisted slots.  The MySQL
// implementation lives in internal/repository; tests use in-memory fakes.
type SlotRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.Slot, error)
	// FindByBoundary looks up a slot at the exact start/end pair.  Returns
	// ErrSlotNotFound when absent.  Cancelled slots are not matched.
	FindByBoundary(ctx context.Context, experienceID uint64, start, end time.Time) (*model.Slot, error)
	// ListOverlapping returns non-cancelled slots of the experience whose
	// window overlaps [start, end).  excludeID skips one slot (self, when
	// moving); zero excludes nothing.
	ListOverlapping(ctx context.Context, experienceID uint64, start, end time.Time, excludeID uint64) ([]model.Slot, error)
	Insert(ctx context.Context, slot *model.Slot) error
	UpdateTimes(ctx context.Context, id uint64, start, end time.Time) error
	UpdateCapacity(ctx context.Context, id uint64, total int, perCategory model.CategoryQuantities) error
	UpdateStatus(ctx context.Context, id uint64, status model.SlotStatus) error
}

// ReservationPatch lists the whitelisted mutable reservation fields; nil
// members are left untouched.
type ReservationPatch struct {
	OrderRef         *string
	Quantities       model.CategoryQuantities
	TotalAmountCents *uint32
	Meta             *model.ReservationMeta
}

// RequestFilter narrows request-to-book listings.
type RequestFilter struct {
	ExperienceID uint64
	Status       model.ReservationStatus
}

// ReservationRepository is the storage port for reservations.
type ReservationRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	// ListBySlot returns every reservation referencing the slot, all
	// statuses included; the capacity accountant filters them.
	ListBySlot(ctx context.Context, slotID uint64) ([]model.Reservation, error)
	// ListByWindow returns reservations of the experience whose slot sits
	// at exactly the given boundary.  Used by the virtual-availability
	// path, where no slot id is known to the caller yet.
	ListByWindow(ctx context.Context, experienceID uint64, start, end time.Time) ([]model.Reservation, error)
	Insert(ctx context.Context, res *model.Reservation) error
	// UpdateStatus persists a status change together with the new hold
	// deadline (nil clears it).
	UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus, holdExpiresAt *time.Time) error
	UpdateFields(ctx context.Context, id uint64, patch ReservationPatch) error
	// Delete removes the row entirely.  Reserved for the admission
	// rollback path; user-facing cancellation goes through UpdateStatus.
	Delete(ctx context.Context, id uint64) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]model.Reservation, error)
	// CancelExpiredHolds marks long-expired pending requests cancelled.
	// Storage hygiene only: accounting already ignores expired holds.
	CancelExpiredHolds(ctx context.Context, before time.Time) (int64, error)
}

// ExperienceRepository supplies experiences and their persisted schedule
// rules (the configuration provider of the booking core).
type ExperienceRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.Experience, error)
	ListRules(ctx context.Context, experienceID uint64) ([]model.ScheduleRule, error)
}

// OrderService is the port to the external payment/order system.  The core
// only needs artifact creation paired 1:1 with a reservation and a way to
// discard it during rollback.
type OrderService interface {
	CreateOrder(ctx context.Context, res *model.Reservation) (string, error)
	VoidOrder(ctx context.Context, orderRef string) error
}
