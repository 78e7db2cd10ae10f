package model

import "time"

// SlotStatus enumerates the lifecycle of a persisted slot.  Cancelled
// slots keep their row while reservations still reference them; they are
// excluded from conflict checks and availability.
type SlotStatus string

const (
	SlotOpen      SlotStatus = "OPEN"
	SlotClosed    SlotStatus = "CLOSED"
	SlotCancelled SlotStatus = "CANCELLED"
)

// Slot is a persisted bookable time window with capacity.  Slots are
// created either by materializing a recurrence rule ahead of time or
// lazily when a virtual occurrence is first booked.  This struct
// corresponds to a row in the `slots` table.
//
// Fields:
//
//	ID                  – primary key identifier.
//	ExperienceID        – owning experience.
//	StartUTC            – slot start instant, UTC.  EndUTC must be later.
//	EndUTC              – slot end instant, UTC.
//	CapacityTotal       – total seats (0 = unlimited).
//	CapacityPerCategory – per-category sub-limits (absent key = unlimited).
//	Status              – OPEN, CLOSED or CANCELLED.
//	ResourceLockToken   – optional equipment/resource lock attached to the slot.
//	PriceRuleRef        – opaque reference into the external pricing engine.
type Slot struct {
	ID                  uint64             // slots.id
	ExperienceID        uint64             // slots.experience_id
	StartUTC            time.Time          // slots.start_utc
	EndUTC              time.Time          // slots.end_utc
	CapacityTotal       int                // slots.capacity_total
	CapacityPerCategory CategoryQuantities // slots.capacity_per_category (JSON)
	Status              SlotStatus         // slots.status
	ResourceLockToken   *string            // slots.resource_lock_token (nullable)
	PriceRuleRef        *string            // slots.price_rule_ref (nullable)
	CreatedAt           time.Time          // slots.created_at
	UpdatedAt           time.Time          // slots.updated_at
}
