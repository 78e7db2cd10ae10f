package model

import "time"

// Experience represents a bookable product (a tour, a tasting, a class)
// together with its per-experience booking settings.  The settings act as
// the configuration provider consumed by the booking core: they seed new
// slots and drive hold/lead-time behaviour.  This struct corresponds to a
// row in the `experiences` table.
//
// Fields:
//
//	ID                  – primary key identifier.
//	Title               – display name, denormalized into lifecycle events.
//	IsActive            – whether the experience is bookable at all.
//	Timezone            – IANA zone name used to expand its rules.
//	CapacityTotal       – default total capacity for new slots (0 = unlimited).
//	CapacityPerCategory – default per-category sub-limits (absent = unlimited).
//	Categories          – the validated set of ticket types this experience sells.
//	BufferBeforeMin     – mandatory gap before each slot, minutes.
//	BufferAfterMin      – mandatory gap after each slot, minutes.
//	LeadTimeMin         – minimum minutes between "now" and a bookable start.
//	HoldTimeoutMin      – request-to-book hold lifetime, minutes.
//	BlockCapacityOnHold – whether pending requests consume capacity while held.
//	RequireApproval     – request-to-book flow: bookings start pending review.
type Experience struct {
	ID                  uint64             // experiences.id
	Title               string             // experiences.title
	IsActive            bool               // experiences.is_active
	Timezone            string             // experiences.timezone
	CapacityTotal       int                // experiences.capacity_total
	CapacityPerCategory CategoryQuantities // experiences.capacity_per_category (JSON)
	Categories          []CategoryKey      // experiences.categories (JSON)
	BufferBeforeMin     int                // experiences.buffer_before_min
	BufferAfterMin      int                // experiences.buffer_after_min
	LeadTimeMin         int                // experiences.lead_time_min
	HoldTimeoutMin      int                // experiences.hold_timeout_min
	BlockCapacityOnHold bool               // experiences.block_capacity_on_hold
	RequireApproval     bool               // experiences.require_approval
	CreatedAt           time.Time          // experiences.created_at
	UpdatedAt           time.Time          // experiences.updated_at
}

// ValidCategory reports whether the key belongs to the experience's
// configured category set.  An experience with no configured categories
// accepts none.
func (e *Experience) ValidCategory(key CategoryKey) bool {
	for _, k := range e.Categories {
		if k == key {
			return true
		}
	}
	return false
}
