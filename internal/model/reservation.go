package model

import "time"

// ReservationStatus enumerates the reservation lifecycle.  Direct bookings
// start PENDING; request-to-book bookings start PENDING_REQUEST and hold
// capacity only while their hold is alive.
type ReservationStatus string

const (
	// ReservationPending is the initial state of a direct booking awaiting payment.
	ReservationPending ReservationStatus = "PENDING"
	// ReservationPendingRequest is the initial state of a request-to-book booking.
	ReservationPendingRequest ReservationStatus = "PENDING_REQUEST"
	// ReservationApprovedConfirmed marks an approved request needing no payment.
	ReservationApprovedConfirmed ReservationStatus = "APPROVED_CONFIRMED"
	// ReservationApprovedPendingPayment marks an approved request awaiting payment.
	ReservationApprovedPendingPayment ReservationStatus = "APPROVED_PENDING_PAYMENT"
	// ReservationDeclined is the terminal state of a rejected request.
	ReservationDeclined ReservationStatus = "DECLINED"
	// ReservationPaid is the settled state; only check-in may follow.
	ReservationPaid ReservationStatus = "PAID"
	// ReservationCancelled is terminal and reachable from any non-terminal state.
	ReservationCancelled ReservationStatus = "CANCELLED"
	// ReservationCheckedIn is a manual attendance marker on confirmed bookings.
	ReservationCheckedIn ReservationStatus = "CHECKED_IN"
)

// Terminal reports whether the status admits no further transitions.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationDeclined, ReservationCancelled, ReservationCheckedIn:
		return true
	}
	return false
}

// ContactInfo is the guest contact payload denormalized into lifecycle
// events so the notification system can render messages without a lookup.
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ConsentFlags records the marketing/privacy choices captured at checkout.
type ConsentFlags struct {
	Privacy   bool `json:"privacy"`
	Marketing bool `json:"marketing"`
}

// RequestDecision records the outcome of a request-to-book review.
type RequestDecision struct {
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// ReservationMeta groups the auxiliary payloads the core actually consumes,
// as concrete types rather than an open-ended map.  Serialized as JSON in
// the reservations table.
type ReservationMeta struct {
	Contact  *ContactInfo     `json:"contact,omitempty"`
	Consent  *ConsentFlags    `json:"consent,omitempty"`
	Decision *RequestDecision `json:"decision,omitempty"`
}

// Reservation records a booking against a slot.  Capacity accounting is
// always derived from the live set of these rows; there is no stored
// seat counter.  This struct corresponds to a row in the `reservations`
// table.
//
// Fields:
//
//	ID               – primary key identifier.
//	OrderRef         – reference to the external payment/order artifact.
//	ExperienceID     – experience being booked.
//	SlotID           – slot being booked.
//	Status           – lifecycle state, see ReservationStatus.
//	Quantities       – seats per ticket category.
//	HoldExpiresAt    – hold deadline; set only while pending review/payment.
//	TotalAmountCents – total as reported by the external pricing engine.
type Reservation struct {
	ID               uint64             // reservations.id
	OrderRef         *string            // reservations.order_ref (nullable)
	ExperienceID     uint64             // reservations.experience_id
	SlotID           uint64             // reservations.slot_id
	Status           ReservationStatus  // reservations.status
	Quantities       CategoryQuantities // reservations.quantities (JSON)
	HoldExpiresAt    *time.Time         // reservations.hold_expires_at (nullable)
	TotalAmountCents uint32             // reservations.total_amount_cents
	Meta             ReservationMeta    // reservations.meta (JSON)
	CreatedAt        time.Time          // reservations.created_at
	UpdatedAt        time.Time          // reservations.updated_at
}
