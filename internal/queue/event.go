// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationEvent is published on every reservation lifecycle transition:
// created, paid, cancelled, and the request-to-book decisions. It contains
// enough information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type ReservationEvent struct {
    Type             string         `json:"type"`
    ReservationID    uint64         `json:"reservation_id"`
    ExperienceID     uint64         `json:"experience_id"`
    ExperienceTitle  string         `json:"experience_title"`
    SlotStartUTC     string         `json:"slot_start_utc"`
    SlotEndUTC       string         `json:"slot_end_utc"`
    Status           string         `json:"status"`
    Quantities       map[string]int `json:"quantities,omitempty"`
    ContactName      string         `json:"contact_name,omitempty"`
    ContactEmail     string         `json:"contact_email,omitempty"`
    OccurredAt       string         `json:"occurred_at"`
}
