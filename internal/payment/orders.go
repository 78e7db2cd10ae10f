// Package payment adapts the external payment/order system.  The core
// treats orders as opaque artifacts: it asks for one per reservation and
// later receives a settlement signal through the webhook handler.
package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/franpass87/fp-experiences/internal/model"
)

// StubOrders issues local order references without contacting a payment
// provider.  It stands in for the external system in development and in
// tests; production deployments swap in a real gateway adapter behind the
// same booking.OrderService port.
type StubOrders struct {
	mu     sync.Mutex
	voided map[string]bool
}

// NewStubOrders returns an order adapter producing uuid references.
func NewStubOrders() *StubOrders {
	return &StubOrders{voided: make(map[string]bool)}
}

// CreateOrder returns a fresh order reference for the reservation.
func (o *StubOrders) CreateOrder(_ context.Context, _ *model.Reservation) (string, error) {
	return "ord_" + uuid.NewString(), nil
}

// VoidOrder marks the artifact discarded.  Called by the admission
// rollback when a reservation loses its capacity race.
func (o *StubOrders) VoidOrder(_ context.Context, orderRef string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.voided[orderRef] = true
	return nil
}

// Voided reports whether an order reference was discarded.
func (o *StubOrders) Voided(orderRef string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.voided[orderRef]
}
