// Package calendar exposes external appointment availability as a read-only
// feed. Booking completion always happens through the provider's scheduling
// URL; nothing in this package finalizes a reservation.
package calendar

import (
	"context"
	"time"
)

// Slot is one bookable window sourced from an external calendar. Slots are a
// per-turn projection of upstream availability and are never persisted.
type Slot struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Source        string    `json:"source"`
	SchedulingURL string    `json:"scheduling_url"`
}

// Provider lists bookable slots for an organization.
type Provider interface {
	ListSlots(ctx context.Context, orgID string, daysAhead int) ([]Slot, error)
}

// NullProvider is the capability-absent implementation: no slots, no error.
type NullProvider struct{}

func (NullProvider) ListSlots(ctx context.Context, orgID string, daysAhead int) ([]Slot, error) {
	return nil, nil
}
