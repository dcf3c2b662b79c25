package visitors

import (
	"errors"
	"strings"
	"time"
)

// Sentinel contact values. An empty field means "never asked"; the sentinel
// means "asked and declined". Both suppress repeated prompting, but only the
// empty state permits one ask.
const (
	AnonymousName  = "Anonymous User"
	AnonymousEmail = "anonymous@user.com"
)

var (
	ErrMissingOrgID     = errors.New("visitors: organization id is required")
	ErrMissingSessionID = errors.New("visitors: session id is required")
	ErrNotFound         = errors.New("visitors: profile not found")
)

// AppointmentContext is the ephemeral booking sub-state carried on the
// profile. PendingDate/PendingTime together form the Pending Booking; at most
// one exists per session.
type AppointmentContext struct {
	PendingDate         string `json:"pending_date,omitempty"`
	PendingTime         string `json:"pending_time,omitempty"`
	PendingSlotID       string `json:"pending_slot_id,omitempty"`
	LastConfirmedSlotID string `json:"last_confirmed_slot_id,omitempty"`
	// AwaitingField is set while a contact prompt is outstanding so the next
	// visitor message can be consumed as that field.
	AwaitingField string `json:"awaiting_field,omitempty"`
}

// HasPending reports whether a Pending Booking exists.
func (c AppointmentContext) HasPending() bool {
	return c.PendingDate != "" && c.PendingTime != ""
}

// ClearPending drops the Pending Booking, returning to the no-selection state.
func (c *AppointmentContext) ClearPending() {
	c.PendingDate = ""
	c.PendingTime = ""
	c.PendingSlotID = ""
}

// Profile is the per-(organization, session) visitor record. It is the system
// of record for contact fields and booking sub-state; turns read then write
// it, which is why turns for one session must be serialized.
type Profile struct {
	OrganizationID string             `json:"organization_id"`
	SessionID      string             `json:"session_id"`
	Name           string             `json:"name,omitempty"`
	Email          string             `json:"email,omitempty"`
	Phone          string             `json:"phone,omitempty"`
	ReturningUser  bool               `json:"returning_user"`
	Mode           string             `json:"mode,omitempty"`
	Appointment    AppointmentContext `json:"appointment_context"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Validate checks the identifying fields.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.OrganizationID) == "" {
		return ErrMissingOrgID
	}
	if strings.TrimSpace(p.SessionID) == "" {
		return ErrMissingSessionID
	}
	return nil
}

// HasRealName reports a usable, non-sentinel name.
func (p *Profile) HasRealName() bool {
	return p.Name != "" && p.Name != AnonymousName
}

// HasRealEmail reports a usable, non-sentinel email.
func (p *Profile) HasRealEmail() bool {
	return p.Email != "" && p.Email != AnonymousEmail
}

// Complete reports whether both contact fields hold real values.
func (p *Profile) Complete() bool {
	return p.HasRealName() && p.HasRealEmail()
}

// NameRefused reports an explicit decline recorded for the name field.
func (p *Profile) NameRefused() bool {
	return p.Name == AnonymousName
}

// EmailRefused reports an explicit decline recorded for the email field.
func (p *Profile) EmailRefused() bool {
	return p.Email == AnonymousEmail
}

// Clone returns a deep copy so callers can mutate without aliasing stored
// state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
