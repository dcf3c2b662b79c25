package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mpeters88/chatdesk/internal/cache"
	"github.com/mpeters88/chatdesk/internal/calendar"
	"github.com/mpeters88/chatdesk/internal/visitors"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

// State is the per-session booking progression. NoSelection is both the
// initial state and the abandonment terminal.
type State int

const (
	StateNoSelection State = iota
	StateSlotMatched
	StateAwaitingEmail
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateNoSelection:
		return "no_selection"
	case StateSlotMatched:
		return "slot_matched"
	case StateAwaitingEmail:
		return "awaiting_email"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Action is the classifier's appointment action for the turn.
type Action string

const (
	ActionBook       Action = "book"
	ActionReschedule Action = "reschedule"
	ActionCancel     Action = "cancel"
	ActionInfo       Action = "info"
)

var (
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	declinePattern = regexp.MustCompile(`(?i)\b(no thanks|no thank you|skip|rather not|prefer not|don't want|do not want)\b`)
	// A whole-message confirmation with nothing else in it, like "confirm",
	// "book it", or "yes, confirm please".
	bareConfirmPattern = regexp.MustCompile(`(?i)^\s*(yes,?\s*)?(please\s+)?(confirm|book)(\s+(it|that|this|me|my appointment|the appointment))?[\s.!]*(please[\s.!]*)?$`)
)

// Machine advances a session's booking state for one turn. It owns the
// pending-booking sub-state on the visitor profile and persists every
// transition through the repository before replying, so a matched selection
// survives a crash or retry.
type Machine struct {
	provider  calendar.Provider
	profiles  visitors.Repository
	slots     *cache.Service
	logger    *logging.Logger
	daysAhead int
}

// NewMachine creates a booking machine.
func NewMachine(provider calendar.Provider, profiles visitors.Repository, logger *logging.Logger, daysAhead int) *Machine {
	if provider == nil {
		panic("booking: calendar provider cannot be nil")
	}
	if profiles == nil {
		panic("booking: profile repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if daysAhead <= 0 {
		daysAhead = 7
	}
	return &Machine{
		provider:  provider,
		profiles:  profiles,
		logger:    logger,
		daysAhead: daysAhead,
	}
}

// UseSlotCache caches availability listings between turns. Confirmation
// always bypasses the cache; a stale listing only costs the visitor a
// "just taken" reprompt.
func (m *Machine) UseSlotCache(c *cache.Service) {
	m.slots = c
}

// fetchSlots serves the availability listing, from cache when one is wired.
// The fromCache flag tells callers the snapshot may be stale.
func (m *Machine) fetchSlots(ctx context.Context, orgID string) (slots []calendar.Slot, fromCache bool, err error) {
	key := cache.AppointmentSlotsKey(orgID)
	if m.slots != nil {
		if raw, ok := m.slots.Get(ctx, key); ok {
			if jsonErr := json.Unmarshal([]byte(raw), &slots); jsonErr == nil {
				return slots, true, nil
			}
			m.slots.Delete(ctx, key)
		}
	}

	slots, err = m.provider.ListSlots(ctx, orgID, m.daysAhead)
	if err != nil {
		return nil, false, err
	}
	if m.slots != nil && len(slots) > 0 {
		if raw, jsonErr := json.Marshal(slots); jsonErr == nil {
			m.slots.Set(ctx, key, string(raw), 0)
		}
	}
	return slots, false, nil
}

// AdvanceInput carries one turn into the machine. Profile is mutated in place
// and persisted on every state transition. RecentAssistant holds the session's
// recent assistant messages so the originally offered listing can be
// recovered.
type AdvanceInput struct {
	Profile         *visitors.Profile
	Message         string
	Action          Action
	RecentAssistant []string
}

// Outcome is the machine's reply for the turn. ConfirmedDate and
// ConfirmedTime are set only when Confirmed is true.
type Outcome struct {
	Reply         string
	State         State
	ModeAfter     string
	Confirmed     bool
	SchedulingURL string
	ConfirmedDate string
	ConfirmedTime string
}

// Advance runs one turn of the state machine.
func (m *Machine) Advance(ctx context.Context, in AdvanceInput) (Outcome, error) {
	if in.Profile == nil {
		return Outcome{}, fmt.Errorf("booking: profile is required")
	}

	switch in.Action {
	case ActionReschedule, ActionCancel, ActionInfo:
		return m.redirect(ctx, in)
	}

	appt := &in.Profile.Appointment

	// Replayed confirmations after a completed booking must not re-book.
	if appt.LastConfirmedSlotID != "" && !appt.HasPending() {
		if m.refersToConfirmed(in) {
			return Outcome{
				Reply:     "You're all set! Your appointment is already booked. Check your email for the confirmation link, or ask me anything else.",
				State:     StateNoSelection,
				ModeAfter: "faq",
			}, nil
		}
	}

	if appt.HasPending() {
		return m.resumePending(ctx, in)
	}
	return m.attemptSelection(ctx, in)
}

// attemptSelection handles NoSelection: match the message against the
// offered listing, or re-offer slots.
func (m *Machine) attemptSelection(ctx context.Context, in AdvanceInput) (Outcome, error) {
	offered := FindOfferedListing(in.RecentAssistant)

	fresh, fromCache, fetchErr := m.fetchSlots(ctx, in.Profile.OrganizationID)
	if fetchErr != nil {
		m.logger.Warn("calendar fetch failed", "org_id", in.Profile.OrganizationID, "error", fetchErr)
	}
	if len(offered) == 0 {
		offered = OptionsFromSlots(fresh)
	}

	opt, kind := MatchSelection(in.Message, offered)
	switch kind {
	case MatchFound:
		// A cached listing is not good enough to confirm against.
		if fromCache {
			return m.acceptSelection(ctx, in, opt, nil)
		}
		return m.acceptSelection(ctx, in, opt, fresh)
	case MatchAmbiguous:
		return Outcome{
			Reply:     m.clarification(offered, fresh, fetchErr),
			State:     StateNoSelection,
			ModeAfter: "appointment",
		}, nil
	default:
		// No selection in the message: offer the current availability.
		if errors.Is(fetchErr, calendar.ErrNotConnected) {
			return Outcome{
				Reply:     "Online booking isn't set up for this business yet. Please reach out to them directly to schedule a visit.",
				State:     StateNoSelection,
				ModeAfter: "appointment",
			}, nil
		}
		if fetchErr != nil || len(fresh) == 0 {
			return Outcome{
				Reply:     "I don't see any open times right now. Please check back soon, or leave your question here and our team will follow up.",
				State:     StateNoSelection,
				ModeAfter: "appointment",
			}, nil
		}
		return Outcome{
			Reply:     "Here are the available times:\n\n" + FormatSlots(fresh) + "\n\nJust reply with the day and time that works for you.",
			State:     StateNoSelection,
			ModeAfter: "appointment",
		}, nil
	}
}

// acceptSelection persists the matched pair as the Pending Booking before any
// reply is produced, then either confirms directly or asks for an email.
func (m *Machine) acceptSelection(ctx context.Context, in AdvanceInput, opt OfferedOption, fresh []calendar.Slot) (Outcome, error) {
	appt := &in.Profile.Appointment
	appt.PendingDate = opt.Date
	appt.PendingTime = opt.Time
	appt.PendingSlotID = opt.ID
	in.Profile.Mode = "appointment"
	if err := m.profiles.Upsert(ctx, in.Profile); err != nil {
		return Outcome{}, fmt.Errorf("booking: persisting pending booking: %w", err)
	}

	if in.Profile.HasRealEmail() {
		return m.confirmPending(ctx, in, fresh)
	}

	appt.AwaitingField = "email"
	if err := m.profiles.Upsert(ctx, in.Profile); err != nil {
		return Outcome{}, fmt.Errorf("booking: persisting awaiting-email state: %w", err)
	}
	return Outcome{
		Reply: fmt.Sprintf("Great choice! %s is available. What's the best email address for your booking confirmation?",
			FormatOptionLabel(opt)),
		State:     StateAwaitingEmail,
		ModeAfter: "appointment",
	}, nil
}

// resumePending handles a turn that arrives with a Pending Booking stored:
// either the awaited email, a decline, or a new selection attempt.
func (m *Machine) resumePending(ctx context.Context, in AdvanceInput) (Outcome, error) {
	appt := &in.Profile.Appointment

	if !in.Profile.HasRealEmail() {
		if email := emailPattern.FindString(in.Message); email != "" {
			in.Profile.Email = email
		}
	}

	if in.Profile.HasRealEmail() {
		return m.confirmPending(ctx, in, nil)
	}

	if declinePattern.MatchString(in.Message) {
		// Booking requires identity; a decline abandons the selection.
		appt.ClearPending()
		appt.AwaitingField = ""
		in.Profile.Email = visitors.AnonymousEmail
		if err := m.profiles.Upsert(ctx, in.Profile); err != nil {
			return Outcome{}, fmt.Errorf("booking: persisting abandonment: %w", err)
		}
		return Outcome{
			Reply:     "No problem, I won't hold that time. If you'd like to book later, just ask about available times.",
			State:     StateNoSelection,
			ModeAfter: "faq",
		}, nil
	}

	// Maybe the visitor picked a different slot instead of answering.
	offered := FindOfferedListing(in.RecentAssistant)
	if opt, kind := MatchSelection(in.Message, offered); kind == MatchFound && opt.ID != appt.PendingSlotID {
		return m.acceptSelection(ctx, in, opt, nil)
	}

	return Outcome{
		Reply: fmt.Sprintf("To lock in %s at %s I just need an email address for the confirmation.",
			appt.PendingDate, appt.PendingTime),
		State:     StateAwaitingEmail,
		ModeAfter: "appointment",
	}, nil
}

// confirmPending re-resolves the pending pair against a fresh availability
// fetch; the snapshot the visitor chose from may be stale by now.
func (m *Machine) confirmPending(ctx context.Context, in AdvanceInput, fresh []calendar.Slot) (Outcome, error) {
	appt := &in.Profile.Appointment

	if fresh == nil {
		var err error
		fresh, err = m.provider.ListSlots(ctx, in.Profile.OrganizationID, m.daysAhead)
		if err != nil {
			m.logger.Warn("calendar re-check failed", "org_id", in.Profile.OrganizationID, "error", err)
			return Outcome{
				Reply: fmt.Sprintf("I couldn't verify %s at %s just now. Give me a moment and try confirming again.",
					appt.PendingDate, appt.PendingTime),
				State:     StateAwaitingEmail,
				ModeAfter: "appointment",
			}, nil
		}
	}

	var confirmed *OfferedOption
	for _, opt := range OptionsFromSlots(fresh) {
		if opt.ID == appt.PendingSlotID {
			confirmed = &opt
			break
		}
	}

	if confirmed == nil {
		// The slot was taken between selection and confirmation.
		appt.ClearPending()
		appt.AwaitingField = ""
		if err := m.profiles.Upsert(ctx, in.Profile); err != nil {
			return Outcome{}, fmt.Errorf("booking: clearing stale pending booking: %w", err)
		}
		reply := "I'm sorry, that time was just taken. "
		if len(fresh) > 0 {
			reply += "Here's what's still open:\n\n" + FormatSlots(fresh) + "\n\nWhich one works instead?"
		} else {
			reply += "I don't see other openings right now; please check back soon."
		}
		return Outcome{
			Reply:     reply,
			State:     StateNoSelection,
			ModeAfter: "appointment",
		}, nil
	}

	date, timeLabel := appt.PendingDate, appt.PendingTime
	appt.LastConfirmedSlotID = confirmed.ID
	appt.ClearPending()
	appt.AwaitingField = ""
	in.Profile.Mode = "faq"
	// The confirmed booking and the cleared pending state land in one update.
	if err := m.profiles.Upsert(ctx, in.Profile); err != nil {
		return Outcome{}, fmt.Errorf("booking: persisting confirmation: %w", err)
	}
	if m.slots != nil {
		// The listing no longer reflects availability.
		m.slots.Delete(ctx, cache.AppointmentSlotsKey(in.Profile.OrganizationID))
	}

	reply := fmt.Sprintf("Perfect! %s at %s is reserved for you. Finish your booking here: %s\nA confirmation will go to %s.",
		date, timeLabel, confirmed.SchedulingURL, in.Profile.Email)
	return Outcome{
		Reply:         reply,
		State:         StateConfirmed,
		ModeAfter:     "faq",
		Confirmed:     true,
		SchedulingURL: confirmed.SchedulingURL,
		ConfirmedDate: date,
		ConfirmedTime: timeLabel,
	}, nil
}

// redirect answers reschedule/cancel/info requests by pointing at the
// provider's self-service flow; those paths bypass the state machine.
func (m *Machine) redirect(ctx context.Context, in AdvanceInput) (Outcome, error) {
	url := ""
	if slots, _, err := m.fetchSlots(ctx, in.Profile.OrganizationID); err == nil && len(slots) > 0 {
		url = slots[0].SchedulingURL
	}

	var reply string
	switch in.Action {
	case ActionReschedule:
		reply = "You can reschedule directly through your confirmation email"
	case ActionCancel:
		reply = "You can cancel directly through your confirmation email"
	default:
		reply = "You can review your appointment details through your confirmation email"
	}
	if url != "" {
		reply += ", or use the scheduling page: " + url
	} else {
		reply += "."
	}
	return Outcome{
		Reply:     reply,
		State:     StateNoSelection,
		ModeAfter: "faq",
	}, nil
}

// refersToConfirmed reports whether the message looks like a repeat of the
// already-confirmed selection. Anything carrying fresh scheduling evidence,
// or more than a bare confirmation, is a new booking attempt instead.
func (m *Machine) refersToConfirmed(in AdvanceInput) bool {
	appt := in.Profile.Appointment
	if id := slotIDPattern.FindString(in.Message); id != "" {
		return id == appt.LastConfirmedSlotID
	}
	offered := FindOfferedListing(in.RecentAssistant)
	if opt, kind := MatchSelection(in.Message, offered); kind == MatchFound {
		return opt.ID == appt.LastConfirmedSlotID
	}
	return bareConfirmPattern.MatchString(in.Message)
}

// clarification re-surfaces the offered slots so the visitor can retry
// without restarting.
func (m *Machine) clarification(offered []OfferedOption, fresh []calendar.Slot, fetchErr error) string {
	if len(fresh) > 0 {
		return "I couldn't match that to an open time. Here's the current availability:\n\n" +
			FormatSlots(fresh) + "\n\nPlease pick a day and time from the list."
	}
	if fetchErr == nil && len(offered) > 0 {
		var b strings.Builder
		b.WriteString("I couldn't match that to an open time. The times I have are:\n")
		for _, opt := range offered {
			b.WriteString("  - ")
			b.WriteString(FormatOptionLabel(opt))
			b.WriteString("\n")
		}
		b.WriteString("Please pick one of those.")
		return b.String()
	}
	return "I couldn't match that to an open time, and I don't see availability right now. Please try again shortly."
}
