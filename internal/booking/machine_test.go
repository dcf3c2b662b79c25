package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mpeters88/chatdesk/internal/cache"
	"github.com/mpeters88/chatdesk/internal/calendar"
	"github.com/mpeters88/chatdesk/internal/visitors"
)

type fakeProvider struct {
	slots []calendar.Slot
	err   error
	calls int
}

func (f *fakeProvider) ListSlots(ctx context.Context, orgID string, daysAhead int) ([]calendar.Slot, error) {
	f.calls++
	return f.slots, f.err
}

func saturdaySlot() calendar.Slot {
	start := time.Date(2025, 6, 21, 13, 0, 0, 0, time.UTC)
	return calendar.Slot{
		Start:         start,
		End:           start.Add(time.Hour),
		Source:        "mock",
		SchedulingURL: "https://book.example.com/june21",
	}
}

func newTestMachine(t *testing.T, provider *fakeProvider) (*Machine, *visitors.InMemoryRepository, *visitors.Profile) {
	t.Helper()
	repo := visitors.NewInMemoryRepository()
	profile := &visitors.Profile{OrganizationID: "org-1", SessionID: "sess-1"}
	if err := repo.Upsert(context.Background(), profile); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return NewMachine(provider, repo, nil, 7), repo, profile
}

func TestSelectionThenEmailThenConfirm(t *testing.T) {
	provider := &fakeProvider{slots: []calendar.Slot{saturdaySlot()}}
	machine, repo, profile := newTestMachine(t, provider)
	ctx := context.Background()
	listing := FormatSlots(provider.slots)

	// Turn 1: the visitor picks a time from the offered listing.
	out, err := machine.Advance(ctx, AdvanceInput{
		Profile:         profile,
		Message:         "Saturday at 1:00 PM",
		Action:          ActionBook,
		RecentAssistant: []string{listing},
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if out.State != StateAwaitingEmail {
		t.Fatalf("expected awaiting email, got %v", out.State)
	}
	if !strings.Contains(out.Reply, "email") {
		t.Fatalf("expected an email prompt, got %q", out.Reply)
	}

	// The matched pair was persisted before the reply.
	stored, err := repo.Get(ctx, "org-1", "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !stored.Appointment.HasPending() {
		t.Fatalf("expected pending booking persisted")
	}
	if stored.Appointment.PendingDate != "Saturday, June 21, 2025" || stored.Appointment.PendingTime != "1:00 PM" {
		t.Fatalf("unexpected pending pair %+v", stored.Appointment)
	}

	// Turn 2: the email arrives; the booking confirms with a scheduling URL.
	out, err = machine.Advance(ctx, AdvanceInput{
		Profile:         stored,
		Message:         "john@example.com",
		Action:          ActionBook,
		RecentAssistant: []string{listing},
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if out.State != StateConfirmed || !out.Confirmed {
		t.Fatalf("expected confirmed, got %+v", out)
	}
	if out.SchedulingURL != "https://book.example.com/june21" {
		t.Fatalf("unexpected scheduling url %q", out.SchedulingURL)
	}
	if out.ModeAfter != "faq" {
		t.Fatalf("expected mode revert to faq, got %q", out.ModeAfter)
	}

	// Confirmation and cleared pending state landed in the same update.
	stored, err = repo.Get(ctx, "org-1", "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Appointment.HasPending() {
		t.Fatalf("expected pending booking cleared")
	}
	if stored.Appointment.LastConfirmedSlotID != "slot_2025-06-21_13_00" {
		t.Fatalf("expected confirmed slot recorded, got %q", stored.Appointment.LastConfirmedSlotID)
	}
	if stored.Email != "john@example.com" {
		t.Fatalf("expected email persisted, got %q", stored.Email)
	}
	if stored.Mode != "faq" {
		t.Fatalf("expected persisted mode faq, got %q", stored.Mode)
	}
}

func TestDirectConfirmWhenEmailKnown(t *testing.T) {
	provider := &fakeProvider{slots: []calendar.Slot{saturdaySlot()}}
	machine, repo, profile := newTestMachine(t, provider)
	profile.Email = "jane@example.com"
	ctx := context.Background()

	out, err := machine.Advance(ctx, AdvanceInput{
		Profile:         profile,
		Message:         "confirm slot_2025-06-21_13_00",
		Action:          ActionBook,
		RecentAssistant: []string{FormatSlots(provider.slots)},
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if out.State != StateConfirmed {
		t.Fatalf("expected direct confirmation, got %v", out.State)
	}

	stored, _ := repo.Get(ctx, "org-1", "sess-1")
	if stored.Appointment.HasPending() {
		t.Fatalf("expected no pending booking after direct confirm")
	}
}

func TestStaleSlotClearsPendingAndReprompts(t *testing.T) {
	provider := &fakeProvider{slots: []calendar.Slot{saturdaySlot()}}
	machine, repo, profile := newTestMachine(t, provider)
	ctx := context.Background()
	listing := FormatSlots(provider.slots)

	if _, err := machine.Advance(ctx, AdvanceInput{
		Profile:         profile,
		Message:         "Saturday at 1:00 PM",
		Action:          ActionBook,
		RecentAssistant: []string{listing},
	}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	// The slot disappears before the email arrives.
	other := saturdaySlot()
	other.Start = other.Start.Add(2 * time.Hour)
	other.End = other.Start.Add(time.Hour)
	provider.slots = []calendar.Slot{other}

	stored, _ := repo.Get(ctx, "org-1", "sess-1")
	out, err := machine.Advance(ctx, AdvanceInput{
		Profile:         stored,
		Message:         "john@example.com",
		Action:          ActionBook,
		RecentAssistant: []string{listing},
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if out.State != StateNoSelection || out.Confirmed {
		t.Fatalf("expected fallback to no selection, got %+v", out)
	}
	if !strings.Contains(out.Reply, "taken") {
		t.Fatalf("expected unavailable notice, got %q", out.Reply)
	}
	if !strings.Contains(out.Reply, "3:00 PM") {
		t.Fatalf("expected re-offered listing, got %q", out.Reply)
	}

	stored, _ = repo.Get(ctx, "org-1", "sess-1")
	if stored.Appointment.HasPending() {
		t.Fatalf("expected stale pending booking discarded")
	}
}

func TestReplayedConfirmationIsIdempotent(t *testing.T) {
	provider := &fakeProvider{slots: []calendar.Slot{saturdaySlot()}}
	machine, repo, profile := newTestMachine(t, provider)
	profile.Email = "jane@example.com"
	ctx := context.Background()
	listing := FormatSlots(provider.slots)

	if _, err := machine.Advance(ctx, AdvanceInput{
		Profile:         profile,
		Message:         "confirm slot_2025-06-21_13_00",
		Action:          ActionBook,
		RecentAssistant: []string{listing},
	}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	stored, _ := repo.Get(ctx, "org-1", "sess-1")
	out, err := machine.Advance(ctx, AdvanceInput{
		Profile:         stored,
		Message:         "confirm slot_2025-06-21_13_00",
		Action:          ActionBook,
		RecentAssistant: []string{listing},
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if out.Confirmed {
		t.Fatalf("replayed confirmation must not re-book")
	}
	if out.ModeAfter != "faq" {
		t.Fatalf("expected mode to stay faq, got %q", out.ModeAfter)
	}
	if !strings.Contains(out.Reply, "already booked") {
		t.Fatalf("expected already-booked notice, got %q", out.Reply)
	}

	again, _ := repo.Get(ctx, "org-1", "sess-1")
	if again.Appointment.HasPending() {
		t.Fatalf("replay must not create a pending booking")
	}
}

func TestNewBookingRequestAfterConfirmationReopens(t *testing.T) {
	provider := &fakeProvider{slots: []calendar.Slot{saturdaySlot()}}
	machine, repo, profile := newTestMachine(t, provider)
	profile.Email = "jane@example.com"
	ctx := context.Background()

	if _, err := machine.Advance(ctx, AdvanceInput{
		Profile:         profile,
		Message:         "confirm slot_2025-06-21_13_00",
		Action:          ActionBook,
		RecentAssistant: []string{FormatSlots(provider.slots)},
	}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	// A follow-up asking for a new visit contains "book" but is not a replay.
	stored, _ := repo.Get(ctx, "org-1", "sess-1")
	out, err := machine.Advance(ctx, AdvanceInput{
		Profile: stored,
		Message: "can I book another visit next week?",
		Action:  ActionBook,
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if strings.Contains(out.Reply, "already booked") {
		t.Fatalf("new booking request must not be treated as a replay, got %q", out.Reply)
	}
	if !strings.Contains(out.Reply, "1:00 PM") {
		t.Fatalf("expected a fresh listing, got %q", out.Reply)
	}

	// A bare confirmation with no new evidence still reads as a replay.
	out, err = machine.Advance(ctx, AdvanceInput{
		Profile: stored,
		Message: "yes, confirm please",
		Action:  ActionBook,
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !strings.Contains(out.Reply, "already booked") {
		t.Fatalf("bare confirmation must read as a replay, got %q", out.Reply)
	}
}

func TestUnresolvablePhraseLeavesStateUntouched(t *testing.T) {
	provider := &fakeProvider{slots: []calendar.Slot{saturdaySlot()}}
	machine, repo, profile := newTestMachine(t, provider)
	ctx := context.Background()

	out, err := machine.Advance(ctx, AdvanceInput{
		Profile:         profile,
		Message:         "confirm the thing at 8:00 PM",
		Action:          ActionBook,
		RecentAssistant: []string{FormatSlots(provider.slots)},
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if out.State != StateNoSelection {
		t.Fatalf("expected no selection, got %v", out.State)
	}
	if !strings.Contains(out.Reply, "1:00 PM") {
		t.Fatalf("expected offered slots re-surfaced, got %q", out.Reply)
	}

	stored, _ := repo.Get(ctx, "org-1", "sess-1")
	if stored.Appointment.HasPending() {
		t.Fatalf("clarification must not create pending state")
	}
}

func TestCalendarFailureFallsBackGracefully(t *testing.T) {
	provider := &fakeProvider{err: context.DeadlineExceeded}
	machine, _, profile := newTestMachine(t, provider)

	out, err := machine.Advance(context.Background(), AdvanceInput{
		Profile: profile,
		Message: "I want to schedule an appointment",
		Action:  ActionBook,
	})
	if err != nil {
		t.Fatalf("calendar failure must not surface as error: %v", err)
	}
	if !strings.Contains(strings.ToLower(out.Reply), "open times") {
		t.Fatalf("expected no-availability fallback, got %q", out.Reply)
	}
}

func TestUnconnectedCalendarSurfacesSetupMessage(t *testing.T) {
	provider := &fakeProvider{err: calendar.ErrNotConnected}
	machine, _, profile := newTestMachine(t, provider)

	out, err := machine.Advance(context.Background(), AdvanceInput{
		Profile: profile,
		Message: "I want to schedule an appointment",
		Action:  ActionBook,
	})
	if err != nil {
		t.Fatalf("missing credentials must not surface as error: %v", err)
	}
	if !strings.Contains(out.Reply, "isn't set up") {
		t.Fatalf("expected explicit setup message, got %q", out.Reply)
	}
}

func TestRescheduleBypassesMachine(t *testing.T) {
	provider := &fakeProvider{slots: []calendar.Slot{saturdaySlot()}}
	machine, repo, profile := newTestMachine(t, provider)

	out, err := machine.Advance(context.Background(), AdvanceInput{
		Profile: profile,
		Message: "I need to reschedule my appointment",
		Action:  ActionReschedule,
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !strings.Contains(out.Reply, "reschedule") {
		t.Fatalf("expected reschedule redirect, got %q", out.Reply)
	}
	if !strings.Contains(out.Reply, "https://book.example.com/june21") {
		t.Fatalf("expected self-service link, got %q", out.Reply)
	}

	stored, _ := repo.Get(context.Background(), "org-1", "sess-1")
	if stored.Appointment.HasPending() {
		t.Fatalf("redirects must not touch booking state")
	}
}

func TestSlotCacheServesListingAndInvalidatesOnConfirm(t *testing.T) {
	provider := &fakeProvider{slots: []calendar.Slot{saturdaySlot()}}
	machine, _, profile := newTestMachine(t, provider)
	mr := miniredis.RunT(t)
	machine.UseSlotCache(cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil))
	ctx := context.Background()

	// Two listing turns share one provider fetch.
	for i := 0; i < 2; i++ {
		out, err := machine.Advance(ctx, AdvanceInput{
			Profile: profile,
			Message: "what times do you have open?",
			Action:  ActionBook,
		})
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if !strings.Contains(out.Reply, "1:00 PM") {
			t.Fatalf("expected availability listing, got %q", out.Reply)
		}
	}
	if provider.calls != 1 {
		t.Fatalf("expected 1 provider fetch for 2 listing turns, got %d", provider.calls)
	}

	// A selection from the cached listing still confirms against a fresh
	// fetch, and confirmation drops the cached listing.
	profile.Email = "john@example.com"
	out, err := machine.Advance(ctx, AdvanceInput{
		Profile:         profile,
		Message:         "Saturday at 1:00 PM",
		Action:          ActionBook,
		RecentAssistant: []string{FormatSlots(provider.slots)},
	})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !out.Confirmed {
		t.Fatalf("expected confirmation, got %+v", out)
	}
	if provider.calls != 2 {
		t.Fatalf("expected a fresh fetch for confirmation, got %d calls", provider.calls)
	}

	if _, err := machine.Advance(ctx, AdvanceInput{
		Profile: profile,
		Message: "what other times do you have?",
		Action:  ActionBook,
	}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected the cached listing to be invalidated after confirm, got %d calls", provider.calls)
	}
}
