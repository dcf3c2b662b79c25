package conversation

import (
	"testing"

	"github.com/mpeters88/chatdesk/internal/visitors"
)

func TestShouldCollectNow(t *testing.T) {
	policy := NewContactPolicy(3, 10, 3)
	blank := &visitors.Profile{OrganizationID: "org-1", SessionID: "s"}
	complete := &visitors.Profile{OrganizationID: "org-1", SessionID: "s", Name: "Jane Doe", Email: "jane@example.com"}
	refused := &visitors.Profile{OrganizationID: "org-1", SessionID: "s", Name: visitors.AnonymousName, Email: visitors.AnonymousEmail}

	engaged := []string{"what packages do you offer for small teams", "how does onboarding work exactly", "ok"}
	terse := []string{"ok", "sure", "what about pricing and discounts"}

	cases := []struct {
		name string
		in   CollectInput
		want bool
	}{
		{"disabled org never collects", CollectInput{Profile: blank, TurnCount: 12, LeadCaptureEnabled: false}, false},
		{"booking intent always collects", CollectInput{Profile: blank, TurnCount: 1, BookingIntent: true, LeadCaptureEnabled: true}, true},
		{"first turns stay uninterrupted", CollectInput{Profile: blank, TurnCount: 2, RecentUserMessages: engaged, LeadCaptureEnabled: true}, false},
		{"engaged visitor mid-window", CollectInput{Profile: blank, TurnCount: 5, RecentUserMessages: engaged, LeadCaptureEnabled: true}, true},
		{"terse visitor mid-window waits", CollectInput{Profile: blank, TurnCount: 5, RecentUserMessages: terse, LeadCaptureEnabled: true}, false},
		{"upper bound collects unconditionally", CollectInput{Profile: blank, TurnCount: 10, RecentUserMessages: terse, LeadCaptureEnabled: true}, true},
		{"complete profile never prompts", CollectInput{Profile: complete, TurnCount: 10, BookingIntent: true, LeadCaptureEnabled: true}, false},
		{"refused profile never prompts again", CollectInput{Profile: refused, TurnCount: 10, LeadCaptureEnabled: true}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.ShouldCollectNow(tc.in); got != tc.want {
				t.Fatalf("ShouldCollectNow = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNextPromptOneFieldPerTurn(t *testing.T) {
	policy := NewContactPolicy(3, 10, 3)

	profile := &visitors.Profile{OrganizationID: "org-1", SessionID: "s"}
	field, prompt := policy.NextPrompt(profile)
	if field != "name" || prompt == "" {
		t.Fatalf("expected name prompt first, got %q", field)
	}

	profile.Name = "Jane"
	field, _ = policy.NextPrompt(profile)
	if field != "email" {
		t.Fatalf("expected email prompt next, got %q", field)
	}

	profile.Email = visitors.AnonymousEmail
	field, _ = policy.NextPrompt(profile)
	if field != "" {
		t.Fatalf("refused email must not be re-asked, got %q", field)
	}
}

func TestExtractContact(t *testing.T) {
	policy := NewContactPolicy(3, 10, 3)

	t.Run("volunteered name and email", func(t *testing.T) {
		profile := &visitors.Profile{OrganizationID: "org-1", SessionID: "s"}
		if !policy.ExtractContact(profile, "Hi, my name is Jane Doe, reach me at jane@example.com", "") {
			t.Fatalf("expected extraction")
		}
		if profile.Name != "Jane Doe" || profile.Email != "jane@example.com" {
			t.Fatalf("unexpected profile %+v", profile)
		}
	})

	t.Run("bare reply counts as name only when asked", func(t *testing.T) {
		profile := &visitors.Profile{OrganizationID: "org-1", SessionID: "s"}
		if policy.ExtractContact(profile, "Jane Doe", "") {
			t.Fatalf("bare words must not become a name unprompted")
		}
		if !policy.ExtractContact(profile, "Jane Doe", "name") {
			t.Fatalf("expected name captured after prompt")
		}
		if profile.Name != "Jane Doe" {
			t.Fatalf("unexpected name %q", profile.Name)
		}
	})

	t.Run("phone requires enough digits", func(t *testing.T) {
		profile := &visitors.Profile{OrganizationID: "org-1", SessionID: "s"}
		policy.ExtractContact(profile, "call me back at (555) 867-5309", "")
		if profile.Phone == "" {
			t.Fatalf("expected phone captured")
		}

		short := &visitors.Profile{OrganizationID: "org-1", SessionID: "s"}
		policy.ExtractContact(short, "I live at number 12345", "")
		if short.Phone != "" {
			t.Fatalf("short digit runs must not become phones, got %q", short.Phone)
		}
	})

	t.Run("refusal stores sentinel for the asked field", func(t *testing.T) {
		profile := &visitors.Profile{OrganizationID: "org-1", SessionID: "s"}
		if !policy.ExtractContact(profile, "I'd rather not say", "email") {
			t.Fatalf("expected refusal recorded")
		}
		if profile.Email != visitors.AnonymousEmail {
			t.Fatalf("expected email sentinel, got %q", profile.Email)
		}
		if profile.Name != "" {
			t.Fatalf("refusal must settle only the asked field, got name %q", profile.Name)
		}
	})
}
