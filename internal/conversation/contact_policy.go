package conversation

import (
	"regexp"
	"strings"

	"github.com/mpeters88/chatdesk/internal/visitors"
)

var (
	contactEmailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	contactPhonePattern = regexp.MustCompile(`\+?[\d][\d\s().\-]{6,}\d`)
	nameCuePattern      = regexp.MustCompile(`(?i)\b(my name is|i am|i'm|this is|call me)\s+([A-Za-z][A-Za-z'\-]*(?:\s+[A-Za-z][A-Za-z'\-]*)?)`)
	refusalPattern      = regexp.MustCompile(`(?i)\b(rather not|prefer not|not comfortable|won't share|will not share|don't want to share|do not want to share|no thanks|stay anonymous|anonymous)\b`)
	bareNamePattern     = regexp.MustCompile(`^[A-Za-z][A-Za-z'\-]*(?:\s+[A-Za-z][A-Za-z'\-]*)?$`)
)

// ContactPolicy decides when to interrupt a conversation to ask for contact
// details, and passively harvests details the visitor volunteers.
type ContactPolicy struct {
	MinTurns          int
	MaxTurns          int
	EngagementWordMin int
}

// NewContactPolicy applies defaults for zero-valued bounds.
func NewContactPolicy(minTurns, maxTurns, engagementWordMin int) *ContactPolicy {
	if minTurns <= 0 {
		minTurns = 3
	}
	if maxTurns <= minTurns {
		maxTurns = minTurns + 7
	}
	if engagementWordMin <= 0 {
		engagementWordMin = 3
	}
	return &ContactPolicy{
		MinTurns:          minTurns,
		MaxTurns:          maxTurns,
		EngagementWordMin: engagementWordMin,
	}
}

// CollectInput is one turn's worth of evidence for the timing decision.
type CollectInput struct {
	Profile            *visitors.Profile
	TurnCount          int
	RecentUserMessages []string
	BookingIntent      bool
	LeadCaptureEnabled bool
}

// ShouldCollectNow reports whether this turn should pause to ask for a
// contact field. Rules are evaluated in priority order.
func (p *ContactPolicy) ShouldCollectNow(in CollectInput) bool {
	if !in.LeadCaptureEnabled {
		return false
	}

	// A field that was asked about and declined is settled; so is one that
	// holds a real value. Only a never-asked field permits a prompt.
	nameSettled := in.Profile.HasRealName() || in.Profile.NameRefused()
	emailSettled := in.Profile.HasRealEmail() || in.Profile.EmailRefused()
	if nameSettled && emailSettled {
		return false
	}

	// Booking requires identity regardless of turn position.
	if in.BookingIntent {
		return true
	}

	if in.TurnCount < p.MinTurns {
		return false
	}
	if in.TurnCount >= p.MaxTurns {
		return true
	}

	// Mid-window: collect only from an engaged visitor. A majority of
	// recent messages must clear the word-count bar; terse replies wait.
	if len(in.RecentUserMessages) == 0 {
		return false
	}
	engaged := 0
	for _, msg := range in.RecentUserMessages {
		if len(strings.Fields(msg)) >= p.EngagementWordMin {
			engaged++
		}
	}
	return engaged*2 > len(in.RecentUserMessages)
}

// NextPrompt returns the ask for the first missing field, one field per turn.
// Name is asked before email.
func (p *ContactPolicy) NextPrompt(profile *visitors.Profile) (field, prompt string) {
	if !profile.HasRealName() && !profile.NameRefused() {
		return "name", "By the way, who do I have the pleasure of chatting with?"
	}
	if !profile.HasRealEmail() && !profile.EmailRefused() {
		return "email", "What's the best email to reach you at, in case we get disconnected?"
	}
	return "", ""
}

// ExtractContact harvests contact details the message volunteers, updating
// the profile in place. awaitingField names the field the previous turn asked
// for, which lets a bare one or two word reply count as a name. It returns
// true when anything on the profile changed.
func (p *ContactPolicy) ExtractContact(profile *visitors.Profile, message, awaitingField string) bool {
	changed := false
	trimmed := strings.TrimSpace(message)

	if email := contactEmailPattern.FindString(trimmed); email != "" && !profile.HasRealEmail() {
		profile.Email = email
		changed = true
	}
	if phone := contactPhonePattern.FindString(trimmed); phone != "" && profile.Phone == "" {
		if digits := countDigits(phone); digits >= 7 && digits <= 15 {
			profile.Phone = strings.TrimSpace(phone)
			changed = true
		}
	}

	if !profile.HasRealName() {
		if m := nameCuePattern.FindStringSubmatch(trimmed); len(m) == 3 && plausibleName(m[2]) {
			profile.Name = strings.TrimSpace(m[2])
			changed = true
		} else if awaitingField == "name" && bareNamePattern.MatchString(trimmed) && plausibleName(trimmed) {
			profile.Name = trimmed
			changed = true
		}
	}

	// A refusal settles whichever field was being asked for. AnonymousName
	// and AnonymousEmail are sentinels distinct from the empty string, so
	// the policy can tell "declined" apart from "never asked".
	if refusalPattern.MatchString(trimmed) {
		switch awaitingField {
		case "name":
			if !profile.HasRealName() {
				profile.Name = visitors.AnonymousName
				changed = true
			}
		case "email":
			if !profile.HasRealEmail() {
				profile.Email = visitors.AnonymousEmail
				changed = true
			}
		}
	}

	return changed
}

// Filler words that follow "call me" or "this is" without being a name.
var nameStopwords = map[string]bool{
	"back": true, "later": true, "now": true, "anytime": true, "asap": true,
	"please": true, "when": true, "not": true, "sure": true, "interested": true,
	"looking": true, "wondering": true, "trying": true, "just": true,
}

func plausibleName(candidate string) bool {
	words := strings.Fields(strings.TrimSpace(candidate))
	if len(words) == 0 || len(words) > 2 {
		return false
	}
	return !nameStopwords[strings.ToLower(words[0])]
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
