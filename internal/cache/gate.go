package cache

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
)

// Phrases that mark a reply as addressed to one specific visitor. A response
// containing any of these must never be replayed to someone else.
var personalPhrases = []string{
	"your name",
	"your email",
	"your phone",
	"nice to meet you",
	"thanks for sharing",
	"already booked",
	"your appointment",
	"your booking",
}

// ResponseCacheable reports whether a generated response may be written to
// the shared response cache. Eligible only when the response carries no
// personal identifiers, the turn is not inside an appointment or lead-capture
// flow, and the visitor profile is already complete; otherwise the entry
// would be keyed to an incomplete identity and replayed to the wrong visitor.
func ResponseCacheable(response, mode string, profileComplete bool) bool {
	if !profileComplete {
		return false
	}
	switch mode {
	case "appointment", "lead_capture":
		return false
	}
	if emailPattern.MatchString(response) {
		return false
	}
	if phonePattern.MatchString(response) {
		return false
	}
	lower := strings.ToLower(response)
	for _, phrase := range personalPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}
