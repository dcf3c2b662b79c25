package conversation

import "regexp"

// The deterministic pre-pass catches booking intent that the LLM classifier
// sometimes misses on terse confirmation turns. A positive hit always wins
// over the LLM's verdict, including the failure fallback.
var (
	slotIDMention   = regexp.MustCompile(`\bslot_\d{4}-\d{2}-\d{2}_\d{2}_\d{2}\b`)
	bookingKeyword  = regexp.MustCompile(`(?i)\b(confirm|book|schedule|reserve|appointment)\b`)
	clockMention    = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*[ap]\.?m\.?\b`)
	weekdayMention  = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	tomorrowMention = regexp.MustCompile(`(?i)\b(today|tomorrow)\b`)
)

// DetectBookingOverride reports whether the message carries an unambiguous
// booking signal: an explicit slot ID, a day name paired with a clock time,
// or a booking keyword combined with a concrete time reference. A bare
// "Saturday at 1:00 PM" is how visitors answer a slot listing, so the
// day+time pair needs no keyword.
func DetectBookingOverride(message string) bool {
	if slotIDMention.MatchString(message) {
		return true
	}
	if clockMention.MatchString(message) &&
		(weekdayMention.MatchString(message) || tomorrowMention.MatchString(message)) {
		return true
	}
	if !bookingKeyword.MatchString(message) {
		return false
	}
	return clockMention.MatchString(message) ||
		weekdayMention.MatchString(message) ||
		tomorrowMention.MatchString(message)
}
