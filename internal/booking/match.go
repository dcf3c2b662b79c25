package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	slotIDPattern = regexp.MustCompile(`slot_\d{4}-\d{2}-\d{2}_\d{2}_\d{2}`)
	timePattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\.?\b`)
	monthDay      = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\w*\s+(\d{1,2})\b`)
	numericDate   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	ordinalDay    = regexp.MustCompile(`(?i)\bthe\s+(\d{1,2})(st|nd|rd|th)\b`)
)

var weekdayNames = []string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

// MatchKind describes how specific a selection attempt was.
type MatchKind int

const (
	MatchNone MatchKind = iota
	// MatchAmbiguous means part of a selection was understood but it does not
	// resolve to exactly one offered option.
	MatchAmbiguous
	MatchFound
)

// MatchSelection resolves a visitor message against the offered options.
// An option matches only when the message's date evidence and time both point
// at the same heading; a time mentioned under a different date is rejected.
func MatchSelection(message string, offered []OfferedOption) (OfferedOption, MatchKind) {
	if len(offered) == 0 {
		return OfferedOption{}, MatchNone
	}
	lower := strings.ToLower(message)

	// Explicit slot IDs are authoritative.
	if id := slotIDPattern.FindString(message); id != "" {
		for _, opt := range offered {
			if opt.ID == id {
				return opt, MatchFound
			}
		}
		// A stated ID that is not on offer is a concrete but stale selection.
		return OfferedOption{}, MatchAmbiguous
	}

	wantTime, hasTime := extractTime(lower)
	dated := datedCandidates(lower, offered)

	switch {
	case hasTime && len(dated) > 0:
		for _, opt := range dated {
			if normalizeTimeLabel(opt.Time) == wantTime {
				return opt, MatchFound
			}
		}
		// Date understood, but the requested time is not under that heading.
		return OfferedOption{}, MatchAmbiguous
	case hasTime:
		// Time only: acceptable when it is unambiguous across all headings.
		var hits []OfferedOption
		for _, opt := range offered {
			if normalizeTimeLabel(opt.Time) == wantTime {
				hits = append(hits, opt)
			}
		}
		if len(hits) == 1 {
			return hits[0], MatchFound
		}
		if len(hits) > 1 {
			return OfferedOption{}, MatchAmbiguous
		}
		return OfferedOption{}, MatchAmbiguous
	case len(dated) > 0:
		// Date only: needs a time to complete the pair.
		return OfferedOption{}, MatchAmbiguous
	default:
		return OfferedOption{}, MatchNone
	}
}

// datedCandidates returns the offered options whose date heading the message
// plausibly references.
func datedCandidates(lower string, offered []OfferedOption) []OfferedOption {
	var out []OfferedOption
	for _, opt := range offered {
		if dateMentioned(lower, opt.Date) {
			out = append(out, opt)
		}
	}
	return out
}

// dateMentioned checks a message for evidence of a specific date heading such
// as "Saturday, June 21, 2025". Weekday names tolerate typos via character
// overlap, so "aturday" still counts.
func dateMentioned(lower, dateHeading string) bool {
	heading := strings.ToLower(dateHeading)
	parts := strings.SplitN(heading, ",", 2)
	weekday := strings.TrimSpace(parts[0])

	var month string
	var day int
	if m := monthDay.FindStringSubmatch(heading); m != nil {
		month = strings.ToLower(m[1])
		day, _ = strconv.Atoi(m[2])
	}

	// Month + day spelled out ("june 21", "jun 21").
	if m := monthDay.FindStringSubmatch(lower); m != nil && month != "" {
		if sameMonth(m[1], month) {
			if d, _ := strconv.Atoi(m[2]); d == day {
				return true
			}
		}
	}

	// Numeric M/D ("6/21").
	if m := numericDate.FindStringSubmatch(lower); m != nil && month != "" {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		if mo == monthNumber(month) && d == day {
			return true
		}
	}

	// Ordinal day ("the 21st").
	if m := ordinalDay.FindStringSubmatch(lower); m != nil && day > 0 {
		if d, _ := strconv.Atoi(m[1]); d == day {
			return true
		}
	}

	if mentioned, ok := mentionedWeekday(lower); ok {
		return mentioned == weekday
	}
	return false
}

// mentionedWeekday resolves the message to at most one weekday. Exact names
// win outright; otherwise the best typo-tolerant candidate is taken, so
// "aturday" resolves to saturday rather than fuzzily matching several days.
func mentionedWeekday(lower string) (string, bool) {
	for _, name := range weekdayNames {
		if strings.Contains(lower, name) {
			return name, true
		}
	}

	best := ""
	bestScore := 0.0
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if len(word) < 5 {
			continue
		}
		for _, name := range weekdayNames {
			if score := charOverlap(word, name); score > 0.7 && score > bestScore {
				best = name
				bestScore = score
			}
		}
	}
	return best, best != ""
}

// charOverlap scores how much of target's characters appear in candidate,
// as a fraction of the target length. Order is ignored; this is deliberately
// forgiving of one or two dropped letters.
func charOverlap(candidate, target string) float64 {
	if len(target) == 0 {
		return 0
	}
	counts := make(map[rune]int)
	for _, r := range candidate {
		counts[r]++
	}
	hits := 0
	for _, r := range target {
		if counts[r] > 0 {
			counts[r]--
			hits++
		}
	}
	return float64(hits) / float64(len(target))
}

// extractTime pulls the first clock time with meridiem from a message and
// normalizes it to the listing's display form ("1:00 PM").
func extractTime(lower string) (string, bool) {
	m := timePattern.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	if hour < 1 || hour > 12 {
		return "", false
	}
	minutes := m[2]
	if minutes == "" {
		minutes = "00"
	}
	meridiem := "AM"
	if strings.EqualFold(m[3], "p") {
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%s %s", hour, minutes, meridiem), true
}

func normalizeTimeLabel(label string) string {
	lower := strings.ToLower(strings.TrimSpace(label))
	t, ok := extractTime(lower)
	if !ok {
		return strings.ToUpper(lower)
	}
	return t
}

func sameMonth(candidate, target string) bool {
	candidate = strings.ToLower(candidate)
	if len(candidate) > 3 {
		candidate = candidate[:3]
	}
	if len(target) > 3 {
		target = target[:3]
	}
	return candidate == target
}

func monthNumber(name string) int {
	months := []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	name = strings.ToLower(name)
	if len(name) > 3 {
		name = name[:3]
	}
	for i, m := range months {
		if m == name {
			return i + 1
		}
	}
	return 0
}
