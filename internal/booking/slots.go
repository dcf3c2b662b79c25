// Package booking drives the multi-turn appointment selection flow: it
// formats offered slots, parses free-text selections against them, and tracks
// the per-session pending booking until contact info exists.
package booking

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mpeters88/chatdesk/internal/calendar"
)

const (
	slotIDLayout   = "2006-01-02_15_04"
	dateLayout     = "Monday, January 2, 2006"
	timeLayout     = "3:04 PM"
	headingMarker  = "📅 "
	bulletMarker   = "• "
	slotIDMarkerIn = "(ID: "
)

// SlotID derives the stable identifier for a slot start time.
func SlotID(start time.Time) string {
	return "slot_" + start.Format(slotIDLayout)
}

// OfferedOption is one selectable (date, time) pair as it appeared in an
// offered listing. Date and Time are the exact display strings; a selection
// is accepted only when both resolve under the same date heading.
type OfferedOption struct {
	Date          string
	Time          string
	ID            string
	SchedulingURL string
}

// FormatSlots renders slots grouped under date headings, each time bulleted
// with its slot ID. The output shape is load-bearing: ParseOffered
// reconstructs options from it on later turns.
func FormatSlots(slots []calendar.Slot) string {
	if len(slots) == 0 {
		return ""
	}

	sorted := make([]calendar.Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var b strings.Builder
	currentDate := ""
	for _, slot := range sorted {
		date := slot.Start.Format(dateLayout)
		if date != currentDate {
			if currentDate != "" {
				b.WriteString("\n")
			}
			b.WriteString(headingMarker)
			b.WriteString(date)
			b.WriteString(":\n")
			currentDate = date
		}
		b.WriteString("  ")
		b.WriteString(bulletMarker)
		b.WriteString(slot.Start.Format(timeLayout))
		b.WriteString(" ")
		b.WriteString(slotIDMarkerIn)
		b.WriteString(SlotID(slot.Start))
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseOffered reconstructs the offered options from a previously formatted
// listing. Lines outside the heading/bullet shape are ignored so the listing
// can be embedded in a longer assistant message.
func ParseOffered(text string) []OfferedOption {
	var (
		options     []OfferedOption
		currentDate string
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, headingMarker) {
			currentDate = strings.TrimSuffix(strings.TrimPrefix(line, headingMarker), ":")
			continue
		}
		if !strings.HasPrefix(line, bulletMarker) || currentDate == "" {
			continue
		}
		body := strings.TrimPrefix(line, bulletMarker)
		idx := strings.Index(body, slotIDMarkerIn)
		if idx < 0 {
			continue
		}
		timeText := strings.TrimSpace(body[:idx])
		rest := body[idx+len(slotIDMarkerIn):]
		end := strings.Index(rest, ")")
		if end < 0 {
			continue
		}
		options = append(options, OfferedOption{
			Date: currentDate,
			Time: timeText,
			ID:   strings.TrimSpace(rest[:end]),
		})
	}
	return options
}

// OptionsFromSlots converts live slots into options without the text round
// trip, carrying each slot's scheduling URL.
func OptionsFromSlots(slots []calendar.Slot) []OfferedOption {
	options := make([]OfferedOption, 0, len(slots))
	for _, slot := range slots {
		options = append(options, OfferedOption{
			Date:          slot.Start.Format(dateLayout),
			Time:          slot.Start.Format(timeLayout),
			ID:            SlotID(slot.Start),
			SchedulingURL: slot.SchedulingURL,
		})
	}
	return options
}

// FindOfferedListing scans assistant messages, most recent first, for the
// last slot listing shown to the visitor.
func FindOfferedListing(assistantMessages []string) []OfferedOption {
	for i := len(assistantMessages) - 1; i >= 0; i-- {
		if strings.Contains(assistantMessages[i], headingMarker) {
			if options := ParseOffered(assistantMessages[i]); len(options) > 0 {
				return options
			}
		}
	}
	return nil
}

// FormatOptionLabel renders an option for clarification prompts.
func FormatOptionLabel(opt OfferedOption) string {
	return fmt.Sprintf("%s at %s", opt.Date, opt.Time)
}
