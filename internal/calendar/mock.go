package calendar

import (
	"context"
	"time"
)

// BusinessWindow is one open interval on a given weekday, hours in 24h clock.
type BusinessWindow struct {
	Weekday   time.Weekday
	StartHour int
	EndHour   int
}

// WindowSource supplies per-org business windows, typically backed by the
// availability store. A nil source means default weekday business hours.
type WindowSource interface {
	Windows(ctx context.Context, orgID string) ([]BusinessWindow, error)
}

// MockProvider generates hourly slots inside business windows. It stands in
// for a real scheduling integration in development and for orgs that have not
// connected one; the scheduling URL is the org's public booking page.
type MockProvider struct {
	SchedulingURL string
	Source        WindowSource
	Now           func() time.Time
}

// NewMockProvider creates a mock feed pointing at schedulingURL.
func NewMockProvider(schedulingURL string, source WindowSource) *MockProvider {
	return &MockProvider{
		SchedulingURL: schedulingURL,
		Source:        source,
		Now:           time.Now,
	}
}

func (p *MockProvider) ListSlots(ctx context.Context, orgID string, daysAhead int) ([]Slot, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}

	windows := defaultWindows()
	if p.Source != nil {
		custom, err := p.Source.Windows(ctx, orgID)
		if err != nil {
			return nil, err
		}
		if len(custom) > 0 {
			windows = custom
		}
	}

	byWeekday := make(map[time.Weekday][]BusinessWindow)
	for _, w := range windows {
		byWeekday[w.Weekday] = append(byWeekday[w.Weekday], w)
	}

	now := p.Now()
	start := now.Add(24 * time.Hour)
	var slots []Slot
	for d := 0; d < daysAhead; d++ {
		day := start.AddDate(0, 0, d)
		for _, w := range byWeekday[day.Weekday()] {
			for hour := w.StartHour; hour < w.EndHour; hour++ {
				slotStart := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
				if slotStart.Before(now) {
					continue
				}
				slots = append(slots, Slot{
					Start:         slotStart,
					End:           slotStart.Add(time.Hour),
					Source:        "mock",
					SchedulingURL: p.SchedulingURL,
				})
			}
		}
	}
	return slots, nil
}

// Weekday business hours, 9am to 5pm.
func defaultWindows() []BusinessWindow {
	days := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	windows := make([]BusinessWindow, 0, len(days))
	for _, d := range days {
		windows = append(windows, BusinessWindow{Weekday: d, StartHour: 9, EndHour: 17})
	}
	return windows
}
