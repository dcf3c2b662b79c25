package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMockProviderDefaultBusinessHours(t *testing.T) {
	p := NewMockProvider("https://book.example.com/org", nil)
	// Wednesday noon; slots start the next day.
	p.Now = func() time.Time {
		return time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	}

	slots, err := p.ListSlots(context.Background(), "org-1", 3)
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatalf("expected slots for weekday window")
	}
	for _, s := range slots {
		wd := s.Start.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("unexpected weekend slot at %s", s.Start)
		}
		if s.Start.Hour() < 9 || s.Start.Hour() >= 17 {
			t.Fatalf("slot outside business hours: %s", s.Start)
		}
		if s.SchedulingURL != "https://book.example.com/org" {
			t.Fatalf("unexpected scheduling url %q", s.SchedulingURL)
		}
	}
	// Thursday 9am must be the first slot.
	first := slots[0]
	if first.Start.Weekday() != time.Thursday || first.Start.Hour() != 9 {
		t.Fatalf("unexpected first slot %s", first.Start)
	}
}

type staticWindows []BusinessWindow

func (s staticWindows) Windows(ctx context.Context, orgID string) ([]BusinessWindow, error) {
	return s, nil
}

func TestMockProviderCustomWindows(t *testing.T) {
	source := staticWindows{{Weekday: time.Saturday, StartHour: 10, EndHour: 14}}
	p := NewMockProvider("https://book.example.com/org", source)
	p.Now = func() time.Time {
		return time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	}

	slots, err := p.ListSlots(context.Background(), "org-1", 7)
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 saturday slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Weekday() != time.Saturday {
			t.Fatalf("expected saturday slot, got %s", s.Start)
		}
	}
}

type staticCreds CalendlyCredentials

func (c staticCreds) CalendlyCredentials(ctx context.Context, orgID string) (CalendlyCredentials, error) {
	return CalendlyCredentials(c), nil
}

func TestCalendlyProviderParsesCollection(t *testing.T) {
	start := time.Date(2025, 6, 21, 13, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"collection": []map[string]any{
				{"start_time": start.Format(time.RFC3339), "scheduling_url": "https://calendly.com/org/slot"},
			},
		})
	}))
	defer srv.Close()

	p := NewCalendlyProvider(staticCreds{Token: "tok", EventTypeURI: "https://api.calendly.com/event_types/abc"}, srv.Client())
	p.baseURL = srv.URL

	slots, err := p.ListSlots(context.Background(), "org-1", 7)
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Start.Equal(start) {
		t.Fatalf("unexpected start %s", slots[0].Start)
	}
	if slots[0].SchedulingURL != "https://calendly.com/org/slot" {
		t.Fatalf("unexpected url %q", slots[0].SchedulingURL)
	}
	if slots[0].Source != "calendly" {
		t.Fatalf("unexpected source %q", slots[0].Source)
	}
}

func TestCalendlyProviderNotConnected(t *testing.T) {
	p := NewCalendlyProvider(staticCreds{}, nil)
	if _, err := p.ListSlots(context.Background(), "org-1", 7); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestNullProvider(t *testing.T) {
	slots, err := NullProvider{}.ListSlots(context.Background(), "org-1", 7)
	if err != nil || len(slots) != 0 {
		t.Fatalf("expected empty listing, got %v %v", slots, err)
	}
}
