package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const calendlyBaseURL = "https://api.calendly.com"

// CalendlyProvider reads available times from the Calendly v2 API. Tokens and
// event types are per-organization; lookup is injected so the provider itself
// stays stateless.
type CalendlyProvider struct {
	baseURL    string
	httpClient *http.Client
	creds      CalendlyCredentialSource
}

// CalendlyCredentials identify one org's Calendly event type.
type CalendlyCredentials struct {
	Token        string
	EventTypeURI string
}

// CalendlyCredentialSource resolves org credentials. Returning empty
// credentials means the org has not connected Calendly.
type CalendlyCredentialSource interface {
	CalendlyCredentials(ctx context.Context, orgID string) (CalendlyCredentials, error)
}

// ErrNotConnected indicates the org has no Calendly credentials configured.
var ErrNotConnected = errors.New("calendar: provider not connected for organization")

// StaticCalendlyCredentials serves the same credentials for every org,
// which fits single-tenant deployments and local development.
type StaticCalendlyCredentials struct {
	Token        string
	EventTypeURI string
}

func (s StaticCalendlyCredentials) CalendlyCredentials(ctx context.Context, orgID string) (CalendlyCredentials, error) {
	return CalendlyCredentials{Token: s.Token, EventTypeURI: s.EventTypeURI}, nil
}

func NewCalendlyProvider(creds CalendlyCredentialSource, httpClient *http.Client) *CalendlyProvider {
	if creds == nil {
		panic("calendar: credential source cannot be nil")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &CalendlyProvider{
		baseURL:    calendlyBaseURL,
		httpClient: httpClient,
		creds:      creds,
	}
}

func (p *CalendlyProvider) ListSlots(ctx context.Context, orgID string, daysAhead int) ([]Slot, error) {
	creds, err := p.creds.CalendlyCredentials(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("calendar: resolving calendly credentials: %w", err)
	}
	if strings.TrimSpace(creds.Token) == "" || strings.TrimSpace(creds.EventTypeURI) == "" {
		return nil, ErrNotConnected
	}
	if daysAhead <= 0 {
		daysAhead = 7
	}

	now := time.Now().UTC()
	q := url.Values{}
	q.Set("event_type", creds.EventTypeURI)
	q.Set("start_time", now.Format(time.RFC3339))
	q.Set("end_time", now.AddDate(0, 0, daysAhead).Format(time.RFC3339))

	endpoint := p.baseURL + "/event_type_available_times?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("calendar: building calendly request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar: calendly request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("calendar: calendly rate limited: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar: calendly returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Collection []struct {
			StartTime     time.Time `json:"start_time"`
			SchedulingURL string    `json:"scheduling_url"`
		} `json:"collection"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("calendar: decoding calendly response: %w", err)
	}

	slots := make([]Slot, 0, len(decoded.Collection))
	for _, item := range decoded.Collection {
		slots = append(slots, Slot{
			Start:         item.StartTime,
			End:           item.StartTime.Add(time.Hour),
			Source:        "calendly",
			SchedulingURL: item.SchedulingURL,
		})
	}
	return slots, nil
}

// ErrRateLimited distinguishes upstream throttling from generic failures so
// operational tooling can alert on it separately.
var ErrRateLimited = errors.New("calendar: rate limited")
