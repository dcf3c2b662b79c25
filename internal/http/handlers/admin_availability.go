package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mpeters88/chatdesk/internal/availability"
	"github.com/mpeters88/chatdesk/internal/calendar"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

// AdminAvailabilityHandler manages an org's weekly business hours, which
// feed the built-in calendar provider.
type AdminAvailabilityHandler struct {
	store  *availability.Store
	logger *logging.Logger
}

func NewAdminAvailabilityHandler(store *availability.Store, logger *logging.Logger) *AdminAvailabilityHandler {
	if store == nil {
		panic("handlers: availability store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAvailabilityHandler{store: store, logger: logger}
}

type availabilityWindow struct {
	Weekday string `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

var weekdayByName = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// GetWindows returns the configured weekly hours.
// GET /admin/orgs/{orgID}/availability
func (h *AdminAvailabilityHandler) GetWindows(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	windows, err := h.store.Windows(r.Context(), orgID)
	if err != nil {
		h.logger.Error("availability fetch failed", "org_id", orgID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load availability")
		return
	}

	out := make([]availabilityWindow, 0, len(windows))
	for _, win := range windows {
		out = append(out, availabilityWindow{
			Weekday: strings.ToLower(win.Weekday.String()),
			Start:   formatHour(win.StartHour),
			End:     formatHour(win.EndHour),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": out})
}

// PutWindows replaces the org's weekly hours.
// PUT /admin/orgs/{orgID}/availability
func (h *AdminAvailabilityHandler) PutWindows(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	var req struct {
		Windows []availabilityWindow `json:"windows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	windows := make([]calendar.BusinessWindow, 0, len(req.Windows))
	for _, win := range req.Windows {
		weekday, ok := weekdayByName[strings.ToLower(strings.TrimSpace(win.Weekday))]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown weekday "+win.Weekday)
			return
		}
		start, err := availability.ParseHour(win.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad start hour "+win.Start)
			return
		}
		end, err := availability.ParseHour(win.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad end hour "+win.End)
			return
		}
		windows = append(windows, calendar.BusinessWindow{
			Weekday:   weekday,
			StartHour: start,
			EndHour:   end,
		})
	}

	if err := h.store.Replace(r.Context(), orgID, windows); err != nil {
		h.logger.Error("availability replace failed", "org_id", orgID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stored": len(windows)})
}

func formatHour(hour int) string {
	switch {
	case hour == 0:
		return "12 AM"
	case hour < 12:
		return time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format("3 PM")
	case hour == 12:
		return "12 PM"
	default:
		return time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format("3 PM")
	}
}
