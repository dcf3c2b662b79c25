package availability

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mpeters88/chatdesk/internal/calendar"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store keeps per-org business hours. It backs the mock calendar provider
// for orgs that have not connected an external scheduler.
type Store struct {
	db     db
	logger *logging.Logger
}

func NewStore(db db, logger *logging.Logger) *Store {
	if db == nil {
		panic("availability: db cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{db: db, logger: logger}
}

// Windows returns the org's configured weekly hours, implementing
// calendar.WindowSource. No rows means provider defaults apply.
func (s *Store) Windows(ctx context.Context, orgID string) ([]calendar.BusinessWindow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT weekday, start_hour, end_hour
		FROM org_availability
		WHERE org_id = $1
		ORDER BY weekday, start_hour`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("availability: loading windows: %w", err)
	}
	defer rows.Close()

	var windows []calendar.BusinessWindow
	for rows.Next() {
		var weekday, startHour, endHour int
		if err := rows.Scan(&weekday, &startHour, &endHour); err != nil {
			return nil, fmt.Errorf("availability: scanning window: %w", err)
		}
		windows = append(windows, calendar.BusinessWindow{
			Weekday:   time.Weekday(weekday),
			StartHour: startHour,
			EndHour:   endHour,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: iterating windows: %w", err)
	}
	return windows, nil
}

// Replace swaps the org's full weekly schedule in one transaction.
func (s *Store) Replace(ctx context.Context, orgID string, windows []calendar.BusinessWindow) error {
	for _, w := range windows {
		if err := validateWindow(w); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("availability: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM org_availability WHERE org_id = $1`, orgID); err != nil {
		return fmt.Errorf("availability: clearing windows: %w", err)
	}
	for _, w := range windows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO org_availability (org_id, weekday, start_hour, end_hour)
			VALUES ($1, $2, $3, $4)`,
			orgID, int(w.Weekday), w.StartHour, w.EndHour,
		); err != nil {
			return fmt.Errorf("availability: inserting window: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("availability: committing windows: %w", err)
	}
	return nil
}

func validateWindow(w calendar.BusinessWindow) error {
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return fmt.Errorf("availability: invalid weekday %d", w.Weekday)
	}
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 1 || w.EndHour > 24 {
		return fmt.Errorf("availability: hours out of range: %d-%d", w.StartHour, w.EndHour)
	}
	if w.EndHour <= w.StartHour {
		return fmt.Errorf("availability: window ends before it starts: %d-%d", w.StartHour, w.EndHour)
	}
	return nil
}

// ParseHour accepts "9", "09:00", "9 AM", or "5:00 PM" and returns the hour
// in 24h form. Admin clients send whichever form their UI produces.
func ParseHour(input string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return 0, fmt.Errorf("availability: empty hour")
	}

	meridiem := ""
	switch {
	case strings.HasSuffix(s, "AM"):
		meridiem = "AM"
		s = strings.TrimSpace(strings.TrimSuffix(s, "AM"))
	case strings.HasSuffix(s, "PM"):
		meridiem = "PM"
		s = strings.TrimSpace(strings.TrimSuffix(s, "PM"))
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}

	hour, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("availability: bad hour %q", input)
	}
	switch meridiem {
	case "AM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("availability: bad hour %q", input)
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("availability: bad hour %q", input)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 24 {
			return 0, fmt.Errorf("availability: bad hour %q", input)
		}
	}
	return hour, nil
}
