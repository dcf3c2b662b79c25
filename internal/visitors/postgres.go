package visitors

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresRepository persists profiles in the visitor_profiles table. The
// appointment sub-state is a JSONB column so the Pending Booking survives
// restarts and is cleared in the same update that confirms a booking.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a Postgres-backed repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	if db == nil {
		panic("visitors: db cannot be nil")
	}
	return &PostgresRepository{db: db}
}

// Get retrieves a profile by (org, session), or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, orgID, sessionID string) (*Profile, error) {
	if orgID == "" {
		return nil, ErrMissingOrgID
	}
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}

	const query = `
		SELECT org_id, session_id, name, email, phone, returning_user, mode,
		       appointment_context, created_at, updated_at
		FROM visitor_profiles
		WHERE org_id = $1 AND session_id = $2`

	var (
		p       Profile
		apptRaw []byte
	)
	err := r.db.QueryRowContext(ctx, query, orgID, sessionID).Scan(
		&p.OrganizationID, &p.SessionID, &p.Name, &p.Email, &p.Phone,
		&p.ReturningUser, &p.Mode, &apptRaw, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("visitors: failed to load profile: %w", err)
	}

	if len(apptRaw) > 0 {
		if err := json.Unmarshal(apptRaw, &p.Appointment); err != nil {
			return nil, fmt.Errorf("visitors: failed to decode appointment context: %w", err)
		}
	}
	return &p, nil
}

// Upsert inserts or updates the profile in a single statement so the contact
// fields and the appointment sub-state always land together.
func (r *PostgresRepository) Upsert(ctx context.Context, profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	apptRaw, err := json.Marshal(profile.Appointment)
	if err != nil {
		return fmt.Errorf("visitors: failed to encode appointment context: %w", err)
	}

	now := time.Now().UTC()
	const query = `
		INSERT INTO visitor_profiles
			(org_id, session_id, name, email, phone, returning_user, mode,
			 appointment_context, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (org_id, session_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			returning_user = EXCLUDED.returning_user,
			mode = EXCLUDED.mode,
			appointment_context = EXCLUDED.appointment_context,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		profile.OrganizationID, profile.SessionID, profile.Name, profile.Email,
		profile.Phone, profile.ReturningUser, profile.Mode, apptRaw, now,
	)
	if err != nil {
		return fmt.Errorf("visitors: failed to upsert profile: %w", err)
	}
	profile.UpdatedAt = now
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	return nil
}
