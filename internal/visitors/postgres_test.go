package visitors

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresRepositoryGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"org_id", "session_id", "name", "email", "phone", "returning_user",
		"mode", "appointment_context", "created_at", "updated_at",
	}).AddRow("org-1", "sess-1", "Jane", "jane@example.com", "", true, "faq",
		[]byte(`{"pending_date":"Saturday, June 21, 2025","pending_time":"1:00 PM"}`), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT org_id, session_id, name, email, phone, returning_user, mode,")).
		WithArgs("org-1", "sess-1").
		WillReturnRows(rows)

	repo := NewPostgresRepository(db)
	p, err := repo.Get(context.Background(), "org-1", "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Name != "Jane" || !p.ReturningUser {
		t.Fatalf("unexpected profile %+v", p)
	}
	if !p.Appointment.HasPending() {
		t.Fatalf("expected pending booking decoded from jsonb")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresRepositoryGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT org_id").
		WithArgs("org-1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"org_id", "session_id", "name", "email", "phone", "returning_user",
			"mode", "appointment_context", "created_at", "updated_at",
		}))

	repo := NewPostgresRepository(db)
	if _, err := repo.Get(context.Background(), "org-1", "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRepositoryUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO visitor_profiles")).
		WithArgs("org-1", "sess-1", "Jane", "jane@example.com", "", false, "faq",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	p := &Profile{
		OrganizationID: "org-1",
		SessionID:      "sess-1",
		Name:           "Jane",
		Email:          "jane@example.com",
		Mode:           "faq",
	}
	if err := repo.Upsert(context.Background(), p); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if p.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
