package session

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var sessionTestColumns = []string{
	"id", "principal_id", "tenant_id", "organization_id", "family",
	"access_jti", "refresh_jti", "ip_address", "user_agent",
	"created_at", "expires_at", "access_expires_at", "revoked_at", "revoked_reason",
}

func sessionRow(s *Session) *sqlmock.Rows {
	rows := sqlmock.NewRows(sessionTestColumns)
	var revokedAt any
	if s.RevokedAt != nil {
		revokedAt = *s.RevokedAt
	}
	rows.AddRow(
		s.ID, s.PrincipalID, s.TenantID, s.OrganizationID, s.Family,
		s.AccessJTI, s.RefreshJTI, s.IPAddress, s.UserAgent,
		s.CreatedAt, s.ExpiresAt, s.AccessExpiresAt, revokedAt, s.RevokedReason,
	)
	return rows
}

func TestPostgresSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init failed: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db)
	sess := makeSession("sid-1", "rjti-1", "fam-1")

	mock.ExpectExec(regexp.QuoteMeta("insert into auth_sessions")).
		WithArgs(
			sess.ID, sess.PrincipalID, sess.TenantID, sess.OrganizationID, sess.Family,
			sess.AccessJTI, sess.RefreshJTI, sess.IPAddress, sess.UserAgent,
			sess.CreatedAt, sess.ExpiresAt, sess.AccessExpiresAt, nil, sess.RevokedReason,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init failed: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db)
	sess := makeSession("sid-1", "rjti-1", "fam-1")

	mock.ExpectQuery(regexp.QuoteMeta("from auth_sessions where id = $1")).
		WithArgs("sid-1").
		WillReturnRows(sessionRow(sess))

	got, err := store.GetByID(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RefreshJTI != "rjti-1" || got.RevokedAt != nil {
		t.Fatalf("unexpected session: %+v", got)
	}

	mock.ExpectQuery(regexp.QuoteMeta("from auth_sessions where id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sessionTestColumns))

	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRotate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init failed: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Now()
	rot := Rotation{
		AccessJTI:       "access-2",
		RefreshJTI:      "rjti-2",
		ExpiresAt:       now.Add(time.Hour),
		AccessExpiresAt: now.Add(time.Minute),
	}

	rotated := makeSession("sid-1", rot.RefreshJTI, "fam-1")
	rotated.AccessJTI = rot.AccessJTI

	mock.ExpectQuery(regexp.QuoteMeta("update auth_sessions")).
		WithArgs("rjti-1", rot.AccessJTI, rot.RefreshJTI, rot.ExpiresAt, rot.AccessExpiresAt).
		WillReturnRows(sessionRow(rotated))

	got, err := store.Rotate(context.Background(), "rjti-1", rot)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if got.RefreshJTI != "rjti-2" {
		t.Fatalf("unexpected rotated session: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRotateConflictWhenNoRowMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init failed: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db)

	// A stale jti, a revoked row, or an expired row all match nothing.
	mock.ExpectQuery(regexp.QuoteMeta("update auth_sessions")).
		WillReturnRows(sqlmock.NewRows(sessionTestColumns))

	_, err = store.Rotate(context.Background(), "stale-jti", Rotation{
		AccessJTI:  "a",
		RefreshJTI: "r",
	})
	if !errors.Is(err, ErrRotateConflict) {
		t.Fatalf("expected ErrRotateConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresMarkRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init failed: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("set revoked_at = $2, revoked_reason = $3")).
		WithArgs("sid-1", at, ReasonLogout).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.MarkRevoked(context.Background(), "sid-1", ReasonLogout, at); err != nil {
		t.Fatalf("MarkRevoked failed: %v", err)
	}

	// Re-revoking matches zero rows and still succeeds.
	mock.ExpectExec(regexp.QuoteMeta("set revoked_at = $2, revoked_reason = $3")).
		WithArgs("sid-1", at, ReasonFamilyRevoked).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.MarkRevoked(context.Background(), "sid-1", ReasonFamilyRevoked, at); err != nil {
		t.Fatalf("idempotent MarkRevoked failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresFindByFamily(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init failed: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db)

	rows := sqlmock.NewRows(sessionTestColumns)
	for _, s := range []*Session{
		makeSession("sid-1", "rjti-1", "fam-1"),
		makeSession("sid-2", "rjti-2", "fam-1"),
	} {
		rows.AddRow(
			s.ID, s.PrincipalID, s.TenantID, s.OrganizationID, s.Family,
			s.AccessJTI, s.RefreshJTI, s.IPAddress, s.UserAgent,
			s.CreatedAt, s.ExpiresAt, s.AccessExpiresAt, nil, s.RevokedReason,
		)
	}

	mock.ExpectQuery(regexp.QuoteMeta("from auth_sessions where family = $1")).
		WithArgs("fam-1").
		WillReturnRows(rows)

	got, err := store.FindByFamily(context.Background(), "fam-1")
	if err != nil {
		t.Fatalf("FindByFamily failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
