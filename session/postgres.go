package session

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
)

// Schema creates the session table. Callers run it through their own
// migration tooling; it is exported for embedding and tests.
const Schema = `
create table if not exists auth_sessions (
    id                text primary key,
    principal_id      text not null,
    tenant_id         text not null default '',
    organization_id   text not null default '',
    family            text not null,
    access_jti        text not null,
    refresh_jti       text not null,
    ip_address        text not null default '',
    user_agent        text not null default '',
    created_at        timestamptz not null,
    expires_at        timestamptz not null,
    access_expires_at timestamptz not null,
    revoked_at        timestamptz,
    revoked_reason    text not null default ''
);
create unique index if not exists auth_sessions_refresh_jti on auth_sessions (refresh_jti);
create index if not exists auth_sessions_family on auth_sessions (family);
`

const sessionColumns = `id, principal_id, tenant_id, organization_id, family,
access_jti, refresh_jti, ip_address, user_agent,
created_at, expires_at, access_expires_at, revoked_at, revoked_reason`

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements [Store] on database/sql. It is written for
// PostgreSQL placeholders and the pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a pgx-backed handle and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
	_, err := p.db.ExecContext(ctx,
		`insert into auth_sessions (`+sessionColumns+`)
		 values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		s.ID, s.PrincipalID, s.TenantID, s.OrganizationID, s.Family,
		s.AccessJTI, s.RefreshJTI, s.IPAddress, s.UserAgent,
		s.CreatedAt, s.ExpiresAt, s.AccessExpiresAt, s.RevokedAt, s.RevokedReason,
	)
	return err
}

func (p *PostgresStore) GetByID(ctx context.Context, id string) (*Session, error) {
	row := p.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from auth_sessions where id = $1`, id)
	return scanSession(row)
}

func (p *PostgresStore) GetByRefreshJTI(ctx context.Context, jti string) (*Session, error) {
	row := p.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from auth_sessions where refresh_jti = $1`, jti)
	return scanSession(row)
}

// Rotate is the single-statement compare-and-swap that guarantees
// at-most-once refresh: the update applies only while the presented
// jti is still the current one and the row is live, so of two
// concurrent rotations exactly one matches a row.
func (p *PostgresStore) Rotate(ctx context.Context, oldRefreshJTI string, rot Rotation) (*Session, error) {
	row := p.db.QueryRowContext(ctx,
		`update auth_sessions
		    set access_jti = $2,
		        refresh_jti = $3,
		        expires_at = $4,
		        access_expires_at = $5
		  where refresh_jti = $1
		    and revoked_at is null
		    and expires_at > now()
		 returning `+sessionColumns,
		oldRefreshJTI, rot.AccessJTI, rot.RefreshJTI, rot.ExpiresAt, rot.AccessExpiresAt,
	)
	s, err := scanSession(row)
	if err == ErrNotFound {
		return nil, ErrRotateConflict
	}
	return s, err
}

func (p *PostgresStore) MarkRevoked(ctx context.Context, id, reason string, at time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`update auth_sessions
		    set revoked_at = $2, revoked_reason = $3
		  where id = $1 and revoked_at is null`,
		id, at, reason,
	)
	return err
}

func (p *PostgresStore) FindByFamily(ctx context.Context, family string) ([]*Session, error) {
	rows, err := p.db.QueryContext(ctx,
		`select `+sessionColumns+` from auth_sessions where family = $1`, family)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		s         Session
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.PrincipalID, &s.TenantID, &s.OrganizationID, &s.Family,
		&s.AccessJTI, &s.RefreshJTI, &s.IPAddress, &s.UserAgent,
		&s.CreatedAt, &s.ExpiresAt, &s.AccessExpiresAt, &revokedAt, &s.RevokedReason,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	return &s, nil
}
