package permission

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// PolicySchema creates the policy table.
const PolicySchema = `
create table if not exists auth_policies (
    id              text primary key,
    organization_id text not null,
    permission      text not null,
    conditions      jsonb not null default '{}',
    is_active       boolean not null default true,
    created_at      timestamptz not null,
    updated_at      timestamptz not null
);
create index if not exists auth_policies_org_perm on auth_policies (organization_id, permission);
`

var _ PolicyStore = (*PostgresPolicyStore)(nil)

// PostgresPolicyStore implements [PolicyStore] on database/sql with
// PostgreSQL placeholders; conditions serialize to jsonb.
type PostgresPolicyStore struct {
	db *sql.DB
}

func NewPostgresPolicyStore(db *sql.DB) *PostgresPolicyStore {
	return &PostgresPolicyStore{db: db}
}

func (p *PostgresPolicyStore) ActivePolicies(ctx context.Context, orgID, permission string) ([]*Policy, error) {
	rows, err := p.db.QueryContext(ctx,
		`select id, organization_id, permission, conditions, is_active, created_at, updated_at
		   from auth_policies
		  where organization_id = $1 and permission = $2 and is_active`,
		orgID, permission,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*Policy
	for rows.Next() {
		var (
			pol        Policy
			conditions []byte
		)
		if err := rows.Scan(&pol.ID, &pol.OrganizationID, &pol.Permission,
			&conditions, &pol.IsActive, &pol.CreatedAt, &pol.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(conditions, &pol.Conditions); err != nil {
			return nil, err
		}
		policies = append(policies, &pol)
	}
	return policies, rows.Err()
}

func (p *PostgresPolicyStore) Create(ctx context.Context, pol *Policy) error {
	now := time.Now()
	if pol.CreatedAt.IsZero() {
		pol.CreatedAt = now
	}
	pol.UpdatedAt = now
	conditions, err := json.Marshal(pol.Conditions)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`insert into auth_policies (id, organization_id, permission, conditions, is_active, created_at, updated_at)
		 values ($1,$2,$3,$4,$5,$6,$7)`,
		pol.ID, pol.OrganizationID, pol.Permission, conditions, pol.IsActive, pol.CreatedAt, pol.UpdatedAt,
	)
	return err
}

func (p *PostgresPolicyStore) Update(ctx context.Context, pol *Policy) error {
	pol.UpdatedAt = time.Now()
	conditions, err := json.Marshal(pol.Conditions)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`update auth_policies
		    set permission = $2, conditions = $3, is_active = $4, updated_at = $5
		  where id = $1`,
		pol.ID, pol.Permission, conditions, pol.IsActive, pol.UpdatedAt,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

func (p *PostgresPolicyStore) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx,
		`update auth_policies set is_active = false, updated_at = $2 where id = $1`,
		id, time.Now(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPolicyNotFound
	}
	return nil
}
