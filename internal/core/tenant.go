package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/fleet/internal/model"
)

const tenantColumns = `id, name, slug, tier, deployment_model, vps_id, admin_email, admin_password_hash, status, created_at, updated_at`

// TenantService is the durable registry of organizations and which VPS, if
// any, hosts each of them.
type TenantService struct {
	db DB
}

func NewTenantService(db DB) *TenantService {
	return &TenantService{db: db}
}

// Create inserts a tenant. Slug uniqueness is case-insensitive and enforced
// by a unique index on lower(slug); a collision surfaces as ErrConflict.
func (s *TenantService) Create(ctx context.Context, t *model.Tenant) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tenants (id, name, slug, tier, deployment_model, vps_id, admin_email, admin_password_hash, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Name, t.Slug, t.Tier, t.DeploymentModel, t.VPSID, t.AdminEmail, t.AdminPassword,
		t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: slug %q is already taken", ErrConflict, t.Slug)
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *TenantService) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	return s.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// GetBySlug looks a tenant up by its slug, case-insensitively. Returns
// (nil, nil) when no tenant holds the slug.
func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	t, err := s.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE lower(slug) = lower($1)`, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (s *TenantService) getOne(ctx context.Context, query string, arg any) (*model.Tenant, error) {
	var t model.Tenant
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&t.ID, &t.Name, &t.Slug, &t.Tier, &t.DeploymentModel, &t.VPSID,
		&t.AdminEmail, &t.AdminPassword, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: tenant", ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (s *TenantService) List(ctx context.Context) ([]model.Tenant, error) {
	rows, err := s.db.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Tier, &t.DeploymentModel, &t.VPSID,
			&t.AdminEmail, &t.AdminPassword, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}
	return tenants, nil
}

func (s *TenantService) SetStatus(ctx context.Context, tenantID, status string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE tenants SET status = $1, updated_at = now() WHERE id = $2`, status, tenantID,
	)
	if err != nil {
		return fmt.Errorf("set tenant %s status to %s: %w", tenantID, status, err)
	}
	return nil
}
