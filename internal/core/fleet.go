package core

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/fleet/internal/model"
)

const vpsColumns = `id, name, coalesce(ip_address::text, ''), location, deployment_type, status, max_tenants, current_tenants,
	 cpu_cores, memory_mb, disk_gb, cpu_usage_percent, memory_usage_percent, provider_handle, created_at, updated_at`

// FleetService is the durable registry of every VPS in the fleet, shared and
// dedicated, including the capacity-sensitive reads the allocator depends on.
type FleetService struct {
	db DB
}

func NewFleetService(db DB) *FleetService {
	return &FleetService{db: db}
}

// Register inserts a VPS with a zero tenant count. Shared machines must
// declare a positive max_tenants; the IP address must parse.
func (s *FleetService) Register(ctx context.Context, v *model.VPS) error {
	if _, err := netip.ParseAddr(v.IPAddress); err != nil {
		return fmt.Errorf("%w: invalid ip address %q", ErrValidation, v.IPAddress)
	}
	if v.DeploymentType == model.DeploymentShared && v.MaxTenants < 1 {
		return fmt.Errorf("%w: shared vps must allow at least one tenant", ErrValidation)
	}

	v.CurrentTenants = 0
	_, err := s.db.Exec(ctx,
		`INSERT INTO vps (id, name, ip_address, location, deployment_type, status, max_tenants, current_tenants,
		                  cpu_cores, memory_mb, disk_gb, provider_handle, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12, $13)`,
		v.ID, v.Name, v.IPAddress, v.Location, v.DeploymentType, v.Status, v.MaxTenants,
		v.CPUCores, v.MemoryMB, v.DiskGB, v.ProviderHandle, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("register vps: %w", err)
	}
	return nil
}

func (s *FleetService) GetByID(ctx context.Context, id string) (*model.VPS, error) {
	var v model.VPS
	err := s.db.QueryRow(ctx,
		`SELECT `+vpsColumns+` FROM vps WHERE id = $1`, id,
	).Scan(&v.ID, &v.Name, &v.IPAddress, &v.Location, &v.DeploymentType, &v.Status, &v.MaxTenants,
		&v.CurrentTenants, &v.CPUCores, &v.MemoryMB, &v.DiskGB, &v.CPUUsagePct, &v.MemoryUsagePct,
		&v.ProviderHandle, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: vps %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get vps %s: %w", id, err)
	}
	return &v, nil
}

func (s *FleetService) List(ctx context.Context) ([]model.VPS, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+vpsColumns+` FROM vps ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list vps: %w", err)
	}
	defer rows.Close()

	return scanVPSRows(rows)
}

// ListAvailableShared returns active shared VPS with spare capacity, least
// loaded first, ties broken by id. The allocator's auto-selection contract
// depends on this ordering.
func (s *FleetService) ListAvailableShared(ctx context.Context) ([]model.VPS, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+vpsColumns+` FROM vps
		 WHERE deployment_type = $1 AND status = $2 AND current_tenants < max_tenants
		 ORDER BY current_tenants, id`,
		model.DeploymentShared, model.StatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list available shared vps: %w", err)
	}
	defer rows.Close()

	return scanVPSRows(rows)
}

// IncrementTenantCount atomically claims one tenant slot. The capacity check
// and the increment are a single statement so that two concurrent placements
// cannot both take the last slot.
func (s *FleetService) IncrementTenantCount(ctx context.Context, vpsID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE vps SET current_tenants = current_tenants + 1, updated_at = now()
		 WHERE id = $1 AND deployment_type = $2 AND status = $3 AND current_tenants < max_tenants`,
		vpsID, model.DeploymentShared, model.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("increment tenant count for vps %s: %w", vpsID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vps %s", ErrCapacityExceeded, vpsID)
	}
	return nil
}

// DecrementTenantCount releases one tenant slot. Used as compensation when a
// tenant insert fails after a slot was claimed.
func (s *FleetService) DecrementTenantCount(ctx context.Context, vpsID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE vps SET current_tenants = current_tenants - 1, updated_at = now()
		 WHERE id = $1 AND current_tenants > 0`, vpsID,
	)
	if err != nil {
		return fmt.Errorf("decrement tenant count for vps %s: %w", vpsID, err)
	}
	return nil
}

// UpdateTelemetry records live resource usage. Advisory only: it never
// participates in capacity decisions and its failure never blocks provisioning.
func (s *FleetService) UpdateTelemetry(ctx context.Context, vpsID string, cpuPct, memPct float64) error {
	_, err := s.db.Exec(ctx,
		`UPDATE vps SET cpu_usage_percent = $1, memory_usage_percent = $2, updated_at = now() WHERE id = $3`,
		cpuPct, memPct, vpsID,
	)
	if err != nil {
		return fmt.Errorf("update telemetry for vps %s: %w", vpsID, err)
	}
	return nil
}

func (s *FleetService) SetStatus(ctx context.Context, vpsID, status string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE vps SET status = $1, updated_at = now() WHERE id = $2`, status, vpsID,
	)
	if err != nil {
		return fmt.Errorf("set vps %s status to %s: %w", vpsID, status, err)
	}
	return nil
}

// Stats computes the fleet-wide aggregate counts on demand.
func (s *FleetService) Stats(ctx context.Context) (*model.FleetStats, error) {
	var stats model.FleetStats
	err := s.db.QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE deployment_type = $1),
		        count(*) FILTER (WHERE deployment_type = $2),
		        coalesce(sum(current_tenants), 0)
		 FROM vps`,
		model.DeploymentShared, model.DeploymentDedicated,
	).Scan(&stats.TotalVPS, &stats.SharedVPS, &stats.DedicatedVPS, &stats.TotalTenants)
	if err != nil {
		return nil, fmt.Errorf("fleet stats: %w", err)
	}
	return &stats, nil
}

func scanVPSRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]model.VPS, error) {
	var fleet []model.VPS
	for rows.Next() {
		var v model.VPS
		if err := rows.Scan(&v.ID, &v.Name, &v.IPAddress, &v.Location, &v.DeploymentType, &v.Status,
			&v.MaxTenants, &v.CurrentTenants, &v.CPUCores, &v.MemoryMB, &v.DiskGB,
			&v.CPUUsagePct, &v.MemoryUsagePct, &v.ProviderHandle, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan vps: %w", err)
		}
		fleet = append(fleet, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vps: %w", err)
	}
	return fleet, nil
}
