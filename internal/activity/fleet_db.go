package activity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/fleet/internal/model"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FleetDB contains activities that read from and update the fleet database.
// The deployment workflow is the sole writer of its deployment's rows, so no
// additional serialization is needed here.
type FleetDB struct {
	db DB
}

func NewFleetDB(db DB) *FleetDB {
	return &FleetDB{db: db}
}

// UpdateDeploymentStatusParams holds the parameters for UpdateDeploymentStatus.
type UpdateDeploymentStatusParams struct {
	DeploymentID  string  `json:"deployment_id"`
	Status        string  `json:"status"`
	StatusMessage string  `json:"status_message"`
	ErrorMessage  *string `json:"error_message,omitempty"`
	AccessURL     *string `json:"access_url,omitempty"`
	Credentials   *string `json:"credentials,omitempty"`
}

// UpdateDeploymentStatus advances a deployment's status. Terminal rows are
// left untouched: the guard keeps a replayed or straggling activity from
// mutating a deployment that already reached active or failed.
func (a *FleetDB) UpdateDeploymentStatus(ctx context.Context, params UpdateDeploymentStatusParams) error {
	tag, err := a.db.Exec(ctx,
		`UPDATE deployments
		 SET status = $1, status_message = $2,
		     error_message = coalesce($3, error_message),
		     access_url = coalesce($4, access_url),
		     credentials = coalesce($5, credentials),
		     updated_at = now()
		 WHERE id = $6 AND status NOT IN ($7, $8)`,
		params.Status, params.StatusMessage, params.ErrorMessage, params.AccessURL, params.Credentials,
		params.DeploymentID, model.StatusActive, model.StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("update deployment %s status: %w", params.DeploymentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deployment %s is already terminal", params.DeploymentID)
	}
	return nil
}

// AppendDeploymentLogParams holds the parameters for AppendDeploymentLog.
type AppendDeploymentLogParams struct {
	DeploymentID string `json:"deployment_id"`
	Message      string `json:"message"`
}

// AppendDeploymentLog adds one entry to the deployment's append-only log.
func (a *FleetDB) AppendDeploymentLog(ctx context.Context, params AppendDeploymentLogParams) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO deployment_logs (deployment_id, message, created_at) VALUES ($1, $2, now())`,
		params.DeploymentID, params.Message,
	)
	if err != nil {
		return fmt.Errorf("append log to deployment %s: %w", params.DeploymentID, err)
	}
	return nil
}

// InsertProvisionedVPSParams holds the parameters for InsertProvisionedVPS.
type InsertProvisionedVPSParams struct {
	VPSID          string           `json:"vps_id"`
	Spec           model.ServerSpec `json:"spec"`
	ProviderHandle string           `json:"provider_handle"`
}

// InsertProvisionedVPS records the provider-side machine in the fleet
// registry while it is still being built. The IP address is unknown until the
// provider reports ready.
func (a *FleetDB) InsertProvisionedVPS(ctx context.Context, params InsertProvisionedVPSParams) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO vps (id, name, location, deployment_type, status, max_tenants, current_tenants,
		                  cpu_cores, memory_mb, disk_gb, provider_handle, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 1, 0, $6, $7, $8, $9, now(), now())
		 ON CONFLICT (id) DO NOTHING`,
		params.VPSID, params.Spec.Name, params.Spec.Location,
		model.DeploymentDedicated, model.StatusProvisioning,
		params.Spec.CPUCores, params.Spec.MemoryMB, params.Spec.DiskGB, params.ProviderHandle,
	)
	if err != nil {
		return fmt.Errorf("insert provisioned vps %s: %w", params.VPSID, err)
	}
	return nil
}

// ActivateProvisionedVPSParams holds the parameters for ActivateProvisionedVPS.
type ActivateProvisionedVPSParams struct {
	VPSID     string `json:"vps_id"`
	IPAddress string `json:"ip_address"`
}

// ActivateProvisionedVPS records the machine's address and marks it active
// with its single tenant slot taken.
func (a *FleetDB) ActivateProvisionedVPS(ctx context.Context, params ActivateProvisionedVPSParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE vps SET ip_address = nullif($1, '')::inet, status = $2, current_tenants = 1, updated_at = now()
		 WHERE id = $3`,
		params.IPAddress, model.StatusActive, params.VPSID,
	)
	if err != nil {
		return fmt.Errorf("activate vps %s: %w", params.VPSID, err)
	}
	return nil
}

// MarkVPSOffline takes an abandoned machine out of the fleet. The row is kept;
// deactivation is a status change, not removal.
func (a *FleetDB) MarkVPSOffline(ctx context.Context, vpsID string) error {
	_, err := a.db.Exec(ctx,
		`UPDATE vps SET status = $1, updated_at = now() WHERE id = $2`,
		model.StatusOffline, vpsID,
	)
	if err != nil {
		return fmt.Errorf("mark vps %s offline: %w", vpsID, err)
	}
	return nil
}

// AssignTenantVPSParams holds the parameters for AssignTenantVPS.
type AssignTenantVPSParams struct {
	TenantID string `json:"tenant_id"`
	VPSID    string `json:"vps_id"`
}

// AssignTenantVPS binds the tenant to its dedicated machine and activates it.
func (a *FleetDB) AssignTenantVPS(ctx context.Context, params AssignTenantVPSParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE tenants SET vps_id = $1, status = $2, updated_at = now() WHERE id = $3`,
		params.VPSID, model.StatusActive, params.TenantID,
	)
	if err != nil {
		return fmt.Errorf("assign vps %s to tenant %s: %w", params.VPSID, params.TenantID, err)
	}
	return nil
}

// SetTenantStatusParams holds the parameters for SetTenantStatus.
type SetTenantStatusParams struct {
	TenantID string `json:"tenant_id"`
	Status   string `json:"status"`
}

// SetTenantStatus updates the tenant's lifecycle status.
func (a *FleetDB) SetTenantStatus(ctx context.Context, params SetTenantStatusParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE tenants SET status = $1, updated_at = now() WHERE id = $2`,
		params.Status, params.TenantID,
	)
	if err != nil {
		return fmt.Errorf("set tenant %s status to %s: %w", params.TenantID, params.Status, err)
	}
	return nil
}
