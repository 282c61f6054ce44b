package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/fleet/internal/model"
)

const deploymentColumns = `id, tenant_id, status, status_message, error_message, access_url, credentials, created_at, updated_at`

// DeploymentService is the durable record of dedicated provisioning workflows.
// Rows are never deleted; terminal deployments are retained for audit.
type DeploymentService struct {
	db DB
}

func NewDeploymentService(db DB) *DeploymentService {
	return &DeploymentService{db: db}
}

func (s *DeploymentService) Create(ctx context.Context, d *model.Deployment) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO deployments (id, tenant_id, status, status_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.TenantID, d.Status, d.StatusMessage, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

func (s *DeploymentService) GetByID(ctx context.Context, id string) (*model.Deployment, error) {
	var d model.Deployment
	err := s.db.QueryRow(ctx,
		`SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id,
	).Scan(&d.ID, &d.TenantID, &d.Status, &d.StatusMessage, &d.ErrorMessage,
		&d.AccessURL, &d.Credentials, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: deployment %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get deployment %s: %w", id, err)
	}
	return &d, nil
}

func (s *DeploymentService) List(ctx context.Context) ([]model.Deployment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+deploymentColumns+` FROM deployments ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []model.Deployment
	for rows.Next() {
		var d model.Deployment
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Status, &d.StatusMessage, &d.ErrorMessage,
			&d.AccessURL, &d.Credentials, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return deployments, nil
}

// SetFailed moves a deployment to the terminal failed state with the cause.
// Deployments already in a terminal state are left untouched.
func (s *DeploymentService) SetFailed(ctx context.Context, id, errorMessage string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deployments SET status = $1, status_message = $2, error_message = $3, updated_at = now()
		 WHERE id = $4 AND status NOT IN ($5, $6)`,
		model.StatusFailed, "Deployment failed", errorMessage, id,
		model.StatusActive, model.StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("fail deployment %s: %w", id, err)
	}
	return nil
}

// GetNonTerminalByTenant returns the tenant's in-flight deployment, or
// (nil, nil) when every deployment for the tenant has reached a terminal state.
func (s *DeploymentService) GetNonTerminalByTenant(ctx context.Context, tenantID string) (*model.Deployment, error) {
	var d model.Deployment
	err := s.db.QueryRow(ctx,
		`SELECT `+deploymentColumns+` FROM deployments
		 WHERE tenant_id = $1 AND status IN ($2, $3)
		 ORDER BY created_at DESC LIMIT 1`,
		tenantID, model.StatusPending, model.StatusProvisioning,
	).Scan(&d.ID, &d.TenantID, &d.Status, &d.StatusMessage, &d.ErrorMessage,
		&d.AccessURL, &d.Credentials, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get in-flight deployment for tenant %s: %w", tenantID, err)
	}
	return &d, nil
}

// Logs returns a deployment's progress log in append order.
func (s *DeploymentService) Logs(ctx context.Context, deploymentID string) ([]model.DeploymentLogEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT created_at, message FROM deployment_logs WHERE deployment_id = $1 ORDER BY id`,
		deploymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list logs for deployment %s: %w", deploymentID, err)
	}
	defer rows.Close()

	var entries []model.DeploymentLogEntry
	for rows.Next() {
		var e model.DeploymentLogEntry
		if err := rows.Scan(&e.Timestamp, &e.Message); err != nil {
			return nil, fmt.Errorf("scan deployment log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployment logs: %w", err)
	}
	return entries, nil
}

// AppendLog adds one line to a deployment's append-only progress log.
func (s *DeploymentService) AppendLog(ctx context.Context, deploymentID, message string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO deployment_logs (deployment_id, message, created_at) VALUES ($1, $2, now())`,
		deploymentID, message,
	)
	if err != nil {
		return fmt.Errorf("append log to deployment %s: %w", deploymentID, err)
	}
	return nil
}
