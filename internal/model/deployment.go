package model

import "time"

// Deployment tracks the asynchronous provisioning workflow for a dedicated
// tenant. Shared placements complete synchronously and have no deployment row.
type Deployment struct {
	ID            string    `json:"id" db:"id"`
	TenantID      string    `json:"tenant_id" db:"tenant_id"`
	Status        string    `json:"status" db:"status"`
	StatusMessage string    `json:"status_message" db:"status_message"`
	ErrorMessage  *string   `json:"error_message,omitempty" db:"error_message"`
	AccessURL     *string   `json:"access_url,omitempty" db:"access_url"`
	Credentials   *string   `json:"credentials,omitempty" db:"credentials"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// DeploymentLogEntry is one line of a deployment's append-only progress log.
type DeploymentLogEntry struct {
	Timestamp time.Time `json:"timestamp" db:"created_at"`
	Message   string    `json:"message" db:"message"`
}
