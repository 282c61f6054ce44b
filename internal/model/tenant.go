package model

import "time"

// Tenant tier constants. The tier is an informational sizing hint only.
const (
	TierStarter      = "starter"
	TierProfessional = "professional"
	TierEnterprise   = "enterprise"
)

type Tenant struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Slug            string    `json:"slug" db:"slug"`
	Tier            string    `json:"tier" db:"tier"`
	DeploymentModel string    `json:"deployment_model" db:"deployment_model"`
	VPSID           *string   `json:"vps_id,omitempty" db:"vps_id"`
	AdminEmail      string    `json:"admin_email" db:"admin_email"`
	AdminPassword   string    `json:"-" db:"admin_password_hash"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
