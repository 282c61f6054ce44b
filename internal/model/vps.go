package model

import "time"

// VPS deployment type constants.
const (
	DeploymentShared    = "shared"
	DeploymentDedicated = "dedicated"
)

type VPS struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	IPAddress      string    `json:"ip_address" db:"ip_address"`
	Location       string    `json:"location" db:"location"`
	DeploymentType string    `json:"deployment_type" db:"deployment_type"`
	Status         string    `json:"status" db:"status"`
	MaxTenants     int       `json:"max_tenants" db:"max_tenants"`
	CurrentTenants int       `json:"current_tenants" db:"current_tenants"`
	CPUCores       int       `json:"cpu_cores" db:"cpu_cores"`
	MemoryMB       int       `json:"memory_mb" db:"memory_mb"`
	DiskGB         int       `json:"disk_gb" db:"disk_gb"`
	CPUUsagePct    float64   `json:"cpu_usage_percent" db:"cpu_usage_percent"`
	MemoryUsagePct float64   `json:"memory_usage_percent" db:"memory_usage_percent"`
	ProviderHandle *string   `json:"provider_handle,omitempty" db:"provider_handle"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// FleetStats is a read-side aggregation over the fleet, computed on demand.
type FleetStats struct {
	TotalVPS     int `json:"total_vps"`
	SharedVPS    int `json:"shared_vps"`
	DedicatedVPS int `json:"dedicated_vps"`
	TotalTenants int `json:"total_tenants"`
}
