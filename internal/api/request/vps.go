package request

type RegisterVPS struct {
	Name           string `json:"name" validate:"required,max=128"`
	IPAddress      string `json:"ip_address" validate:"required"`
	Location       string `json:"location"`
	DeploymentType string `json:"deployment_type" validate:"required,oneof=shared dedicated"`
	MaxTenants     int    `json:"max_tenants"`
	CPUCores       int    `json:"cpu_cores" validate:"omitempty,min=1"`
	MemoryMB       int    `json:"memory_mb" validate:"omitempty,min=1"`
	DiskGB         int    `json:"disk_gb" validate:"omitempty,min=1"`
}

type ReportTelemetry struct {
	CPUUsagePercent    float64 `json:"cpu_usage_percent" validate:"min=0,max=100"`
	MemoryUsagePercent float64 `json:"memory_usage_percent" validate:"min=0,max=100"`
}
