package model

// DeploymentWorkflowName is the Temporal workflow driving one dedicated
// deployment from pending to its terminal state.
const DeploymentWorkflowName = "DedicatedDeploymentWorkflow"

// ServerSpec describes the machine requested from the external VPS provider.
type ServerSpec struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	CPUCores int    `json:"cpu_cores"`
	MemoryMB int    `json:"memory_mb"`
	DiskGB   int    `json:"disk_gb"`
}

// DeploymentWorkflowParams is the argument to DedicatedDeploymentWorkflow.
type DeploymentWorkflowParams struct {
	DeploymentID string     `json:"deployment_id"`
	TenantID     string     `json:"tenant_id"`
	TenantSlug   string     `json:"tenant_slug"`
	Spec         ServerSpec `json:"spec"`
	// PollIntervalSeconds and TimeoutSeconds carry the provisioning cadence
	// and wall-clock budget into the workflow, which must not read config.
	PollIntervalSeconds int `json:"poll_interval_seconds"`
	TimeoutSeconds      int `json:"timeout_seconds"`
}
