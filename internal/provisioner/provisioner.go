// Package provisioner wraps the external VPS hosting provider's control API.
// It is a thin transport layer: all retry and backoff policy lives with the
// deployment workflow, which owns the "how many times have we tried" state.
package provisioner

import "context"

// Server states reported by the provider.
const (
	StateInProgress = "in-progress"
	StateReady      = "ready"
	StateError      = "error"
)

// CreateRequest describes the machine to create on the provider side.
type CreateRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	CPUCores int    `json:"cpu_cores"`
	MemoryMB int    `json:"memory_mb"`
	DiskGB   int    `json:"disk_gb"`
}

// CreateResult is the provider's synchronous answer to a create request.
type CreateResult struct {
	// Handle identifies the machine for subsequent polling and teardown.
	Handle string `json:"handle"`
}

// Status is one poll of a machine's provider-side state.
type Status struct {
	State     string `json:"state"`
	Detail    string `json:"detail"`
	IPAddress string `json:"ip_address,omitempty"`
	AccessURL string `json:"access_url,omitempty"`
	RootPass  string `json:"root_password,omitempty"`
}

// Client is the provider capability set the orchestrator depends on.
type Client interface {
	CreateServer(ctx context.Context, req CreateRequest) (*CreateResult, error)
	GetServerStatus(ctx context.Context, handle string) (*Status, error)
	DeleteServer(ctx context.Context, handle string) error
}
