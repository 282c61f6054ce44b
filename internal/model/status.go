package model

// Deployment status constants. Transitions are monotonic:
// pending -> provisioning -> active | failed. Active and failed are terminal.
const (
	StatusPending      = "pending"
	StatusProvisioning = "provisioning"
	StatusActive       = "active"
	StatusFailed       = "failed"
)

// Additional VPS status constants.
const (
	StatusMaintenance = "maintenance"
	StatusOffline     = "offline"
)

// IsTerminal reports whether a deployment status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusActive || status == StatusFailed
}
