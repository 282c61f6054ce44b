package core

import "errors"

// Sentinel errors surfaced by the provisioning services. Handlers map these
// to HTTP status codes with errors.Is.
var (
	// ErrValidation marks malformed input: bad IP address, invalid slug,
	// missing required field. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a lookup of an unknown VPS, tenant, or deployment.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a slug collision or a duplicate in-flight deployment
	// for the same slug.
	ErrConflict = errors.New("conflict")

	// ErrNoCapacity means no shared VPS has a free tenant slot.
	ErrNoCapacity = errors.New("no shared capacity available")

	// ErrPlacement means an explicitly requested VPS is ineligible: wrong
	// deployment type, not active, or full. Callers must not silently fall
	// back to auto-selection.
	ErrPlacement = errors.New("requested vps is not eligible")

	// ErrCapacityExceeded is raised by the fleet registry's atomic tenant
	// count increment when a concurrent placement claimed the last slot.
	// The orchestrator re-runs allocation a bounded number of times.
	ErrCapacityExceeded = errors.New("vps capacity exceeded")
)
