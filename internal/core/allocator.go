package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/edvin/fleet/internal/model"
)

// Allocator decides where a new tenant's workload runs. It is a pure decision
// function over the fleet registry: it reads capacity state but never mutates
// it; claiming the chosen slot is the orchestrator's job.
type Allocator struct {
	fleet *FleetService
}

func NewAllocator(fleet *FleetService) *Allocator {
	return &Allocator{fleet: fleet}
}

// PlacementRequest describes the placement inputs for one tenant.
type PlacementRequest struct {
	DeploymentModel string
	// ExplicitVPSID pins the placement to a specific shared VPS. Empty means
	// auto-selection.
	ExplicitVPSID string
}

// Placement is the allocator's decision: either an existing shared VPS, or
// the sentinel that a new dedicated VPS must be provisioned.
type Placement struct {
	VPSID        string
	NewDedicated bool
}

// DecidePlacement picks a VPS for the request. Dedicated tenants always get a
// freshly provisioned machine; shared tenants get the explicitly requested
// VPS if it is eligible, otherwise the least-loaded VPS with spare capacity.
func (a *Allocator) DecidePlacement(ctx context.Context, req PlacementRequest) (*Placement, error) {
	if req.DeploymentModel == model.DeploymentDedicated {
		return &Placement{NewDedicated: true}, nil
	}

	if req.ExplicitVPSID != "" {
		v, err := a.fleet.GetByID(ctx, req.ExplicitVPSID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: vps %s not found", ErrPlacement, req.ExplicitVPSID)
			}
			return nil, err
		}
		if v.DeploymentType != model.DeploymentShared {
			return nil, fmt.Errorf("%w: vps %s is not a shared vps", ErrPlacement, v.ID)
		}
		if v.Status != model.StatusActive {
			return nil, fmt.Errorf("%w: vps %s is %s", ErrPlacement, v.ID, v.Status)
		}
		if v.CurrentTenants >= v.MaxTenants {
			return nil, fmt.Errorf("%w: vps %s is full", ErrPlacement, v.ID)
		}
		return &Placement{VPSID: v.ID}, nil
	}

	available, err := a.fleet.ListAvailableShared(ctx)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, ErrNoCapacity
	}

	// Least-loaded first keeps headroom uniform across the fleet so no
	// single shared VPS hits its ceiling ahead of its peers.
	return &Placement{VPSID: available[0].ID}, nil
}
