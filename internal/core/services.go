package core

import (
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/fleet/internal/config"
)

type Services struct {
	Fleet      *FleetService
	Tenant     *TenantService
	Deployment *DeploymentService
	Allocator  *Allocator
	Provision  *ProvisionService
}

func NewServices(db DB, tc temporalclient.Client, cfg *config.Config) *Services {
	fleet := NewFleetService(db)
	tenants := NewTenantService(db)
	deployments := NewDeploymentService(db)
	allocator := NewAllocator(fleet)

	return &Services{
		Fleet:      fleet,
		Tenant:     tenants,
		Deployment: deployments,
		Allocator:  allocator,
		Provision:  NewProvisionService(fleet, tenants, deployments, allocator, tc, cfg),
	}
}
