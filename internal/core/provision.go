package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	temporalclient "go.temporal.io/sdk/client"
	"golang.org/x/crypto/bcrypt"

	"github.com/edvin/fleet/internal/config"
	"github.com/edvin/fleet/internal/metrics"
	"github.com/edvin/fleet/internal/model"
	"github.com/edvin/fleet/internal/platform"
)

const taskQueue = "fleet-tasks"

// placementAttempts bounds how often a lost capacity race re-runs allocation
// before the request surfaces ErrNoCapacity.
const placementAttempts = 3

// WorkflowStarter starts durable workflows. The Temporal client satisfies it.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options temporalclient.StartWorkflowOptions,
		workflow interface{}, args ...interface{}) (temporalclient.WorkflowRun, error)
}

// CreateInstanceParams are the validated inputs of a provisioning request.
type CreateInstanceParams struct {
	OrganizationName string
	Slug             string
	Tier             string
	DeploymentModel  string
	VPSID            string // optional explicit shared placement
	AdminEmail       string
	AdminPassword    string
}

// InstanceResult is the synchronous outcome of a provisioning request.
// Shared placements carry the hosting VPS; dedicated placements carry the
// deployment whose id the client polls.
type InstanceResult struct {
	Tenant     *model.Tenant     `json:"tenant"`
	VPS        *model.VPS        `json:"vps,omitempty"`
	Deployment *model.Deployment `json:"deployment,omitempty"`
}

// ProvisionService is the deployment orchestrator's synchronous entry point.
// It owns placement, the atomic capacity claim for shared tenants, and the
// hand-off to the durable workflow for dedicated tenants.
type ProvisionService struct {
	fleet       *FleetService
	tenants     *TenantService
	deployments *DeploymentService
	allocator   *Allocator
	tc          WorkflowStarter
	cfg         *config.Config
}

func NewProvisionService(fleet *FleetService, tenants *TenantService, deployments *DeploymentService,
	allocator *Allocator, tc WorkflowStarter, cfg *config.Config) *ProvisionService {
	return &ProvisionService{
		fleet:       fleet,
		tenants:     tenants,
		deployments: deployments,
		allocator:   allocator,
		tc:          tc,
		cfg:         cfg,
	}
}

// CreateInstance provisions a tenant. Shared placements complete entirely
// within this call; dedicated placements return immediately with a pending
// deployment and never hold the request open on infrastructure work.
func (s *ProvisionService) CreateInstance(ctx context.Context, params CreateInstanceParams) (*InstanceResult, error) {
	existing, err := s.tenants.GetBySlug(ctx, params.Slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.retryExisting(ctx, existing, params)
	}

	passwordHash, err := hashPassword(params.AdminPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tenant := &model.Tenant{
		ID:              platform.NewID(),
		Name:            params.OrganizationName,
		Slug:            params.Slug,
		Tier:            params.Tier,
		DeploymentModel: params.DeploymentModel,
		AdminEmail:      params.AdminEmail,
		AdminPassword:   passwordHash,
		Status:          model.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if params.DeploymentModel == model.DeploymentShared {
		return s.placeShared(ctx, tenant, params.VPSID)
	}
	return s.placeDedicated(ctx, tenant, true)
}

// retryExisting handles a provisioning request for a slug that is already
// taken. A dedicated tenant whose last deployment failed may be retried: the
// tenant row is kept and a fresh deployment starts. Anything else conflicts.
func (s *ProvisionService) retryExisting(ctx context.Context, tenant *model.Tenant, params CreateInstanceParams) (*InstanceResult, error) {
	if tenant.DeploymentModel != model.DeploymentDedicated || params.DeploymentModel != model.DeploymentDedicated {
		return nil, fmt.Errorf("%w: slug %q is already taken", ErrConflict, params.Slug)
	}

	inflight, err := s.deployments.GetNonTerminalByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if inflight != nil {
		return nil, fmt.Errorf("%w: deployment %s for slug %q is still %s",
			ErrConflict, inflight.ID, params.Slug, inflight.Status)
	}
	if tenant.Status == model.StatusActive {
		return nil, fmt.Errorf("%w: slug %q is already taken", ErrConflict, params.Slug)
	}

	if err := s.tenants.SetStatus(ctx, tenant.ID, model.StatusPending); err != nil {
		return nil, err
	}
	tenant.Status = model.StatusPending
	return s.placeDedicated(ctx, tenant, false)
}

// placeShared claims a slot on a shared VPS and records the tenant against it,
// all within the request. A lost claim race re-runs allocation for auto
// placement; an explicit placement is never silently redirected.
func (s *ProvisionService) placeShared(ctx context.Context, tenant *model.Tenant, explicitVPSID string) (*InstanceResult, error) {
	req := PlacementRequest{DeploymentModel: model.DeploymentShared, ExplicitVPSID: explicitVPSID}

	for attempt := 0; attempt < placementAttempts; attempt++ {
		placement, err := s.allocator.DecidePlacement(ctx, req)
		if err != nil {
			return nil, err
		}

		if err := s.fleet.IncrementTenantCount(ctx, placement.VPSID); err != nil {
			if errors.Is(err, ErrCapacityExceeded) {
				if explicitVPSID != "" {
					return nil, fmt.Errorf("%w: vps %s is full", ErrPlacement, explicitVPSID)
				}
				// The landscape changed under us; allocate again.
				continue
			}
			return nil, err
		}

		vpsID := placement.VPSID
		tenant.VPSID = &vpsID
		tenant.Status = model.StatusActive
		if err := s.tenants.Create(ctx, tenant); err != nil {
			// Release the claimed slot; the tenant row never existed.
			if derr := s.fleet.DecrementTenantCount(ctx, vpsID); derr != nil {
				return nil, errors.Join(err, derr)
			}
			return nil, err
		}

		vps, err := s.fleet.GetByID(ctx, vpsID)
		if err != nil {
			return nil, err
		}
		metrics.PlacementDecisions.WithLabelValues(model.DeploymentShared, "placed").Inc()
		return &InstanceResult{Tenant: tenant, VPS: vps}, nil
	}

	metrics.PlacementDecisions.WithLabelValues(model.DeploymentShared, "no_capacity").Inc()
	return nil, ErrNoCapacity
}

// placeDedicated records the pending deployment and starts the durable
// workflow. The caller gets the deployment id back without waiting on any
// provider work.
func (s *ProvisionService) placeDedicated(ctx context.Context, tenant *model.Tenant, createTenant bool) (*InstanceResult, error) {
	if createTenant {
		if err := s.tenants.Create(ctx, tenant); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	deployment := &model.Deployment{
		ID:            platform.NewID(),
		TenantID:      tenant.ID,
		Status:        model.StatusPending,
		StatusMessage: "Deployment queued",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.deployments.Create(ctx, deployment); err != nil {
		return nil, err
	}
	if err := s.deployments.AppendLog(ctx, deployment.ID, "Provisioning request accepted"); err != nil {
		return nil, err
	}

	if err := s.startDeploymentWorkflow(ctx, tenant, deployment); err != nil {
		// No workflow will ever advance these rows. Fail the deployment so
		// the slug stays retryable instead of wedging on a pending record.
		startErr := fmt.Errorf("start %s: %w", model.DeploymentWorkflowName, err)
		if ferr := s.deployments.SetFailed(ctx, deployment.ID, startErr.Error()); ferr != nil {
			return nil, errors.Join(startErr, ferr)
		}
		if serr := s.tenants.SetStatus(ctx, tenant.ID, model.StatusFailed); serr != nil {
			return nil, errors.Join(startErr, serr)
		}
		return nil, startErr
	}

	metrics.PlacementDecisions.WithLabelValues(model.DeploymentDedicated, "queued").Inc()
	metrics.DeploymentWorkflowsStarted.Inc()
	return &InstanceResult{Tenant: tenant, Deployment: deployment}, nil
}

func (s *ProvisionService) startDeploymentWorkflow(ctx context.Context, tenant *model.Tenant, deployment *model.Deployment) error {
	_, err := s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        workflowID("deployment", deployment.ID),
		TaskQueue: taskQueue,
	}, model.DeploymentWorkflowName, model.DeploymentWorkflowParams{
		DeploymentID:        deployment.ID,
		TenantID:            tenant.ID,
		TenantSlug:          tenant.Slug,
		Spec:                specForTier(tenant.Slug, tenant.Tier),
		PollIntervalSeconds: int(s.cfg.ProvisionPollInterval.Seconds()),
		TimeoutSeconds:      int(s.cfg.ProvisionTimeout.Seconds()),
	})
	return err
}

// workflowID builds a human-readable Temporal workflow ID from a resource type
// prefix and the resource's unique ID.
func workflowID(prefix, id string) string {
	return fmt.Sprintf("%s-%s", prefix, id)
}

// specForTier sizes the dedicated machine from the tenant's tier. The tier is
// a sizing hint only; it carries no enforcement semantics. The server name
// gets a random suffix so a retried deployment never collides with the
// machine left behind by a failed one.
func specForTier(slug, tier string) model.ServerSpec {
	spec := model.ServerSpec{Name: platform.NewName("dedicated-" + slug + "-"), CPUCores: 2, MemoryMB: 4096, DiskGB: 80}
	switch tier {
	case model.TierProfessional:
		spec.CPUCores, spec.MemoryMB, spec.DiskGB = 4, 8192, 160
	case model.TierEnterprise:
		spec.CPUCores, spec.MemoryMB, spec.DiskGB = 8, 16384, 320
	}
	return spec
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	return string(hash), nil
}
