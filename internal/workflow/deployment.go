package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/fleet/internal/activity"
	"github.com/edvin/fleet/internal/model"
	"github.com/edvin/fleet/internal/platform"
	"github.com/edvin/fleet/internal/provisioner"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultTimeout      = 30 * time.Minute
)

// DedicatedDeploymentWorkflow drives one dedicated deployment from pending to
// a terminal state: create the machine at the provider, record it in the
// fleet registry, poll until ready or error, then bind the tenant. The
// workflow is the sole writer of its deployment's status and log, so log
// entries stay strictly append-ordered. On process restart Temporal replays
// the workflow from history; the durable deployment row is only touched
// through activities, never from memory.
func DedicatedDeploymentWorkflow(ctx workflow.Context, params model.DeploymentWorkflowParams) error {
	logger := workflow.GetLogger(ctx)

	pollInterval := time.Duration(params.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	timeout := time.Duration(params.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dbCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	// Transient transport failures toward the provider get a small bounded
	// number of attempts; provider-reported rejections are non-retryable and
	// fail immediately.
	providerCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    4,
			InitialInterval:    2 * time.Second,
			MaximumInterval:    15 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})

	err := workflow.ExecuteActivity(dbCtx, "UpdateDeploymentStatus", activity.UpdateDeploymentStatusParams{
		DeploymentID:  params.DeploymentID,
		Status:        model.StatusProvisioning,
		StatusMessage: "Requesting dedicated server from provider",
	}).Get(ctx, nil)
	if err != nil {
		return err
	}
	appendLog(dbCtx, params.DeploymentID, "Requesting dedicated server from provider")

	var handle string
	err = workflow.ExecuteActivity(providerCtx, "CreateServer", activity.CreateServerParams{
		Spec: params.Spec,
	}).Get(ctx, &handle)
	if err != nil {
		appendLog(dbCtx, params.DeploymentID, fmt.Sprintf("Server creation failed: %v", err))
		failDeployment(dbCtx, params, fmt.Sprintf("server creation failed: %v", err))
		return err
	}
	appendLog(dbCtx, params.DeploymentID, fmt.Sprintf("Provider accepted request, handle %s", handle))

	// The fleet row's id must be stable across workflow replays.
	var vpsID string
	if err := workflow.SideEffect(ctx, func(workflow.Context) any {
		return platform.NewID()
	}).Get(&vpsID); err != nil {
		return err
	}

	err = workflow.ExecuteActivity(dbCtx, "InsertProvisionedVPS", activity.InsertProvisionedVPSParams{
		VPSID:          vpsID,
		Spec:           params.Spec,
		ProviderHandle: handle,
	}).Get(ctx, nil)
	if err != nil {
		failDeployment(dbCtx, params, fmt.Sprintf("record provisioned vps: %v", err))
		teardown(dbCtx, params.DeploymentID, handle)
		return err
	}

	deadline := workflow.Now(ctx).Add(timeout)
	lastDetail := ""

	for {
		if err := workflow.Sleep(ctx, pollInterval); err != nil {
			return err
		}

		if workflow.Now(ctx).After(deadline) {
			appendLog(dbCtx, params.DeploymentID, fmt.Sprintf("Provisioning timed out after %s", timeout))
			failDeployment(dbCtx, params, fmt.Sprintf("provisioning timed out after %s", timeout))
			markVPSOffline(dbCtx, vpsID)
			teardown(dbCtx, params.DeploymentID, handle)
			return temporal.NewApplicationError("provisioning timeout", "PROVISION_TIMEOUT")
		}

		var status provisioner.Status
		err = workflow.ExecuteActivity(providerCtx, "PollServerStatus", handle).Get(ctx, &status)
		if err != nil {
			// Transport kept failing past the bounded retries; treat like a
			// provider error.
			appendLog(dbCtx, params.DeploymentID, fmt.Sprintf("Lost contact with provider: %v", err))
			failDeployment(dbCtx, params, fmt.Sprintf("provider unreachable: %v", err))
			markVPSOffline(dbCtx, vpsID)
			teardown(dbCtx, params.DeploymentID, handle)
			return err
		}

		switch status.State {
		case provisioner.StateInProgress:
			if status.Detail != "" && status.Detail != lastDetail {
				appendLog(dbCtx, params.DeploymentID, status.Detail)
				lastDetail = status.Detail
			}

		case provisioner.StateReady:
			return completeDeployment(ctx, dbCtx, params, vpsID, status)

		case provisioner.StateError:
			appendLog(dbCtx, params.DeploymentID, fmt.Sprintf("Provider reported failure: %s", status.Detail))
			failDeployment(dbCtx, params, status.Detail)
			markVPSOffline(dbCtx, vpsID)
			teardown(dbCtx, params.DeploymentID, handle)
			return temporal.NewApplicationError(status.Detail, "PROVIDER_ERROR")

		default:
			logger.Warn("unknown provider state", "state", status.State)
		}
	}
}

// completeDeployment binds the ready machine to the tenant and finishes the
// deployment with its access details.
func completeDeployment(ctx workflow.Context, dbCtx workflow.Context, params model.DeploymentWorkflowParams,
	vpsID string, status provisioner.Status) error {
	err := workflow.ExecuteActivity(dbCtx, "ActivateProvisionedVPS", activity.ActivateProvisionedVPSParams{
		VPSID:     vpsID,
		IPAddress: status.IPAddress,
	}).Get(ctx, nil)
	if err != nil {
		failDeployment(dbCtx, params, fmt.Sprintf("activate vps: %v", err))
		return err
	}

	err = workflow.ExecuteActivity(dbCtx, "AssignTenantVPS", activity.AssignTenantVPSParams{
		TenantID: params.TenantID,
		VPSID:    vpsID,
	}).Get(ctx, nil)
	if err != nil {
		failDeployment(dbCtx, params, fmt.Sprintf("assign tenant: %v", err))
		return err
	}

	accessURL := status.AccessURL
	if accessURL == "" {
		accessURL = "https://" + status.IPAddress
	}
	credentials := status.RootPass

	err = workflow.ExecuteActivity(dbCtx, "UpdateDeploymentStatus", activity.UpdateDeploymentStatusParams{
		DeploymentID:  params.DeploymentID,
		Status:        model.StatusActive,
		StatusMessage: "Deployment complete",
		AccessURL:     &accessURL,
		Credentials:   &credentials,
	}).Get(ctx, nil)
	if err != nil {
		return err
	}

	appendLog(dbCtx, params.DeploymentID, fmt.Sprintf("Server ready at %s", status.IPAddress))
	return nil
}

// failDeployment records the terminal failed state on the deployment and the
// tenant. The tenant row is kept for manual cleanup or retry.
func failDeployment(ctx workflow.Context, params model.DeploymentWorkflowParams, reason string) {
	logger := workflow.GetLogger(ctx)

	err := workflow.ExecuteActivity(ctx, "UpdateDeploymentStatus", activity.UpdateDeploymentStatusParams{
		DeploymentID:  params.DeploymentID,
		Status:        model.StatusFailed,
		StatusMessage: "Deployment failed",
		ErrorMessage:  &reason,
	}).Get(ctx, nil)
	if err != nil {
		logger.Error("record deployment failure", "deployment_id", params.DeploymentID, "error", err)
	}

	err = workflow.ExecuteActivity(ctx, "SetTenantStatus", activity.SetTenantStatusParams{
		TenantID: params.TenantID,
		Status:   model.StatusFailed,
	}).Get(ctx, nil)
	if err != nil {
		logger.Error("record tenant failure", "tenant_id", params.TenantID, "error", err)
	}
}

// teardown asks the provider to destroy the machine. Best-effort: the
// deployment is already terminal, so a teardown failure only gets logged.
func teardown(ctx workflow.Context, deploymentID, handle string) {
	logger := workflow.GetLogger(ctx)

	if err := workflow.ExecuteActivity(ctx, "TeardownServer", handle).Get(ctx, nil); err != nil {
		logger.Error("teardown failed", "deployment_id", deploymentID, "handle", handle, "error", err)
		appendLog(ctx, deploymentID, fmt.Sprintf("Teardown of %s failed: %v", handle, err))
		return
	}
	appendLog(ctx, deploymentID, "Requested teardown of abandoned server")
}

func markVPSOffline(ctx workflow.Context, vpsID string) {
	if err := workflow.ExecuteActivity(ctx, "MarkVPSOffline", vpsID).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Error("mark vps offline", "vps_id", vpsID, "error", err)
	}
}

// appendLog is best-effort: progress logging never decides a deployment's fate.
func appendLog(ctx workflow.Context, deploymentID, message string) {
	err := workflow.ExecuteActivity(ctx, "AppendDeploymentLog", activity.AppendDeploymentLogParams{
		DeploymentID: deploymentID,
		Message:      message,
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Error("append deployment log", "deployment_id", deploymentID, "error", err)
	}
}
