package activity

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/edvin/fleet/internal/model"
	"github.com/edvin/fleet/internal/provisioner"
)

// Provisioner contains activities that call the external VPS provider.
// These activities carry no retry policy of their own: the workflow decides
// what is retryable, except that provider-reported rejections are marked
// non-retryable here because only this layer can tell them apart from
// transport failures.
type Provisioner struct {
	client provisioner.Client
}

func NewProvisioner(client provisioner.Client) *Provisioner {
	return &Provisioner{client: client}
}

// CreateServerParams holds the parameters for CreateServer.
type CreateServerParams struct {
	Spec model.ServerSpec `json:"spec"`
}

// CreateServer begins provider-side creation and returns the handle used for
// polling and teardown. A provider rejection (invalid spec, quota exceeded)
// is non-retryable; a transport failure is left retryable for the workflow's
// bounded retry policy.
func (a *Provisioner) CreateServer(ctx context.Context, params CreateServerParams) (string, error) {
	result, err := a.client.CreateServer(ctx, provisioner.CreateRequest{
		Name:     params.Spec.Name,
		Location: params.Spec.Location,
		CPUCores: params.Spec.CPUCores,
		MemoryMB: params.Spec.MemoryMB,
		DiskGB:   params.Spec.DiskGB,
	})
	if err != nil {
		var provErr *provisioner.ProviderError
		if errors.As(err, &provErr) {
			return "", temporal.NewNonRetryableApplicationError(provErr.Message, "PROVIDER_REJECTED", err)
		}
		return "", err
	}
	return result.Handle, nil
}

// PollServerStatus fetches the machine's current provider-side state. A
// provider-reported error state is a valid poll result, not an activity
// failure; only transport problems surface as errors.
func (a *Provisioner) PollServerStatus(ctx context.Context, handle string) (*provisioner.Status, error) {
	return a.client.GetServerStatus(ctx, handle)
}

// TeardownServer asks the provider to destroy the machine. Best-effort:
// callers ignore the result beyond logging.
func (a *Provisioner) TeardownServer(ctx context.Context, handle string) error {
	return a.client.DeleteServer(ctx, handle)
}
