package usecase

import (
	"context"

	"github.com/quaydocs/corpus-assistant/internal/core/ports"
)

// BindingUseCase associates conversation channels with tenants. At most one
// tenant per channel; last write wins. Every successful SetBinding is
// persisted durably before returning.
type BindingUseCase struct {
	repo     ports.BindingRepository
	tenants  *TenantDirectory
	registry *CollectionRegistry
}

func NewBindingUseCase(repo ports.BindingRepository, tenants *TenantDirectory, registry *CollectionRegistry) *BindingUseCase {
	return &BindingUseCase{repo: repo, tenants: tenants, registry: registry}
}

// SetBinding validates the tenant against the allowlist, verifies the
// tenant's collection is reachable, then persists the binding.
func (uc *BindingUseCase) SetBinding(ctx context.Context, channelID, tenant string) error {
	if err := uc.tenants.Require(tenant); err != nil {
		return err
	}
	if _, err := uc.registry.GetOrCreate(ctx, tenant); err != nil {
		return err
	}
	return uc.repo.Upsert(ctx, channelID, tenant)
}

// ResolveBinding returns the most recently bound tenant for the channel, or
// ErrNotBound.
func (uc *BindingUseCase) ResolveBinding(ctx context.Context, channelID string) (string, error) {
	return uc.repo.Get(ctx, channelID)
}

// ChannelsFor lists the channels currently bound to a tenant, used to
// announce ingestion events.
func (uc *BindingUseCase) ChannelsFor(ctx context.Context, tenant string) ([]string, error) {
	return uc.repo.ListChannels(ctx, tenant)
}
