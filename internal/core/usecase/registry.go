package usecase

import (
	"context"
	"sync"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
	"github.com/quaydocs/corpus-assistant/internal/core/ports"
)

// CollectionHandle is an opaque reference to a tenant's vector collection.
// Only the registry constructs handles; consumers pass them back to the
// pipeline operations that need the underlying collection name.
type CollectionHandle struct {
	tenant     string
	collection string
}

func (h *CollectionHandle) Tenant() string { return h.tenant }

// Collection returns the storage-engine collection name. Exactly one
// collection exists per tenant, named after the tenant.
func (h *CollectionHandle) Collection() string { return h.collection }

// CollectionRegistry maps tenant ids to collection handles. The first
// GetOrCreate for a tenant verifies or creates the underlying collection and
// caches the handle for the process lifetime; later calls never touch the
// storage engine's creation path. Owned by the hosting process and passed by
// reference to every front end.
type CollectionRegistry struct {
	store      ports.VectorStore
	vectorSize int

	mu      sync.Mutex
	handles map[string]*CollectionHandle
	locks   map[string]*sync.Mutex
}

func NewCollectionRegistry(store ports.VectorStore, vectorSize int) *CollectionRegistry {
	return &CollectionRegistry{
		store:      store,
		vectorSize: vectorSize,
		handles:    make(map[string]*CollectionHandle),
		locks:      make(map[string]*sync.Mutex),
	}
}

// GetOrCreate returns the cached handle for tenant, creating the collection
// on first use. Concurrent first-time calls for one tenant serialize on a
// per-tenant lock: one creation proceeds, the rest wait and receive the same
// handle. A failed creation leaves the cache untouched so a retry attempts
// creation again.
func (r *CollectionRegistry) GetOrCreate(ctx context.Context, tenant string) (*CollectionHandle, error) {
	r.mu.Lock()
	if handle, ok := r.handles[tenant]; ok {
		r.mu.Unlock()
		return handle, nil
	}
	lock, ok := r.locks[tenant]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[tenant] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	// A concurrent caller may have finished creation while we waited.
	r.mu.Lock()
	if handle, ok := r.handles[tenant]; ok {
		r.mu.Unlock()
		return handle, nil
	}
	r.mu.Unlock()

	exists, err := r.store.CollectionExists(ctx, tenant)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "check collection", err)
	}
	if !exists {
		if err := r.store.CreateCollection(ctx, tenant, r.vectorSize); err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "create collection", err)
		}
	}

	handle := &CollectionHandle{tenant: tenant, collection: tenant}
	r.mu.Lock()
	r.handles[tenant] = handle
	r.mu.Unlock()
	return handle, nil
}
