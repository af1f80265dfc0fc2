package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/infra/storage"
)

// MemoryStorage holds every repository's state behind one lock. Used when no
// database is configured and in tests.
type MemoryStorage struct {
	defaults  map[string]*storage.DefaultProvider
	providers map[string]*domain.Provider
	mu        sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		defaults:  make(map[string]*storage.DefaultProvider),
		providers: make(map[string]*domain.Provider),
	}
}

func defaultKey(network domain.Network, operation string) string {
	return string(network) + ":" + operation
}

// -----------------------------------------------------------------------------
// DefaultProvider Repository
// -----------------------------------------------------------------------------

type DefaultProviderRepo struct {
	store *MemoryStorage
}

func NewDefaultProviderRepo(store *MemoryStorage) *DefaultProviderRepo {
	return &DefaultProviderRepo{store: store}
}

func (r *DefaultProviderRepo) Get(
	ctx context.Context,
	network domain.Network,
	operation string,
) (*storage.DefaultProvider, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	def, ok := r.store.defaults[defaultKey(network, operation)]
	if !ok {
		return nil, storage.ErrDefaultNotFound
	}
	cp := *def
	return &cp, nil
}

func (r *DefaultProviderRepo) Upsert(ctx context.Context, def *storage.DefaultProvider) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *def
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	r.store.defaults[defaultKey(def.Network, def.Operation)] = &cp
	return nil
}

func (r *DefaultProviderRepo) List(ctx context.Context) ([]*storage.DefaultProvider, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*storage.DefaultProvider, 0, len(r.store.defaults))
	for _, def := range r.store.defaults {
		cp := *def
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Network != out[j].Network {
			return out[i].Network < out[j].Network
		}
		return out[i].Operation < out[j].Operation
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// Provider Repository
// -----------------------------------------------------------------------------

type ProviderRepo struct {
	store *MemoryStorage
}

func NewProviderRepo(store *MemoryStorage) *ProviderRepo {
	return &ProviderRepo{store: store}
}

func (r *ProviderRepo) Sync(ctx context.Context, providers []*domain.Provider) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range providers {
		cp := *p
		r.store.providers[p.Name+":"+string(p.Network)] = &cp
	}
	return len(providers), nil
}

func (r *ProviderRepo) ListByNetwork(
	ctx context.Context,
	network domain.Network,
) ([]*domain.Provider, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Provider
	for _, p := range r.store.providers {
		if p.Network == network {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
