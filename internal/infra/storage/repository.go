package storage

import (
	"context"
	"errors"
	"time"

	"github.com/openbitx/explorer/internal/core/domain"
)

var (
	// ErrDefaultNotFound is returned when no default provider has been
	// persisted for a (network, operation) pair yet.
	ErrDefaultNotFound = errors.New("default provider not found")
)

// DefaultProvider records which provider currently serves one operation on
// one network. Written by the auto-switch health check, read at startup and
// before each failover iteration so the healthy provider is tried first.
type DefaultProvider struct {
	Network      domain.Network `db:"network"`
	Operation    string         `db:"operation"`
	ProviderName string         `db:"provider_name"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// DefaultProviderRepository persists default provider selections.
type DefaultProviderRepository interface {
	// Get retrieves the default for a (network, operation) pair.
	// Returns ErrDefaultNotFound when none is recorded.
	Get(ctx context.Context, network domain.Network, operation string) (*DefaultProvider, error)

	// Upsert records a new default, replacing any previous one.
	Upsert(ctx context.Context, def *DefaultProvider) error

	// List retrieves every recorded default.
	List(ctx context.Context) ([]*DefaultProvider, error)
}

// ProviderRepository persists the provider inventory so operators can audit
// what the service is configured with. The runtime source of truth stays the
// YAML config; this table mirrors it.
type ProviderRepository interface {
	// Sync upserts the given providers and reports how many rows changed.
	Sync(ctx context.Context, providers []*domain.Provider) (int, error)

	// ListByNetwork retrieves the stored providers of one network.
	ListByNetwork(ctx context.Context, network domain.Network) ([]*domain.Provider, error)
}
