package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/infra/storage"
)

// DefaultProviderRepo implements storage.DefaultProviderRepository using
// PostgreSQL.
type DefaultProviderRepo struct {
	db *DB
}

// NewDefaultProviderRepo creates a new PostgreSQL default provider repository.
func NewDefaultProviderRepo(db *DB) *DefaultProviderRepo {
	return &DefaultProviderRepo{db: db}
}

// Get retrieves the default for a (network, operation) pair.
func (r *DefaultProviderRepo) Get(
	ctx context.Context,
	network domain.Network,
	operation string,
) (*storage.DefaultProvider, error) {
	var row storage.DefaultProvider
	err := r.db.GetContext(ctx, &row,
		`SELECT network, operation, provider_name, updated_at
		 FROM default_providers
		 WHERE network = $1 AND operation = $2`,
		string(network), operation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrDefaultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default provider: %w", err)
	}
	return &row, nil
}

// Upsert records a new default, replacing any previous one.
func (r *DefaultProviderRepo) Upsert(ctx context.Context, def *storage.DefaultProvider) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO default_providers (network, operation, provider_name, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (network, operation)
		 DO UPDATE SET provider_name = EXCLUDED.provider_name,
		               updated_at = EXCLUDED.updated_at`,
		string(def.Network), def.Operation, def.ProviderName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert default provider: %w", err)
	}
	return nil
}

// List retrieves every recorded default.
func (r *DefaultProviderRepo) List(ctx context.Context) ([]*storage.DefaultProvider, error) {
	var rows []*storage.DefaultProvider
	err := r.db.SelectContext(ctx, &rows,
		`SELECT network, operation, provider_name, updated_at
		 FROM default_providers
		 ORDER BY network, operation`)
	if err != nil {
		return nil, fmt.Errorf("failed to list default providers: %w", err)
	}
	return rows, nil
}
