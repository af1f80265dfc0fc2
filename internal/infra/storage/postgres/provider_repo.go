package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/openbitx/explorer/internal/core/domain"
)

// ProviderRepo implements storage.ProviderRepository using PostgreSQL.
type ProviderRepo struct {
	db *DB
}

// NewProviderRepo creates a new PostgreSQL provider repository.
func NewProviderRepo(db *DB) *ProviderRepo {
	return &ProviderRepo{db: db}
}

type providerRow struct {
	Name        string         `db:"name"`
	Network     string         `db:"network"`
	BaseURL     string         `db:"base_url"`
	TestnetURL  string         `db:"testnet_url"`
	RateLimitMs int64          `db:"rate_limit_ms"`
	BackoffMs   int64          `db:"backoff_ms"`
	UseProxy    bool           `db:"use_proxy"`
	APIKeys     pq.StringArray `db:"api_keys"`
	Operations  pq.StringArray `db:"operations"`
}

// Sync upserts the configured providers so the table mirrors the config.
func (r *ProviderRepo) Sync(ctx context.Context, providers []*domain.Provider) (int, error) {
	changed := 0
	for _, p := range providers {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO providers
			   (name, network, base_url, testnet_url, rate_limit_ms, backoff_ms,
			    use_proxy, api_keys, operations, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (name, network)
			 DO UPDATE SET base_url = EXCLUDED.base_url,
			               testnet_url = EXCLUDED.testnet_url,
			               rate_limit_ms = EXCLUDED.rate_limit_ms,
			               backoff_ms = EXCLUDED.backoff_ms,
			               use_proxy = EXCLUDED.use_proxy,
			               api_keys = EXCLUDED.api_keys,
			               operations = EXCLUDED.operations,
			               updated_at = EXCLUDED.updated_at`,
			p.Name, string(p.Network), p.BaseURL, p.TestnetURL,
			p.RateLimit.Milliseconds(), p.BackoffTime.Milliseconds(),
			p.UseProxy, pq.StringArray(p.APIKeys), pq.StringArray(p.Operations),
			time.Now().UTC())
		if err != nil {
			return changed, fmt.Errorf("failed to sync provider %s: %w", p.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			changed += int(n)
		}
	}
	return changed, nil
}

// ListByNetwork retrieves the stored providers of one network.
func (r *ProviderRepo) ListByNetwork(
	ctx context.Context,
	network domain.Network,
) ([]*domain.Provider, error) {
	var rows []providerRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT name, network, base_url, testnet_url, rate_limit_ms, backoff_ms,
		        use_proxy, api_keys, operations
		 FROM providers
		 WHERE network = $1
		 ORDER BY name`,
		string(network))
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	out := make([]*domain.Provider, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.Provider{
			Name:        row.Name,
			Network:     domain.Network(row.Network),
			BaseURL:     row.BaseURL,
			TestnetURL:  row.TestnetURL,
			RateLimit:   time.Duration(row.RateLimitMs) * time.Millisecond,
			BackoffTime: time.Duration(row.BackoffMs) * time.Millisecond,
			UseProxy:    row.UseProxy,
			APIKeys:     []string(row.APIKeys),
			Operations:  []string(row.Operations),
		})
	}
	return out, nil
}
