// Package control wires the application together: storage, cache, the
// explorer facade, the auto-switch loop and the HTTP surface.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openbitx/explorer/internal/autoswitch"
	"github.com/openbitx/explorer/internal/core/config"
	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/explorer"
	redisclient "github.com/openbitx/explorer/internal/infra/redis"
	"github.com/openbitx/explorer/internal/infra/storage"
	"github.com/openbitx/explorer/internal/infra/storage/memory"
	"github.com/openbitx/explorer/internal/infra/storage/postgres"
)

// App is the assembled service.
type App struct {
	cfg      *config.AppConfig
	explorer *explorer.BlockchainExplorer
	switcher *autoswitch.Service
	server   *Server
	db       *postgres.DB
	redis    *redisclient.Client
	log      *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewApp initializes every dependency. Postgres and Redis are optional:
// without a database URL the default-provider store is in-memory, without
// Redis the block cursor falls back to a head window.
func NewApp(cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	var (
		db           *postgres.DB
		defaultStore storage.DefaultProviderRepository
		providerRepo storage.ProviderRepository
	)

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(); err != nil {
			return nil, err
		}
		defaultStore = postgres.NewDefaultProviderRepo(db)
		providerRepo = postgres.NewProviderRepo(db)
	} else {
		store := memory.NewMemoryStorage()
		defaultStore = memory.NewDefaultProviderRepo(store)
		providerRepo = memory.NewProviderRepo(store)
		logger.Warn("no database configured, default provider switches will not survive restarts")
	}

	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
	} else {
		logger.Warn("no redis configured, block scans will use a head window cursor")
	}

	// Mirror the configured providers so operators can inspect them.
	var configured []*domain.Provider
	for _, chain := range cfg.Chains {
		for _, pc := range chain.Providers {
			configured = append(configured, pc.Provider(chain.Network))
		}
	}
	if _, err := providerRepo.Sync(context.Background(), configured); err != nil {
		logger.Warn("provider inventory sync failed", "error", err)
	}

	exp, err := explorer.Build(cfg, defaultStore, redisClient, logger)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		explorer: exp,
		switcher: autoswitch.New(exp, defaultStore, cfg.HealthCheck, nil, logger),
		db:       db,
		redis:    redisClient,
		log:      logger,
		done:     make(chan struct{}),
	}
	app.server = NewServer(exp, cfg.Server.Port, logger)
	return app, nil
}

// Explorer exposes the facade, mainly for embedding callers.
func (a *App) Explorer() *explorer.BlockchainExplorer {
	return a.explorer
}

// Start launches the HTTP server and the auto-switch loop.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		defer close(a.done)
		a.switcher.Run(runCtx)
	}()

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("http server stopped", "error", err)
		}
	}()

	a.log.Info("explorer started",
		"chains", len(a.cfg.Chains), "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts everything down, waiting for the auto-switch loop to exit.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	select {
	case <-a.done:
	case <-ctx.Done():
	}

	if err := a.server.Stop(ctx); err != nil {
		a.log.Warn("http server shutdown failed", "error", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close failed", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("db close failed", "error", err)
		}
	}
	return nil
}
