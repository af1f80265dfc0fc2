// Package autoswitch keeps the persisted default provider of each
// (network, operation) pair pointing at a provider that actually works. A
// periodic health check probes the current default; when it stays down
// across retries, the first healthy alternative in priority order is
// promoted.
package autoswitch

import (
	"context"
	"log/slog"
	"time"

	"github.com/openbitx/explorer/internal/core/config"
	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/explorer"
	"github.com/openbitx/explorer/internal/explorer/provider"
	"github.com/openbitx/explorer/internal/infra/storage"
	"github.com/openbitx/explorer/internal/metrics"
)

// Prober checks whether one provider currently serves one operation.
// Injectable so tests can script health without HTTP servers.
type Prober interface {
	Probe(ctx context.Context, api *provider.Api, op provider.Operation) error
}

// OperationProber exercises the operation itself: a balance probe fetches a
// known address's balance, history probes fetch its transactions, and
// block-oriented operations are probed through the provider's head. A
// provider that answers eth_blockNumber but not eth_getBlockByNumber is
// rare; a provider that answers nothing is the case this guards.
type OperationProber struct {
	// ProbeAddresses maps a network to a known active address.
	ProbeAddresses map[string]string
}

func (p *OperationProber) Probe(ctx context.Context, api *provider.Api, op provider.Operation) error {
	address := p.ProbeAddresses[string(api.Provider.Network)]
	switch op {
	case provider.OpBalance:
		if address != "" {
			_, err := api.GetBalance(ctx, address)
			return err
		}
	case provider.OpAddressTxs:
		if address != "" {
			_, err := api.GetAddressTxs(ctx, address)
			return err
		}
	case provider.OpTokenTxs:
		if address != "" {
			_, err := api.GetTokenTxs(ctx, address)
			return err
		}
	}
	_, err := api.GetBlockHead(ctx)
	return err
}

// Service is the auto-switch health check loop.
type Service struct {
	explorer *explorer.BlockchainExplorer
	store    storage.DefaultProviderRepository
	cfg      config.HealthCheckConfig
	prober   Prober
	logger   *slog.Logger
}

// New builds the service. A nil prober gets the operation prober with the
// configured probe addresses.
func New(
	exp *explorer.BlockchainExplorer,
	store storage.DefaultProviderRepository,
	cfg config.HealthCheckConfig,
	prober Prober,
	logger *slog.Logger,
) *Service {
	if prober == nil {
		prober = &OperationProber{ProbeAddresses: cfg.ProbeAddresses}
	}
	return &Service{
		explorer: exp,
		store:    store,
		cfg:      cfg,
		prober:   prober,
		logger:   logger.With("component", "autoswitch"),
	}
}

// Run blocks until ctx is cancelled, checking every configured interval.
// One check runs immediately at startup.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.CheckNow(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckNow(ctx)
		}
	}
}

// CheckNow runs one full health check over every chain and operation.
func (s *Service) CheckNow(ctx context.Context) {
	for _, symbol := range s.explorer.Symbols() {
		iface, err := s.explorer.Interface(symbol)
		if err != nil {
			continue
		}
		for _, op := range provider.AllOperations {
			s.checkOperation(ctx, iface, op)
		}
	}
}

func (s *Service) checkOperation(
	ctx context.Context,
	iface *explorer.Interface,
	op provider.Operation,
) {
	candidates := iface.Candidates(ctx, op)
	if len(candidates) < 2 {
		// Nothing to switch to.
		return
	}

	current := candidates[0]
	if s.probeWithRetries(ctx, current, op) {
		s.recordStatus(iface.Network, current.Provider.Name, op, true)
		return
	}
	s.recordStatus(iface.Network, current.Provider.Name, op, false)
	s.logger.Warn("default provider unhealthy, probing alternatives",
		"network", string(iface.Network), "operation", string(op),
		"provider", current.Provider.Name)

	for _, candidate := range candidates[1:] {
		if !s.probeWithRetries(ctx, candidate, op) {
			s.recordStatus(iface.Network, candidate.Provider.Name, op, false)
			continue
		}
		s.recordStatus(iface.Network, candidate.Provider.Name, op, true)
		if err := s.store.Upsert(ctx, &storage.DefaultProvider{
			Network:      iface.Network,
			Operation:    string(op),
			ProviderName: candidate.Provider.Name,
			UpdatedAt:    time.Now().UTC(),
		}); err != nil {
			s.logger.Error("failed to persist default provider switch",
				"network", string(iface.Network), "operation", string(op),
				"provider", candidate.Provider.Name, "error", err)
			return
		}
		metrics.DefaultProviderSwitches.WithLabelValues(
			string(iface.Network), string(op),
		).Inc()
		s.logger.Info("default provider switched",
			"network", string(iface.Network), "operation", string(op),
			"from", current.Provider.Name, "to", candidate.Provider.Name)
		return
	}

	s.logger.Error("no healthy provider found",
		"network", string(iface.Network), "operation", string(op))
}

func (s *Service) probeWithRetries(
	ctx context.Context,
	api *provider.Api,
	op provider.Operation,
) bool {
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
		err := s.prober.Probe(probeCtx, api, op)
		cancel()
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}

func (s *Service) recordStatus(
	network domain.Network,
	providerName string,
	op provider.Operation,
	healthy bool,
) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	metrics.HealthCheckLastStatus.WithLabelValues(
		string(network), providerName, string(op),
	).Set(v)
}
