package explorer

import (
	"fmt"
	"log/slog"

	"github.com/openbitx/explorer/internal/core/config"
	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/explorer/blockbook"
	"github.com/openbitx/explorer/internal/explorer/bnbdex"
	"github.com/openbitx/explorer/internal/explorer/evm"
	"github.com/openbitx/explorer/internal/explorer/provider"
	"github.com/openbitx/explorer/internal/infra/redis"
	"github.com/openbitx/explorer/internal/infra/storage"
)

// familyFor maps a configured family name onto its implementation. Adding a
// chain to an existing family takes config only; a genuinely new upstream
// protocol needs a case here.
func familyFor(name, symbol string, network domain.Network) (*provider.Family, error) {
	precision, ok := domain.NetworkPrecision[network]
	if !ok {
		return nil, fmt.Errorf("%w: no precision for network %s", domain.ErrConfiguration, network)
	}
	switch name {
	case "blockbook":
		return blockbook.NewFamily(symbol, precision), nil
	case "evm":
		return evm.NewFamily(symbol, precision), nil
	case "bnbdex":
		return bnbdex.NewFamily(), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider family %q", domain.ErrConfiguration, name)
	}
}

// Build assembles the full explorer from configuration: one Api per
// provider entry, one Interface per chain, all behind the facade.
func Build(
	cfg *config.AppConfig,
	defaults storage.DefaultProviderRepository,
	heights *redis.Client,
	logger *slog.Logger,
) (*BlockchainExplorer, error) {
	interfaces := make([]*Interface, 0, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		iface, err := buildChain(cfg, chain, defaults, heights, logger)
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, iface)
	}
	return NewBlockchainExplorer(interfaces), nil
}

func buildChain(
	cfg *config.AppConfig,
	chain config.ChainConfig,
	defaults storage.DefaultProviderRepository,
	heights *redis.Client,
	logger *slog.Logger,
) (*Interface, error) {
	apisByName := make(map[string]*provider.Api, len(chain.Providers))
	for _, pc := range chain.Providers {
		family, err := familyFor(pc.Family, chain.Symbol, chain.Network)
		if err != nil {
			return nil, fmt.Errorf("chain %s provider %s: %w", chain.Symbol, pc.Name, err)
		}
		opts := []provider.ApiOption{
			provider.WithKeyPicker(provider.NewKeyPicker(pc.KeyStrategy)),
		}
		if cfg.Testnet {
			opts = append(opts, provider.WithTestnet())
		}
		apisByName[pc.Name] = provider.NewApi(pc.Provider(chain.Network), family, logger, opts...)
	}

	apis := make(map[provider.Operation][]*provider.Api)
	if len(chain.Operations) > 0 {
		for opName, names := range chain.Operations {
			op := provider.Operation(opName)
			for _, name := range names {
				api, ok := apisByName[name]
				if !ok {
					return nil, fmt.Errorf("%w: chain %s operation %s references unknown provider %s",
						domain.ErrConfiguration, chain.Symbol, opName, name)
				}
				if !api.Family.Supports(op) {
					return nil, fmt.Errorf("%w: chain %s provider %s does not support %s",
						domain.ErrConfiguration, chain.Symbol, name, opName)
				}
				apis[op] = append(apis[op], api)
			}
		}
	} else {
		// No explicit operation routing: every provider serves what its
		// family and its own operation allowlist support, in config order.
		for _, op := range provider.AllOperations {
			for _, pc := range chain.Providers {
				api := apisByName[pc.Name]
				if api.Family.Supports(op) && api.Provider.SupportsOperation(string(op)) {
					apis[op] = append(apis[op], api)
				}
			}
		}
	}

	return NewInterface(chain.Symbol, chain.Network, apis, defaults, heights, logger), nil
}
