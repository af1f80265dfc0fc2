// Package explorer orchestrates provider failover for one chain and exposes
// the multi-chain facade used by callers. It holds no chain-specific parsing
// logic; that lives in the provider families.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/explorer/provider"
	"github.com/openbitx/explorer/internal/infra/storage"
	"github.com/openbitx/explorer/internal/metrics"
)

// maxBlocksPerScan caps one latest-block scan so a stale cursor cannot
// trigger an unbounded fetch.
const maxBlocksPerScan = 100

// headFallbackDepth is how far behind the head a scan starts when no cursor
// is cached.
const headFallbackDepth = 5

// HeightStore caches the last processed block height of one chain.
// *redis.Client satisfies it; a nil client remembers nothing, so scans fall
// back to a window behind the head.
type HeightStore interface {
	GetProcessedHeight(ctx context.Context, network, symbol string) (height uint64, found bool, err error)
	SetProcessedHeight(ctx context.Context, network, symbol string, height uint64) error
}

// Interface runs every operation of one chain across its ordered provider
// candidates: first success wins, each failure moves on to the next
// candidate, and exhaustion yields a single ErrNoProviderAvailable that
// wraps every per-provider failure.
type Interface struct {
	Symbol   string
	Network  domain.Network
	Currency domain.Currency

	apis   map[provider.Operation][]*provider.Api
	byName map[string]*provider.Api

	defaults storage.DefaultProviderRepository // nil when not persisted
	heights  HeightStore                       // nil when no cache is wired
	logger   *slog.Logger
}

// NewInterface builds the orchestrator for one chain. apis maps each
// operation to its candidates in priority order.
func NewInterface(
	symbol string,
	network domain.Network,
	apis map[provider.Operation][]*provider.Api,
	defaults storage.DefaultProviderRepository,
	heights HeightStore,
	logger *slog.Logger,
) *Interface {
	byName := make(map[string]*provider.Api)
	for _, candidates := range apis {
		for _, api := range candidates {
			byName[api.Provider.Name] = api
		}
	}
	return &Interface{
		Symbol:   symbol,
		Network:  network,
		Currency: domain.NetworkCurrency[network],
		apis:     apis,
		byName:   byName,
		defaults: defaults,
		heights:  heights,
		logger:   logger.With("symbol", symbol, "network", string(network)),
	}
}

// Api returns the candidate registered under the given provider name.
func (e *Interface) Api(name string) (*provider.Api, bool) {
	api, ok := e.byName[name]
	return api, ok
}

// Candidates returns the ordered candidates for op, with the persisted
// default (when one exists and is registered for op) moved to the front.
func (e *Interface) Candidates(ctx context.Context, op provider.Operation) []*provider.Api {
	ordered := e.apis[op]
	if e.defaults == nil || len(ordered) < 2 {
		return ordered
	}
	def, err := e.defaults.Get(ctx, e.Network, string(op))
	if err != nil {
		if !errors.Is(err, storage.ErrDefaultNotFound) {
			e.logger.Warn("default provider lookup failed", "operation", string(op), "error", err)
		}
		return ordered
	}
	for i, api := range ordered {
		if api.Provider.Name == def.ProviderName {
			if i == 0 {
				return ordered
			}
			reordered := make([]*provider.Api, 0, len(ordered))
			reordered = append(reordered, api)
			reordered = append(reordered, ordered[:i]...)
			reordered = append(reordered, ordered[i+1:]...)
			return reordered
		}
	}
	return ordered
}

// tryEach runs call against each candidate in order and returns the first
// success. At most one provider ever succeeds per logical call. Exhaustion
// returns ErrNoProviderAvailable wrapping every candidate's failure.
func tryEach[T any](
	ctx context.Context,
	e *Interface,
	op provider.Operation,
	call func(api *provider.Api) (T, error),
) (T, error) {
	var zero T
	candidates := e.Candidates(ctx, op)
	if len(candidates) == 0 {
		return zero, fmt.Errorf("%w: no %s candidates for %s",
			domain.ErrConfiguration, op, e.Symbol)
	}

	errs := make([]error, 0, len(candidates))
	for _, api := range candidates {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		result, err := call(api)
		if err == nil {
			return result, nil
		}
		e.logger.Debug("candidate failed, trying next",
			"operation", string(op), "provider", api.Provider.Name,
			"error_class", domain.ErrorClass(err))
		errs = append(errs, err)
	}
	return zero, fmt.Errorf("%s %s: %w", e.Symbol, op,
		errors.Join(append([]error{domain.ErrNoProviderAvailable}, errs...)...))
}

// GetBalance fetches the confirmed balance of one address.
func (e *Interface) GetBalance(ctx context.Context, address string) (domain.Balance, error) {
	b, err := tryEach(ctx, e, provider.OpBalance,
		func(api *provider.Api) (domain.Balance, error) {
			return api.GetBalance(ctx, address)
		})
	if err != nil {
		return domain.Balance{}, err
	}
	b.Symbol = e.Symbol
	b.Currency = e.Currency
	return b, nil
}

// GetBalances fetches balances for many addresses. Providers that support
// batching get address chunks; the rest are called once per address with
// per-address isolation, so one bad address never fails its neighbors.
// Results preserve the input order.
func (e *Interface) GetBalances(ctx context.Context, addresses []string) ([]domain.Balance, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	balances, err := tryEach(ctx, e, provider.OpBalance,
		func(api *provider.Api) ([]domain.Balance, error) {
			if api.Family.SupportsBalanceBatch {
				return e.batchBalances(ctx, api, addresses)
			}
			return e.isolatedBalances(ctx, api, addresses)
		})
	if err != nil {
		return nil, err
	}
	for i := range balances {
		balances[i].Symbol = e.Symbol
		balances[i].Currency = e.Currency
	}
	return balances, nil
}

func (e *Interface) batchBalances(
	ctx context.Context,
	api *provider.Api,
	addresses []string,
) ([]domain.Balance, error) {
	size := api.Family.MaxBatchAddresses
	if size <= 0 {
		size = len(addresses)
	}
	out := make([]domain.Balance, 0, len(addresses))
	for start := 0; start < len(addresses); start += size {
		end := min(start+size, len(addresses))
		chunk, err := api.GetBalances(ctx, addresses[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// isolatedBalances queries one address at a time. Individual failures leave
// that address out of the result; the provider only counts as failed when
// every address fails.
func (e *Interface) isolatedBalances(
	ctx context.Context,
	api *provider.Api,
	addresses []string,
) ([]domain.Balance, error) {
	out := make([]domain.Balance, 0, len(addresses))
	var firstErr error
	for _, address := range addresses {
		b, err := api.GetBalance(ctx, address)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			e.logger.Warn("balance fetch failed for address",
				"provider", api.Provider.Name, "address", address, "error", err)
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// GetTxDetails fetches and normalizes the transfers of one transaction.
func (e *Interface) GetTxDetails(ctx context.Context, txHash string) ([]domain.TransferTx, error) {
	txs, err := tryEach(ctx, e, provider.OpTxDetails,
		func(api *provider.Api) ([]domain.TransferTx, error) {
			return api.GetTxDetails(ctx, txHash)
		})
	if err != nil {
		return nil, err
	}
	return e.stamp(txs), nil
}

// GetBlockTxs fetches every valid transfer in one block.
func (e *Interface) GetBlockTxs(ctx context.Context, block uint64) ([]domain.TransferTx, error) {
	txs, err := tryEach(ctx, e, provider.OpBlockTxs,
		func(api *provider.Api) ([]domain.TransferTx, error) {
			return api.GetBlockTxs(ctx, block)
		})
	if err != nil {
		return nil, err
	}
	return e.stamp(txs), nil
}

// GetAddressTxs fetches the main-currency transfer history of one address.
func (e *Interface) GetAddressTxs(ctx context.Context, address string) ([]domain.TransferTx, error) {
	txs, err := tryEach(ctx, e, provider.OpAddressTxs,
		func(api *provider.Api) ([]domain.TransferTx, error) {
			return api.GetAddressTxs(ctx, address)
		})
	if err != nil {
		return nil, err
	}
	return e.stamp(txs), nil
}

// GetTokenTxs fetches the token transfer history of one address.
func (e *Interface) GetTokenTxs(ctx context.Context, address string) ([]domain.TransferTx, error) {
	txs, err := tryEach(ctx, e, provider.OpTokenTxs,
		func(api *provider.Api) ([]domain.TransferTx, error) {
			return api.GetTokenTxs(ctx, address)
		})
	if err != nil {
		return nil, err
	}
	return e.stamp(txs), nil
}

// GetBlockHead fetches the latest block height.
func (e *Interface) GetBlockHead(ctx context.Context) (uint64, error) {
	return tryEach(ctx, e, provider.OpBlockHead,
		func(api *provider.Api) (uint64, error) {
			return api.GetBlockHead(ctx)
		})
}

// BlockScan is the result of one latest-block sweep.
type BlockScan struct {
	// Addresses that received value in the scanned range.
	Addresses []string

	// TxsByAddress groups the transfers by their receiving address.
	TxsByAddress map[string][]domain.TransferTx

	// LastBlock is the highest block included in the scan; the next sweep
	// starts right after it.
	LastBlock uint64
}

// ScanLatestBlocks fetches transfers from every block after the cached
// cursor up to the provider head, then advances the cursor. Without a cached
// cursor the scan starts a few blocks behind the head.
func (e *Interface) ScanLatestBlocks(ctx context.Context) (*BlockScan, error) {
	head, err := e.GetBlockHead(ctx)
	if err != nil {
		return nil, err
	}

	from := head - min(head, headFallbackDepth) + 1
	if e.heights != nil {
		cached, found, err := e.heights.GetProcessedHeight(ctx, string(e.Network), e.Symbol)
		if err != nil {
			e.logger.Warn("cursor read failed, falling back to head window", "error", err)
		} else if found && cached < head {
			from = cached + 1
		} else if found {
			// Nothing new.
			return &BlockScan{TxsByAddress: map[string][]domain.TransferTx{}, LastBlock: cached}, nil
		}
	}

	to := min(head, from+maxBlocksPerScan-1)

	scan := &BlockScan{TxsByAddress: make(map[string][]domain.TransferTx)}
	for block := from; block <= to; block++ {
		txs, err := e.GetBlockTxs(ctx, block)
		if err != nil {
			// Stop at the first gap so the cursor never jumps past an
			// unprocessed block.
			if block == from {
				return nil, err
			}
			e.logger.Warn("block scan stopped early", "block", block, "error", err)
			to = block - 1
			break
		}
		for _, tx := range txs {
			if tx.ToAddress == "" {
				continue
			}
			if _, seen := scan.TxsByAddress[tx.ToAddress]; !seen {
				scan.Addresses = append(scan.Addresses, tx.ToAddress)
			}
			scan.TxsByAddress[tx.ToAddress] = append(scan.TxsByAddress[tx.ToAddress], tx)
		}
	}
	scan.LastBlock = to

	if e.heights != nil {
		if err := e.heights.SetProcessedHeight(ctx, string(e.Network), e.Symbol, to); err != nil {
			e.logger.Warn("cursor write failed", "error", err)
		}
	}
	metrics.LatestBlockProcessed.WithLabelValues(string(e.Network), e.Symbol).Set(float64(to))
	return scan, nil
}

func (e *Interface) stamp(txs []domain.TransferTx) []domain.TransferTx {
	for i := range txs {
		txs[i].Symbol = e.Symbol
		txs[i].Currency = e.Currency
	}
	return txs
}
