package explorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BlockchainExplorer is the multi-chain facade: it maps a symbol to the
// right per-chain Interface and dispatches. Callers never touch providers
// directly.
type BlockchainExplorer struct {
	interfaces map[string]*Interface
}

// NewBlockchainExplorer builds the facade over the given chain interfaces.
func NewBlockchainExplorer(interfaces []*Interface) *BlockchainExplorer {
	byID := make(map[string]*Interface, len(interfaces))
	for _, iface := range interfaces {
		byID[strings.ToUpper(iface.Symbol)] = iface
	}
	return &BlockchainExplorer{interfaces: byID}
}

// Interface returns the per-chain orchestrator for a symbol.
func (b *BlockchainExplorer) Interface(symbol string) (*Interface, error) {
	iface, ok := b.interfaces[strings.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown symbol %s", domain.ErrConfiguration, symbol)
	}
	return iface, nil
}

// Symbols lists the configured chains.
func (b *BlockchainExplorer) Symbols() []string {
	out := make([]string, 0, len(b.interfaces))
	for symbol := range b.interfaces {
		out = append(out, symbol)
	}
	return out
}

// GetWalletsBalance fetches balances for several chains at once. A chain
// whose providers are all down contributes an entry to the errors map
// instead of failing the whole call.
func (b *BlockchainExplorer) GetWalletsBalance(
	ctx context.Context,
	addressesBySymbol map[string][]string,
) (map[string][]domain.Balance, map[string]error) {
	balances := make(map[string][]domain.Balance, len(addressesBySymbol))
	failures := make(map[string]error)
	for symbol, addresses := range addressesBySymbol {
		iface, err := b.Interface(symbol)
		if err != nil {
			failures[symbol] = err
			continue
		}
		chainBalances, err := iface.GetBalances(ctx, addresses)
		if err != nil {
			failures[symbol] = err
			continue
		}
		balances[symbol] = chainBalances
	}
	if len(failures) == 0 {
		failures = nil
	}
	return balances, failures
}

// TxDetails is the transaction view handed to deposit processing: the
// transaction-level facts plus each normalized transfer it contains.
type TxDetails struct {
	TxHash        string
	Success       bool
	BlockHeight   uint64
	Date          time.Time
	TxFee         decimal.Decimal
	Memo          string
	Confirmations uint64
	Transfers     []domain.TransferTx
}

// GetTransactionDetails fetches one transaction on one chain. A transaction
// that exists but fails validation comes back with Success=false and no
// transfers rather than as an error.
func (b *BlockchainExplorer) GetTransactionDetails(
	ctx context.Context,
	symbol, txHash string,
) (*TxDetails, error) {
	iface, err := b.Interface(symbol)
	if err != nil {
		return nil, err
	}
	transfers, err := iface.GetTxDetails(ctx, txHash)
	if err != nil {
		return nil, err
	}

	details := &TxDetails{TxHash: txHash, Transfers: transfers}
	if len(transfers) > 0 {
		first := transfers[0]
		details.Success = first.Success
		details.BlockHeight = first.BlockHeight
		details.Date = first.Date
		details.TxFee = first.TxFee
		details.Memo = first.Memo
		details.Confirmations = first.Confirmations
	}
	return details, nil
}

// GetLatestBlockAddresses sweeps the chain's new blocks and returns the
// receiving addresses with their transfers.
func (b *BlockchainExplorer) GetLatestBlockAddresses(
	ctx context.Context,
	symbol string,
) (*BlockScan, error) {
	iface, err := b.Interface(symbol)
	if err != nil {
		return nil, err
	}
	return iface.ScanLatestBlocks(ctx)
}
