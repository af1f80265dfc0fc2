// Package blockbook implements the provider family for Trezor Blockbook
// explorers. One family value serves every UTXO chain the service watches,
// parameterized by symbol and precision, so BTC and LTC differ only in
// configuration.
package blockbook

import (
	"github.com/openbitx/explorer/internal/explorer/provider"
)

// NewFamily builds the Blockbook family for one chain. Blockbook instances
// answer balance queries for several comma-joined addresses at once, so batch
// balance calls are chunked rather than fanned out per address.
func NewFamily(symbol string, precision int32) *provider.Family {
	return &provider.Family{
		Name: "blockbook",
		Kind: provider.KindREST,
		Templates: map[provider.Operation]provider.RequestTemplate{
			provider.OpBalance:    {Path: "/api/v2/address/{addresses}?details=basic"},
			provider.OpTxDetails:  {Path: "/api/v2/tx/{tx_hash}"},
			provider.OpBlockTxs:   {Path: "/api/v2/block/{block}"},
			provider.OpAddressTxs: {Path: "/api/v2/address/{address}?details=txs"},
			provider.OpTokenTxs:   {Path: "/api/v2/address/{address}?details=txs"},
			provider.OpBlockHead:  {Path: "/api/v2/"},
		},
		Parser:               &Parser{symbol: symbol, precision: precision},
		Validator:            Validator{},
		Precision:            precision,
		SupportsBalanceBatch: true,
		MaxBatchAddresses:    20,
	}
}
