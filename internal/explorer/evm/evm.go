// Package evm implements the provider family for EVM JSON-RPC nodes (geth,
// erigon, public gateways). The node protocol has no address history
// endpoint, so address and token histories come from other families; this
// one covers balances, single transactions, full blocks and the head.
package evm

import (
	"fmt"

	"github.com/openbitx/explorer/internal/explorer/provider"
)

// NewFamily builds the JSON-RPC family for one EVM chain.
func NewFamily(symbol string, precision int32) *provider.Family {
	return &provider.Family{
		Name: "evm",
		Kind: provider.KindJSONRPC,
		Templates: map[provider.Operation]provider.RequestTemplate{
			provider.OpBalance: {
				RPCMethod: "eth_getBalance",
				RPCParams: func(p provider.CallParams) []any {
					return []any{p.Address, "latest"}
				},
			},
			provider.OpTxDetails: {
				RPCMethod: "eth_getTransactionByHash",
				RPCParams: func(p provider.CallParams) []any {
					return []any{p.TxHash}
				},
			},
			provider.OpTxReceipt: {
				RPCMethod: "eth_getTransactionReceipt",
				RPCParams: func(p provider.CallParams) []any {
					return []any{p.TxHash}
				},
			},
			provider.OpBlockTxs: {
				RPCMethod: "eth_getBlockByNumber",
				RPCParams: func(p provider.CallParams) []any {
					return []any{fmt.Sprintf("0x%x", p.Block), true}
				},
			},
			provider.OpBlockHead: {
				RPCMethod: "eth_blockNumber",
				RPCParams: func(provider.CallParams) []any { return nil },
			},
		},
		Parser:         &Parser{symbol: symbol, precision: precision},
		Validator:      Validator{},
		Precision:      precision,
		NeedsBlockHead: true,
	}
}
