// Package bnbdex implements the provider family for the Binance Chain DEX
// HTTP API. The API is account based: one transaction is one transfer, with
// amounts reported in 1e-8 base units.
package bnbdex

import (
	"github.com/openbitx/explorer/internal/explorer/provider"
)

const precision = 8

// NewFamily builds the BNB DEX family. Balances are per-address only, and
// token transfer history is not exposed by this API.
func NewFamily() *provider.Family {
	return &provider.Family{
		Name: "bnbdex",
		Kind: provider.KindREST,
		Templates: map[provider.Operation]provider.RequestTemplate{
			provider.OpBalance:    {Path: "/api/v1/account/{address}"},
			provider.OpTxDetails:  {Path: "/api/v1/tx/{tx_hash}?format=json"},
			provider.OpAddressTxs: {Path: "/api/v1/transactions?address={address}&txType=TRANSFER&offset=0&limit=600"},
			provider.OpBlockTxs:   {Path: "/api/v1/transactions-in-block/{block}"},
			provider.OpBlockHead:  {Path: "/api/v1/node-info"},
		},
		Parser:    &Parser{},
		Validator: Validator{},
		Precision: precision,
	}
}
