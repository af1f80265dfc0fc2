// Package provider implements the per-(chain, provider) API layer: transport
// adapters for REST-JSON and JSON-RPC upstreams, per-provider rate pacing,
// API key rotation, health monitoring, and the validator/parser contracts
// that normalize raw responses into canonical transfer and balance records.
package provider

import (
	"strconv"
	"strings"
)

// Operation identifies one typed explorer operation. Providers declare which
// operations they support through request templates; there is no
// stringly-typed dispatch beyond these constants.
type Operation string

const (
	OpBalance    Operation = "balance"
	OpTxDetails  Operation = "tx_details"
	OpBlockTxs   Operation = "block_txs"
	OpAddressTxs Operation = "address_txs"
	OpTokenTxs   Operation = "token_txs"
	OpBlockHead  Operation = "block_head"

	// OpTxReceipt is a sub-operation: families that declare it have their
	// transactions confirmed against the execution receipt during tx and
	// block parsing. It is never routed or probed on its own.
	OpTxReceipt Operation = "tx_receipt"
)

// AllOperations lists every routable operation in a stable order.
var AllOperations = []Operation{
	OpBalance, OpTxDetails, OpBlockTxs, OpAddressTxs, OpTokenTxs, OpBlockHead,
}

// CallParams carries the arguments of one operation invocation into URL
// templates and JSON-RPC param builders.
type CallParams struct {
	Address   string
	Addresses []string
	TxHash    string
	Block     uint64
}

// Kind selects the transport adapter of a provider family.
type Kind int

const (
	KindREST Kind = iota
	KindJSONRPC
)

// RequestTemplate declares how one operation maps onto a provider's wire
// protocol. REST templates use a path with {address}, {addresses}, {tx_hash}
// and {block} placeholders; JSON-RPC templates use a method name plus a
// params builder.
type RequestTemplate struct {
	// REST fields.
	Path   string
	Method string // defaults to GET, POST when a Body builder is set
	Body   func(p CallParams) any

	// JSON-RPC fields.
	RPCMethod string
	RPCParams func(p CallParams) []any
}

// ExpandPath substitutes the call params into a REST path template.
func (t RequestTemplate) ExpandPath(p CallParams) string {
	r := strings.NewReplacer(
		"{address}", p.Address,
		"{addresses}", strings.Join(p.Addresses, ","),
		"{tx_hash}", p.TxHash,
		"{block}", strconv.FormatUint(p.Block, 10),
	)
	return r.Replace(t.Path)
}
