package provider

import (
	"github.com/openbitx/explorer/internal/core/domain"
)

// Validator answers yes/no questions about raw provider payloads. Validators
// never return errors and never mutate their input: a malformed payload is
// simply invalid. Each chain family keeps its own rules, they are not
// interchangeable across families.
type Validator interface {
	// ValidateGeneralResponse rejects payloads that are structurally unusable
	// regardless of operation (empty body, upstream error envelope).
	ValidateGeneralResponse(resp any) bool

	// ValidateTransaction checks a single raw transaction payload against the
	// family's transfer rules (type, status, amount, self-transfer policy).
	ValidateTransaction(tx any) bool

	// ValidateBlockTxs checks a raw block payload before its transactions are
	// parsed.
	ValidateBlockTxs(resp any) bool

	// ValidateBalance checks a raw balance payload.
	ValidateBalance(resp any) bool
}

// Parser turns validated raw payloads into canonical domain records. Parsers
// assume validation already ran for the envelope, but still skip individual
// transactions that fail per-tx validation inside a batch rather than failing
// the whole call.
type Parser interface {
	// ParseBalance extracts balances for the requested addresses. The result
	// preserves the order of the addresses argument.
	ParseBalance(resp any, addresses []string) ([]domain.Balance, error)

	// ParseTxDetails extracts the transfers of a single transaction.
	// blockHead, when nonzero, is used to compute confirmations for
	// providers that do not report them directly.
	ParseTxDetails(resp any, blockHead uint64) ([]domain.TransferTx, error)

	// ParseBlockTxs extracts every valid transfer from a block payload,
	// skipping transactions that fail validation.
	ParseBlockTxs(resp any, blockHead uint64) ([]domain.TransferTx, error)

	// ParseAddressTxs extracts the transfer history of one address.
	ParseAddressTxs(resp any, address string, blockHead uint64) ([]domain.TransferTx, error)

	// ParseBlockHead extracts the latest block height.
	ParseBlockHead(resp any) (uint64, error)
}

// TokenParser is implemented by families that support token transfer
// histories in addition to main-currency ones.
type TokenParser interface {
	ParseTokenTxs(resp any, address string, blockHead uint64) ([]domain.TransferTx, error)
}

// ReceiptValidator is implemented by families whose transaction objects do
// not prove execution success on their own. When a family declares an
// OpTxReceipt template, every transfer is confirmed against its receipt and
// reverted transactions are dropped.
type ReceiptValidator interface {
	// ValidateReceipt reports whether the raw receipt shows a successful
	// execution.
	ValidateReceipt(receipt any) bool
}

// Family bundles everything that distinguishes one provider family: its
// transport kind, request templates, codec pair, and chain parameters. Adding
// a provider means adding a Family value plus config, not a new type.
type Family struct {
	Name      string
	Kind      Kind
	Templates map[Operation]RequestTemplate
	Parser    Parser
	Validator Validator

	Precision int32

	// SupportsBalanceBatch providers take several addresses in one balance
	// call, chunked to MaxBatchAddresses. Others are called per address.
	SupportsBalanceBatch bool
	MaxBatchAddresses    int

	// NeedsBlockHead families require the current head to compute
	// confirmations, so tx and block operations fetch it first.
	NeedsBlockHead bool
}

// Supports reports whether the family declares a template for op.
func (f *Family) Supports(op Operation) bool {
	_, ok := f.Templates[op]
	return ok
}
