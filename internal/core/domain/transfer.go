package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferTx is the canonical representation of one on-chain value transfer,
// produced by a provider parser from a validated raw response. A single raw
// response (e.g. a block) may yield many TransferTx. Treat as immutable once
// constructed.
type TransferTx struct {
	Symbol        string
	Currency      Currency
	TxHash        string
	Success       bool
	BlockHeight   uint64
	Date          time.Time
	FromAddress   string
	ToAddress     string
	Value         decimal.Decimal
	TxFee         decimal.Decimal
	Memo          string
	Token         string
	Confirmations uint64
}

// IsSelfTransfer reports whether the transfer moves value back to its sender.
// Several chains reject these outright; see the per-family validators.
func (t TransferTx) IsSelfTransfer() bool {
	return t.FromAddress != "" && t.FromAddress == t.ToAddress
}
