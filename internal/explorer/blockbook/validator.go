package blockbook

import (
	"github.com/openbitx/explorer/internal/explorer/provider"
)

// Validator checks Blockbook payload shapes. UTXO chains allow an address to
// appear on both sides of a transaction (change outputs), so unlike the
// account-based validators this one does not reject self-transfers. That rule
// is intentionally chain-specific.
type Validator struct{}

func (Validator) ValidateGeneralResponse(resp any) bool {
	if resp == nil {
		return false
	}
	if m, ok := provider.AsMap(resp); ok {
		if provider.Str(m, "error") != "" {
			return false
		}
	}
	return true
}

// ValidateTransaction requires the fields every confirmed Blockbook tx
// carries. Unconfirmed mempool transactions have no blockHeight and are
// rejected here.
func (Validator) ValidateTransaction(tx any) bool {
	m, ok := provider.AsMap(tx)
	if !ok {
		return false
	}
	if provider.Str(m, "txid") == "" {
		return false
	}
	if provider.Uint(m, "blockHeight") == 0 {
		return false
	}
	if provider.Uint(m, "confirmations") == 0 {
		return false
	}
	if provider.Uint(m, "blockTime") == 0 {
		return false
	}
	if len(provider.Slice(m, "vin")) == 0 || len(provider.Slice(m, "vout")) == 0 {
		return false
	}
	// Account-based chains served by Blockbook report an execution status.
	if eth := provider.Map(m, "ethereumSpecific"); eth != nil {
		if status, ok := provider.Int(eth, "status"); !ok || status != 1 {
			return false
		}
	}
	return true
}

func (v Validator) ValidateBlockTxs(resp any) bool {
	m, ok := provider.AsMap(resp)
	if !ok {
		return false
	}
	if provider.Str(m, "error") != "" {
		return false
	}
	return len(provider.Slice(m, "txs")) > 0
}

func (v Validator) ValidateBalance(resp any) bool {
	if !v.ValidateGeneralResponse(resp) {
		return false
	}
	switch resp.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// ValidateBlockHead requires the blockbook and backend sections of the status
// payload.
func (Validator) ValidateBlockHead(resp any) bool {
	m, ok := provider.AsMap(resp)
	if !ok {
		return false
	}
	bb := provider.Map(m, "blockbook")
	if bb == nil || provider.Map(m, "backend") == nil {
		return false
	}
	return provider.Uint(bb, "bestHeight") > 0
}
