package evm

import (
	"strings"

	"github.com/openbitx/explorer/internal/explorer/provider"
)

// Validator checks raw eth_* payloads. Account-based rules apply: zero-value
// and self-transfers are rejected, and only plain value transfers (empty
// input data) count as main-currency transfers. Contract calls move value in
// ways the tx object alone cannot prove, so they are excluded here.
type Validator struct{}

func (Validator) ValidateGeneralResponse(resp any) bool {
	return resp != nil
}

func (v Validator) ValidateTransaction(tx any) bool {
	m, ok := provider.AsMap(tx)
	if !ok {
		return false
	}
	if provider.Str(m, "hash") == "" {
		return false
	}
	// Pending transactions carry a null blockNumber.
	if provider.Str(m, "blockNumber") == "" {
		return false
	}
	from := provider.Str(m, "from")
	to := provider.Str(m, "to")
	if from == "" || to == "" {
		return false
	}
	if strings.EqualFold(from, to) {
		return false
	}
	if input := provider.Str(m, "input"); input != "" && input != "0x" {
		return false
	}
	value, err := parseHexBig(provider.Str(m, "value"))
	if err != nil || value.Sign() <= 0 {
		return false
	}
	return true
}

func (v Validator) ValidateBlockTxs(resp any) bool {
	m, ok := provider.AsMap(resp)
	if !ok {
		return false
	}
	if provider.Str(m, "number") == "" {
		return false
	}
	_, ok = m["transactions"].([]any)
	return ok
}

// ValidateReceipt requires a successful execution status. The tx object
// alone cannot prove the value moved: a transfer to a contract with a
// reverting receive function is mined with status 0x0 and no value moved.
func (Validator) ValidateReceipt(receipt any) bool {
	m, ok := provider.AsMap(receipt)
	if !ok {
		return false
	}
	return provider.Str(m, "status") == "0x1"
}

// ValidateBalance accepts the bare hex quantity eth_getBalance returns.
func (Validator) ValidateBalance(resp any) bool {
	s, ok := resp.(string)
	if !ok {
		return false
	}
	return strings.HasPrefix(s, "0x")
}
