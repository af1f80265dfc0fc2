package bnbdex

import (
	"github.com/openbitx/explorer/internal/explorer/provider"
)

// Validator checks BNB DEX payloads. BNB is account based, so unlike the
// UTXO validators it rejects self-transfers outright, and it requires the
// exact success markers the DEX API uses: type TRANSFER, code 0 and the
// literal "Msg 0: " log line.
type Validator struct{}

const successLog = "Msg 0: "

func (Validator) ValidateGeneralResponse(resp any) bool {
	if resp == nil {
		return false
	}
	if m, ok := provider.AsMap(resp); ok {
		if _, hasErr := m["error"]; hasErr {
			return false
		}
		if msg := provider.Str(m, "message"); msg != "" && provider.Uint(m, "code") != 0 {
			return false
		}
	}
	return true
}

func (v Validator) ValidateTransaction(tx any) bool {
	m, ok := provider.AsMap(tx)
	if !ok {
		return false
	}
	if provider.Str(m, "type") != "TRANSFER" {
		return false
	}
	if code, hasCode := provider.Int(m, "code"); !hasCode || code != 0 {
		return false
	}
	if provider.Str(m, "log") != successLog {
		return false
	}
	if asset := provider.Str(m, "asset"); asset != "" && asset != "BNB" {
		return false
	}
	from := provider.Str(m, "fromAddr")
	to := provider.Str(m, "toAddr")
	if from == "" || to == "" || from == to {
		return false
	}
	amount, hasAmount := provider.Int(m, "amount")
	if !hasAmount || amount <= 0 {
		return false
	}
	return true
}

func (v Validator) ValidateBlockTxs(resp any) bool {
	m, ok := provider.AsMap(resp)
	if !ok {
		return false
	}
	return provider.Slice(m, "tx") != nil
}

func (v Validator) ValidateBalance(resp any) bool {
	m, ok := provider.AsMap(resp)
	if !ok {
		return false
	}
	if !v.ValidateGeneralResponse(resp) {
		return false
	}
	return provider.Slice(m, "balances") != nil
}
