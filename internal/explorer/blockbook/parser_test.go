package blockbook

import (
	"testing"

	"github.com/shopspring/decimal"
)

func newTestParser() *Parser {
	return &Parser{symbol: "BTC", precision: 8}
}

// One input of 1.5 BTC paying 1.0 to a recipient with 0.4999 change back to
// the sender and a 0.0001 fee.
func utxoTx() map[string]any {
	return map[string]any{
		"txid":          "tx1",
		"blockHeight":   float64(815000),
		"blockTime":     float64(1756720000),
		"confirmations": float64(6),
		"fees":          "10000",
		"vin": []any{
			map[string]any{
				"isAddress": true,
				"addresses": []any{"addr-sender"},
				"value":     "150000000",
			},
		},
		"vout": []any{
			map[string]any{
				"isAddress": true,
				"addresses": []any{"addr-recipient"},
				"value":     "100000000",
			},
			map[string]any{
				"isAddress": true,
				"addresses": []any{"addr-sender"},
				"value":     "49990000",
			},
		},
	}
}

func TestParser_ParseTxDetails_UTXOChangeNetting(t *testing.T) {
	p := newTestParser()
	txs, err := p.ParseTxDetails(utxoTx(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected sender and recipient legs, got %d", len(txs))
	}

	sender := txs[0]
	if sender.FromAddress != "addr-sender" {
		t.Errorf("expected sender leg first, got %+v", sender)
	}
	// 1.5 in minus 0.4999 change.
	if !sender.Value.Equal(decimal.RequireFromString("1.0001")) {
		t.Errorf("expected sender spend 1.0001, got %s", sender.Value)
	}

	recipient := txs[1]
	if recipient.ToAddress != "addr-recipient" {
		t.Errorf("expected recipient leg, got %+v", recipient)
	}
	if !recipient.Value.Equal(decimal.RequireFromString("1")) {
		t.Errorf("expected recipient amount 1, got %s", recipient.Value)
	}
	if !recipient.TxFee.Equal(decimal.RequireFromString("0.0001")) {
		t.Errorf("expected fee 0.0001, got %s", recipient.TxFee)
	}
	if recipient.Confirmations != 6 || recipient.BlockHeight != 815000 {
		t.Errorf("unexpected confirmation data: %+v", recipient)
	}
}

func TestValidator_RejectsUnconfirmed(t *testing.T) {
	v := Validator{}
	tx := utxoTx()
	if !v.ValidateTransaction(tx) {
		t.Fatal("expected confirmed tx to pass")
	}
	tx["confirmations"] = float64(0)
	if v.ValidateTransaction(tx) {
		t.Error("expected mempool tx to be rejected")
	}
	if v.ValidateTransaction([]any{"garbage"}) {
		t.Error("expected malformed payload to be rejected, not panic")
	}
}

func TestValidator_AccountStatusCheck(t *testing.T) {
	v := Validator{}
	tx := accountTx()
	if !v.ValidateTransaction(tx) {
		t.Fatal("expected successful account tx to pass")
	}
	tx["ethereumSpecific"] = map[string]any{"status": float64(0)}
	if v.ValidateTransaction(tx) {
		t.Error("expected reverted tx to be rejected")
	}
}

// Account-based shape: no values on inputs, amount on the tx itself.
func accountTx() map[string]any {
	return map[string]any{
		"txid":          "0xdead",
		"blockHeight":   float64(19000000),
		"blockTime":     float64(1756720000),
		"confirmations": float64(30),
		"value":         "2000000000000000000",
		"fees":          "21000000000000",
		"ethereumSpecific": map[string]any{
			"status": float64(1),
		},
		"vin": []any{
			map[string]any{"isAddress": true, "addresses": []any{"0xfrom"}},
		},
		"vout": []any{
			map[string]any{"isAddress": true, "addresses": []any{"0xto"}},
		},
	}
}

func TestParser_ParseTxDetails_AccountBased(t *testing.T) {
	p := &Parser{symbol: "ETH", precision: 18}
	txs, err := p.ParseTxDetails(accountTx(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected one transfer, got %d", len(txs))
	}
	tx := txs[0]
	if tx.FromAddress != "0xfrom" || tx.ToAddress != "0xto" {
		t.Errorf("unexpected addresses: %+v", tx)
	}
	if !tx.Value.Equal(decimal.RequireFromString("2")) {
		t.Errorf("expected 2, got %s", tx.Value)
	}
}

func TestParser_ParseTxDetails_AccountSelfTransferYieldsNothing(t *testing.T) {
	p := &Parser{symbol: "ETH", precision: 18}
	tx := accountTx()
	tx["vout"] = []any{
		map[string]any{"isAddress": true, "addresses": []any{"0xfrom"}},
	}
	txs, err := p.ParseTxDetails(tx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected no transfers for self transfer, got %d", len(txs))
	}
}

func TestParser_ParseBalance_Batch(t *testing.T) {
	p := newTestParser()
	payload := []any{
		map[string]any{"address": "addr-b", "balance": "250000000", "unconfirmedBalance": "0"},
		map[string]any{"address": "addr-a", "balance": "100000000", "unconfirmedBalance": "5000000"},
	}
	balances, err := p.ParseBalance(payload, []string{"addr-a", "addr-b", "addr-missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("expected three balances, got %d", len(balances))
	}
	// Input order preserved regardless of payload order.
	if balances[0].Address != "addr-a" || !balances[0].Amount.Equal(decimal.RequireFromString("1")) {
		t.Errorf("unexpected first balance: %+v", balances[0])
	}
	if !balances[0].UnconfirmedAmount.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("unexpected unconfirmed amount: %s", balances[0].UnconfirmedAmount)
	}
	if balances[1].Address != "addr-b" || !balances[1].Amount.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("unexpected second balance: %+v", balances[1])
	}
	if !balances[2].Amount.IsZero() {
		t.Errorf("expected zero balance for missing address, got %s", balances[2].Amount)
	}
}

func TestParser_ParseBlockHead(t *testing.T) {
	p := newTestParser()
	head, err := p.ParseBlockHead(map[string]any{
		"blockbook": map[string]any{"bestHeight": float64(815123), "inSync": true},
		"backend":   map[string]any{"blocks": float64(815123)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if head != 815123 {
		t.Errorf("expected 815123, got %d", head)
	}

	if _, err := p.ParseBlockHead(map[string]any{"blockbook": map[string]any{}}); err == nil {
		t.Error("expected error for incomplete status payload")
	}
}

func TestParser_ParseBlockTxs_SkipsBadTxs(t *testing.T) {
	p := newTestParser()
	bad := utxoTx()
	delete(bad, "blockTime")
	block := map[string]any{
		"hash":   "blockhash",
		"height": float64(815000),
		"txs":    []any{utxoTx(), bad},
	}
	txs, err := p.ParseBlockTxs(block, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected two legs from the valid tx only, got %d", len(txs))
	}
}

func TestParser_ParseTokenTxs(t *testing.T) {
	p := &Parser{symbol: "ETH", precision: 18}

	tokenTx := accountTx()
	tokenTx["ethereumSpecific"] = map[string]any{
		"status": float64(1),
		"data":   "0xa9059cbb000000000000000000000000",
	}
	tokenTx["tokenTransfers"] = []any{
		map[string]any{
			"contract": "0xdac17f958d2ee523a2206206994597c13d831ec7",
			"symbol":   "USDT",
			"decimals": float64(6),
			"from":     "0xfrom",
			"to":       "0xme",
			"value":    "2500000",
		},
		// Leg between other parties, skipped.
		map[string]any{
			"contract": "0xdac17f958d2ee523a2206206994597c13d831ec7",
			"symbol":   "USDT",
			"decimals": float64(6),
			"from":     "0xother",
			"to":       "0xelse",
			"value":    "1000000",
		},
	}

	reverted := accountTx()
	reverted["txid"] = "0xreverted"
	reverted["ethereumSpecific"] = map[string]any{"status": float64(0)}
	reverted["tokenTransfers"] = []any{
		map[string]any{
			"contract": "0xdac17f958d2ee523a2206206994597c13d831ec7",
			"decimals": float64(6), "from": "0xfrom", "to": "0xme", "value": "9",
		},
	}

	payload := map[string]any{
		"transactions": []any{tokenTx, reverted, accountTx()},
	}
	txs, err := p.ParseTokenTxs(payload, "0xme", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected one token transfer, got %d", len(txs))
	}
	tx := txs[0]
	if tx.Token != "0xdac17f958d2ee523a2206206994597c13d831ec7" || tx.Symbol != "USDT" {
		t.Errorf("unexpected token transfer: %+v", tx)
	}
	if !tx.Value.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected value 2.5, got %s", tx.Value)
	}
}
