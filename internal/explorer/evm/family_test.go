package evm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/explorer/provider"
	"github.com/shopspring/decimal"
)

// rpcNode scripts a JSON-RPC node. Receipts are looked up by tx hash so a
// block can mix successful and reverted transactions.
type rpcNode struct {
	head     string
	txs      map[string]map[string]any
	receipts map[string]map[string]any
	block    map[string]any

	receiptCalls int
}

func (n *rpcNode) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var result any
		switch req.Method {
		case "eth_blockNumber":
			result = n.head
		case "eth_getTransactionByHash":
			result = n.txs[req.Params[0].(string)]
		case "eth_getTransactionReceipt":
			n.receiptCalls++
			result = n.receipts[req.Params[0].(string)]
		case "eth_getBlockByNumber":
			result = n.block
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	}
}

func newFamilyApi(t *testing.T, serverURL string) *provider.Api {
	t.Helper()
	p := &domain.Provider{
		Name:        "node",
		Network:     domain.NetworkETH,
		BaseURL:     serverURL,
		BackoffTime: time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return provider.NewApi(p, NewFamily("ETH", 18), logger)
}

func plainTx(hash, from, to string) map[string]any {
	return map[string]any{
		"hash":        hash,
		"blockNumber": "0x10d4f",
		"from":        from,
		"to":          to,
		"value":       "0xde0b6b3a7640000",
		"input":       "0x",
	}
}

func receipt(status string) map[string]any {
	return map[string]any{"status": status}
}

func TestGetTxDetails_RevertedTxYieldsNothing(t *testing.T) {
	node := &rpcNode{
		head: "0x10d5e",
		txs: map[string]map[string]any{
			"0xdead": plainTx("0xdead", "0xaaa1", "0xbbb2"),
		},
		receipts: map[string]map[string]any{
			"0xdead": receipt("0x0"),
		},
	}
	server := httptest.NewServer(node.handler())
	defer server.Close()

	api := newFamilyApi(t, server.URL)
	txs, err := api.GetTxDetails(context.Background(), "0xdead")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected no transfers for a reverted tx, got %+v", txs)
	}
	if node.receiptCalls != 1 {
		t.Fatalf("expected 1 receipt lookup, got %d", node.receiptCalls)
	}
}

func TestGetTxDetails_SuccessfulReceipt(t *testing.T) {
	node := &rpcNode{
		head: "0x10d5e",
		txs: map[string]map[string]any{
			"0xfeed": plainTx("0xfeed", "0xaaa1", "0xbbb2"),
		},
		receipts: map[string]map[string]any{
			"0xfeed": receipt("0x1"),
		},
	}
	server := httptest.NewServer(node.handler())
	defer server.Close()

	api := newFamilyApi(t, server.URL)
	txs, err := api.GetTxDetails(context.Background(), "0xfeed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(txs))
	}
	if !txs[0].Success {
		t.Error("expected transfer marked successful")
	}
	if !txs[0].Value.Equal(decimal.RequireFromString("1")) {
		t.Errorf("value = %s, want 1", txs[0].Value)
	}
}

func TestGetBlockTxs_SkipsRevertedTxs(t *testing.T) {
	node := &rpcNode{
		head: "0x10d5e",
		block: map[string]any{
			"number":    "0x10d4f",
			"timestamp": "0x68b6d000",
			"transactions": []any{
				plainTx("0xok", "0xaaa1", "0xbbb2"),
				plainTx("0xrevert", "0xccc3", "0xddd4"),
			},
		},
		receipts: map[string]map[string]any{
			"0xok":     receipt("0x1"),
			"0xrevert": receipt("0x0"),
		},
	}
	server := httptest.NewServer(node.handler())
	defer server.Close()

	api := newFamilyApi(t, server.URL)
	txs, err := api.GetBlockTxs(context.Background(), 0x10d4f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 confirmed transfer, got %d", len(txs))
	}
	if txs[0].TxHash != "0xok" {
		t.Errorf("kept tx = %s, want 0xok", txs[0].TxHash)
	}
	if node.receiptCalls != 2 {
		t.Errorf("expected a receipt lookup per block tx, got %d", node.receiptCalls)
	}
}

func TestValidateReceipt(t *testing.T) {
	v := Validator{}
	if !v.ValidateReceipt(receipt("0x1")) {
		t.Error("expected successful receipt to pass")
	}
	if v.ValidateReceipt(receipt("0x0")) {
		t.Error("expected reverted receipt to fail")
	}
	if v.ValidateReceipt(nil) {
		t.Error("expected missing receipt to fail")
	}
}
