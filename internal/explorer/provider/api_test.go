package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/shopspring/decimal"
)

type passValidator struct{}

func (passValidator) ValidateGeneralResponse(any) bool { return true }
func (passValidator) ValidateTransaction(any) bool     { return true }
func (passValidator) ValidateBlockTxs(any) bool        { return true }
func (passValidator) ValidateBalance(any) bool         { return true }

type stubParser struct{}

func (stubParser) ParseBalance(resp any, addresses []string) ([]domain.Balance, error) {
	data, ok := resp.(map[string]any)
	if !ok {
		return nil, errors.New("unexpected payload")
	}
	amount, err := decimal.NewFromString(data["balance"].(string))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Balance, 0, len(addresses))
	for _, addr := range addresses {
		out = append(out, domain.Balance{Address: addr, Amount: amount})
	}
	return out, nil
}

func (stubParser) ParseTxDetails(any, uint64) ([]domain.TransferTx, error)       { return nil, nil }
func (stubParser) ParseBlockTxs(any, uint64) ([]domain.TransferTx, error)        { return nil, nil }
func (stubParser) ParseAddressTxs(any, string, uint64) ([]domain.TransferTx, error) {
	return nil, nil
}
func (stubParser) ParseBlockHead(resp any) (uint64, error) {
	data, ok := resp.(map[string]any)
	if !ok {
		return 0, errors.New("unexpected payload")
	}
	return uint64(data["height"].(float64)), nil
}

func testFamily() *Family {
	return &Family{
		Name: "mock",
		Kind: KindREST,
		Templates: map[Operation]RequestTemplate{
			OpBalance:   {Path: "/api/v2/address/{address}"},
			OpBlockHead: {Path: "/api/v2/status"},
		},
		Parser:    stubParser{},
		Validator: passValidator{},
		Precision: 8,
	}
}

func testApi(t *testing.T, serverURL string, opts ...ApiOption) *Api {
	t.Helper()
	p := &domain.Provider{
		Name:        "mock",
		Network:     domain.NetworkBTC,
		BaseURL:     serverURL,
		BackoffTime: time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewApi(p, testFamily(), logger, opts...)
}

func TestApi_GetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/address/bc1qaddr" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"balance": "1.50000000"})
	}))
	defer server.Close()

	api := testApi(t, server.URL)
	balance, err := api.GetBalance(context.Background(), "bc1qaddr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.Address != "bc1qaddr" {
		t.Errorf("expected address bc1qaddr, got %s", balance.Address)
	}
	if !balance.Amount.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected amount 1.5, got %s", balance.Amount)
	}
}

func TestApi_KeySubstitution(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		_ = json.NewEncoder(w).Encode(map[string]any{"balance": "0"})
	}))
	defer server.Close()

	api := testApi(t, server.URL)
	api.Provider.APIKeys = []string{"secret-key"}
	if _, err := api.GetBalance(context.Background(), "addr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("expected apikey query param, got %q", gotKey)
	}
}

func TestApi_RateLimitOpensBackoff(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	api := testApi(t, server.URL)
	_, err := api.GetBalance(context.Background(), "addr")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Second call must fail immediately without hitting the server.
	_, err = api.GetBalance(context.Background(), "addr")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited inside backoff window, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single upstream call, got %d", calls)
	}
}

func TestApi_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	api := testApi(t, server.URL)
	_, err := api.GetBalance(context.Background(), "addr")
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *domain.APIError, got %T", err)
	}
	if apiErr.Provider != "mock" || apiErr.Operation != string(OpBalance) {
		t.Errorf("unexpected error context: %+v", apiErr)
	}
}

func TestApi_MalformedBodyIsValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	api := testApi(t, server.URL)
	_, err := api.GetBalance(context.Background(), "addr")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestApi_UnsupportedOperation(t *testing.T) {
	api := testApi(t, "http://unreachable.invalid")
	_, err := api.GetTxDetails(context.Background(), "deadbeef")
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestApi_GetBlockHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"height": float64(815000)})
	}))
	defer server.Close()

	api := testApi(t, server.URL)
	head, err := api.GetBlockHead(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if head != 815000 {
		t.Errorf("expected head 815000, got %d", head)
	}
}

func TestPacer_SpacesCalls(t *testing.T) {
	p := newPacer(30*time.Millisecond, 0)
	ctx := context.Background()

	start := time.Now()
	if err := p.wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := p.wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected at least 30ms between calls, got %v", elapsed)
	}
}

func TestPacer_WaitHonorsContext(t *testing.T) {
	p := newPacer(time.Hour, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := p.wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := p.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestKeyPickers(t *testing.T) {
	keys := []string{"a", "b", "c"}

	rr := &RoundRobinPicker{}
	got := []string{rr.Pick(keys), rr.Pick(keys), rr.Pick(keys), rr.Pick(keys)}
	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("round robin pick %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if (RandomPicker{}).Pick(nil) != "" {
		t.Error("expected empty pick for no keys")
	}
	for i := 0; i < 20; i++ {
		k := (RandomPicker{}).Pick(keys)
		if k != "a" && k != "b" && k != "c" {
			t.Fatalf("random pick returned unknown key %q", k)
		}
	}
}
