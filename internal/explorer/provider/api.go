package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/metrics"
)

// errBackingOff is returned by the pacer while a 429 penalty window is open.
var errBackingOff = errors.New("provider in backoff window")

const defaultRequestTimeout = 30 * time.Second

// Api executes typed operations against one provider endpoint. It owns the
// rate pacing, key rotation and health monitoring of that provider, and
// translates every transport or upstream failure into the shared error
// taxonomy before returning.
type Api struct {
	Provider *domain.Provider
	Family   *Family

	client  *http.Client
	pacer   *pacer
	monitor *Monitor
	keys    KeyPicker
	logger  *slog.Logger
	testnet bool
}

// ApiOption mutates an Api at construction time.
type ApiOption func(*Api)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) ApiOption {
	return func(a *Api) { a.client = c }
}

// WithTestnet points the Api at the provider's testnet URL.
func WithTestnet() ApiOption {
	return func(a *Api) { a.testnet = true }
}

// WithKeyPicker overrides the key rotation strategy.
func WithKeyPicker(p KeyPicker) ApiOption {
	return func(a *Api) { a.keys = p }
}

// NewApi builds an Api for one provider entry. The HTTP client honors the
// provider's proxy flag via the standard proxy environment variables.
func NewApi(p *domain.Provider, f *Family, logger *slog.Logger, opts ...ApiOption) *Api {
	transport := &http.Transport{}
	if p.UseProxy {
		transport.Proxy = http.ProxyFromEnvironment
	}
	a := &Api{
		Provider: p,
		Family:   f,
		client: &http.Client{
			Timeout:   defaultRequestTimeout,
			Transport: transport,
		},
		pacer:   newPacer(p.RateLimit, p.BackoffTime),
		monitor: NewMonitor(),
		keys:    NewKeyPicker(""),
		logger:  logger.With("provider", p.Name, "network", string(p.Network)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Monitor exposes the provider health monitor.
func (a *Api) Monitor() *Monitor { return a.monitor }

func (a *Api) baseURL() string {
	if a.testnet && a.Provider.TestnetURL != "" {
		return a.Provider.TestnetURL
	}
	return a.Provider.BaseURL
}

func (a *Api) fail(op Operation, kind error, err error) error {
	metrics.ProviderErrorsTotal.WithLabelValues(
		string(a.Provider.Network), a.Provider.Name, string(op), domain.ErrorClass(kind),
	).Inc()
	return domain.NewAPIError(a.Provider.Network, a.Provider.Name, string(op), kind, err)
}

// Execute runs one operation and returns the decoded JSON payload. The
// payload has passed the family's general validation; callers hand it to the
// family parser. Every error carries one of the taxonomy sentinels.
func (a *Api) Execute(ctx context.Context, op Operation, params CallParams) (any, error) {
	tmpl, ok := a.Family.Templates[op]
	if !ok {
		return nil, a.fail(op, domain.ErrConfiguration,
			fmt.Errorf("family %s has no template for %s", a.Family.Name, op))
	}

	if err := a.pacer.wait(ctx); err != nil {
		if errors.Is(err, errBackingOff) {
			return nil, a.fail(op, domain.ErrRateLimited, err)
		}
		return nil, a.fail(op, domain.ErrTransient, err)
	}

	reqID := uuid.NewString()
	start := time.Now()
	metrics.ProviderCallsTotal.WithLabelValues(
		string(a.Provider.Network), a.Provider.Name, string(op),
	).Inc()

	var (
		body any
		err  error
	)
	switch a.Family.Kind {
	case KindJSONRPC:
		body, err = a.doJSONRPC(ctx, op, tmpl, params, reqID)
	default:
		body, err = a.doREST(ctx, op, tmpl, params, reqID)
	}
	elapsed := time.Since(start)
	metrics.ProviderCallDuration.WithLabelValues(
		string(a.Provider.Network), a.Provider.Name, string(op),
	).Observe(elapsed.Seconds())

	if err != nil {
		a.logger.Warn("provider call failed",
			"operation", string(op), "request_id", reqID,
			"elapsed", elapsed, "error", err)
		return nil, err
	}

	a.monitor.RecordSuccess(elapsed)
	metrics.ProviderStatus.WithLabelValues(
		string(a.Provider.Network), a.Provider.Name,
	).Set(float64(a.monitor.Status()))

	if !a.Family.Validator.ValidateGeneralResponse(body) {
		return nil, a.fail(op, domain.ErrValidation,
			fmt.Errorf("response rejected by %s validator", a.Family.Name))
	}
	return body, nil
}

func (a *Api) doREST(ctx context.Context, op Operation, tmpl RequestTemplate, params CallParams, reqID string) (any, error) {
	url := a.baseURL() + tmpl.ExpandPath(params)
	if key := a.keys.Pick(a.Provider.APIKeys); key != "" {
		if strings.Contains(url, "{api_key}") {
			url = strings.ReplaceAll(url, "{api_key}", key)
		} else if strings.Contains(url, "?") {
			url += "&apikey=" + key
		} else {
			url += "?apikey=" + key
		}
	}

	method := tmpl.Method
	if method == "" {
		method = http.MethodGet
	}
	var reqBody io.Reader
	if tmpl.Body != nil {
		raw, err := json.Marshal(tmpl.Body(params))
		if err != nil {
			return nil, a.fail(op, domain.ErrValidation, err)
		}
		method = http.MethodPost
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, a.fail(op, domain.ErrConfiguration, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, a.fail(op, domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if err := a.checkStatus(op, resp.StatusCode); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, err
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, a.fail(op, domain.ErrValidation,
			fmt.Errorf("decode response: %w", err))
	}
	return body, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *Api) doJSONRPC(ctx context.Context, op Operation, tmpl RequestTemplate, params CallParams, reqID string) (any, error) {
	url := a.baseURL()
	if key := a.keys.Pick(a.Provider.APIKeys); key != "" {
		url = strings.ReplaceAll(url, "{api_key}", key)
	}

	var rpcParams []any
	if tmpl.RPCParams != nil {
		rpcParams = tmpl.RPCParams(params)
	}
	raw, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  tmpl.RPCMethod,
		Params:  rpcParams,
	})
	if err != nil {
		return nil, a.fail(op, domain.ErrValidation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, a.fail(op, domain.ErrConfiguration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, a.fail(op, domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if err := a.checkStatus(op, resp.StatusCode); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, err
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, a.fail(op, domain.ErrValidation,
			fmt.Errorf("decode response: %w", err))
	}
	if envelope.Error != nil {
		if IsThrottleMessage(envelope.Error.Message) {
			a.monitor.RecordThrottle(http.StatusTooManyRequests)
			a.pacer.penalize()
			return nil, a.fail(op, domain.ErrRateLimited,
				fmt.Errorf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message))
		}
		return nil, a.fail(op, domain.ErrTransient,
			fmt.Errorf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message))
	}

	var body any
	if err := json.Unmarshal(envelope.Result, &body); err != nil {
		return nil, a.fail(op, domain.ErrValidation,
			fmt.Errorf("decode result: %w", err))
	}
	return body, nil
}

// checkStatus maps HTTP status codes onto the error taxonomy. 429 opens the
// backoff window so subsequent calls fail over instead of retrying here.
func (a *Api) checkStatus(op Operation, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		a.monitor.RecordThrottle(code)
		a.pacer.penalize()
		return a.fail(op, domain.ErrRateLimited, fmt.Errorf("http status %d", code))
	case code == http.StatusForbidden:
		a.monitor.RecordThrottle(code)
		return a.fail(op, domain.ErrTransient, fmt.Errorf("http status %d", code))
	case code >= 500:
		return a.fail(op, domain.ErrTransient, fmt.Errorf("http status %d", code))
	default:
		return a.fail(op, domain.ErrValidation, fmt.Errorf("http status %d", code))
	}
}

// blockHead returns the current head when the family needs it for
// confirmations, zero otherwise.
func (a *Api) blockHead(ctx context.Context) (uint64, error) {
	if !a.Family.NeedsBlockHead {
		return 0, nil
	}
	return a.GetBlockHead(ctx)
}

// GetBalance fetches the balance of one address.
func (a *Api) GetBalance(ctx context.Context, address string) (domain.Balance, error) {
	balances, err := a.GetBalances(ctx, []string{address})
	if err != nil {
		return domain.Balance{}, err
	}
	if len(balances) == 0 {
		return domain.Balance{}, a.fail(OpBalance, domain.ErrValidation,
			fmt.Errorf("no balance returned for %s", address))
	}
	return balances[0], nil
}

// GetBalances fetches balances for the given addresses in one call. Batch
// chunking across providers is the orchestrator's job; this method sends the
// addresses it is given.
func (a *Api) GetBalances(ctx context.Context, addresses []string) ([]domain.Balance, error) {
	params := CallParams{Addresses: addresses}
	if len(addresses) == 1 {
		params.Address = addresses[0]
	}
	body, err := a.Execute(ctx, OpBalance, params)
	if err != nil {
		return nil, err
	}
	if !a.Family.Validator.ValidateBalance(body) {
		return nil, a.fail(OpBalance, domain.ErrValidation,
			errors.New("balance payload rejected"))
	}
	balances, err := a.Family.Parser.ParseBalance(body, addresses)
	if err != nil {
		return nil, a.fail(OpBalance, domain.ErrValidation, err)
	}
	return balances, nil
}

// GetTxDetails fetches and normalizes the transfers of one transaction.
func (a *Api) GetTxDetails(ctx context.Context, txHash string) ([]domain.TransferTx, error) {
	head, err := a.blockHead(ctx)
	if err != nil {
		return nil, err
	}
	body, err := a.Execute(ctx, OpTxDetails, CallParams{TxHash: txHash})
	if err != nil {
		return nil, err
	}
	txs, err := a.Family.Parser.ParseTxDetails(body, head)
	if err != nil {
		return nil, a.fail(OpTxDetails, domain.ErrValidation, err)
	}
	if len(txs) > 0 && a.Family.Supports(OpTxReceipt) {
		ok, err := a.receiptOK(ctx, txHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Reverted on-chain: the transfer never happened.
			return nil, nil
		}
	}
	return txs, nil
}

// receiptOK fetches the execution receipt of one transaction and checks it
// with the family's receipt rules. Families without an OpTxReceipt template
// never reach this path.
func (a *Api) receiptOK(ctx context.Context, txHash string) (bool, error) {
	rv, ok := a.Family.Validator.(ReceiptValidator)
	if !ok {
		return false, a.fail(OpTxReceipt, domain.ErrConfiguration,
			fmt.Errorf("family %s declares a receipt template but no receipt rules", a.Family.Name))
	}
	body, err := a.Execute(ctx, OpTxReceipt, CallParams{TxHash: txHash})
	if err != nil {
		return false, err
	}
	return rv.ValidateReceipt(body), nil
}

// GetBlockTxs fetches every valid transfer in one block.
func (a *Api) GetBlockTxs(ctx context.Context, block uint64) ([]domain.TransferTx, error) {
	head, err := a.blockHead(ctx)
	if err != nil {
		return nil, err
	}
	body, err := a.Execute(ctx, OpBlockTxs, CallParams{Block: block})
	if err != nil {
		return nil, err
	}
	if !a.Family.Validator.ValidateBlockTxs(body) {
		metrics.MissedBlockTxs.WithLabelValues(string(a.Provider.Network), a.Provider.Name).Inc()
		return nil, a.fail(OpBlockTxs, domain.ErrValidation,
			errors.New("block payload rejected"))
	}
	txs, err := a.Family.Parser.ParseBlockTxs(body, head)
	if err != nil {
		return nil, a.fail(OpBlockTxs, domain.ErrValidation, err)
	}
	if !a.Family.Supports(OpTxReceipt) {
		return txs, nil
	}
	confirmed := txs[:0]
	for _, tx := range txs {
		ok, err := a.receiptOK(ctx, tx.TxHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			metrics.ParseFailures.WithLabelValues(
				string(a.Provider.Network), a.Provider.Name,
			).Inc()
			continue
		}
		confirmed = append(confirmed, tx)
	}
	return confirmed, nil
}

// GetAddressTxs fetches the main-currency transfer history of one address.
func (a *Api) GetAddressTxs(ctx context.Context, address string) ([]domain.TransferTx, error) {
	head, err := a.blockHead(ctx)
	if err != nil {
		return nil, err
	}
	body, err := a.Execute(ctx, OpAddressTxs, CallParams{Address: address})
	if err != nil {
		return nil, err
	}
	txs, err := a.Family.Parser.ParseAddressTxs(body, address, head)
	if err != nil {
		return nil, a.fail(OpAddressTxs, domain.ErrValidation, err)
	}
	return txs, nil
}

// GetTokenTxs fetches the token transfer history of one address. Families
// without token support report a configuration error.
func (a *Api) GetTokenTxs(ctx context.Context, address string) ([]domain.TransferTx, error) {
	tp, ok := a.Family.Parser.(TokenParser)
	if !ok {
		return nil, a.fail(OpTokenTxs, domain.ErrConfiguration,
			fmt.Errorf("family %s does not parse token transfers", a.Family.Name))
	}
	head, err := a.blockHead(ctx)
	if err != nil {
		return nil, err
	}
	body, err := a.Execute(ctx, OpTokenTxs, CallParams{Address: address})
	if err != nil {
		return nil, err
	}
	txs, err := tp.ParseTokenTxs(body, address, head)
	if err != nil {
		return nil, a.fail(OpTokenTxs, domain.ErrValidation, err)
	}
	return txs, nil
}

// GetBlockHead fetches the latest block height known to the provider.
func (a *Api) GetBlockHead(ctx context.Context) (uint64, error) {
	body, err := a.Execute(ctx, OpBlockHead, CallParams{})
	if err != nil {
		return 0, err
	}
	head, err := a.Family.Parser.ParseBlockHead(body)
	if err != nil {
		return 0, a.fail(OpBlockHead, domain.ErrValidation, err)
	}
	return head, nil
}
