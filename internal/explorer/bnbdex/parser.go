package bnbdex

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/explorer/provider"
	"github.com/openbitx/explorer/internal/metrics"
	"github.com/shopspring/decimal"
)

const symbol = "BNB"

// Parser normalizes BNB DEX payloads. The tx-details endpoint reports
// amounts in 1e-8 base units while the transaction-history endpoint already
// returns decimal strings, so the two paths convert differently.
type Parser struct {
	validator Validator
}

func (p *Parser) ParseBlockHead(resp any) (uint64, error) {
	m, ok := provider.AsMap(resp)
	if !ok {
		return 0, errors.New("node-info payload rejected")
	}
	sync := provider.Map(m, "sync_info")
	if sync == nil {
		return 0, errors.New("node-info payload missing sync_info")
	}
	height := provider.Uint(sync, "latest_block_height")
	if height == 0 {
		return 0, errors.New("node-info payload missing height")
	}
	return height, nil
}

func (p *Parser) ParseBalance(resp any, addresses []string) ([]domain.Balance, error) {
	m, ok := provider.AsMap(resp)
	if !ok {
		return nil, errors.New("account payload rejected")
	}
	if len(addresses) != 1 {
		return nil, fmt.Errorf("account endpoint takes one address, got %d", len(addresses))
	}
	address := provider.Str(m, "address")
	if address == "" {
		address = addresses[0]
	}

	balance := domain.Balance{Address: address, Symbol: symbol, Currency: domain.CurrencyBNB}
	for _, raw := range provider.Slice(m, "balances") {
		entry, ok := provider.AsMap(raw)
		if !ok || provider.Str(entry, "symbol") != symbol {
			continue
		}
		free, err := decimal.NewFromString(provider.Str(entry, "free"))
		if err != nil {
			return nil, fmt.Errorf("free balance of %s: %w", address, err)
		}
		balance.Amount = free
		break
	}
	return []domain.Balance{balance}, nil
}

// ParseTxDetails handles the flat tx endpoint shape: base-unit amount,
// fromAddr/toAddr, code and log success markers. A transaction the validator
// rejects produces no transfers and no error.
func (p *Parser) ParseTxDetails(resp any, blockHead uint64) ([]domain.TransferTx, error) {
	if !p.validator.ValidateTransaction(resp) {
		return nil, nil
	}
	m, _ := provider.AsMap(resp)

	txHash := provider.Str(m, "hash")
	if txHash == "" {
		txHash = provider.Str(m, "txHash")
	}
	amount, _ := provider.Int(m, "amount")
	height := provider.Uint(m, "height")
	if height == 0 {
		height = provider.Uint(m, "blockHeight")
	}

	var confirmations uint64
	if blockHead > 0 && blockHead >= height {
		confirmations = blockHead - height
	}

	return []domain.TransferTx{{
		Symbol:        symbol,
		Currency:      domain.CurrencyBNB,
		TxHash:        txHash,
		Success:       true,
		BlockHeight:   height,
		FromAddress:   provider.Str(m, "fromAddr"),
		ToAddress:     provider.Str(m, "toAddr"),
		Value:         domain.FromUnitInt(amount, precision),
		Memo:          provider.Str(m, "memo"),
		Confirmations: confirmations,
	}}, nil
}

// ParseAddressTxs handles the transaction-history endpoint, whose records
// carry decimal string values and ISO timestamps. Records that fail the
// per-record checks are skipped, never fatal for the batch.
func (p *Parser) ParseAddressTxs(resp any, address string, _ uint64) ([]domain.TransferTx, error) {
	m, ok := provider.AsMap(resp)
	if !ok {
		return nil, errors.New("transactions payload rejected")
	}
	var out []domain.TransferTx
	for _, raw := range provider.Slice(m, "tx") {
		record, ok := provider.AsMap(raw)
		if !ok {
			p.countParseFailure()
			continue
		}
		from := provider.Str(record, "fromAddr")
		to := provider.Str(record, "toAddr")
		if !strings.EqualFold(from, address) && !strings.EqualFold(to, address) {
			continue
		}
		tx, ok := p.parseHistoryRecord(record)
		if !ok {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// ParseBlockTxs handles the transactions-in-block endpoint, whose records
// share the transaction-history shape.
func (p *Parser) ParseBlockTxs(resp any, _ uint64) ([]domain.TransferTx, error) {
	m, ok := provider.AsMap(resp)
	if !ok {
		return nil, errors.New("block transactions payload rejected")
	}
	var out []domain.TransferTx
	for _, raw := range provider.Slice(m, "tx") {
		record, ok := provider.AsMap(raw)
		if !ok {
			p.countParseFailure()
			continue
		}
		tx, ok := p.parseHistoryRecord(record)
		if !ok {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// parseHistoryRecord normalizes one history record. Both the per-address and
// the per-block endpoints return decimal string values and ISO timestamps;
// records that fail the per-record checks are skipped, never fatal.
func (p *Parser) parseHistoryRecord(record map[string]any) (domain.TransferTx, bool) {
	if provider.Str(record, "txType") != "TRANSFER" {
		return domain.TransferTx{}, false
	}
	if provider.Str(record, "txAsset") != symbol {
		return domain.TransferTx{}, false
	}
	if code, hasCode := provider.Int(record, "code"); hasCode && code != 0 {
		return domain.TransferTx{}, false
	}
	from := provider.Str(record, "fromAddr")
	to := provider.Str(record, "toAddr")
	if from == "" || to == "" || from == to {
		return domain.TransferTx{}, false
	}
	value, err := decimal.NewFromString(provider.Str(record, "value"))
	if err != nil || !value.IsPositive() {
		p.countParseFailure()
		return domain.TransferTx{}, false
	}
	fee, err := decimal.NewFromString(provider.Str(record, "txFee"))
	if err != nil {
		fee = decimal.Zero
	}
	var date time.Time
	if ts := provider.Str(record, "timeStamp"); ts != "" {
		date, _ = time.Parse(time.RFC3339, ts)
	}
	return domain.TransferTx{
		Symbol:        symbol,
		Currency:      domain.CurrencyBNB,
		TxHash:        provider.Str(record, "txHash"),
		Success:       true,
		BlockHeight:   provider.Uint(record, "blockHeight"),
		Date:          date,
		FromAddress:   from,
		ToAddress:     to,
		Value:         value,
		TxFee:         fee,
		Memo:          provider.Str(record, "memo"),
		Confirmations: provider.Uint(record, "confirmBlocks"),
	}, true
}

func (p *Parser) countParseFailure() {
	metrics.ParseFailures.WithLabelValues(string(domain.NetworkBNB), "bnbdex").Inc()
}
