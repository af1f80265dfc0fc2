package evm

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/openbitx/explorer/internal/core/domain"
	"github.com/openbitx/explorer/internal/explorer/provider"
	"github.com/openbitx/explorer/internal/metrics"
)

// Parser normalizes eth_* payloads. Everything numeric arrives as 0x hex
// quantities; values are wei (or the chain's equivalent base unit) converted
// through the configured precision.
type Parser struct {
	symbol    string
	precision int32
	validator Validator
}

func parseHexBig(s string) (*big.Int, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("not a hex quantity: %q", s)
	}
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return nil, fmt.Errorf("malformed hex quantity: %q", s)
	}
	return n, nil
}

func parseHexUint(s string) (uint64, error) {
	n, err := parseHexBig(s)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("hex quantity out of range: %q", s)
	}
	return n.Uint64(), nil
}

func (p *Parser) ParseBlockHead(resp any) (uint64, error) {
	s, ok := resp.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected head payload %T", resp)
	}
	return parseHexUint(s)
}

func (p *Parser) ParseBalance(resp any, addresses []string) ([]domain.Balance, error) {
	if len(addresses) != 1 {
		return nil, fmt.Errorf("eth_getBalance takes one address, got %d", len(addresses))
	}
	s, ok := resp.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected balance payload %T", resp)
	}
	wei, err := parseHexBig(s)
	if err != nil {
		return nil, err
	}
	return []domain.Balance{{
		Address: addresses[0],
		Symbol:  p.symbol,
		Amount:  domain.FromUnit(wei, p.precision),
	}}, nil
}

// ParseTxDetails returns no transfers (and no error) when the transaction
// fails validation: contract calls and pending transactions are not
// deposits, not failures.
func (p *Parser) ParseTxDetails(resp any, blockHead uint64) ([]domain.TransferTx, error) {
	if !p.validator.ValidateTransaction(resp) {
		return nil, nil
	}
	m, _ := provider.AsMap(resp)
	tx, err := p.parseTx(m, blockHead, time.Time{})
	if err != nil {
		return nil, err
	}
	return []domain.TransferTx{tx}, nil
}

func (p *Parser) ParseBlockTxs(resp any, blockHead uint64) ([]domain.TransferTx, error) {
	if !p.validator.ValidateBlockTxs(resp) {
		return nil, errors.New("block payload rejected")
	}
	m, _ := provider.AsMap(resp)

	var blockTime time.Time
	if ts, err := parseHexUint(provider.Str(m, "timestamp")); err == nil {
		blockTime = time.Unix(int64(ts), 0).UTC()
	}

	var out []domain.TransferTx
	for _, raw := range provider.Slice(m, "transactions") {
		if !p.validator.ValidateTransaction(raw) {
			continue
		}
		txMap, _ := provider.AsMap(raw)
		tx, err := p.parseTx(txMap, blockHead, blockTime)
		if err != nil {
			metrics.ParseFailures.WithLabelValues(p.symbol, "evm").Inc()
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (p *Parser) ParseAddressTxs(any, string, uint64) ([]domain.TransferTx, error) {
	return nil, errors.New("address history not exposed by json-rpc nodes")
}

func (p *Parser) parseTx(m map[string]any, blockHead uint64, blockTime time.Time) (domain.TransferTx, error) {
	blockHeight, err := parseHexUint(provider.Str(m, "blockNumber"))
	if err != nil {
		return domain.TransferTx{}, fmt.Errorf("blockNumber: %w", err)
	}
	wei, err := parseHexBig(provider.Str(m, "value"))
	if err != nil {
		return domain.TransferTx{}, fmt.Errorf("value: %w", err)
	}

	var confirmations uint64
	if blockHead >= blockHeight {
		confirmations = blockHead - blockHeight
	}

	return domain.TransferTx{
		Symbol:        p.symbol,
		TxHash:        provider.Str(m, "hash"),
		Success:       true,
		BlockHeight:   blockHeight,
		Date:          blockTime,
		FromAddress:   strings.ToLower(provider.Str(m, "from")),
		ToAddress:     strings.ToLower(provider.Str(m, "to")),
		Value:         domain.FromUnit(wei, p.precision),
		Confirmations: confirmations,
	}, nil
}
