package blockbook

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

// Parser normalizes Blockbook payloads. Blockbook exposes UTXO transactions
// as vin/vout lists in base units, so transfers are reconstructed by
// aggregating inputs and outputs per address and netting change back to the
// sender.
type Parser struct {
	symbol    string
	precision int32
	validator Validator
}

func (p *Parser) ParseBlockHead(resp any) (uint64, error) {
	if !p.validator.ValidateBlockHead(resp) {
		return 0, errors.New("status payload rejected")
	}
	m, _ := provider.AsMap(resp)
	return provider.Uint(provider.Map(m, "blockbook"), "bestHeight"), nil
}

// ParseBalance accepts both a single address object and an array of them
// (batched request). Results follow the order of the addresses argument;
// addresses missing from the payload get a zero balance.
func (p *Parser) ParseBalance(resp any, addresses []string) ([]domain.Balance, error) {
	byAddr := make(map[string]domain.Balance, len(addresses))

	collect := func(m map[string]any) error {
		addr := provider.Str(m, "address")
		confirmed, err := domain.FromUnitString(orZero(provider.Str(m, "balance")), p.precision)
		if err != nil {
			return fmt.Errorf("balance of %s: %w", addr, err)
		}
		unconfirmed, err := domain.FromUnitString(orZero(provider.Str(m, "unconfirmedBalance")), p.precision)
		if err != nil {
			return fmt.Errorf("unconfirmed balance of %s: %w", addr, err)
		}
		byAddr[addr] = domain.Balance{
			Address:           addr,
			Symbol:            p.symbol,
			Amount:            confirmed,
			UnconfirmedAmount: unconfirmed,
		}
		return nil
	}

	switch v := resp.(type) {
	case map[string]any:
		if err := collect(v); err != nil {
			return nil, err
		}
	case []any:
		for _, item := range v {
			m, ok := provider.AsMap(item)
			if !ok {
				continue
			}
			if err := collect(m); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unexpected balance payload %T", resp)
	}

	out := make([]domain.Balance, 0, len(addresses))
	for _, addr := range addresses {
		if b, ok := byAddr[addr]; ok {
			out = append(out, b)
			continue
		}
		out = append(out, domain.Balance{Address: addr, Symbol: p.symbol})
	}
	return out, nil
}

func (p *Parser) ParseTxDetails(resp any, _ uint64) ([]domain.TransferTx, error) {
	if !p.validator.ValidateTransaction(resp) {
		return nil, errors.New("transaction payload rejected")
	}
	m, _ := provider.AsMap(resp)
	return p.parseTx(m)
}

// parseTx dispatches on the transaction model. UTXO chains put a value on
// every input; account-based chains served by Blockbook (ETH, BSC) carry the
// amount on the transaction itself.
func (p *Parser) parseTx(tx map[string]any) ([]domain.TransferTx, error) {
	vins := provider.Slice(tx, "vin")
	if len(vins) > 0 {
		if vin, ok := provider.AsMap(vins[0]); ok && provider.Str(vin, "value") == "" {
			return p.parseAccountTx(tx)
		}
	}
	return p.parseUTXOTx(tx)
}

// parseAccountTx extracts the single transfer of an account-based
// transaction. Self-transfers are rejected here, the account chains this
// serves do not credit them.
func (p *Parser) parseAccountTx(tx map[string]any) ([]domain.TransferTx, error) {
	vins := provider.Slice(tx, "vin")
	vouts := provider.Slice(tx, "vout")
	vin, ok := provider.AsMap(vins[0])
	if !ok || vin["isAddress"] != true {
		return nil, nil
	}
	vout, ok := provider.AsMap(vouts[0])
	if !ok || vout["isAddress"] != true {
		return nil, nil
	}
	inAddrs := provider.Slice(vin, "addresses")
	outAddrs := provider.Slice(vout, "addresses")
	if len(inAddrs) == 0 || len(outAddrs) == 0 {
		return nil, nil
	}
	from, _ := inAddrs[0].(string)
	to, _ := outAddrs[0].(string)
	if from == "" || to == "" || strings.EqualFold(from, to) {
		return nil, nil
	}
	value, err := domain.FromUnitString(orZero(provider.Str(tx, "value")), p.precision)
	if err != nil {
		return nil, fmt.Errorf("tx %s value: %w", provider.Str(tx, "txid"), err)
	}
	if !value.IsPositive() {
		return nil, nil
	}
	fee, err := domain.FromUnitString(orZero(provider.Str(tx, "fees")), p.precision)
	if err != nil {
		return nil, fmt.Errorf("tx %s fee: %w", provider.Str(tx, "txid"), err)
	}
	blockTime, _ := provider.Int(tx, "blockTime")
	return []domain.TransferTx{{
		Symbol:        p.symbol,
		TxHash:        provider.Str(tx, "txid"),
		Success:       true,
		BlockHeight:   provider.Uint(tx, "blockHeight"),
		Date:          time.Unix(blockTime, 0).UTC(),
		FromAddress:   from,
		ToAddress:     to,
		Value:         value,
		TxFee:         fee,
		Confirmations: provider.Uint(tx, "confirmations"),
	}}, nil
}

func (p *Parser) ParseBlockTxs(resp any, _ uint64) ([]domain.TransferTx, error) {
	if !p.validator.ValidateBlockTxs(resp) {
		return nil, errors.New("block payload rejected")
	}
	m, _ := provider.AsMap(resp)
	var out []domain.TransferTx
	for _, raw := range provider.Slice(m, "txs") {
		if !p.validator.ValidateTransaction(raw) {
			p.countParseFailure()
			continue
		}
		tx, _ := provider.AsMap(raw)
		transfers, err := p.parseTx(tx)
		if err != nil {
			p.countParseFailure()
			continue
		}
		out = append(out, transfers...)
	}
	return out, nil
}

func (p *Parser) ParseAddressTxs(resp any, address string, _ uint64) ([]domain.TransferTx, error) {
	m, ok := provider.AsMap(resp)
	if !ok {
		return nil, errors.New("address payload rejected")
	}
	var out []domain.TransferTx
	for _, raw := range provider.Slice(m, "transactions") {
		if !p.validator.ValidateTransaction(raw) {
			p.countParseFailure()
			continue
		}
		tx, _ := provider.AsMap(raw)
		transfers, err := p.parseTx(tx)
		if err != nil {
			p.countParseFailure()
			continue
		}
		// Keep only legs that touch the requested address.
		for _, t := range transfers {
			if strings.EqualFold(t.FromAddress, address) || strings.EqualFold(t.ToAddress, address) {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// ParseTokenTxs extracts the token transfer history of one address from the
// same details=txs payload, reading the tokenTransfers legs instead of the
// native value movement. UTXO chains have no tokenTransfers and simply yield
// nothing here.
func (p *Parser) ParseTokenTxs(resp any, address string, _ uint64) ([]domain.TransferTx, error) {
	m, ok := provider.AsMap(resp)
	if !ok {
		return nil, errors.New("address payload rejected")
	}
	var out []domain.TransferTx
	for _, raw := range provider.Slice(m, "transactions") {
		if !p.validator.ValidateTransaction(raw) {
			continue
		}
		tx, _ := provider.AsMap(raw)
		legs := provider.Slice(tx, "tokenTransfers")
		if len(legs) == 0 {
			continue
		}
		// Only plain ERC20 transfer calls are credited.
		if eth := provider.Map(tx, "ethereumSpecific"); eth != nil {
			if data := provider.Str(eth, "data"); data != "" && !strings.HasPrefix(data, "0xa9059cbb") {
				continue
			}
		}
		blockTime, _ := provider.Int(tx, "blockTime")
		for _, rawLeg := range legs {
			leg, ok := provider.AsMap(rawLeg)
			if !ok {
				p.countParseFailure()
				continue
			}
			from := provider.Str(leg, "from")
			to := provider.Str(leg, "to")
			if from == "" || to == "" || strings.EqualFold(from, to) {
				continue
			}
			if !strings.EqualFold(from, address) && !strings.EqualFold(to, address) {
				continue
			}
			contract := provider.Str(leg, "contract")
			if contract == "" {
				contract = provider.Str(leg, "token")
			}
			if contract == "" {
				continue
			}
			decimals, hasDecimals := provider.Int(leg, "decimals")
			if !hasDecimals {
				p.countParseFailure()
				continue
			}
			value, err := domain.FromUnitString(provider.Str(leg, "value"), int32(decimals))
			if err != nil || !value.IsPositive() {
				p.countParseFailure()
				continue
			}
			out = append(out, domain.TransferTx{
				Symbol:        provider.Str(leg, "symbol"),
				TxHash:        provider.Str(tx, "txid"),
				Success:       true,
				BlockHeight:   provider.Uint(tx, "blockHeight"),
				Date:          time.Unix(blockTime, 0).UTC(),
				FromAddress:   from,
				ToAddress:     to,
				Value:         value,
				Token:         contract,
				Confirmations: provider.Uint(tx, "confirmations"),
			})
		}
	}
	return out, nil
}

// parseUTXOTx nets vin and vout amounts per address. An address that both
// funds and receives a transaction (change) ends up with its input amount
// minus the returned change, matching how deposits are credited.
func (p *Parser) parseUTXOTx(tx map[string]any) ([]domain.TransferTx, error) {
	txHash := provider.Str(tx, "txid")
	blockHeight := provider.Uint(tx, "blockHeight")
	confirmations := provider.Uint(tx, "confirmations")
	blockTime, _ := provider.Int(tx, "blockTime")
	fee, err := domain.FromUnitString(orZero(provider.Str(tx, "fees")), p.precision)
	if err != nil {
		return nil, fmt.Errorf("tx %s fee: %w", txHash, err)
	}

	inputs := decimal.Decimal{}
	inByAddr := map[string]decimal.Decimal{}
	var inOrder []string
	for _, raw := range provider.Slice(tx, "vin") {
		vin, ok := provider.AsMap(raw)
		if !ok || vin["isAddress"] != true {
			continue
		}
		addrs := provider.Slice(vin, "addresses")
		if len(addrs) == 0 {
			continue
		}
		addr, _ := addrs[0].(string)
		value, err := domain.FromUnitString(orZero(provider.Str(vin, "value")), p.precision)
		if err != nil {
			return nil, fmt.Errorf("tx %s vin: %w", txHash, err)
		}
		if _, seen := inByAddr[addr]; !seen {
			inOrder = append(inOrder, addr)
		}
		inByAddr[addr] = inByAddr[addr].Add(value)
		inputs = inputs.Add(value)
	}

	outByAddr := map[string]decimal.Decimal{}
	var outOrder []string
	for _, raw := range provider.Slice(tx, "vout") {
		vout, ok := provider.AsMap(raw)
		if !ok || vout["isAddress"] != true {
			continue
		}
		addrs := provider.Slice(vout, "addresses")
		if len(addrs) == 0 {
			continue
		}
		addr, _ := addrs[0].(string)
		value, err := domain.FromUnitString(orZero(provider.Str(vout, "value")), p.precision)
		if err != nil {
			return nil, fmt.Errorf("tx %s vout: %w", txHash, err)
		}
		if _, seen := outByAddr[addr]; !seen {
			outOrder = append(outOrder, addr)
		}
		outByAddr[addr] = outByAddr[addr].Add(value)
	}

	base := domain.TransferTx{
		Symbol:        p.symbol,
		TxHash:        txHash,
		Success:       true,
		BlockHeight:   blockHeight,
		Date:          time.Unix(blockTime, 0).UTC(),
		TxFee:         fee,
		Confirmations: confirmations,
	}

	var out []domain.TransferTx
	for _, addr := range inOrder {
		spent := inByAddr[addr]
		if change, ok := outByAddr[addr]; ok {
			spent = spent.Sub(change)
		}
		if !spent.IsPositive() {
			continue
		}
		t := base
		t.FromAddress = addr
		t.Value = spent
		out = append(out, t)
	}
	for _, addr := range outOrder {
		if _, isInput := inByAddr[addr]; isInput {
			continue
		}
		received := outByAddr[addr]
		if !received.IsPositive() {
			continue
		}
		t := base
		t.ToAddress = addr
		t.Value = received
		out = append(out, t)
	}
	return out, nil
}

func (p *Parser) countParseFailure() {
	metrics.ParseFailures.WithLabelValues(p.symbol, "blockbook").Inc()
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
