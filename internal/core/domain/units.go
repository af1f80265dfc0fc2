package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FromUnit converts a raw integer amount in a chain's smallest unit to a
// Decimal, shifting by precision fractional digits. The conversion is exact:
// no rounding happens for any precision.
func FromUnit(raw *big.Int, precision int32) decimal.Decimal {
	if raw == nil || raw.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -precision)
}

// FromUnitInt is FromUnit for amounts that fit an int64.
func FromUnitInt(raw int64, precision int32) decimal.Decimal {
	return FromUnit(big.NewInt(raw), precision)
}

// FromUnitString parses a decimal-string raw amount (the form most REST
// explorers return) and converts it with FromUnit. Hex strings with an 0x
// prefix are accepted for JSON-RPC style providers.
func FromUnitString(raw string, precision int32) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	n := new(big.Int)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		if _, ok := n.SetString(raw[2:], 16); !ok {
			return decimal.Zero, fmt.Errorf("invalid hex amount %q", raw)
		}
	} else if _, ok := n.SetString(raw, 10); !ok {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return FromUnit(n, precision), nil
}

// ToUnit converts a Decimal amount back to the chain's smallest integer unit.
// Amounts with more fractional digits than precision are an error rather than
// being truncated silently.
func ToUnit(amount decimal.Decimal, precision int32) (*big.Int, error) {
	shifted := amount.Shift(precision)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d fractional digits", amount, precision)
	}
	return shifted.BigInt(), nil
}
