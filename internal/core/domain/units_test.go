package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromUnit_ToUnit_RoundTrip(t *testing.T) {
	precisions := []int32{0, 6, 8, 18}
	raws := []string{
		"1",
		"100000000",
		"123456789",
		"999999999999999999",
		"1000000000000000000000000", // beyond int64
	}

	for _, p := range precisions {
		for _, rawStr := range raws {
			raw, ok := new(big.Int).SetString(rawStr, 10)
			if !ok {
				t.Fatalf("bad fixture %s", rawStr)
			}

			amount := FromUnit(raw, p)
			back, err := ToUnit(amount, p)
			if err != nil {
				t.Fatalf("ToUnit(%s, %d): %v", amount, p, err)
			}
			if back.Cmp(raw) != 0 {
				t.Errorf("precision %d: round trip %s -> %s -> %s", p, raw, amount, back)
			}
		}
	}
}

func TestFromUnit_KnownValues(t *testing.T) {
	tests := []struct {
		raw       int64
		precision int32
		want      string
	}{
		{100000000, 8, "1"},
		{150000000, 8, "1.5"},
		{1, 18, "0.000000000000000001"},
		{0, 8, "0"},
		{42, 0, "42"},
	}

	for _, tt := range tests {
		got := FromUnitInt(tt.raw, tt.precision)
		want, _ := decimal.NewFromString(tt.want)
		if !got.Equal(want) {
			t.Errorf("FromUnitInt(%d, %d) = %s, want %s", tt.raw, tt.precision, got, tt.want)
		}
	}
}

func TestFromUnitString(t *testing.T) {
	got, err := FromUnitString("0xde0b6b3a7640000", 18) // 1 ETH in wei
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", got)
	}

	got, err = FromUnitString("100000000", 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", got)
	}

	if _, err := FromUnitString("not-a-number", 8); err == nil {
		t.Error("expected error for garbage input")
	}
	if _, err := FromUnitString("", 8); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestToUnit_RejectsExcessPrecision(t *testing.T) {
	amount := decimal.RequireFromString("1.000000001") // 9 fractional digits
	if _, err := ToUnit(amount, 8); err == nil {
		t.Error("expected error for amount finer than precision")
	}
}
