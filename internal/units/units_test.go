package units

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToDecimalRoundTrip(t *testing.T) {
	raw, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	for _, d := range []int32{0, 6, 8, 18} {
		value := ToDecimal(raw, d)
		back := FromDecimal(value, d)
		if back.Cmp(raw) != 0 {
			t.Fatalf("decimals %d: expected %s, got %s", d, raw, back)
		}
	}
}

func TestToDecimalScales(t *testing.T) {
	got := ToDecimal(big.NewInt(1500000), 6)
	if !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("expected 1.5, got %s", got)
	}
	got = ToDecimal(big.NewInt(42), 0)
	if got.String() != "42" {
		t.Fatalf("expected 42, got %s", got)
	}
}

func TestSafeDivZeroDenominator(t *testing.T) {
	got := SafeDiv(decimal.NewFromInt(5), decimal.Zero)
	if !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
	got = SafeDiv(decimal.NewFromInt(1), decimal.NewFromInt(4))
	if !got.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("expected 0.25, got %s", got)
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1000")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if v.Int64() != 1000 {
		t.Fatalf("expected 1000, got %s", v)
	}
	if _, err := ParseAmount("0x10"); err == nil {
		t.Fatalf("expected error for hex input")
	}
	if _, err := ParseAmount(""); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
