package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// LiquidityDecimals is the fixed exponent of every pair's liquidity token.
const LiquidityDecimals int32 = 18

// ToDecimal scales a raw integer amount down by 10^decimals.
func ToDecimal(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	if decimals <= 0 {
		return decimal.NewFromBigInt(amount, 0)
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// FromDecimal scales value up by 10^decimals and truncates to an integer.
func FromDecimal(value decimal.Decimal, decimals int32) *big.Int {
	if decimals < 0 {
		decimals = 0
	}
	return value.Shift(decimals).BigInt()
}

// SafeDiv returns a/b, or zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, DivisionPrecision)
}

// DivisionPrecision bounds the scale of non-terminating quotients.
const DivisionPrecision int32 = 36

// ParseAmount parses a base-10 integer as carried by decoded event payloads.
func ParseAmount(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}
	out, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return out, nil
}

// ParseDecimal parses value and converts it with the given exponent.
func ParseDecimal(value string, decimals int32) (decimal.Decimal, error) {
	raw, err := ParseAmount(value)
	if err != nil {
		return decimal.Zero, err
	}
	return ToDecimal(raw, decimals), nil
}
