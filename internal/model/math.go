package model

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	sqrtPrecision = 256
	sqrtDigits    = 18
)

// Sqrt returns the square root of a non-negative decimal, computed with
// 256-bit binary floats and rounded to 18 decimal places.
func Sqrt(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("sqrt of negative value %s", d)
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}

	f, _, err := big.ParseFloat(d.String(), 10, sqrtPrecision, big.ToNearestEven)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", d, err)
	}
	root := new(big.Float).SetPrec(sqrtPrecision).Sqrt(f)

	out, err := decimal.NewFromString(root.Text('f', sqrtDigits))
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert sqrt result: %w", err)
	}
	return out, nil
}
