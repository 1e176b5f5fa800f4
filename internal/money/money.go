// Package money implements fixed-point monetary arithmetic. Every helper
// rounds its result to two fractional digits so stored lines and aggregates
// are rounded independently.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for every stored amount.
const Places = 2

// Max is the largest amount a stored NUMERIC(12,2) column holds.
var Max = decimal.RequireFromString("9999999999.99")

// InRange reports whether d fits a stored amount column.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Max)
}

// Round rounds d to two fractional digits, half away from zero. For the
// non-negative amounts stored by the order engine this is round-half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Line returns the rounded total of qty units priced at unit.
func Line(unit decimal.Decimal, qty int) decimal.Decimal {
	return Round(unit.Mul(decimal.NewFromInt(int64(qty))))
}

// Percent returns rate percent of base, rounded.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	// Shift(-2) divides by 100 without the precision loss of Div.
	return Round(base.Mul(rate).Shift(-2))
}

// Sum adds values and rounds the result.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round(total)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Parse parses a textual amount such as "12.5" or "100".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse amount %q", s)
	}
	return d, nil
}

// String formats d with exactly two fractional digits.
func String(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
