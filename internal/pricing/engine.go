package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds amount to two fractional digits, half away from zero on the
// value scaled by 100.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(hundred).Round(0).Div(hundred).Round(2)
}

// ParseMoney parses a decimal amount as the café API encodes it ("12.50").
func ParseMoney(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("pricing: empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricing: parse amount %q: %w", value, err)
	}
	return d, nil
}

// Line describes a cart line used for preview calculation.
type Line struct {
	BasePrice    decimal.Decimal
	SalePercent  decimal.Decimal
	OptionDeltas []decimal.Decimal
	Quantity     int
}

// Summary aggregates a cart-wide preview.
type Summary struct {
	Items int
	Total decimal.Decimal
}

// LinePreview returns the display price of a line:
// round((base*sale + sum(deltas)) * qty).
func LinePreview(line Line) decimal.Decimal {
	unit := line.BasePrice.Mul(line.SalePercent)
	for _, delta := range line.OptionDeltas {
		unit = unit.Add(delta)
	}
	return RoundMoney(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
}

// Compute sums line previews and quantities. Lines with a non-positive quantity
// are skipped.
func Compute(lines []Line) Summary {
	total := decimal.Zero
	items := 0
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		items += line.Quantity
		total = total.Add(LinePreview(line))
	}
	return Summary{Items: items, Total: RoundMoney(total)}
}
