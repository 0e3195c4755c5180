package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-cart/internal/pricing"
)

// Entry is one distinct (item type, option combination) line of the cart.
type Entry struct {
	ItemTypeID        int64
	SelectedOptionIDs []int64
	UnitBasePrice     decimal.Decimal
	UnitSalePercent   decimal.Decimal
	OptionPriceDeltas []decimal.Decimal
	Quantity          int
}

// LinePreviewPrice returns the display-only price of the entry.
func LinePreviewPrice(e Entry) decimal.Decimal {
	return pricing.LinePreview(e.line())
}

// EntriesMatch reports whether a and b describe the same cart line: same item
// type and the same option ids regardless of order.
func EntriesMatch(a, b Entry) bool {
	if a.ItemTypeID != b.ItemTypeID {
		return false
	}
	return slices.Equal(normalizeOptions(a.SelectedOptionIDs), normalizeOptions(b.SelectedOptionIDs))
}

func (e Entry) line() pricing.Line {
	return pricing.Line{
		BasePrice:    e.UnitBasePrice,
		SalePercent:  e.UnitSalePercent,
		OptionDeltas: e.OptionPriceDeltas,
		Quantity:     e.Quantity,
	}
}

func (e Entry) clone() Entry {
	out := e
	out.SelectedOptionIDs = slices.Clone(e.SelectedOptionIDs)
	out.OptionPriceDeltas = slices.Clone(e.OptionPriceDeltas)
	return out
}

// normalizeOptions returns a sorted copy without duplicates.
func normalizeOptions(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
