package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-cart/internal/pricing"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestRoundMoney(t *testing.T) {
	cases := map[string]string{
		"8":       "8.00",
		"1.005":   "1.01",
		"1.004":   "1.00",
		"2.345":   "2.35",
		"0.125":   "0.13",
		"-1.005":  "-1.01",
		"10.9999": "11.00",
	}
	for in, want := range cases {
		got := pricing.RoundMoney(dec(t, in))
		require.Equal(t, want, got.StringFixed(2), "round %s", in)
		require.LessOrEqual(t, -got.Exponent(), int32(2), "round %s keeps at most two fractional digits", in)
	}
}

func TestParseMoney(t *testing.T) {
	got, err := pricing.ParseMoney(" 12.50 ")
	require.NoError(t, err)
	require.True(t, got.Equal(dec(t, "12.5")))

	_, err = pricing.ParseMoney("")
	require.Error(t, err)
	_, err = pricing.ParseMoney("abc")
	require.Error(t, err)
}

func TestLinePreview(t *testing.T) {
	line := pricing.Line{
		BasePrice:   dec(t, "10"),
		SalePercent: dec(t, "0.8"),
		Quantity:    1,
	}
	require.Equal(t, "8.00", pricing.LinePreview(line).StringFixed(2))

	line.Quantity = 3
	require.Equal(t, "24.00", pricing.LinePreview(line).StringFixed(2))

	withOptions := pricing.Line{
		BasePrice:    dec(t, "10"),
		SalePercent:  dec(t, "1"),
		OptionDeltas: []decimal.Decimal{dec(t, "1"), dec(t, "0.5")},
		Quantity:     2,
	}
	require.Equal(t, "23.00", pricing.LinePreview(withOptions).StringFixed(2))
	require.True(t, pricing.LinePreview(withOptions).Equal(pricing.LinePreview(withOptions)))
}

func TestComputeSkipsEmptyLines(t *testing.T) {
	summary := pricing.Compute([]pricing.Line{
		{BasePrice: dec(t, "4.5"), SalePercent: dec(t, "1"), Quantity: 2},
		{BasePrice: dec(t, "100"), SalePercent: dec(t, "1"), Quantity: 0},
		{BasePrice: dec(t, "3"), SalePercent: dec(t, "0.9"), OptionDeltas: []decimal.Decimal{dec(t, "0.35")}, Quantity: 1},
	})
	require.Equal(t, 3, summary.Items)
	require.Equal(t, "12.05", summary.Total.StringFixed(2))
}
