package processor

import (
	"github.com/shopspring/decimal"

	"cryptocalc/internal/currency"
)

const (
	assetFractionDigits   = 8
	subunitFractionDigits = 10
	priceFractionDigits   = 2
)

// FormatAssetQuantity shows up to 8 fraction digits. Zero is shown with two
// fraction digits so it reads like a money value.
func FormatAssetQuantity(n currency.Numeral, qty float64) string {
	if qty == 0 {
		return "0" + string(n.Decimal) + "00"
	}
	return n.FormatDecimal(decimal.NewFromFloat(qty), assetFractionDigits)
}

// FormatSubunits shows fractional subunits with up to 10 digits and whole
// subunit counts as grouped integers.
func FormatSubunits(n currency.Numeral, qty float64) string {
	d := decimal.NewFromFloat(qty)
	if qty < 1 {
		return n.FormatDecimal(d, subunitFractionDigits)
	}
	return n.FormatDecimal(d, 0)
}

// FormatPrice renders a fiat price with exactly two fraction digits.
func FormatPrice(n currency.Numeral, price float64) string {
	return n.FormatFixed(decimal.NewFromFloat(price), priceFractionDigits)
}

// FormatChange renders a signed 24h change percentage with two digits.
func FormatChange(n currency.Numeral, pct float64) string {
	return n.FormatFixed(decimal.NewFromFloat(pct), priceFractionDigits)
}
