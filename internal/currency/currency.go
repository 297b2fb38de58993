package currency

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ErrUnsupportedCurrency is returned for codes outside the fixed registry.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Code is an ISO 4217 fiat currency code.
type Code string

const (
	BRL Code = "BRL"
	USD Code = "USD"
	EUR Code = "EUR"
)

// Currency is an immutable registry entry.
type Currency struct {
	Code    Code         `json:"code"`
	Symbol  string       `json:"symbol"`
	Locale  language.Tag `json:"locale"`
	Numeral Numeral      `json:"numeral"`
}

// VSCurrency is the lower-case code used by market data APIs.
func (c Currency) VSCurrency() string {
	return strings.ToLower(string(c.Code))
}

var registry = []Currency{
	{
		Code:    BRL,
		Symbol:  "R$",
		Locale:  language.MustParse("pt-BR"),
		Numeral: Numeral{Grouping: '.', Decimal: ',', Fraction: 2},
	},
	{
		Code:    USD,
		Symbol:  "$",
		Locale:  language.MustParse("en-US"),
		Numeral: Numeral{Grouping: ',', Decimal: '.', Fraction: 2},
	},
	{
		Code:    EUR,
		Symbol:  "€",
		Locale:  language.MustParse("de-DE"),
		Numeral: Numeral{Grouping: '.', Decimal: ',', Fraction: 2},
	},
}

// All returns the supported currencies in display order.
func All() []Currency {
	out := make([]Currency, len(registry))
	copy(out, registry)
	return out
}

// Default is the currency selected at startup.
func Default() Currency {
	return registry[0]
}

// Lookup finds a currency by code, ignoring case and surrounding space.
func Lookup(code string) (Currency, error) {
	want := Code(strings.ToUpper(strings.TrimSpace(code)))
	for _, c := range registry {
		if c.Code == want {
			return c, nil
		}
	}
	return Currency{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
}
