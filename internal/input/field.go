// Package input turns free-form digit entry into a fixed-point fiat amount.
//
// Entry works like a cash register: every digit typed shifts the amount one
// place left, with the last two digits being cents. "1", "12", "123" read as
// 0,01 then 0,12 then 1,23 under pt-BR.
package input

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cryptocalc/internal/currency"
)

// maxDigits keeps minor-unit counts exactly representable as float64.
const maxDigits = 15

var (
	ErrAmountTooLarge = errors.New("amount has too many digits")
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Field is the amount entry as shown to the user. The zero value is not
// usable; build one with New or Default.
type Field struct {
	numeral currency.Numeral
	minor   int64
	display string
}

// New renders minor units under the given numeral conventions.
func New(n currency.Numeral, minor int64) Field {
	return Field{numeral: n, minor: minor, display: n.FormatMinor(minor)}
}

// Default is the startup entry: 1.000,00 in the default currency.
func Default() Field {
	return New(currency.Default().Numeral, 100000)
}

// Type applies raw keyboard input. Every non-digit is dropped and the
// remaining digits are read as minor units. On error f is returned unchanged.
func (f Field) Type(raw string) (Field, error) {
	digits := strings.TrimLeft(currency.StripDigits(raw), "0")
	if digits == "" {
		return New(f.numeral, 0), nil
	}
	if len(digits) > maxDigits {
		return f, ErrAmountTooLarge
	}
	minor, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return f, err
	}
	return New(f.numeral, minor), nil
}

// WithAmount sets the field from a numeric amount, rounded to minor units.
func (f Field) WithAmount(d decimal.Decimal) (Field, error) {
	if d.IsNegative() {
		return f, ErrNegativeAmount
	}
	scaled := d.Shift(int32(f.numeral.Fraction)).Round(0)
	if len(scaled.String()) > maxDigits {
		return f, ErrAmountTooLarge
	}
	return New(f.numeral, scaled.IntPart()), nil
}

// Relocalize re-renders the same amount under other numeral conventions.
func (f Field) Relocalize(n currency.Numeral) Field {
	return New(n, f.minor)
}

// Display is the formatted text shown in the entry box.
func (f Field) Display() string { return f.display }

// Minor is the amount in minor units.
func (f Field) Minor() int64 { return f.minor }

// Amount re-reads the displayed text as a decimal amount.
func (f Field) Amount() decimal.Decimal {
	digits := currency.StripDigits(f.display)
	if digits == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.New(f.minor, -int32(f.numeral.Fraction))
	}
	return d.Shift(-int32(f.numeral.Fraction))
}

// Float64 is Amount as a float for conversion math.
func (f Field) Float64() float64 {
	v, _ := f.Amount().Float64()
	return v
}
