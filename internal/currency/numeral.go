package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Numeral holds the digit conventions of a locale. Formatting is driven by
// this data only; there is no per-locale code path.
type Numeral struct {
	Grouping rune `json:"grouping"`
	Decimal  rune `json:"decimal"`
	Fraction int  `json:"fraction_digits"`
}

// FormatMinor renders a count of minor units with exactly n.Fraction digits.
// FormatMinor(100000) under pt-BR yields "1.000,00".
func (n Numeral) FormatMinor(minor int64) string {
	return n.FormatFixed(decimal.New(minor, -int32(n.Fraction)), n.Fraction)
}

// FormatFixed renders d rounded to exactly frac fraction digits.
func (n Numeral) FormatFixed(d decimal.Decimal, frac int) string {
	return n.localize(d.StringFixed(int32(frac)))
}

// FormatDecimal renders d rounded half away from zero to at most maxFrac
// fraction digits, trailing zeros trimmed.
func (n Numeral) FormatDecimal(d decimal.Decimal, maxFrac int) string {
	return n.localize(d.Round(int32(maxFrac)).String())
}

// localize rewrites a plain "-1234.5" string using the locale glyphs.
func (n Numeral) localize(plain string) string {
	neg := strings.HasPrefix(plain, "-")
	plain = strings.TrimPrefix(plain, "-")

	intPart, fracPart, _ := strings.Cut(plain, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(n.group(intPart))
	if fracPart != "" {
		b.WriteRune(n.Decimal)
		b.WriteString(fracPart)
	}
	return b.String()
}

func (n Numeral) group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteRune(n.Grouping)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// StripDigits keeps only the ASCII digits of s.
func StripDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
