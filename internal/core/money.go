// Package core provides money parsing and handling utilities.
//
// Amounts follow the pt-BR convention: "." groups thousands and "," is the
// decimal separator. Values are carried as float64 and rounded to cents
// through shopspring/decimal so sums stay exact at two decimals.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseMoneyStrict converts pt-BR amount text to a value rounded to cents.
//
// Whitespace and any character other than digits, ",", "." and "-" are
// dropped, every "." is treated as a thousands separator and "," becomes the
// decimal point.
//
// Examples:
//
//	ParseMoneyStrict("1.234,56")    -> 1234.56, nil
//	ParseMoneyStrict("R$ 99,9")     -> 99.90, nil
//	ParseMoneyStrict("abc")         -> 0, ErrInvalidAmount
func ParseMoneyStrict(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, s)
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.Round(2).InexactFloat64(), nil
}

// ParseMoney is the lenient form of ParseMoneyStrict: text that does not
// parse yields 0.
func ParseMoney(s string) float64 {
	v, err := ParseMoneyStrict(s)
	if err != nil {
		return 0
	}
	return v
}

// RoundMoney rounds v to cents.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// AddMoney sums amounts at cent precision.
func AddMoney(vals ...float64) float64 {
	sum := decimal.Zero
	for _, v := range vals {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Round(2).InexactFloat64()
}

// Cents returns v as an integer number of cents.
func Cents(v float64) int64 {
	return decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
}

// FormatBRL renders v as "1.234,56" (no currency symbol).
func FormatBRL(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}

// FormatCurrency renders v with the real symbol, e.g. "R$ 1.234,56".
func FormatCurrency(v float64) string {
	s := FormatBRL(v)
	if strings.HasPrefix(s, "-") {
		return "-R$ " + s[1:]
	}
	return "R$ " + s
}
