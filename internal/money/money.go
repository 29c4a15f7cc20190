// Package money holds exact fixed-point amounts stored as integer minor units.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by a Money value.
const Scale = 2

const minorPerUnit = 100

// Money is an amount in minor units (cents). Arithmetic on Money is exact.
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// FromMinor returns the amount for a count of minor units.
func FromMinor(minor int64) Money {
	return Money(minor)
}

// FromDecimal converts d to Money, rounding half away from zero to two places.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(Scale).Shift(Scale).IntPart())
}

// MustParse parses s with default options and panics on failure.
// Use only in tests or for constants.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Minor returns the amount in minor units.
func (m Money) Minor() int64 { return int64(m) }

// Decimal returns the amount as a decimal for rate arithmetic.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -Scale)
}

// IsZero reports whether m is zero.
func (m Money) IsZero() bool { return m == 0 }

// IsNegative reports whether m is below zero.
func (m Money) IsNegative() bool { return m < 0 }

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return m + o }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return m - o }

// String renders m without grouping, e.g. "-1234.50".
func (m Money) String() string {
	return m.render("", ".")
}

// Format renders m with comma grouping and a dot decimal point, e.g. "1,234.50".
// The output parses back to the same value.
func Format(m Money) string {
	return m.render(",", ".")
}

func (m Money) render(group, point string) string {
	minor := int64(m)
	neg := minor < 0
	if neg {
		minor = -minor
	}
	units := strconv.FormatInt(minor/minorPerUnit, 10)
	cents := minor % minorPerUnit

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(groupDigits(units, group))
	b.WriteString(point)
	if cents < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(cents, 10))
	return b.String()
}

func groupDigits(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Sum adds up amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}
