package money

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Kind classifies why a token could not be turned into Money.
type Kind int

const (
	KindEmpty Kind = iota + 1
	KindNotNumeric
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNotNumeric:
		return "not numeric"
	case KindOutOfRange:
		return "out of range"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against a *ParseError.
var (
	ErrEmpty      = errors.New("empty amount")
	ErrNotNumeric = errors.New("amount is not numeric")
	ErrOutOfRange = errors.New("amount out of range")
)

// ParseError is returned for any token that does not yield an amount.
type ParseError struct {
	Kind  Kind
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing amount %q: %s", e.Input, e.Kind)
}

// Unwrap maps the kind onto its sentinel.
func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case KindEmpty:
		return ErrEmpty
	case KindNotNumeric:
		return ErrNotNumeric
	case KindOutOfRange:
		return ErrOutOfRange
	}
	return nil
}

// Separator selects which symbol is the decimal point.
type Separator int

const (
	// Auto treats whichever of ',' and '.' appears last as the decimal point.
	Auto Separator = iota
	// Comma forces ',' as the decimal point ("1.234,56").
	Comma
	// Dot forces '.' as the decimal point ("1,234.56").
	Dot
)

// ParseSeparator maps a config value ("auto", "comma", "dot") to a Separator.
func ParseSeparator(s string) (Separator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "comma", ",":
		return Comma, nil
	case "dot", "point", ".":
		return Dot, nil
	}
	return Auto, fmt.Errorf("unknown decimal separator %q", s)
}

// DefaultCeiling is the smallest magnitude rejected as out of range: 1,000,000,000.00.
const DefaultCeiling Money = 1_000_000_000 * minorPerUnit

// maxCeiling keeps Shift(Scale).IntPart() inside int64.
const maxCeiling Money = 1 << 62

// Options tune Parse.
type Options struct {
	Decimal Separator
	// Ceiling is the exclusive magnitude limit. Zero means DefaultCeiling.
	Ceiling Money
}

func (o Options) ceiling() Money {
	switch {
	case o.Ceiling <= 0:
		return DefaultCeiling
	case o.Ceiling > maxCeiling:
		return maxCeiling
	}
	return o.Ceiling
}

// Parse converts free-form numeric text into Money using automatic
// separator detection and the default ceiling.
func Parse(s string) (Money, error) {
	return ParseWith(s, Options{})
}

// ParseWith converts s into Money. Currency symbols, whitespace and
// apostrophe grouping are ignored. Amounts with more than two fractional
// digits are rounded half away from zero.
func ParseWith(s string, opts Options) (Money, error) {
	fail := func(k Kind) (Money, error) {
		return Zero, &ParseError{Kind: k, Input: s}
	}

	body := strip(s)
	body, neg, ok := splitSign(body)
	if !ok {
		return fail(KindNotNumeric)
	}
	if body == "" {
		return fail(KindEmpty)
	}

	digits := 0
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ',' || r == '.':
		default:
			return fail(KindNotNumeric)
		}
	}
	if digits == 0 {
		return fail(KindNotNumeric)
	}

	point, ok := decimalPoint(body, opts.Decimal)
	if !ok {
		return fail(KindNotNumeric)
	}

	var intPart, fracPart string
	if idx := strings.LastIndexByte(body, point); point != 0 && idx >= 0 {
		intPart, fracPart = body[:idx], body[idx+1:]
	} else {
		intPart = body
	}
	intPart = removeSeparators(intPart)
	fracPart = removeSeparators(fracPart)
	if intPart == "" {
		intPart = "0"
	}

	// Anything longer cannot fit below any permitted ceiling.
	if len(strings.TrimLeft(intPart, "0")) > 18 {
		return fail(KindOutOfRange)
	}

	lit := intPart
	if fracPart != "" {
		lit += "." + fracPart
	}
	d, err := decimal.NewFromString(lit)
	if err != nil {
		return fail(KindNotNumeric)
	}
	d = d.Round(Scale)
	if d.GreaterThanOrEqual(opts.ceiling().Decimal()) {
		return fail(KindOutOfRange)
	}

	m := FromDecimal(d)
	if neg {
		m = -m
	}
	return m, nil
}

// Ambiguous reports whether s holds a single separator followed by exactly
// three digits ("1,500"), which reads as grouping in one locale and as a
// decimal point in the other.
func Ambiguous(s string) bool {
	body, _, _ := splitSign(strip(s))
	if strings.Count(body, ",")+strings.Count(body, ".") != 1 {
		return false
	}
	idx := strings.IndexAny(body, ",.")
	return idx > 0 && len(body)-idx-1 == 3
}

func strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
		case r == '\'' || r == '\u2019':
		case unicode.Is(unicode.Sc, r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitSign removes one leading/trailing sign or enclosing parentheses.
func splitSign(s string) (body string, neg bool, ok bool) {
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		s, neg = s[1:len(s)-1], true
	case strings.HasPrefix(s, "-"):
		s, neg = s[1:], true
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		s, neg = s[:len(s)-1], true
	}
	if strings.ContainsAny(s, "()+-") {
		return s, neg, false
	}
	return s, neg, true
}

// decimalPoint picks the decimal separator for body, or 0 when it has none.
func decimalPoint(body string, sep Separator) (byte, bool) {
	commas := strings.Count(body, ",")
	dots := strings.Count(body, ".")

	switch sep {
	case Comma:
		return ',', commas <= 1
	case Dot:
		return '.', dots <= 1
	}

	lastComma := strings.LastIndexByte(body, ',')
	lastDot := strings.LastIndexByte(body, '.')
	switch {
	case commas == 0 && dots == 0:
		return 0, true
	case dots == 0 && commas > 1:
		return 0, true
	case commas == 0 && dots > 1:
		return 0, true
	case lastComma > lastDot:
		return ',', commas == 1
	default:
		return '.', dots == 1
	}
}

func removeSeparators(s string) string {
	return strings.NewReplacer(",", "", ".", "").Replace(s)
}
