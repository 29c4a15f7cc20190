package money

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts for display with a locale's grouping and
// decimal symbols and exactly two fractional digits.
type Formatter struct {
	printer *message.Printer
	point   string
}

// NewFormatter returns a Formatter for the given locale tag.
func NewFormatter(tag language.Tag) *Formatter {
	p := message.NewPrinter(tag)
	// The printer only exposes localized output, so derive the decimal
	// symbol from a sample rendering.
	sample := p.Sprintf("%.1f", 1.5)
	point := "."
	if i := strings.IndexFunc(sample, func(r rune) bool { return r != '1' && r != '5' }); i >= 0 {
		point = strings.TrimRight(sample[i:], "5")
	}
	return &Formatter{printer: p, point: point}
}

// NewFormatterFor parses a BCP 47 locale name ("en", "de-DE") and falls back
// to English for unknown tags.
func NewFormatterFor(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return NewFormatter(tag)
}

// Format renders m, e.g. "1.234,56" for German.
func (f *Formatter) Format(m Money) string {
	minor := int64(m)
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	units := f.printer.Sprintf("%d", minor/minorPerUnit)
	cents := minor % minorPerUnit
	return sign + units + f.point + string(rune('0'+cents/10)) + string(rune('0'+cents%10))
}
