package format

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when no locale is configured or the configured tag
// does not parse.
const DefaultLocale = "ko"

// Formatter renders amounts with locale-specific grouping and decimal
// separators.
type Formatter struct {
	printer        *message.Printer
	tag            language.Tag
	fractionDigits int
	unit           int64
}

// NewFormatter creates a Formatter.
//
// PARAMETERS:
//   - locale: A BCP 47 tag such as "ko" or "en-US".
//   - fractionDigits: The maximum number of digits after the decimal point.
//   - unit: The amount unit divisor applied before formatting.
func NewFormatter(locale string, fractionDigits int, unit int64) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.MustParse(DefaultLocale)
	}
	if fractionDigits < 0 {
		fractionDigits = 0
	}
	if unit <= 0 {
		unit = UnitWon
	}
	return &Formatter{
		printer:        message.NewPrinter(tag),
		tag:            tag,
		fractionDigits: fractionDigits,
		unit:           unit,
	}
}

// Locale returns the language tag the formatter uses.
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Unit returns the amount unit divisor.
func (f *Formatter) Unit() int64 {
	return f.unit
}

// FractionDigits returns the maximum number of decimals shown.
func (f *Formatter) FractionDigits() int {
	return f.fractionDigits
}

// Scaled returns the amount divided by the formatter's unit, rounded to the
// configured fraction digits.
func (f *Formatter) Scaled(amount decimal.Decimal) decimal.Decimal {
	return Scale(amount, f.unit).Round(int32(f.fractionDigits))
}

// Amount scales and formats an amount, e.g. 1234567 -> "1,234,567".
func (f *Formatter) Amount(amount decimal.Decimal) string {
	v, _ := f.Scaled(amount).Float64()
	return f.Number(v)
}

// Number formats a plain number with grouping separators.
func (f *Formatter) Number(v float64) string {
	return f.printer.Sprint(number.Decimal(v,
		number.MinFractionDigits(0),
		number.MaxFractionDigits(f.fractionDigits),
	))
}
