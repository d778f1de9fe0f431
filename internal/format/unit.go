// =============================================================================
// Line Item Pivot - Presentation Formatting
// =============================================================================
//
// This package holds the helpers applied when grid output is presented:
//   - Amount unit scaling (원, 천원, 만원, 백만원)
//   - Locale-aware number formatting
//   - String slice equality
//
// Aggregation never calls into this package. Sums stay raw until a writer
// asks for them to be scaled and formatted.
//
// =============================================================================

package format

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT UNITS
// =============================================================================

// Supported amount unit divisors.
const (
	UnitWon         int64 = 1
	UnitThousand    int64 = 1000
	UnitTenThousand int64 = 10000
	UnitMillion     int64 = 1000000
)

var unitLabels = map[int64]string{
	UnitWon:         "원",
	UnitThousand:    "천원",
	UnitTenThousand: "만원",
	UnitMillion:     "백만원",
}

// UnitLabel returns the display label of an amount unit, e.g. "천원".
// Unknown divisors are labelled with their numeric value.
func UnitLabel(unit int64) string {
	if label, ok := unitLabels[unit]; ok {
		return label
	}
	return fmt.Sprintf("1/%d", unit)
}

// KnownUnit reports whether unit is one of the supported divisors.
func KnownUnit(unit int64) bool {
	_, ok := unitLabels[unit]
	return ok
}

// Units returns the supported divisors in ascending order.
func Units() []int64 {
	units := make([]int64, 0, len(unitLabels))
	for u := range unitLabels {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
	return units
}

// Scale divides amount by unit. A zero or negative unit leaves the amount
// unchanged; callers treat a zero unit as "no data" before reaching here.
func Scale(amount decimal.Decimal, unit int64) decimal.Decimal {
	if unit <= 1 {
		return amount
	}
	return amount.Div(decimal.NewFromInt(unit))
}
