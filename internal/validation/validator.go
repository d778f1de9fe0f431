// =============================================================================
// Line Item Pivot - Validation Engine
// =============================================================================
//
// This module checks reports before they are rendered. It validates at two
// levels:
//   1. Report-level: the report definition itself (units, groups, derive
//      chains). Problems here are errors; the report cannot render.
//   2. Item-level: the loaded line items against the report (numeric value
//      fields, item codes, group fields). Problems here are warnings; the
//      grid still renders, treating bad amounts as zero.
//
// ERROR HANDLING:
//   - Errors are collected, not returned one at a time
//   - Each error carries its context (row, item code, field, value)
//   - Warnings can be promoted to errors with TreatWarningsAsErrors
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ginjaninja78/line-item-pivot/internal/config"
	"github.com/ginjaninja78/line-item-pivot/internal/format"
	"github.com/ginjaninja78/line-item-pivot/internal/types"
	"github.com/ginjaninja78/line-item-pivot/pkg/utils"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the report setting or item field the finding is about.
	Field string

	// Value is the offending value.
	Value string

	// Rule is the check that was violated, e.g. "numeric".
	Rule string

	// Message is a human-readable description.
	Message string

	// ItemCode and RowNumber locate item-level findings. Both are empty for
	// report-level findings.
	ItemCode  string
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", strings.ToUpper(e.Severity))
	if e.RowNumber > 0 {
		fmt.Fprintf(&b, " Row %d", e.RowNumber)
	}
	if e.ItemCode != "" {
		fmt.Fprintf(&b, " Item %s", e.ItemCode)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " Field '%s'", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors, counting promoted warnings.
	IsValid bool

	Errors       []*ValidationError
	ErrorCount   int
	WarningCount int

	ItemsValidated int
}

// Warnings returns only the findings with warning severity.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops item validation after the first error.
	StopOnFirstError bool

	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool
}

// Validator validates the items of one report.
type Validator struct {
	report  *config.ReportConfig
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator(rc *config.ReportConfig) *Validator {
	return NewValidatorWithOptions(rc, ValidationOptions{})
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(rc *config.ReportConfig, options ValidationOptions) *Validator {
	return &Validator{report: rc, options: options}
}

// =============================================================================
// REPORT VALIDATION
// =============================================================================

// ValidateReport checks a report definition.
//
// RETURNS:
//   - The findings. Any finding with error severity means the report
//     cannot render.
//
// CHECKS:
//   - amount_unit is one of 1, 1000, 10000, 1000000
//   - value field names are not empty
//   - every group has a unique, non-empty id and a known axis
//   - levels are unique within an axis (warning)
//   - every derive action is known and has its required parameters
//   - the report matches at least one file pattern (warning)
func ValidateReport(rc *config.ReportConfig) []*ValidationError {
	var errs []*ValidationError
	add := func(severity, field, value, rule, msg string) {
		errs = append(errs, &ValidationError{Severity: severity, Field: field, Value: value, Rule: rule, Message: msg})
	}

	if !format.KnownUnit(rc.AmountUnit) {
		add(SeverityError, "amount_unit", fmt.Sprint(rc.AmountUnit), "amount_unit",
			fmt.Sprintf("Unsupported amount unit (supported: %v)", format.Units()))
	}

	for i, f := range rc.ValueFields {
		if strings.TrimSpace(f) == "" {
			add(SeverityError, fmt.Sprintf("value_fields[%d]", i), f, "value_field", "Value field name is empty")
		}
	}

	if len(rc.FileMatchingPatterns) == 0 {
		add(SeverityWarning, "file_matching_patterns", "", "patterns",
			"Report has no file patterns and only renders when selected explicitly")
	}

	ids := make(map[string]bool)
	levels := make(map[types.Axis]map[int]string)
	for i, g := range rc.Groups {
		field := fmt.Sprintf("groups[%d]", i)

		if g.ID == "" {
			add(SeverityError, field, "", "group_id", "Group has no id")
		} else if ids[g.ID] {
			add(SeverityError, field, g.ID, "group_id", "Duplicate group id")
		}
		ids[g.ID] = true

		switch g.Axis {
		case types.AxisRow, types.AxisColumn, types.AxisValue:
		default:
			add(SeverityError, field, string(g.Axis), "axis", "Axis must be row, column or value")
		}

		if levels[g.Axis] == nil {
			levels[g.Axis] = make(map[int]string)
		}
		if other, ok := levels[g.Axis][g.Level]; ok {
			add(SeverityWarning, field, fmt.Sprint(g.Level), "level",
				fmt.Sprintf("Level is shared with group '%s'; the earlier group sorts first", other))
		}
		levels[g.Axis][g.Level] = g.ID

		for j, a := range g.Derive {
			if msg := validateDeriveAction(a); msg != "" {
				add(SeverityError, fmt.Sprintf("%s.derive[%d]", field, j), a.Type, "derive", msg)
			}
		}
	}

	return errs
}

// validateDeriveAction returns an error message for a malformed action.
func validateDeriveAction(a config.DeriveAction) string {
	if !config.IsDeriveAction(a.Type) {
		return fmt.Sprintf("Unknown derive action '%s'", a.Type)
	}

	switch a.Type {
	case "field":
		if a.Field == "" {
			return "field action needs a field"
		}
	case "split":
		if a.Separator == "" {
			return "split action needs a separator"
		}
	case "lookup", "lookup_with_default":
		if len(a.LookupTable) == 0 {
			return fmt.Sprintf("%s action needs a lookup_table", a.Type)
		}
	case "replace":
		if a.Find == "" {
			return "replace action needs find"
		}
	case "regex_replace":
		if _, err := regexp.Compile(a.Find); err != nil {
			return fmt.Sprintf("Invalid pattern: %v", err)
		}
	case "position_below":
		if a.Limit < 0 {
			return "position_below limit must not be negative"
		}
	}
	return ""
}

// =============================================================================
// ITEM VALIDATION
// =============================================================================

// ValidateItems checks the loaded line items against the report.
//
// PARAMETERS:
//   - items: The items after derivation.
//   - rowNumbers: The source row of each item; may be shorter than items.
//
// CHECKS (all warnings):
//   - value fields hold numbers, null or nothing
//   - items have a code, and codes are unique (items are matched across
//     axes by code)
//   - non-derived group fields exist on every item
func (v *Validator) ValidateItems(items []types.LineItem, rowNumbers []int) *ValidationResult {
	result := &ValidationResult{IsValid: true, ItemsValidated: len(items)}

	row := func(i int) int {
		if i < len(rowNumbers) {
			return rowNumbers[i]
		}
		return i + 1
	}

	record := func(e *ValidationError) bool {
		result.Errors = append(result.Errors, e)
		if e.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
			return v.options.StopOnFirstError
		}
		result.WarningCount++
		if v.options.TreatWarningsAsErrors {
			result.IsValid = false
		}
		return false
	}

	valueFields := v.report.AllValueFields()
	groupFields := plainGroupFields(v.report)
	seen := make(map[string]int)

	for i, item := range items {
		for _, e := range v.validateItem(item, valueFields, groupFields) {
			e.RowNumber = row(i)
			if record(e) {
				return result
			}
		}

		if item.Code == "" {
			continue
		}
		if first, ok := seen[item.Code]; ok {
			stop := record(&ValidationError{
				Severity:  SeverityWarning,
				Field:     types.FieldCode,
				Value:     item.Code,
				Rule:      "unique_code",
				Message:   fmt.Sprintf("Code already used on row %d; the items are merged in the grid", first),
				ItemCode:  item.Code,
				RowNumber: row(i),
			})
			if stop {
				return result
			}
			continue
		}
		seen[item.Code] = row(i)
	}

	return result
}

func (v *Validator) validateItem(item types.LineItem, valueFields, groupFields []string) []*ValidationError {
	var errs []*ValidationError

	if item.Code == "" {
		errs = append(errs, &ValidationError{
			Severity: SeverityWarning,
			Field:    types.FieldCode,
			Rule:     "required",
			Message:  "Item has no code and is identified by its position",
		})
	}

	for _, f := range valueFields {
		val := item.Get(f)
		if val.IsUndefined() || val.IsNull() {
			continue
		}
		if _, ok := val.Float(); !ok {
			errs = append(errs, &ValidationError{
				Severity: SeverityWarning,
				Field:    f,
				Value:    val.Text(),
				Rule:     "numeric",
				Message:  "Value is not numeric and counts as zero",
				ItemCode: item.Code,
			})
		}
	}

	for _, f := range groupFields {
		if item.Get(f).IsUndefined() {
			errs = append(errs, &ValidationError{
				Severity: SeverityWarning,
				Field:    f,
				Rule:     "group_field",
				Message:  "Group field is missing; the item is grouped under \"undefined\"",
				ItemCode: item.Code,
			})
		}
	}

	return errs
}

// plainGroupFields returns the row and column group ids that have no derive
// chain and so must come from the source.
func plainGroupFields(rc *config.ReportConfig) []string {
	var out []string
	for _, g := range rc.Groups {
		if len(g.Derive) == 0 && g.Axis != types.AxisValue {
			out = append(out, g.ID)
		}
	}
	return out
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Validation completed with %d finding(s):\n\n", len(errors))
	for i, err := range errors {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}
	return builder.String()
}

// WriteErrorLog writes the formatted errors to filePath.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create validation log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	writer.WriteString(FormatErrors(errors))
	return writer.Flush()
}

// LogEntries converts findings into entries for utils.WriteErrorLog.
func LogEntries(errors []*ValidationError, fileName, report string) []utils.ErrorLogEntry {
	now := time.Now()
	entries := make([]utils.ErrorLogEntry, len(errors))
	for i, e := range errors {
		entries[i] = utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     fileName,
			Report:       report,
			Severity:     e.Severity,
			ErrorMessage: e.Message,
			RowNumber:    e.RowNumber,
			ItemCode:     e.ItemCode,
			FieldName:    e.Field,
			FieldValue:   e.Value,
		}
	}
	return entries
}
