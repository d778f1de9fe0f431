// =============================================================================
// Line Item Pivot - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   pivot validate                 # Check every report definition
//   pivot validate --file a.csv    # Also load and check the file's items
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/line-item-pivot/internal/config"
	"github.com/ginjaninja78/line-item-pivot/internal/report"
	"github.com/ginjaninja78/line-item-pivot/internal/validation"
)

var (
	validateFile   string
	validateReport string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate report definitions and, optionally, an input file",
	Long: `The validate command checks every report definition in the reports
directory: amount unit, value fields, group ids and axes, and derive rules.

With --file it also loads the file with its matching report, applies the
derive rules and checks the line items. Nothing is written.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFile, "file", "", "Input file whose line items should be checked")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "Report code to use instead of matching by file name")
}

func runValidate() error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	var invalid int
	for _, rc := range env.reports {
		if printFindings(rc, validation.ValidateReport(rc)) {
			invalid++
		}
	}

	if validateFile != "" {
		rc, err := env.reportFor(validateFile, validateReport)
		if err != nil {
			return fmt.Errorf("%s: %w", validateFile, err)
		}

		p, err := report.New(validateFile, rc, env.main).WithLogger(env.logger).Prepare()
		fmt.Printf("\n%s (%s):\n", validateFile, rc.ReportCode)
		if p.Items != nil {
			fmt.Printf("  %d line item(s) loaded\n", len(p.Items.Items))
		}
		if len(p.Findings) > 0 {
			fmt.Print(indent(validation.FormatErrors(p.Findings)))
		}
		if err != nil {
			fmt.Printf("  %s %v\n", failMark("✗"), err)
			invalid++
		} else {
			fmt.Printf("  %s renders as %s with %d row(s)\n", okMark("✓"), p.Document.Result.Mode, len(p.Document.Result.Data))
		}
	}

	if invalid > 0 {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// printFindings prints a report's findings and reports whether any is an
// error.
func printFindings(rc *config.ReportConfig, findings []*validation.ValidationError) bool {
	hasError := false
	for _, f := range findings {
		if f.Severity == validation.SeverityError {
			hasError = true
		}
	}

	switch {
	case hasError:
		fmt.Printf("%s %s (%s)\n", failMark("✗"), rc.ReportCode, rc.ReportName)
	case len(findings) > 0:
		fmt.Printf("%s %s (%s)\n", warnMark("!"), rc.ReportCode, rc.ReportName)
	default:
		fmt.Printf("%s %s (%s)\n", okMark("✓"), rc.ReportCode, rc.ReportName)
		return false
	}

	fmt.Print(indent(validation.FormatErrors(findings)))
	return hasError
}
