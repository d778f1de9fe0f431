// =============================================================================
// Line Item Pivot - Preview Command
// =============================================================================
//
// COMMAND USAGE:
//   pivot preview --file note10.csv           # Interactive table
//   pivot preview --file note10.csv --plain   # Outline on stdout
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/line-item-pivot/internal/report"
	"github.com/ginjaninja78/line-item-pivot/internal/tui"
	"github.com/ginjaninja78/line-item-pivot/internal/writer"
)

var (
	previewFile   string
	previewReport string
	previewPlain  bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview a rendered report in the terminal",
	Long: `The preview command renders one input file without writing anything and
shows the report as a scrollable table. Press q or Esc to quit.

With --plain the report is printed as a text outline instead.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreview()
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVar(&previewFile, "file", "", "Input file to preview")
	previewCmd.Flags().StringVar(&previewReport, "report", "", "Report code to use instead of matching by file name")
	previewCmd.Flags().BoolVar(&previewPlain, "plain", false, "Print a text outline instead of the interactive table")
	previewCmd.MarkFlagRequired("file")
}

func runPreview() error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	rc, err := env.reportFor(previewFile, previewReport)
	if err != nil {
		return fmt.Errorf("%s: %w", previewFile, err)
	}

	p, err := report.New(previewFile, rc, env.main).WithLogger(env.logger).Prepare()
	if err != nil {
		return err
	}

	if previewPlain {
		out, err := writer.Render("text", p.Document, writer.Options{})
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	return tui.Run(p.Document)
}

// indent prefixes every line of s with two spaces.
func indent(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return "  " + strings.Join(lines, "\n  ") + "\n"
}
