// =============================================================================
// Line Item Pivot - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (pivot)
//   ├── renderCmd   (pivot render)
//   ├── validateCmd (pivot validate)
//   ├── previewCmd  (pivot preview)
//   └── versionCmd  (pivot version)
//
// The root command owns the global flags and the shared setup: loading the
// main configuration, the report definitions and the logger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/line-item-pivot/internal/config"
	"github.com/ginjaninja78/line-item-pivot/internal/report"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "pivot",
	Short: "Line Item Pivot - Render grouped financial line items as pivot reports",
	Long: `Line Item Pivot reads financial line items (CSV, XLSX or JSON), groups them
by the fields a report definition names, and renders a pivot table with
subtotals (소계), totals (합계) and a grand total (총계).

Key Features:
  - Multi-level row and column grouping with per-level totals
  - YAML report definitions with derive rules for computed group fields
  - Amount units (원, 천원, 백만원) and locale number formatting
  - XLSX, HTML, PDF, XML, JSON and text output
  - Terminal preview of a rendered report

Example Usage:
  pivot render                          # Render every file in the input directory
  pivot render --file note10.csv        # Render a single file
  pivot validate                        # Check the report definitions
  pivot preview --file note10.csv       # Browse a report in the terminal`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// environment is what every command needs before it can touch a file.
type environment struct {
	main    *config.MainConfig
	reports []*config.ReportConfig
	logger  report.Logger
	closer  io.Closer
}

// Close releases the log file, if one was opened.
func (e *environment) Close() {
	if e.closer != nil {
		e.closer.Close()
	}
}

// loadEnvironment loads the main configuration, the report definitions and
// the logger.
//
// RETURNS:
//   - The environment. Call Close when done.
//   - An error if either configuration cannot be loaded.
func loadEnvironment() (*environment, error) {
	mc, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	reports, err := config.LoadReportConfigs(mc.ReportsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load report configs: %w", err)
	}

	env := &environment{main: mc, reports: reports}

	level := mc.LogLevel
	if verbose {
		level = "debug"
	}

	var out io.Writer = os.Stdout
	if mc.LogFile != "" {
		file, err := os.OpenFile(mc.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = file
		env.closer = file
	} else if !verbose {
		// Without a log file the console shows the command's own output;
		// only warnings and errors are logged alongside it.
		level = "warn"
	}
	env.logger = report.NewLogger(out, level)

	return env, nil
}

// reportByCode returns the report definition with the given code.
func (e *environment) reportByCode(code string) (*config.ReportConfig, error) {
	for _, rc := range e.reports {
		if rc.ReportCode == code {
			return rc, nil
		}
	}
	return nil, fmt.Errorf("no report with code %q in %s", code, e.main.ReportsDir)
}

// reportFor resolves the report for an input file: the --report code when
// given, otherwise the first report whose patterns match the file name.
func (e *environment) reportFor(path, code string) (*config.ReportConfig, error) {
	if code != "" {
		return e.reportByCode(code)
	}
	rc := config.FindReport(e.reports, baseName(path))
	if rc == nil {
		return nil, fmt.Errorf("no matching report configuration found")
	}
	return rc, nil
}
