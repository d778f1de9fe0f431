// =============================================================================
// Line Item Pivot - Render Command
// =============================================================================
//
// This file defines the 'render' command, the main command of the tool. It
// renders every input file with its matching report definition.
//
// COMMAND USAGE:
//   pivot render [flags]
//
// FLAGS:
//   --dry-run  : Compute and lay out the reports without writing anything
//   --file     : Render a single file instead of scanning the input directory
//   --report   : Use this report code instead of matching by file name
//   --format   : Override the configured output formats (repeatable)
//   --no-archive : Leave inputs in place and skip the output archive
//   --recursive  : Also scan subdirectories of the input directory
//
// PROCESSING PIPELINE:
//   1. Load the main configuration and the report definitions
//   2. Discover the input files
//   3. Match each file to a report definition
//   4. Render the files concurrently, at most max_concurrency at a time
//   5. Print and log the summary
//   6. Clean old archives
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/line-item-pivot/internal/config"
	"github.com/ginjaninja78/line-item-pivot/internal/report"
	"github.com/ginjaninja78/line-item-pivot/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun     bool
	filePath   string
	reportCode string
	formats    []string
	noArchive  bool
	recursive  bool
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	bold     = color.New(color.Bold).SprintFunc()
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render line item files as pivot reports",
	Long: `The render command scans the input directory for line item files, matches
each one to a report definition, and writes the report in every configured
output format.

Files are rendered concurrently. A failed file does not stop the others
unless continue_on_error is false.

On success:
  - The outputs are written to the output directory
  - The input is moved to the input archive and the outputs are copied to
    the output archive

On error:
  - An error log is written to the output directory
  - The input stays in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender()
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and lay out the reports without writing output files")
	renderCmd.Flags().StringVar(&filePath, "file", "", "Render only this file")
	renderCmd.Flags().StringVar(&reportCode, "report", "", "Report code to use instead of matching by file name")
	renderCmd.Flags().StringSliceVar(&formats, "format", nil, "Output formats (overrides the configuration)")
	renderCmd.Flags().BoolVar(&noArchive, "no-archive", false, "Do not archive inputs and outputs")
	renderCmd.Flags().BoolVar(&recursive, "recursive", false, "Scan subdirectories of the input directory")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// job pairs an input file with its report definition. A nil report means the
// file matched nothing.
type job struct {
	path   string
	report *config.ReportConfig
	err    error
}

func runRender() error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println(bold("=== Line Item Pivot ==="))
	fmt.Println("Loading configuration...")

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()
	mc := env.main

	for _, f := range formats {
		if !isSupportedFormat(f) {
			return fmt.Errorf("unsupported output format %q (supported: %s)", f, strings.Join(config.SupportedFormats, ", "))
		}
	}

	fmt.Printf("Loaded %d report configuration(s)\n", len(env.reports))

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if filePath != "" {
		if !utils.FileExists(filePath) {
			return fmt.Errorf("input file not found: %s", filePath)
		}
		inputFiles = []string{filePath}
	} else {
		fm := utils.NewFileManager(mc.InputDir, mc.OutputDir, mc.InputArchiveDir, mc.OutputArchiveDir)
		if !dryRun {
			if err := fm.EnsureDirectories(); err != nil {
				return err
			}
		}
		if recursive {
			inputFiles, err = fm.DiscoverInputFilesRecursive(".csv", ".xlsx", ".json")
		} else {
			inputFiles, err = fm.DiscoverInputFiles()
		}
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		fmt.Println("No input files found in the input directory.")
		return nil
	}

	fmt.Printf("Found %d file(s) to render\n", len(inputFiles))

	// =========================================================================
	// STEP 3: MATCH REPORTS
	// =========================================================================

	jobs := make([]job, len(inputFiles))
	for i, path := range inputFiles {
		rc, err := env.reportFor(path, reportCode)
		jobs[i] = job{path: path, report: rc, err: err}
	}

	// =========================================================================
	// STEP 4: RENDER FILES CONCURRENTLY
	// =========================================================================

	if dryRun {
		fmt.Println("Rendering files (dry run)...")
	} else {
		fmt.Println("Rendering files...")
	}

	results := renderAll(jobs, env)

	// =========================================================================
	// STEP 5: SUMMARY
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}

	for _, result := range results {
		name := filepath.Base(result.FilePath)
		if !result.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    name,
				ErrorMessage: errorText(result.Error),
			})
			fmt.Printf("  %s %s: %v\n", failMark("✗"), name, result.Error)
			if result.ErrorLog != "" {
				fmt.Printf("      see %s\n", result.ErrorLog)
			}
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalItems += result.Stats.ItemsLoaded
		summary.TotalGridRows += result.Stats.GridRows
		summary.ValidationWarnings += result.Stats.ValidationWarnings
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   name,
			Report:      result.Report,
			Mode:        string(result.Stats.Mode),
			OutputFiles: result.OutputFiles,
			OutputBytes: result.Stats.OutputBytes,
			Items:       result.Stats.ItemsLoaded,
			GridRows:    result.Stats.GridRows,
			ProcessTime: result.Stats.ProcessingTime,
		})

		fmt.Printf("  %s %s [%s, %s] -> %s\n", okMark("✓"), name, result.Report, result.Stats.Mode, outputList(result))
		if result.Stats.ValidationWarnings > 0 {
			fmt.Printf("      %s %d warning(s)", warnMark("!"), result.Stats.ValidationWarnings)
			if result.ErrorLog != "" {
				fmt.Printf(", see %s", result.ErrorLog)
			}
			fmt.Println()
		}
	}
	summary.EndTime = time.Now()

	fmt.Println()
	fmt.Println(bold("=== Rendering Complete ==="))
	fmt.Printf("Total files:     %s\n", humanize.Comma(int64(summary.TotalFiles)))
	fmt.Printf("Successful:      %s\n", okMark(humanize.Comma(int64(summary.SuccessfulFiles))))
	fmt.Printf("Errors:          %s\n", failMark(humanize.Comma(int64(summary.FailedFiles))))
	fmt.Printf("Line items:      %s\n", humanize.Comma(int64(summary.TotalItems)))
	fmt.Printf("Grid rows:       %s\n", humanize.Comma(int64(summary.TotalGridRows)))
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime).Round(time.Millisecond))

	if !dryRun {
		if path, err := utils.WriteSummaryLog(summary, mc.OutputDir); err != nil {
			env.logger.Warn("Failed to write summary log: %v", err)
		} else {
			fmt.Printf("Summary:         %s\n", path)
		}
	}

	// =========================================================================
	// STEP 6: CLEAN OLD ARCHIVES
	// =========================================================================

	if !dryRun && mc.ArchiveRetentionDays > 0 {
		maxAge := time.Duration(mc.ArchiveRetentionDays) * 24 * time.Hour
		for _, dir := range []string{mc.InputArchiveDir, mc.OutputArchiveDir} {
			if !utils.FileExists(dir) {
				continue
			}
			removed, err := utils.CleanOldArchives(dir, maxAge)
			if err != nil {
				env.logger.Warn("Failed to clean archive %s: %v", dir, err)
				continue
			}
			if removed > 0 {
				env.logger.Info("Removed %d old file(s) from %s", removed, dir)
			}
		}
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// renderAll renders the jobs with at most max_concurrency running at once.
// Results come back in input order. When continue_on_error is false, jobs
// that have not started after the first failure are skipped.
func renderAll(jobs []job, env *environment) []report.Result {
	mc := env.main
	results := make([]report.Result, len(jobs))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed bool
	)
	sem := make(chan struct{}, mc.MaxConcurrency)

	for i, j := range jobs {
		if j.err != nil {
			results[i] = report.Result{FilePath: j.path, Error: j.err}
			if !mc.ContinueOnError {
				mu.Lock()
				failed = true
				mu.Unlock()
			}
			continue
		}

		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			skip := failed
			mu.Unlock()
			if skip {
				results[i] = report.Result{
					FilePath: j.path,
					Report:   j.report.ReportCode,
					Error:    fmt.Errorf("skipped after an earlier failure"),
				}
				return
			}

			result := report.New(j.path, j.report, mc).
				WithLogger(env.logger).
				WithFormats(formats).
				WithDryRun(dryRun).
				WithArchive(!noArchive).
				Run()
			results[i] = result

			if !result.Success && !mc.ContinueOnError {
				mu.Lock()
				failed = true
				mu.Unlock()
			}
		}(i, j)
	}

	wg.Wait()
	return results
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func isSupportedFormat(name string) bool {
	name = strings.ToLower(name)
	for _, f := range config.SupportedFormats {
		if f == name {
			return true
		}
	}
	return false
}

func outputList(result report.Result) string {
	if len(result.OutputFiles) == 0 {
		return "(dry run)"
	}
	names := make([]string, len(result.OutputFiles))
	for i, out := range result.OutputFiles {
		names[i] = filepath.Base(out)
	}
	sort.Strings(names)
	return strings.Join(names, ", ") + " (" + humanize.Bytes(uint64(result.Stats.OutputBytes)) + ")"
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func baseName(path string) string {
	return filepath.Base(path)
}
