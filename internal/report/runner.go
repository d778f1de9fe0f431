// =============================================================================
// Line Item Pivot - Report Runner
// =============================================================================
//
// This module renders one input file with one report definition. It
// orchestrates the whole pipeline, from loading line items to writing the
// output formats.
//
// PIPELINE:
//   1. Validate the report definition
//   2. Load the line items (csv, xlsx or json)
//   3. Apply the derive chains
//   4. Validate the items
//   5. Compute the pivot grid
//   6. Lay out the document
//   7. Write every output format
//   8. Archive the processed files
//
// CONCURRENCY:
//   A Runner holds no shared state. The render command runs one Runner per
//   input file in its own goroutine.
//
// =============================================================================

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/line-item-pivot/internal/config"
	"github.com/ginjaninja78/line-item-pivot/internal/format"
	"github.com/ginjaninja78/line-item-pivot/internal/grid"
	"github.com/ginjaninja78/line-item-pivot/internal/types"
	"github.com/ginjaninja78/line-item-pivot/internal/validation"
	"github.com/ginjaninja78/line-item-pivot/internal/writer"
	"github.com/ginjaninja78/line-item-pivot/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of rendering a single file.
type Result struct {
	// FilePath is the input file that was rendered.
	FilePath string

	// Report is the code of the report used.
	Report string

	// OutputFiles are the written files, one per format. Empty on failure
	// and on dry runs.
	OutputFiles []string

	Success bool

	// Error is set when Success is false.
	Error error

	// Findings are the validation findings, warnings included.
	Findings []*validation.ValidationError

	// ErrorLog is the error log written for the findings, if any.
	ErrorLog string

	Stats ProcessingStats
}

// ProcessingStats contains statistics about a render.
type ProcessingStats struct {
	ItemsLoaded        int
	Mode               grid.Mode
	GridRows           int
	GridColumns        int
	ValidationWarnings int
	OutputBytes        int64
	ProcessingTime     time.Duration
}

// =============================================================================
// RUNNER STRUCTURE
// =============================================================================

// Runner renders one input file.
type Runner struct {
	inputPath  string
	report     *config.ReportConfig
	mainConfig *config.MainConfig
	files      *utils.FileManager
	formats    []string
	dryRun     bool
	logger     Logger
}

// New creates a Runner.
//
// PARAMETERS:
//   - inputPath: The line item file to render.
//   - rc: The report definition.
//   - mc: The main configuration (directories, formats, locale).
func New(inputPath string, rc *config.ReportConfig, mc *config.MainConfig) *Runner {
	return &Runner{
		inputPath:  inputPath,
		report:     rc,
		mainConfig: mc,
		files:      utils.NewFileManager(mc.InputDir, mc.OutputDir, mc.InputArchiveDir, mc.OutputArchiveDir),
		formats:    mc.Formats,
		logger:     NopLogger(),
	}
}

// WithLogger sets the logger.
func (r *Runner) WithLogger(l Logger) *Runner {
	if l != nil {
		r.logger = l
	}
	return r
}

// WithFormats overrides the configured output formats.
func (r *Runner) WithFormats(formats []string) *Runner {
	if len(formats) > 0 {
		r.formats = formats
	}
	return r
}

// WithDryRun makes Run stop after the document is laid out. Nothing is
// written or archived.
func (r *Runner) WithDryRun(dryRun bool) *Runner {
	r.dryRun = dryRun
	return r
}

// WithArchive turns archiving on or off.
func (r *Runner) WithArchive(archive bool) *Runner {
	r.files.ArchiveOnSuccess = archive
	return r
}

// =============================================================================
// PREPARATION
// =============================================================================

// Prepared is a laid-out report that has not been written yet.
type Prepared struct {
	Items    *ItemSet
	Document *writer.Document
	Findings []*validation.ValidationError
	Warnings int
}

// Prepare runs the pipeline up to the laid-out document.
//
// RETURNS:
//   - The prepared report. Findings are returned even on failure.
//   - An error if the report definition is invalid, the items cannot be
//     loaded or derived, or warnings are fatal by configuration.
func (r *Runner) Prepare() (*Prepared, error) {
	rc := r.report
	p := &Prepared{}

	// =========================================================================
	// STEP 1: VALIDATE REPORT DEFINITION
	// =========================================================================

	for _, f := range validation.ValidateReport(rc) {
		p.Findings = append(p.Findings, f)
		if f.Severity == validation.SeverityError {
			r.logger.Error("Report %s: %s", rc.ReportCode, f.Error())
		} else {
			r.logger.Warn("Report %s: %s", rc.ReportCode, f.Error())
		}
	}
	for _, f := range p.Findings {
		if f.Severity == validation.SeverityError {
			return p, fmt.Errorf("report %s is invalid: %s", rc.ReportCode, f.Message)
		}
	}

	// =========================================================================
	// STEP 2: LOAD ITEMS
	// =========================================================================

	set, err := LoadItems(r.inputPath, rc)
	if err != nil {
		return p, fmt.Errorf("failed to load items: %w", err)
	}
	p.Items = set
	r.logger.Debug("Loaded %d items from %s", len(set.Items), r.inputPath)

	// =========================================================================
	// STEP 3: DERIVE GROUP FIELDS
	// =========================================================================

	if d := NewDeriver(rc.Groups); !d.Empty() {
		items, err := d.Apply(set.Items)
		if err != nil {
			return p, fmt.Errorf("failed to derive group fields: %w", err)
		}
		set.Items = items
		r.logger.Debug("Derived group fields")
	}

	// =========================================================================
	// STEP 4: VALIDATE ITEMS
	// =========================================================================
	// Item findings are warnings. Bad amounts count as zero and missing
	// group fields bucket under "undefined".

	vr := validation.NewValidator(rc).ValidateItems(set.Items, set.RowNumbers)
	p.Findings = append(p.Findings, vr.Errors...)
	p.Warnings = vr.WarningCount
	for _, f := range vr.Errors {
		r.logger.Warn("%s: %s", filepath.Base(r.inputPath), f.Error())
	}
	if r.mainConfig.FailOnWarnings && vr.WarningCount > 0 {
		return p, fmt.Errorf("validation reported %d warnings", vr.WarningCount)
	}

	// =========================================================================
	// STEP 5: COMPUTE GRID
	// =========================================================================

	res := grid.Compute(r.request(set))
	r.logger.Debug("Computed %s grid with %d rows", res.Mode, len(res.Data))

	// =========================================================================
	// STEP 6: LAY OUT DOCUMENT
	// =========================================================================

	f := format.NewFormatter(r.mainConfig.Locale, r.mainConfig.FractionDigits, rc.AmountUnit)
	doc := writer.NewDocument(rc.ReportName, rc.ReportCode, res, f)
	doc.Source = r.inputPath
	p.Document = doc

	return p, nil
}

// request builds the grid request for the loaded items.
func (r *Runner) request(set *ItemSet) grid.Request {
	rc := r.report

	fieldHeaders := rc.FieldHeaders
	if len(fieldHeaders) == 0 {
		fieldHeaders = DeriveFieldHeaders(set.Fields, rc.ExcludeFields)
	}

	groupHeaders := make([]types.GroupSpec, len(rc.Groups))
	for i, g := range rc.Groups {
		groupHeaders[i] = g.GroupSpec
	}

	return grid.Request{
		Items:         set.Items,
		RowGroups:     rc.Specs(types.AxisRow),
		ColumnGroups:  rc.Specs(types.AxisColumn),
		ValueFields:   rc.AllValueFields(),
		FieldHeaders:  fieldHeaders,
		GroupHeaders:  groupHeaders,
		ShowRowsTotal: rc.ShowRowsTotal,
		ShowColsTotal: rc.ShowColsTotal,
		AmountUnit:    rc.AmountUnit,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the whole pipeline for the file.
func (r *Runner) Run() Result {
	startTime := time.Now()
	result := Result{
		FilePath: r.inputPath,
		Report:   r.report.ReportCode,
	}

	r.logger.Info("Rendering %s with report %s", r.inputPath, r.report.ReportCode)

	p, err := r.Prepare()
	result.Findings = p.Findings
	result.Stats.ValidationWarnings = p.Warnings
	if p.Items != nil {
		result.Stats.ItemsLoaded = len(p.Items.Items)
	}
	if len(p.Findings) > 0 && !r.dryRun {
		r.writeErrorLog(&result)
	}
	if err != nil {
		result.Error = err
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	doc := p.Document
	result.Stats.Mode = doc.Result.Mode
	result.Stats.GridRows = len(doc.Result.Data)
	result.Stats.GridColumns = doc.Table.Cols

	if r.dryRun {
		r.logger.Info("Dry run: %s would render as %s (%d rows)", r.inputPath, doc.Result.Mode, len(doc.Result.Data))
		result.Success = true
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	// =========================================================================
	// STEP 7: WRITE OUTPUTS
	// =========================================================================

	for _, name := range r.formats {
		path, size, err := r.writeOutput(name, doc)
		if err != nil {
			r.removeOutputs(result.OutputFiles)
			result.OutputFiles = nil
			result.Stats.OutputBytes = 0
			result.Error = fmt.Errorf("failed to write %s: %w", name, err)
			result.Stats.ProcessingTime = time.Since(startTime)
			return result
		}
		result.OutputFiles = append(result.OutputFiles, path)
		result.Stats.OutputBytes += size
		r.logger.Info("Wrote %s", path)
	}

	// =========================================================================
	// STEP 8: ARCHIVE FILES
	// =========================================================================
	// Archive failures are logged but do not fail the render.

	r.archiveFiles(result.OutputFiles)

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)
	return result
}

// writeOutput renders one format into the output directory.
//
// RETURNS:
//   - The written path and its size in bytes.
func (r *Runner) writeOutput(name string, doc *writer.Document) (string, int64, error) {
	w, err := writer.For(name, writer.Options{PDFFont: r.mainConfig.PDFFont})
	if err != nil {
		return "", 0, err
	}

	base := filepath.Base(r.inputPath)
	fileName := utils.GenerateOutputFileName(r.mainConfig.OutputNameFormat, w.Extension(), map[string]string{
		"report":   r.report.ReportCode,
		"original": strings.TrimSuffix(base, filepath.Ext(base)),
	})
	outputPath := filepath.Join(r.mainConfig.OutputDir, fileName)

	if err := os.MkdirAll(r.mainConfig.OutputDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create output file: %w", err)
	}

	if err := w.Write(file, doc); err != nil {
		file.Close()
		os.Remove(outputPath)
		return "", 0, err
	}
	if err := file.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close output file: %w", err)
	}

	size, err := utils.GetFileSize(outputPath)
	if err != nil {
		return outputPath, 0, nil
	}
	return outputPath, size, nil
}

// removeOutputs deletes the outputs of a render that failed part way, so a
// failed file leaves no partial report set behind.
func (r *Runner) removeOutputs(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			r.logger.Warn("Failed to remove partial output %s: %v", path, err)
			continue
		}
		r.logger.Debug("Removed partial output %s", path)
	}
}

// writeErrorLog writes the findings to an error log in the output directory.
func (r *Runner) writeErrorLog(result *Result) {
	entries := validation.LogEntries(result.Findings, filepath.Base(r.inputPath), r.report.ReportCode)
	path, err := utils.WriteErrorLog(entries, r.mainConfig.OutputDir)
	if err != nil {
		r.logger.Warn("Failed to write error log: %v", err)
		return
	}
	result.ErrorLog = path
}

// archiveFiles copies the outputs to the output archive and moves the input
// to the input archive.
func (r *Runner) archiveFiles(outputs []string) {
	for _, out := range outputs {
		if _, err := r.files.ArchiveOutputFile(out); err != nil {
			r.logger.Warn("Failed to archive output %s: %v", out, err)
		}
	}

	archived, err := r.files.ArchiveInputFile(r.inputPath)
	if err != nil {
		r.logger.Warn("Failed to archive input %s: %v", r.inputPath, err)
		return
	}
	r.logger.Debug("Archived input to %s", archived)
}
