// =============================================================================
// Line Item Pivot - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the per-report
// pivot definitions.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Report Configs (reports/*.yaml): One pivot definition per report
//
// A report config names the input files it applies to, how line items are
// read from them, how group fields are derived, and which groups sit on the
// row, column and value axes.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/line-item-pivot/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for line item files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where rendered reports are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after they render successfully.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives copies of rendered reports.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ReportsDir is the directory containing report definitions.
	// Each YAML file in this directory describes one report.
	// Default: "./reports"
	ReportsDir string `yaml:"reports_dir"`

	// ArchiveRetentionDays removes archived files older than this many days.
	// Zero keeps archives forever.
	ArchiveRetentionDays int `yaml:"archive_retention_days"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file.
	// Empty logs to stdout only.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the base name of rendered files. The format's
	// extension is appended.
	// Placeholders:
	//   {report}    - Report code
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {time}      - Current time (HHMMSS)
	// Default: "{report}_{date}_{uuid}"
	OutputNameFormat string `yaml:"output_name_format"`

	// Formats lists the output formats rendered for every report.
	// Valid values: "xlsx", "html", "pdf", "xml", "json", "text"
	// Default: ["xlsx", "html"]
	Formats []string `yaml:"formats"`

	// Locale is the BCP 47 tag used to format amounts.
	// Default: "ko"
	Locale string `yaml:"locale"`

	// FractionDigits is the maximum number of decimals shown for amounts.
	FractionDigits int `yaml:"fraction_digits"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files rendered concurrently.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError determines whether to continue with other files
	// if one file fails.
	ContinueOnError bool `yaml:"continue_on_error"`

	// FailOnWarnings stops a report when item validation reports warnings.
	FailOnWarnings bool `yaml:"fail_on_warnings"`

	// PDFFont is a TrueType font file used by the pdf format. Hangul text
	// needs one; the built-in PDF fonts only cover Latin-1.
	PDFFont string `yaml:"pdf_font"`
}

// Supported output formats.
var SupportedFormats = []string{"xlsx", "html", "pdf", "xml", "json", "text"}

// =============================================================================
// REPORT CONFIGURATION STRUCTURE
// =============================================================================

// ReportConfig holds the pivot definition of one report.
type ReportConfig struct {
	// =========================================================================
	// REPORT IDENTIFICATION
	// =========================================================================

	// ReportName is the human-readable name, e.g. "주석 10_01".
	ReportName string `yaml:"report_name"`

	// ReportCode is a short code used in output file names.
	ReportCode string `yaml:"report_code"`

	// FileMatchingPatterns is a list of glob patterns matched against input
	// file names. The first report with a matching pattern is used.
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// =========================================================================
	// SOURCE SETTINGS
	// =========================================================================

	// Source describes how line items are read from an input file.
	Source SourceSettings `yaml:"source"`

	// FieldMapping renames source headers to line item fields, e.g.
	// "계정코드": "code". Unmapped headers keep their name.
	FieldMapping map[string]string `yaml:"field_mapping"`

	// NumericFields are parsed as numbers. "value" is always numeric.
	NumericFields []string `yaml:"numeric_fields"`

	// ExcludeFields are never used as derived field headers. Prior-period
	// columns usually sit on the value axis instead.
	// Default: ["전기", "전기말"]
	ExcludeFields []string `yaml:"exclude_fields"`

	// =========================================================================
	// PIVOT SETTINGS
	// =========================================================================

	// Groups are the grouping dimensions, each placed on an axis.
	Groups []GroupConfig `yaml:"groups"`

	// ValueFields are the fields summed into cells. Groups on the value
	// axis are appended. Default: ["value"]
	ValueFields []string `yaml:"value_fields"`

	// FieldHeaders are the columns of the ungrouped listing. When empty they
	// are derived from the items.
	FieldHeaders []string `yaml:"field_headers"`

	ShowRowsTotal bool `yaml:"show_rows_total"`
	ShowColsTotal bool `yaml:"show_cols_total"`

	// AmountUnit divides amounts when presented: 1, 1000, 10000 or 1000000.
	// Default: 1
	AmountUnit int64 `yaml:"amount_unit"`

	// sourceFile is the YAML file the config was loaded from.
	sourceFile string
}

// SourceSettings describes the input file layout.
type SourceSettings struct {
	// Type is "csv", "xlsx" or "json". Empty infers from the extension.
	Type string `yaml:"type"`

	// Sheet is the XLSX sheet to read. Default: first sheet.
	Sheet string `yaml:"sheet"`

	// CSVSettings contains settings for parsing CSV input.
	CSVSettings CSVSettings `yaml:"csv_settings"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows in the CSV file.
	// Multi-row headers are merged with a space.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the row number where the actual data begins.
	// Row numbering starts at 1.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// Encoding is the character encoding of the CSV file.
	// Valid values: "UTF-8", "EUC-KR", "CP949", "Windows-1252", "ISO-8859-1"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// QuoteChar is the character used to quote fields.
	// Default: '"'
	QuoteChar string `yaml:"quote_char"`
}

// =============================================================================
// GROUP CONFIGURATION STRUCTURE
// =============================================================================

// GroupConfig is a group spec plus the rules that derive its field.
type GroupConfig struct {
	types.GroupSpec `yaml:",inline"`

	// Derive computes the group field for every item. Actions run in order
	// over a working value; the final value is stored under the group id.
	// Without actions the field must already exist on the items.
	Derive []DeriveAction `yaml:"derive"`
}

// DeriveAction is one step of a derive chain.
type DeriveAction struct {
	// Type is the action to apply.
	// Supported types:
	//   - "field"               : Load another field of the item
	//   - "split"               : Split by Separator and keep part Index
	//   - "lookup"              : Replace via LookupTable, keep on miss
	//   - "lookup_with_default" : Replace via LookupTable, Value on miss
	//   - "equals"              : Then if the value equals Value, else Else
	//   - "same_as_previous"    : Then if equal to the previous item's value
	//                             at this step, else Else
	//   - "position_below"      : Then if the item index is below Limit,
	//                             else Else
	//   - "constant"            : Replace with Value
	//   - "null"                : Replace with null
	//   - String actions: "trim", "uppercase", "lowercase", "title_case",
	//     "prepend_string", "append_string", "replace", "regex_replace",
	//     "substring", "pad_zeros_to_length", "remove_leading_zeros",
	//     "extract_digits", "extract_letters", "normalize_whitespace"
	Type string `yaml:"type"`

	// Value is the parameter of the action.
	Value string `yaml:"value,omitempty"`

	// Find is used for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// Field is the item field read by "field" and used as the key by the
	// lookup actions. Lookups default to the working value.
	Field string `yaml:"field,omitempty"`

	// Separator and Index are used by "split". Index may be negative to
	// count from the end.
	Separator string `yaml:"separator,omitempty"`
	Index     int    `yaml:"index,omitempty"`

	// Limit is used by "position_below".
	Limit int `yaml:"limit,omitempty"`

	// Then and Else are the outcomes of the comparison actions.
	Then string `yaml:"then,omitempty"`
	Else string `yaml:"else,omitempty"`

	// LookupTable maps keys to values for the lookup actions.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// DeriveActionTypes lists every supported derive action type.
var DeriveActionTypes = []string{
	"field", "split", "lookup", "lookup_with_default", "equals",
	"same_as_previous", "position_below", "constant", "null",
	"trim", "uppercase", "lowercase", "title_case",
	"prepend_string", "append_string", "replace", "regex_replace",
	"substring", "pad_zeros_to_length", "remove_leading_zeros",
	"extract_digits", "extract_letters", "normalize_whitespace",
}

// IsDeriveAction reports whether t is a supported derive action type.
func IsDeriveAction(t string) bool {
	return contains(DeriveActionTypes, t)
}

// =============================================================================
// REPORT ACCESSORS
// =============================================================================

// Specs returns the group specs on axis, ordered by level.
func (rc *ReportConfig) Specs(axis types.Axis) []types.GroupSpec {
	var specs []types.GroupSpec
	for _, g := range rc.Groups {
		if g.Axis == axis {
			specs = append(specs, g.GroupSpec)
		}
	}
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].Level < specs[j].Level })
	return specs
}

// AllValueFields returns the configured value fields followed by the ids of
// the value-axis groups.
func (rc *ReportConfig) AllValueFields() []string {
	fields := append([]string(nil), rc.ValueFields...)
	for _, g := range rc.Specs(types.AxisValue) {
		if !contains(fields, g.ID) {
			fields = append(fields, g.ID)
		}
	}
	if len(fields) == 0 {
		fields = []string{types.FieldValue}
	}
	return fields
}

// Numeric reports whether field is parsed as a number.
func (rc *ReportConfig) Numeric(field string) bool {
	return field == types.FieldValue || contains(rc.NumericFields, field) || contains(rc.ValueFields, field)
}

// MapField returns the line item field a source header maps to.
func (rc *ReportConfig) MapField(header string) string {
	if f, ok := rc.FieldMapping[header]; ok && f != "" {
		return f
	}
	return header
}

// SourceFile returns the path the config was loaded from.
func (rc *ReportConfig) SourceFile() string {
	return rc.sourceFile
}

// Matches reports whether fileName matches one of the report's patterns.
func (rc *ReportConfig) Matches(fileName string) bool {
	for _, pattern := range rc.FileMatchingPatterns {
		if matched, _ := filepath.Match(pattern, fileName); matched {
			return true
		}
	}
	return false
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// ApplyMainConfigDefaults sets default values for any unset options.
func ApplyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.ReportsDir == "" {
		config.ReportsDir = "./reports"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{report}_{date}_{uuid}"
	}
	if len(config.Formats) == 0 {
		config.Formats = []string{"xlsx", "html"}
	}
	if config.Locale == "" {
		config.Locale = "ko"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
}

// validateMainConfig checks the formats and creates missing directories.
func validateMainConfig(config *MainConfig) error {
	for _, f := range config.Formats {
		if !contains(SupportedFormats, strings.ToLower(f)) {
			return fmt.Errorf("unsupported output format %q (supported: %s)", f, strings.Join(SupportedFormats, ", "))
		}
	}

	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.ReportsDir,
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// LoadReportConfigs loads all report configurations from a directory.
//
// PARAMETERS:
//   - reportsDir: The directory containing report configuration files.
//
// RETURNS:
//   - The report configurations sorted by file name.
//   - An error if the directory cannot be read or any file cannot be parsed.
func LoadReportConfigs(reportsDir string) ([]*ReportConfig, error) {
	files, err := filepath.Glob(filepath.Join(reportsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list report files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(reportsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list report files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	configs := make([]*ReportConfig, 0, len(files))
	for _, file := range files {
		config, err := LoadReportConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		configs = append(configs, config)
	}

	return configs, nil
}

// LoadReportConfig loads a single report configuration file.
func LoadReportConfig(filePath string) (*ReportConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	config, err := ParseReportConfig(data)
	if err != nil {
		return nil, err
	}
	config.sourceFile = filePath

	if config.ReportCode == "" {
		base := filepath.Base(filePath)
		config.ReportCode = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if config.ReportName == "" {
		config.ReportName = config.ReportCode
	}

	return config, nil
}

// ParseReportConfig parses and normalizes a report configuration.
func ParseReportConfig(data []byte) (*ReportConfig, error) {
	var config ReportConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	ApplyReportConfigDefaults(&config)
	return &config, nil
}

// ApplyReportConfigDefaults sets default values and normalizes the groups.
//
// NORMALIZATION:
//   - Groups without an axis go on the row axis.
//   - Groups without a name are named "Group N" (N counts all groups).
//   - Groups without a level take their position within their axis.
//   - A total on the deepest group of an axis turns on that axis' total.
func ApplyReportConfigDefaults(config *ReportConfig) {
	// Source defaults.
	csv := &config.Source.CSVSettings
	if csv.Delimiter == "" {
		csv.Delimiter = ","
	}
	if csv.HeaderRows == 0 {
		csv.HeaderRows = 1
	}
	if csv.DataStartRow == 0 {
		csv.DataStartRow = csv.HeaderRows + 1
	}
	if csv.Encoding == "" {
		csv.Encoding = "UTF-8"
	}
	if csv.QuoteChar == "" {
		csv.QuoteChar = "\""
	}

	if config.ExcludeFields == nil {
		config.ExcludeFields = []string{"전기", "전기말"}
	}
	if config.AmountUnit == 0 {
		config.AmountUnit = 1
	}

	// Group defaults.
	position := make(map[types.Axis]int)
	for i := range config.Groups {
		g := &config.Groups[i]
		if g.Axis == "" {
			g.Axis = types.AxisRow
		}
		if g.Name == "" {
			g.Name = fmt.Sprintf("Group %d", i+1)
		}
		position[g.Axis]++
		if g.Level == 0 {
			g.Level = position[g.Axis]
		}
	}

	if deepestTotal(config.Specs(types.AxisRow)) {
		config.ShowRowsTotal = true
	}
	if deepestTotal(config.Specs(types.AxisColumn)) {
		config.ShowColsTotal = true
	}
}

// deepestTotal reports whether the group with the highest level requests
// a total.
func deepestTotal(specs []types.GroupSpec) bool {
	if len(specs) == 0 {
		return false
	}
	return specs[len(specs)-1].ShowTotal
}

// FindReport returns the first report whose patterns match fileName.
func FindReport(reports []*ReportConfig, fileName string) *ReportConfig {
	for _, rc := range reports {
		if rc.Matches(fileName) {
			return rc
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
