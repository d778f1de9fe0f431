package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/line-item-pivot/internal/config"
	"github.com/ginjaninja78/line-item-pivot/internal/grid"
	"github.com/ginjaninja78/line-item-pivot/pkg/utils"
)

const derivativesReport = `
report_name: 주석 10_01
report_code: note_10_01
file_matching_patterns: ["note*.csv"]
field_mapping:
  계정코드: code
  계정명: name
  금액: value
groups:
  - id: purpose
    axis: column
    derive:
      - {type: field, field: name}
      - {type: split, separator: "_", index: 1}
      - {type: equals, value: 매매, then: 매매목적, else: 위험회피목적}
  - id: 유형
    axis: row
amount_unit: 1000
`

const derivativesCSV = `계정코드,계정명,유형,금액
A1,통화선도_매매,부채,"1,000"
A2,통화선도_헤지,부채,2000
A3,이자율스왑_매매,자산,3000
`

// testWorkspace creates the run directories and one input file.
func testWorkspace(t *testing.T, input string) (*config.MainConfig, string) {
	t.Helper()
	root := t.TempDir()

	mc := &config.MainConfig{
		InputDir:         filepath.Join(root, "input"),
		OutputDir:        filepath.Join(root, "output"),
		InputArchiveDir:  filepath.Join(root, "input_archive"),
		OutputArchiveDir: filepath.Join(root, "output_archive"),
		ReportsDir:       filepath.Join(root, "reports"),
		OutputNameFormat: "{report}_{original}",
		Formats:          []string{"json", "text"},
	}
	config.ApplyMainConfigDefaults(mc)

	fm := utils.NewFileManager(mc.InputDir, mc.OutputDir, mc.InputArchiveDir, mc.OutputArchiveDir)
	if err := fm.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}

	path := filepath.Join(mc.InputDir, "note10.csv")
	if err := os.WriteFile(path, []byte(input), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return mc, path
}

func TestRunnerRun(t *testing.T) {
	mc, input := testWorkspace(t, derivativesCSV)
	rc := mustReport(t, derivativesReport)

	result := New(input, rc, mc).Run()
	if !result.Success {
		t.Fatalf("Run() error = %v", result.Error)
	}

	if result.Stats.ItemsLoaded != 3 || result.Stats.Mode != grid.ModePivot || result.Stats.GridRows != 2 {
		t.Errorf("stats = %+v", result.Stats)
	}
	if result.ErrorLog != "" || len(result.Findings) != 0 {
		t.Errorf("findings = %v, log = %q", result.Findings, result.ErrorLog)
	}

	wantOutputs := []string{
		filepath.Join(mc.OutputDir, "note_10_01_note10.json"),
		filepath.Join(mc.OutputDir, "note_10_01_note10.txt"),
	}
	if strings.Join(result.OutputFiles, ",") != strings.Join(wantOutputs, ",") {
		t.Fatalf("OutputFiles = %v, want %v", result.OutputFiles, wantOutputs)
	}
	if result.Stats.OutputBytes == 0 {
		t.Error("OutputBytes = 0")
	}

	data, err := os.ReadFile(wantOutputs[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var report struct {
		Mode string                   `json:"mode"`
		Unit int64                    `json:"unit"`
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if report.Mode != "pivot" || report.Unit != 1000 || len(report.Data) != 2 {
		t.Fatalf("report = %+v", report)
	}
	liabilities := report.Data[0]
	if liabilities["division"] != "부채" || liabilities["매매목적"] != 1000.0 || liabilities["위험회피목적"] != 2000.0 {
		t.Errorf("부채 row = %v", liabilities)
	}

	if utils.FileExists(input) {
		t.Error("input was not archived")
	}
	if !utils.FileExists(filepath.Join(mc.InputArchiveDir, "note10.csv")) {
		t.Error("input missing from the archive")
	}
	if !utils.FileExists(filepath.Join(mc.OutputArchiveDir, "note_10_01_note10.json")) {
		t.Error("output missing from the archive")
	}
}

func TestRunnerDryRun(t *testing.T) {
	mc, input := testWorkspace(t, derivativesCSV)
	rc := mustReport(t, derivativesReport)

	result := New(input, rc, mc).WithDryRun(true).Run()
	if !result.Success {
		t.Fatalf("Run() error = %v", result.Error)
	}
	if len(result.OutputFiles) != 0 || !utils.FileExists(input) {
		t.Errorf("dry run wrote %v or moved the input", result.OutputFiles)
	}
}

func TestRunnerRemovesPartialOutputs(t *testing.T) {
	mc, input := testWorkspace(t, derivativesCSV)
	rc := mustReport(t, derivativesReport)

	result := New(input, rc, mc).WithFormats([]string{"json", "docx"}).Run()
	if result.Success || result.Error == nil {
		t.Fatal("Run() succeeded with an unsupported format")
	}
	if len(result.OutputFiles) != 0 {
		t.Errorf("OutputFiles = %v, want none", result.OutputFiles)
	}
	if utils.FileExists(filepath.Join(mc.OutputDir, "note_10_01_note10.json")) {
		t.Error("json output left behind after a later format failed")
	}
	if !utils.FileExists(input) {
		t.Error("input archived after a failed render")
	}
}

func TestRunnerSharedCodes(t *testing.T) {
	mc, input := testWorkspace(t, derivativesCSV+"A1,통화선도_매매,부채,500\n")
	rc := mustReport(t, derivativesReport)

	p, err := New(input, rc, mc).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	var liability *grid.GridData
	for _, d := range p.Document.Result.Data {
		if d.Division == "부채" {
			liability = d
		}
	}
	if liability == nil {
		t.Fatal("no 부채 row")
	}
	if got := liability.Amount("매매목적"); got.IntPart() != 1500 {
		t.Errorf("부채 매매목적 = %s, want 1500", got)
	}
}

func TestRunnerWarnings(t *testing.T) {
	mc, input := testWorkspace(t, derivativesCSV+"A3,선물_매매,자산,abc\n")
	rc := mustReport(t, derivativesReport)

	result := New(input, rc, mc).WithFormats([]string{"json"}).WithArchive(false).Run()
	if !result.Success {
		t.Fatalf("Run() error = %v", result.Error)
	}
	if result.Stats.ValidationWarnings != 2 {
		t.Errorf("ValidationWarnings = %d, want 2 (numeric, duplicate code)", result.Stats.ValidationWarnings)
	}
	if result.ErrorLog == "" || !utils.FileExists(result.ErrorLog) {
		t.Errorf("ErrorLog = %q", result.ErrorLog)
	}
	if !utils.FileExists(input) {
		t.Error("input archived with archiving off")
	}

	mc.FailOnWarnings = true
	result = New(input, rc, mc).WithFormats([]string{"json"}).Run()
	if result.Success || result.Error == nil {
		t.Fatal("Run() succeeded with fail_on_warnings")
	}
}

func TestRunnerInvalidReport(t *testing.T) {
	mc, input := testWorkspace(t, derivativesCSV)
	rc := mustReport(t, derivativesReport+"\nvalue_fields: [\"\"]\n")

	result := New(input, rc, mc).Run()
	if result.Success || result.Error == nil {
		t.Fatal("Run() succeeded with an invalid report")
	}
	if !strings.Contains(result.Error.Error(), "invalid") {
		t.Errorf("error = %v", result.Error)
	}
}

func TestPrepareBasicListing(t *testing.T) {
	mc, input := testWorkspace(t, derivativesCSV)
	rc := mustReport(t, `
report_code: listing
file_matching_patterns: ["*.csv"]
field_mapping: {계정코드: code, 계정명: name, 금액: value}
`)

	p, err := New(input, rc, mc).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	res := p.Document.Result
	if res.Mode != grid.ModeBasic {
		t.Fatalf("Mode = %s, want basic", res.Mode)
	}
	var titles []string
	for _, c := range res.Columns {
		titles = append(titles, c.Title)
	}
	if got := strings.Join(titles, ","); got != "Code,Name,유형" {
		t.Errorf("column titles = %s, want Code,Name,유형", got)
	}
	if len(res.Data) != 3 {
		t.Errorf("rows = %d, want 3", len(res.Data))
	}
}

func TestLoggerLevels(t *testing.T) {
	var b strings.Builder
	l := NewLogger(&b, "warn")
	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("shown %d", 3)

	out := b.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "[WARN] shown 2") || !strings.Contains(out, "[ERROR] shown 3") {
		t.Errorf("log output = %q", out)
	}
	if ParseLevel("bogus") != LevelInfo {
		t.Error("ParseLevel(bogus) != LevelInfo")
	}
}
