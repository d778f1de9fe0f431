package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testReport = `
report_name: 주석 10_01
report_code: note_10_01
file_matching_patterns: ["note*.csv"]
field_mapping:
  계정코드: code
  계정명: name
  금액: value
groups:
  - id: 유형
    axis: row
show_rows_total: true
`

// setupWorkspace writes a main config, one report definition and the given
// input files, and points the command flags at them.
func setupWorkspace(t *testing.T, inputs map[string]string) string {
	t.Helper()
	root := t.TempDir()

	mainConfig := strings.Join([]string{
		"input_dir: " + filepath.Join(root, "input"),
		"output_dir: " + filepath.Join(root, "output"),
		"input_archive_dir: " + filepath.Join(root, "input_archive"),
		"output_archive_dir: " + filepath.Join(root, "output_archive"),
		"reports_dir: " + filepath.Join(root, "reports"),
		"output_name_format: \"{report}_{original}\"",
		"formats: [json]",
		"continue_on_error: true",
	}, "\n")

	mustWrite(t, filepath.Join(root, "config.yaml"), mainConfig)
	mustWrite(t, filepath.Join(root, "reports", "note10.yaml"), testReport)
	for name, content := range inputs {
		mustWrite(t, filepath.Join(root, "input", name), content)
	}

	cfgFile = filepath.Join(root, "config.yaml")
	dryRun, filePath, reportCode, formats, noArchive, recursive = false, "", "", nil, false, false
	verbose = false
	return root
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestRunRender(t *testing.T) {
	root := setupWorkspace(t, map[string]string{
		"note10.csv": "계정코드,계정명,유형,금액\nA1,통화선도,부채,1000\nA2,이자율스왑,자산,2000\n",
	})

	if err := runRender(); err != nil {
		t.Fatalf("runRender() error = %v", err)
	}

	out := filepath.Join(root, "output", "note_10_01_note10.json")
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "총계") {
		t.Errorf("output has no grand total row:\n%s", data)
	}

	if _, err := os.Stat(filepath.Join(root, "input_archive", "note10.csv")); err != nil {
		t.Errorf("input not archived: %v", err)
	}
	summaries, _ := filepath.Glob(filepath.Join(root, "output", "processing_summary_*.txt"))
	if len(summaries) != 1 {
		t.Errorf("summary logs = %v, want one", summaries)
	}
}

func TestRunRenderUnmatchedFile(t *testing.T) {
	root := setupWorkspace(t, map[string]string{
		"note10.csv": "계정코드,계정명,유형,금액\nA1,통화선도,부채,1000\n",
		"other.csv":  "계정코드,계정명,유형,금액\nB1,예금,자산,10\n",
	})

	err := runRender()
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("runRender() error = %v, want 1 of 2 failed", err)
	}

	if _, err := os.Stat(filepath.Join(root, "output", "note_10_01_note10.json")); err != nil {
		t.Errorf("matched file was not rendered: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "input", "other.csv")); err != nil {
		t.Errorf("unmatched input should stay in place: %v", err)
	}
}

func TestRunRenderDryRun(t *testing.T) {
	root := setupWorkspace(t, map[string]string{
		"note10.csv": "계정코드,계정명,유형,금액\nA1,통화선도,부채,1000\n",
	})
	dryRun = true
	defer func() { dryRun = false }()

	if err := runRender(); err != nil {
		t.Fatalf("runRender() error = %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "output"))
	if len(entries) != 0 {
		t.Errorf("dry run wrote %d file(s)", len(entries))
	}
	if _, err := os.Stat(filepath.Join(root, "input", "note10.csv")); err != nil {
		t.Errorf("dry run moved the input: %v", err)
	}
}

func TestRunRenderUnknownFormat(t *testing.T) {
	setupWorkspace(t, nil)
	formats = []string{"docx"}
	defer func() { formats = nil }()

	if err := runRender(); err == nil {
		t.Fatal("runRender() error = nil, want unsupported format")
	}
}

func TestIndent(t *testing.T) {
	got := indent("a\nb\n")
	if got != "  a\n  b\n" {
		t.Errorf("indent() = %q", got)
	}
	if indent("") != "" {
		t.Error("indent(\"\") should be empty")
	}
}
