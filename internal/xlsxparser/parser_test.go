package xlsxparser

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheet string, rows [][]interface{}) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("SetSheetName() error = %v", err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName() error = %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	return f
}

func TestParseReader(t *testing.T) {
	f := buildWorkbook(t, "항목", [][]interface{}{
		{"계정코드", "계정명", "", "금액"},
		{"1001", "현금", "x", 1000},
		{nil, nil, nil, nil},
		{"1002", "예금"},
	})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	sheet, err := ParseReader(&buf, Layout{})
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	if sheet.Name != "항목" {
		t.Errorf("Name = %q, want 항목", sheet.Name)
	}
	if want := []string{"계정코드", "계정명", "Column_3", "금액"}; !reflect.DeepEqual(sheet.Headers, want) {
		t.Errorf("Headers = %v, want %v", sheet.Headers, want)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(sheet.Rows))
	}
	if sheet.Rows[0]["금액"] != "1000" || sheet.Rows[1]["금액"] != "" {
		t.Errorf("Rows = %v", sheet.Rows)
	}
	if want := []int{2, 4}; !reflect.DeepEqual(sheet.RowNumbers, want) {
		t.Errorf("RowNumbers = %v, want %v", sheet.RowNumbers, want)
	}
}

func TestParseNamedSheet(t *testing.T) {
	f := buildWorkbook(t, "Sheet1", [][]interface{}{{"code"}, {"A"}})
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("NewSheet() error = %v", err)
	}
	if err := f.SetSheetRow("Data", "A1", &[]interface{}{"code", "value"}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	if err := f.SetSheetRow("Data", "A2", &[]interface{}{"B", 7}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "items.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}

	sheet, err := Parse(path, Layout{Sheet: "Data"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if sheet.Rows[0]["value"] != "7" || sheet.SourceFile != path {
		t.Errorf("Parse() = %+v", sheet)
	}

	names, err := SheetNames(path)
	if err != nil {
		t.Fatalf("SheetNames() error = %v", err)
	}
	if want := []string{"Sheet1", "Data"}; !reflect.DeepEqual(names, want) {
		t.Errorf("SheetNames() = %v, want %v", names, want)
	}

	if _, err := Parse(path, Layout{Sheet: "Missing"}); err == nil {
		t.Error("Parse(missing sheet) error = nil, want error")
	}
}
