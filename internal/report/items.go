package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ginjaninja78/line-item-pivot/internal/config"
	"github.com/ginjaninja78/line-item-pivot/internal/csvparser"
	"github.com/ginjaninja78/line-item-pivot/internal/types"
	"github.com/ginjaninja78/line-item-pivot/internal/xlsxparser"
)

// Source types.
const (
	SourceCSV  = "csv"
	SourceXLSX = "xlsx"
	SourceJSON = "json"
)

// ItemSet is the set of line items loaded from one input file.
type ItemSet struct {
	// Items are the line items in source order. Seq is the position.
	Items []types.LineItem

	// Fields are the item field names in source column order.
	Fields []string

	// RowNumbers holds the source row of each item, for error reporting.
	// JSON sources number items from 1.
	RowNumbers []int

	// Source is the path the items were loaded from.
	Source string
}

// RowNumber returns the source row of the item at index i.
func (s *ItemSet) RowNumber(i int) int {
	if i >= 0 && i < len(s.RowNumbers) {
		return s.RowNumbers[i]
	}
	return i + 1
}

// SourceType returns the source type of path under rc. An explicit type in
// the report wins over the file extension.
func SourceType(path string, rc *config.ReportConfig) string {
	if t := strings.ToLower(rc.Source.Type); t != "" {
		return t
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return SourceXLSX
	case ".json":
		return SourceJSON
	default:
		return SourceCSV
	}
}

// LoadItems reads the line items of an input file.
//
// PARAMETERS:
//   - path: The input file.
//   - rc: The report whose source settings and field mapping apply.
//
// RETURNS:
//   - The loaded ItemSet.
//   - An error if the file cannot be read or has an unsupported type.
func LoadItems(path string, rc *config.ReportConfig) (*ItemSet, error) {
	var (
		set *ItemSet
		err error
	)

	switch SourceType(path, rc) {
	case SourceCSV:
		var data *csvparser.CSVData
		data, err = csvparser.Parse(path, rc.Source.CSVSettings)
		if err == nil {
			set = ItemsFromRows(data.Headers, data.Rows, data.RowNumbers, rc)
		}

	case SourceXLSX:
		var sheet *xlsxparser.Sheet
		sheet, err = xlsxparser.Parse(path, xlsxparser.Layout{
			Sheet:        rc.Source.Sheet,
			HeaderRows:   rc.Source.CSVSettings.HeaderRows,
			DataStartRow: rc.Source.CSVSettings.DataStartRow,
		})
		if err == nil {
			set = ItemsFromRows(sheet.Headers, sheet.Rows, sheet.RowNumbers, rc)
		} else if rc.Source.Sheet != "" {
			if names, nerr := xlsxparser.SheetNames(path); nerr == nil {
				err = fmt.Errorf("%w (sheets: %s)", err, strings.Join(names, ", "))
			}
		}

	case SourceJSON:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		set, err = LoadJSON(f, rc)

	default:
		return nil, fmt.Errorf("unsupported source type %q", rc.Source.Type)
	}

	if err != nil {
		return nil, err
	}
	set.Source = path
	return set, nil
}

// ItemsFromRows converts parsed rows into line items. Headers are renamed
// through the report's field mapping; numeric fields are parsed as numbers.
func ItemsFromRows(headers []string, rows []map[string]string, rowNumbers []int, rc *config.ReportConfig) *ItemSet {
	set := &ItemSet{
		Items:      make([]types.LineItem, 0, len(rows)),
		RowNumbers: rowNumbers,
	}

	fields := make([]string, len(headers))
	for i, h := range headers {
		fields[i] = rc.MapField(h)
	}
	set.Fields = fields

	for seq, row := range rows {
		item := types.LineItem{Seq: seq}
		for i, h := range headers {
			setCell(&item, fields[i], row[h], rc)
		}
		set.Items = append(set.Items, item)
	}

	return set
}

// setCell stores one text cell on item.
func setCell(item *types.LineItem, field, raw string, rc *config.ReportConfig) {
	switch field {
	case types.FieldBase:
		item.Set(field, types.Strings(splitList(raw)...))
	case types.FieldIsCustom:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		item.Set(field, types.Bool((err == nil && b) || strings.EqualFold(strings.TrimSpace(raw), "Y")))
	default:
		item.Set(field, types.ParseCell(raw, rc.Numeric(field)))
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadJSON reads a JSON array of line item objects. Field names keep the
// key order of the first object. Keys are renamed through the report's
// field mapping.
func LoadJSON(r io.Reader, rc *config.ReportConfig) (*ItemSet, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	set := &ItemSet{}
	seen := make(map[string]bool)

	for seq := 0; dec.More(); seq++ {
		keys, values, err := decodeObject(dec)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", seq+1, err)
		}

		item := types.LineItem{Seq: seq}
		for i, key := range keys {
			field := rc.MapField(key)
			if !seen[field] && seq == 0 {
				seen[field] = true
				set.Fields = append(set.Fields, field)
			}
			if err := setJSONField(&item, field, values[i], rc); err != nil {
				return nil, fmt.Errorf("item %d, field %q: %w", seq+1, key, err)
			}
		}

		set.Items = append(set.Items, item)
		set.RowNumbers = append(set.RowNumbers, seq+1)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return set, nil
}

func setJSONField(item *types.LineItem, field string, raw json.RawMessage, rc *config.ReportConfig) error {
	// Nested objects are not line item values.
	if len(raw) > 0 && raw[0] == '{' {
		return nil
	}

	// customFields lists which fields were user entered.
	if field == "customFields" {
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil {
			item.Set(field, types.Strings(names...))
		}
		return nil
	}

	var v types.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if v.Kind() == types.KindString && rc.Numeric(field) {
		v = types.ParseCell(v.Text(), true)
	}
	item.Set(field, v)
	return nil
}

func decodeObject(dec *json.Decoder) ([]string, []json.RawMessage, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	var (
		keys   []string
		values []json.RawMessage
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, raw)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// =============================================================================
// FIELD HEADERS
// =============================================================================

// maxHeaderLength bounds the length of derived field header names.
const maxHeaderLength = 20

// DeriveFieldHeaders picks the fields shown by the ungrouped listing.
//
// EXCLUDED:
//   - customFields, value and base
//   - names of 20 or more characters
//   - names listed in exclude
func DeriveFieldHeaders(fields []string, exclude []string) []string {
	var headers []string
	for _, f := range fields {
		switch {
		case f == "customFields", f == types.FieldValue, f == types.FieldBase:
		case len([]rune(f)) >= maxHeaderLength:
		case containsString(exclude, f):
		default:
			headers = append(headers, f)
		}
	}
	return headers
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
