package writer

import (
	"encoding/json"
	"io"

	"github.com/ginjaninja78/line-item-pivot/internal/grid"
)

type jsonWriter struct{}

func (jsonWriter) Extension() string { return "json" }

// jsonReport is the document written by the json format. Data rows are
// flat objects keyed by column key; see grid.GridData.MarshalJSON.
type jsonReport struct {
	Title   string           `json:"title"`
	Code    string           `json:"code,omitempty"`
	Mode    grid.Mode        `json:"mode"`
	Unit    int64            `json:"unit"`
	Columns []*grid.Group    `json:"columns"`
	Rows    []*grid.Group    `json:"rows"`
	Data    []*grid.GridData `json:"data"`
}

func (jsonWriter) Write(w io.Writer, doc *Document) error {
	res := doc.Result
	report := jsonReport{
		Title:   doc.Title,
		Code:    doc.Code,
		Mode:    res.Mode,
		Unit:    res.AmountUnit,
		Columns: nonNil(res.Columns),
		Rows:    nonNil(res.Rows),
		Data:    res.Data,
	}
	if report.Data == nil {
		report.Data = []*grid.GridData{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(report)
}

func nonNil(groups []*grid.Group) []*grid.Group {
	if groups == nil {
		return []*grid.Group{}
	}
	return groups
}
