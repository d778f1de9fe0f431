package writer

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/ginjaninja78/line-item-pivot/internal/grid"
)

// =============================================================================
// XML WRITER
// =============================================================================
//
// XML STRUCTURE:
//
//   <report code="note_10_01" title="주석 10_01" mode="pivot" unit="1000">
//     <columns>
//       <group key="매매목적" kind="group" title="매매목적">
//         <group key="매매목적_부채" kind="leaf" title="부채"/>
//       </group>
//     </columns>
//     <rows>
//       <group key="p1" kind="leaf" title="p1"/>
//     </rows>
//     <data>
//       <row key="p1" kind="leaf" division="p1">
//         <cell key="매매목적_부채">2</cell>
//       </row>
//     </data>
//   </report>
//
// Amounts are the raw sums; unit is the divisor used for presentation.
//
// =============================================================================

type xmlWriter struct {
	indent string
}

func (xmlWriter) Extension() string { return "xml" }

// xmlElement is a generic XML element. Attributes keep insertion order.
type xmlElement struct {
	Name     string
	Attrs    [][2]string
	Value    string
	Children []xmlElement
}

func (e *xmlElement) attr(name, value string) {
	e.Attrs = append(e.Attrs, [2]string{name, value})
}

func (x xmlWriter) Write(w io.Writer, doc *Document) error {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	writeElement(&buf, buildReportElement(doc), x.indent, 0)
	_, err := w.Write(buf.Bytes())
	return err
}

func buildReportElement(doc *Document) xmlElement {
	res := doc.Result
	root := xmlElement{Name: "report"}
	root.attr("code", doc.Code)
	root.attr("title", doc.Title)
	root.attr("mode", string(res.Mode))
	root.attr("unit", strconv.FormatInt(res.AmountUnit, 10))

	root.Children = append(root.Children,
		xmlElement{Name: "columns", Children: groupElements(res.Columns)},
		xmlElement{Name: "rows", Children: groupElements(res.Rows)},
		dataElement(res.Data),
	)
	return root
}

func groupElements(groups []*grid.Group) []xmlElement {
	out := make([]xmlElement, 0, len(groups))
	for _, g := range groups {
		e := xmlElement{Name: "group"}
		e.attr("key", g.Key)
		e.attr("kind", string(g.Kind))
		e.attr("title", g.Title)
		if g.Field != "" {
			e.attr("field", g.Field)
		}
		e.Children = groupElements(g.Children)
		out = append(out, e)
	}
	return out
}

func dataElement(data []*grid.GridData) xmlElement {
	e := xmlElement{Name: "data"}
	for _, d := range data {
		row := xmlElement{Name: "row"}
		row.attr("key", d.RowKey)
		row.attr("kind", string(d.Kind))
		if d.Division != "" {
			row.attr("division", d.Division)
		}
		for _, c := range d.Cells() {
			cell := xmlElement{Name: "cell"}
			cell.attr("key", c.Key)
			if c.IsAmount() {
				cell.Value = c.Amount.String()
			} else {
				cell.Value = c.Value.Text()
			}
			row.Children = append(row.Children, cell)
		}
		e.Children = append(e.Children, row)
	}
	return e
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element xmlElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.Name)
	for _, a := range element.Attrs {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", a[0], escapeXML(a[1])))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.Name)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
