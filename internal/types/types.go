// =============================================================================
// Line Item Pivot - Shared Types
// =============================================================================
//
// This package contains the types shared by the grouping engine, the report
// pipeline and the writers. Keeping them here avoids import cycles between:
//   - grouping
//   - grid
//   - report
//   - validation
//
// LINE ITEM MODEL:
//   A line item carries a fixed set of well-known fields (code, name, base,
//   value, isCustom) plus an open side mapping for caller-defined fields such
//   as derived group ids. Every field value is a tagged Value.
//
// =============================================================================

package types

import (
	"strconv"
)

// =============================================================================
// WELL-KNOWN FIELD NAMES
// =============================================================================

const (
	FieldCode     = "code"
	FieldName     = "name"
	FieldBase     = "base"
	FieldValue    = "value"
	FieldIsCustom = "isCustom"
)

// =============================================================================
// LINE ITEM
// =============================================================================

// LineItem represents a single financial line item.
type LineItem struct {
	// Seq is the position of the item in its source. It is the stable
	// ordering key used to sequence sibling groups.
	Seq int

	// Code is the stable identifier of the item (e.g., an account code).
	Code string

	// Name is the display name of the item.
	Name string

	// Base holds the basis labels of the item (e.g., reporting periods).
	Base []string

	// Value is the numeric amount of the item.
	Value Value

	// IsCustom marks user-entered items.
	IsCustom bool

	// Fields contains every other field, keyed by field name.
	// Derived group fields are stored here under the group id.
	Fields map[string]Value
}

// ID returns the label an item is listed under: its code, or its sequence
// number when it has none. Codes may repeat; Seq is what tells items apart.
func (li LineItem) ID() string {
	if li.Code != "" {
		return li.Code
	}
	return "#" + strconv.Itoa(li.Seq)
}

// Get returns the value of a field. Unknown fields are Undefined.
func (li LineItem) Get(field string) Value {
	switch field {
	case FieldCode:
		return String(li.Code)
	case FieldName:
		return String(li.Name)
	case FieldBase:
		return Strings(li.Base...)
	case FieldValue:
		return li.Value
	case FieldIsCustom:
		return Bool(li.IsCustom)
	}
	if v, ok := li.Fields[field]; ok {
		return v
	}
	return Undefined()
}

// Set assigns a field value. Well-known fields are converted to their
// typed representation.
func (li *LineItem) Set(field string, v Value) {
	switch field {
	case FieldCode:
		li.Code = v.Text()
	case FieldName:
		li.Name = v.Text()
	case FieldBase:
		li.Base = v.List()
	case FieldValue:
		li.Value = v
	case FieldIsCustom:
		li.IsCustom = v.Truthy()
	default:
		if li.Fields == nil {
			li.Fields = make(map[string]Value)
		}
		li.Fields[field] = v
	}
}

// Clone returns a copy of the item with its own field map.
func (li LineItem) Clone() LineItem {
	out := li
	if li.Base != nil {
		out.Base = append([]string(nil), li.Base...)
	}
	if li.Fields != nil {
		out.Fields = make(map[string]Value, len(li.Fields))
		for k, v := range li.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// FieldNames returns the well-known field names followed by the names in
// the side mapping, in the order given by keys.
func (li LineItem) FieldNames(keys []string) []string {
	names := []string{FieldCode, FieldName, FieldBase, FieldValue, FieldIsCustom}
	for _, k := range keys {
		if _, ok := li.Fields[k]; ok {
			names = append(names, k)
		}
	}
	return names
}

// =============================================================================
// GROUP SPECIFICATION
// =============================================================================

// Axis is the dimension along which line items are grouped.
type Axis string

const (
	AxisRow    Axis = "row"
	AxisColumn Axis = "column"
	AxisValue  Axis = "value"
)

// GroupSpec describes one grouping dimension.
type GroupSpec struct {
	// ID is the field the items are grouped by.
	ID string `yaml:"id" json:"id"`

	// Name is the display name of the dimension.
	Name string `yaml:"name" json:"name"`

	// Level is the nesting depth relative to sibling groups (1 = outermost).
	Level int `yaml:"level" json:"level"`

	// Axis places the dimension on the row, column or value axis.
	Axis Axis `yaml:"axis" json:"axis,omitempty"`

	// ShowTotal requests a total at this level.
	ShowTotal bool `yaml:"show_total" json:"showTotal"`
}

// IDs returns the grouping keys of the specs in order.
func IDs(specs []GroupSpec) []string {
	ids := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.ID
	}
	return ids
}
