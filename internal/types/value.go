package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindString
	KindStrings
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindStrings:
		return "strings"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "undefined"
	}
}

// Value is a line item field value: a string, a string list, a number,
// a boolean, null, or undefined (absent). The zero Value is undefined.
type Value struct {
	kind Kind
	str  string
	strs []string
	num  float64
	b    bool
}

func Undefined() Value { return Value{} }
func Null() Value { return Value{kind: KindNull} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Strings(ss ...string) Value { return Value{kind: KindStrings, strs: ss} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// GroupKey returns the string a value contributes as a grouping key.
// Absent values bucket under "undefined" and nulls under "null".
func (v Value) GroupKey() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindStrings:
		return strings.Join(v.strs, ",")
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "undefined"
	}
}

// Text returns the display text of the value. Undefined and null are empty.
func (v Value) Text() string {
	switch v.kind {
	case KindUndefined, KindNull:
		return ""
	default:
		return v.GroupKey()
	}
}

// List returns the value as a string list.
func (v Value) List() []string {
	switch v.kind {
	case KindStrings:
		return append([]string(nil), v.strs...)
	case KindUndefined, KindNull:
		return nil
	default:
		return []string{v.GroupKey()}
	}
}

// Truthy reports whether the value is considered true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	case KindStrings:
		return true
	default:
		return false
	}
}

// Float coerces the value to a number the way a loosely typed caller would.
// ok is false when the coercion fails (NaN); such values count as zero.
func (v Value) Float() (f float64, ok bool) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return 0, false
		}
		return v.num, true
	case KindNull:
		return 0, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		return parseNumeric(v.str)
	case KindStrings:
		switch len(v.strs) {
		case 0:
			return 0, true
		case 1:
			return parseNumeric(v.strs[0])
		}
		return 0, false
	default:
		return 0, false
	}
}

// NumberOrZero returns Float with failed coercions mapped to zero.
func (v Value) NumberOrZero() float64 {
	f, _ := v.Float()
	return f
}

// Equal reports whether two values hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindStrings:
		if len(v.strs) != len(o.strs) {
			return false
		}
		for i := range v.strs {
			if v.strs[i] != o.strs[i] {
				return false
			}
		}
	}
	return true
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.kind, v.Text())
}

// MarshalJSON encodes undefined as null; callers omit undefined fields.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindStrings:
		if v.strs == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.strs)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON scalar or string array into a Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// FromInterface converts a decoded JSON or YAML value into a Value.
func FromInterface(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case []interface{}:
		ss := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				s = fmt.Sprint(e)
			}
			ss = append(ss, s)
		}
		return Strings(ss...), nil
	case []string:
		return Strings(x...), nil
	default:
		return Undefined(), fmt.Errorf("unsupported value type %T", raw)
	}
}

// ParseCell converts a raw text cell into a Value. When numeric is set,
// thousands separators are stripped and parseable cells become numbers.
// Empty cells are null.
func ParseCell(raw string, numeric bool) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Null()
	}
	if numeric {
		cleaned := strings.ReplaceAll(s, ",", "")
		if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
			cleaned = "-" + strings.Trim(cleaned, "()")
		}
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return Number(f)
		}
	}
	return String(s)
}

// parseNumeric mirrors loose numeric coercion: surrounding whitespace is
// ignored, empty text is zero, and anything unparseable fails.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
