// =============================================================================
// Line Item Pivot - Derive Engine
// =============================================================================
//
// This module computes group fields from declarative derive chains. Reports
// often group by a field that the source does not carry directly, e.g. the
// purpose of a derivative encoded in its account name:
//
//   name: "통화선도_매매"
//   derive:
//     - {type: field, field: name}
//     - {type: split, separator: "_", index: 1}
//     - {type: equals, value: 매매, then: 매매목적, else: 위험회피목적}
//   result: "매매목적"
//
// Each chain starts from the group's own field (undefined if absent) and
// runs its actions in order over a working value. The final value is stored
// on the item under the group id.
//
// THEN / ELSE:
//   For the comparison actions an empty Then or Else keeps the working value.
//
// =============================================================================

package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/line-item-pivot/internal/config"
	"github.com/ginjaninja78/line-item-pivot/internal/types"
)

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	lettersPattern    = regexp.MustCompile(`\p{L}+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// =============================================================================
// DERIVER
// =============================================================================

// Deriver applies the derive chains of a report's groups.
type Deriver struct {
	groups []config.GroupConfig
}

// NewDeriver creates a Deriver for the groups that declare a chain.
func NewDeriver(groups []config.GroupConfig) *Deriver {
	d := &Deriver{}
	for _, g := range groups {
		if len(g.Derive) > 0 {
			d.groups = append(d.groups, g)
		}
	}
	return d
}

// Empty reports whether no group declares a chain.
func (d *Deriver) Empty() bool {
	return len(d.groups) == 0
}

// Apply returns copies of items with every derived group field set.
// The input items are not modified.
//
// PARAMETERS:
//   - items: The line items in source order.
//
// RETURNS:
//   - The derived items, in the same order.
//   - An error naming the group and action that failed.
func (d *Deriver) Apply(items []types.LineItem) ([]types.LineItem, error) {
	out := make([]types.LineItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}

	for _, g := range d.groups {
		// same_as_previous compares against the previous item at the same step.
		previous := make(map[int]types.Value)

		for i := range out {
			v, err := d.chain(g, out[i], i, previous)
			if err != nil {
				return nil, fmt.Errorf("group %q, item %d: %w", g.ID, i+1, err)
			}
			out[i].Set(g.ID, v)
		}
	}

	return out, nil
}

func (d *Deriver) chain(g config.GroupConfig, item types.LineItem, index int, previous map[int]types.Value) (types.Value, error) {
	working := item.Get(g.ID)

	for step, action := range g.Derive {
		next, err := applyAction(working, action, item, index, previous[step])
		if err != nil {
			return types.Value{}, fmt.Errorf("action %d (%s): %w", step+1, action.Type, err)
		}
		if action.Type == "same_as_previous" {
			previous[step] = working
		}
		working = next
	}

	return working, nil
}

// =============================================================================
// ACTIONS
// =============================================================================

// applyAction applies a single derive action to the working value.
//
// PARAMETERS:
//   - working: The current working value.
//   - action: The action to apply.
//   - item: The item being derived, for actions that read other fields.
//   - index: The 0-based position of the item.
//   - prev: The previous item's working value at this step.
func applyAction(working types.Value, action config.DeriveAction, item types.LineItem, index int, prev types.Value) (types.Value, error) {
	switch action.Type {

	// =========================================================================
	// VALUE SOURCES
	// =========================================================================

	case "field":
		return item.Get(action.Field), nil

	case "constant":
		return types.String(action.Value), nil

	case "null":
		return types.Null(), nil

	// =========================================================================
	// STRUCTURAL
	// =========================================================================

	case "split":
		// Out-of-range parts are undefined.
		//
		// EXAMPLE:
		//   Input: "통화선도_매매", separator "_", index 1
		//   Output: "매매"
		if action.Separator == "" {
			return working, nil
		}
		parts := strings.Split(working.Text(), action.Separator)
		i := action.Index
		if i < 0 {
			i += len(parts)
		}
		if i < 0 || i >= len(parts) {
			return types.Undefined(), nil
		}
		return types.String(parts[i]), nil

	case "lookup", "lookup_with_default":
		key := working.Text()
		if action.Field != "" {
			key = item.Get(action.Field).Text()
		}
		if replacement, ok := action.LookupTable[key]; ok {
			return types.String(replacement), nil
		}
		if action.Type == "lookup_with_default" {
			return types.String(action.Value), nil
		}
		return working, nil

	// =========================================================================
	// COMPARISONS
	// =========================================================================

	case "equals":
		return choose(working.Text() == action.Value, working, action), nil

	case "same_as_previous":
		return choose(index > 0 && working.Equal(prev), working, action), nil

	case "position_below":
		return choose(index < action.Limit, working, action), nil
	}

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	s, err := applyStringAction(working.Text(), action)
	if err != nil {
		return types.Value{}, err
	}
	return types.String(s), nil
}

func choose(cond bool, working types.Value, action config.DeriveAction) types.Value {
	outcome := action.Else
	if cond {
		outcome = action.Then
	}
	if outcome == "" {
		return working
	}
	return types.String(outcome)
}

// applyStringAction applies one of the text actions.
func applyStringAction(value string, action config.DeriveAction) (string, error) {
	switch action.Type {
	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "title_case":
		return cases.Title(language.Und).String(strings.ToLower(value)), nil

	case "prepend_string":
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	case "substring":
		// VALUE FORMAT: "start,end" in characters, end exclusive.
		parts := strings.Split(action.Value, ",")
		if len(parts) != 2 {
			return value, nil
		}
		runes := []rune(value)
		start, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
		end, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
		start = max(start, 0)
		end = min(end, len(runes))
		if start >= end {
			return "", nil
		}
		return string(runes[start:end]), nil

	case "pad_zeros_to_length":
		n, err := strconv.Atoi(action.Value)
		if err != nil || n <= 0 {
			return value, nil
		}
		return PadLeft(value, n, '0'), nil

	case "remove_leading_zeros":
		result := strings.TrimLeft(value, "0")
		if result == "" && value != "" {
			return "0", nil
		}
		return result, nil

	case "extract_digits":
		return strings.Join(digitsPattern.FindAllString(value, -1), ""), nil

	case "extract_letters":
		return strings.Join(lettersPattern.FindAllString(value, -1), ""), nil

	case "normalize_whitespace":
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " ")), nil

	default:
		return "", fmt.Errorf("unknown derive action: %s", action.Type)
	}
}

// PadLeft pads a string with a character on the left to reach the target
// length in characters.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
