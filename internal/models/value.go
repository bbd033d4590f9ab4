package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

const (
	// ValueNull is the zero Value: no entry was ever set.
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	// ValueList is an ordered sequence of option values, used by multiselect
	// and checkbox-group widgets.
	ValueList
)

// Value is a tagged union covering every value a form field can hold:
// string, number, boolean, ordered string sequence, or null. It replaces the
// loose per-widget value handling with a single explicit type.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

// NullValue returns the null Value. Equivalent to the zero value.
func NullValue() Value { return Value{} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: ValueString, str: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{kind: ValueNumber, num: n} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: ValueBool, b: b} }

// ListValue wraps an ordered sequence of option values. The slice is copied.
func ListValue(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: ValueList, list: cp}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == ValueNull }

// IsEmpty reports whether the value counts as "empty" for required-ness:
// null, a string that is empty after trimming, or an empty sequence.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case ValueNull:
		return true
	case ValueString:
		return strings.TrimSpace(v.str) == ""
	case ValueList:
		return len(v.list) == 0
	default:
		return false
	}
}

// Str returns the string variant's content, or "" for other variants.
func (v Value) Str() string { return v.str }

// Bool returns the boolean variant's content, or false for other variants.
func (v Value) Bool() bool { return v.b }

// List returns a copy of the sequence variant's content, or nil.
func (v Value) List() []string {
	if v.kind != ValueList {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

// AsNumber attempts a numeric reading of the value. Number variants convert
// directly; string variants are parsed. The second return is false when no
// numeric reading exists.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case ValueNumber:
		return v.num, true
	case ValueString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Length returns the length used by minLength/maxLength checks: rune count
// for strings, element count for sequences. The second return is false for
// variants without a length.
func (v Value) Length() (int, bool) {
	switch v.kind {
	case ValueString:
		return utf8.RuneCountInString(v.str), true
	case ValueList:
		return len(v.list), true
	default:
		return 0, false
	}
}

// Equal compares two values by variant and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueNull:
		return true
	case ValueString:
		return v.str == o.str
	case ValueNumber:
		return v.num == o.num
	case ValueBool:
		return v.b == o.b
	case ValueList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for logs and display.
func (v Value) String() string {
	switch v.kind {
	case ValueNull:
		return ""
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueList:
		return strings.Join(v.list, ", ")
	}
	return ""
}

// MarshalJSON encodes the value as its natural JSON form: string, number,
// boolean, array of strings, or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueNull:
		return []byte("null"), nil
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.b)
	case ValueList:
		return json.Marshal(v.list)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

// UnmarshalJSON decodes any of the natural JSON forms into the matching
// variant. Arrays must contain only strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = NullValue()
	case string:
		*v = StringValue(t)
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	case []interface{}:
		items := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("value sequences may only contain strings, got %T", item)
			}
			items = append(items, s)
		}
		*v = ListValue(items...)
	default:
		return fmt.Errorf("unsupported value type %T", raw)
	}
	return nil
}

// ValueMap maps validated field keys to their current typed values.
type ValueMap map[string]Value

// Clone returns a shallow copy of the map. Values are immutable, so a shallow
// copy is sufficient.
func (m ValueMap) Clone() ValueMap {
	cp := make(ValueMap, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
