package models

import (
	"encoding/json"
	"testing"
)

func TestValueJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   Value
		want string
	}{
		{"null", NullValue(), "null"},
		{"string", StringValue("hello"), `"hello"`},
		{"number", NumberValue(42.5), "42.5"},
		{"bool", BoolValue(true), "true"},
		{"list", ListValue("a", "b"), `["a","b"]`},
	}
	for _, c := range cases {
		data, err := json.Marshal(c.in)
		if err != nil {
			t.Fatalf("%s: marshal failed: %v", c.name, err)
		}
		if string(data) != c.want {
			t.Errorf("%s: got %s, want %s", c.name, data, c.want)
		}
		var out Value
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s: unmarshal failed: %v", c.name, err)
		}
		if !out.Equal(c.in) {
			t.Errorf("%s: round trip changed value: %v != %v", c.name, out, c.in)
		}
	}
}

func TestValueUnmarshalRejectsMixedList(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`["a", 1]`), &v); err == nil {
		t.Error("expected error for list with non-string element")
	}
}

func TestValueIsEmpty(t *testing.T) {
	if !NullValue().IsEmpty() {
		t.Error("null should be empty")
	}
	if !StringValue("   ").IsEmpty() {
		t.Error("whitespace-only string should be empty")
	}
	if StringValue("x").IsEmpty() {
		t.Error("non-blank string should not be empty")
	}
	if !ListValue().IsEmpty() {
		t.Error("empty list should be empty")
	}
	if ListValue("a").IsEmpty() {
		t.Error("non-empty list should not be empty")
	}
	if BoolValue(false).IsEmpty() {
		t.Error("false is a real value, not empty")
	}
	if NumberValue(0).IsEmpty() {
		t.Error("zero is a real value, not empty")
	}
}

func TestValueAsNumber(t *testing.T) {
	if n, ok := NumberValue(3.5).AsNumber(); !ok || n != 3.5 {
		t.Errorf("number reading failed: %v %v", n, ok)
	}
	if n, ok := StringValue(" 17 ").AsNumber(); !ok || n != 17 {
		t.Errorf("string parse failed: %v %v", n, ok)
	}
	if _, ok := StringValue("abc").AsNumber(); ok {
		t.Error("non-numeric string should have no numeric reading")
	}
	if _, ok := BoolValue(true).AsNumber(); ok {
		t.Error("bool should have no numeric reading")
	}
}

func TestValueLength(t *testing.T) {
	if l, ok := StringValue("héllo").Length(); !ok || l != 5 {
		t.Errorf("expected rune count 5, got %d (ok=%v)", l, ok)
	}
	if l, ok := ListValue("a", "b", "c").Length(); !ok || l != 3 {
		t.Errorf("expected list length 3, got %d (ok=%v)", l, ok)
	}
	if _, ok := NumberValue(1).Length(); ok {
		t.Error("number should have no length")
	}
}

func TestValueEqual(t *testing.T) {
	if !ListValue("a", "b").Equal(ListValue("a", "b")) {
		t.Error("equal lists should compare equal")
	}
	if ListValue("a", "b").Equal(ListValue("b", "a")) {
		t.Error("order matters for list equality")
	}
	if StringValue("1").Equal(NumberValue(1)) {
		t.Error("different variants should not compare equal")
	}
	if !NullValue().Equal(NullValue()) {
		t.Error("null equals null")
	}
}

func TestValueMapClone(t *testing.T) {
	m := ValueMap{"a": StringValue("x")}
	cp := m.Clone()
	cp["a"] = StringValue("y")
	if m["a"].Str() != "x" {
		t.Error("clone should not share entries with the original")
	}
}
