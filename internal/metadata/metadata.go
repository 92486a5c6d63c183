// Package metadata defines the typed metadata model for vector records.
// Vector store backends only accept primitive payload fields (string, number,
// bool, or list of strings), so arbitrary caller-supplied metadata must be
// reduced to those shapes before it reaches the index client. Value is a
// tagged variant covering exactly the storable shapes; Sanitize is the total
// conversion from free-form maps into storable ones.
package metadata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies the concrete shape held by a Value.
type Kind int

const (
	// KindString is a plain string value.
	KindString Kind = iota
	// KindNumber is a float64 value (all numeric inputs are widened).
	KindNumber
	// KindBool is a boolean value.
	KindBool
	// KindStringList is an ordered list of strings.
	KindStringList
	// KindJSON is a pre-serialized JSON document stored as a string.
	// Values of this kind are produced by Sanitize for nested inputs and
	// are stored under a "_json"-suffixed key.
	KindJSON
)

// Value is a tagged variant holding one storable metadata value.
// The zero Value is an empty string.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
}

// String constructs a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number constructs a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// StringList constructs a list-of-strings Value. The slice is copied.
func StringList(xs []string) Value {
	cp := make([]string, len(xs))
	copy(cp, xs)
	return Value{kind: KindStringList, list: cp}
}

// JSON constructs a Value holding a pre-serialized JSON document.
func JSON(raw string) Value { return Value{kind: KindJSON, str: raw} }

// Kind returns the shape tag of the value.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string content and true when the value is a string
// or JSON document.
func (v Value) AsString() (string, bool) {
	if v.kind == KindString || v.kind == KindJSON {
		return v.str, true
	}
	return "", false
}

// AsNumber returns the numeric content and true when the value is a number.
func (v Value) AsNumber() (float64, bool) {
	if v.kind == KindNumber {
		return v.num, true
	}
	return 0, false
}

// AsBool returns the boolean content and true when the value is a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

// AsStringList returns a copy of the list content and true when the value
// is a list of strings.
func (v Value) AsStringList() ([]string, bool) {
	if v.kind == KindStringList {
		cp := make([]string, len(v.list))
		copy(cp, v.list)
		return cp, true
	}
	return nil, false
}

// Text renders the value as display text regardless of kind. Numbers are
// formatted without a trailing ".0" when integral, lists are joined with
// ", ".
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindJSON:
		return v.str
	case KindNumber:
		if v.num == float64(int64(v.num)) {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStringList:
		out := ""
		for i, s := range v.list {
			if i > 0 {
				out += ", "
			}
			out += s
		}
		return out
	}
	return ""
}

// Map is a storable metadata mapping. All values are guaranteed to be one
// of the primitive shapes a vector store accepts.
type Map map[string]Value

// GetString returns the string content of key, or "" when the key is absent
// or not a string.
func (m Map) GetString(key string) string {
	s, _ := m[key].AsString()
	return s
}

// GetStringList returns the list content of key, or nil when the key is
// absent or not a list.
func (m Map) GetStringList(key string) []string {
	xs, _ := m[key].AsStringList()
	return xs
}

// Keys returns the map's keys in sorted order, for deterministic iteration.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the map. Value is immutable from the
// caller's perspective, so a shallow copy is sufficient.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Sanitize converts a free-form metadata mapping into a storable Map.
// Primitive values map directly; lists whose elements are all strings map
// to StringList; everything else (nested maps, mixed lists, arbitrary
// structs) is serialized to JSON and stored under key + "_json". The
// conversion is total: no input shape causes an error, and values that
// cannot even be JSON-encoded fall back to their fmt representation.
func Sanitize(in map[string]any) Map {
	out := make(Map, len(in))
	for key, raw := range in {
		switch v := raw.(type) {
		case string:
			out[key] = String(v)
		case bool:
			out[key] = Bool(v)
		case int:
			out[key] = Number(float64(v))
		case int32:
			out[key] = Number(float64(v))
		case int64:
			out[key] = Number(float64(v))
		case uint:
			out[key] = Number(float64(v))
		case uint64:
			out[key] = Number(float64(v))
		case float32:
			out[key] = Number(float64(v))
		case float64:
			out[key] = Number(v)
		case []string:
			out[key] = StringList(v)
		case []any:
			if strs, ok := allStrings(v); ok {
				out[key] = StringList(strs)
			} else {
				out[key+"_json"] = encodeJSON(v)
			}
		default:
			out[key+"_json"] = encodeJSON(v)
		}
	}
	return out
}

// allStrings converts a []any to []string when every element is a string.
func allStrings(in []any) ([]string, bool) {
	out := make([]string, 0, len(in))
	for _, e := range in {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// encodeJSON serializes v, falling back to fmt for unmarshalable values
// (channels, funcs) so Sanitize stays total.
func encodeJSON(v any) Value {
	data, err := json.Marshal(v)
	if err != nil {
		return JSON(fmt.Sprintf("%q", fmt.Sprint(v)))
	}
	return JSON(string(data))
}
