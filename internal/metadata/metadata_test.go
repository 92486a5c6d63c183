package metadata

import (
	"reflect"
	"testing"
)

func Test_Sanitize_Primitives(t *testing.T) {
	t.Parallel()

	got := Sanitize(map[string]any{
		"filename":  "main.py",
		"file_size": 2048,
		"binary":    false,
		"score":     0.75,
	})

	if s := got.GetString("filename"); s != "main.py" {
		t.Errorf("filename = %q, want main.py", s)
	}
	if n, ok := got["file_size"].AsNumber(); !ok || n != 2048 {
		t.Errorf("file_size = %v/%v, want 2048", n, ok)
	}
	if b, ok := got["binary"].AsBool(); !ok || b {
		t.Errorf("binary = %v/%v, want false", b, ok)
	}
	if n, ok := got["score"].AsNumber(); !ok || n != 0.75 {
		t.Errorf("score = %v/%v, want 0.75", n, ok)
	}
}

func Test_Sanitize_StringLists(t *testing.T) {
	t.Parallel()

	got := Sanitize(map[string]any{
		"analysis_functions": []string{"chunk", "embed"},
		"mixed":              []any{"a", "b"},
	})

	if xs := got.GetStringList("analysis_functions"); !reflect.DeepEqual(xs, []string{"chunk", "embed"}) {
		t.Errorf("analysis_functions = %v", xs)
	}
	if xs := got.GetStringList("mixed"); !reflect.DeepEqual(xs, []string{"a", "b"}) {
		t.Errorf("mixed = %v", xs)
	}
}

func Test_Sanitize_NestedBecomesJSON(t *testing.T) {
	t.Parallel()

	got := Sanitize(map[string]any{
		"analysis": map[string]any{"language": "python"},
		"counts":   []any{1, 2, 3},
	})

	if _, ok := got["analysis"]; ok {
		t.Error("nested map must not be stored under its original key")
	}
	v, ok := got["analysis_json"]
	if !ok {
		t.Fatal("missing analysis_json key")
	}
	if v.Kind() != KindJSON {
		t.Errorf("analysis_json kind = %v, want KindJSON", v.Kind())
	}
	if s, _ := v.AsString(); s != `{"language":"python"}` {
		t.Errorf("analysis_json = %q", s)
	}
	if got["counts_json"].Kind() != KindJSON {
		t.Errorf("mixed-type list must be serialized to JSON")
	}
}

func Test_Value_Text(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value Value
		want  string
	}{
		{String("hello"), "hello"},
		{Number(3), "3"},
		{Number(0.5), "0.5"},
		{Bool(true), "true"},
		{StringList([]string{"a", "b"}), "a, b"},
		{JSON(`{"k":1}`), `{"k":1}`},
		{Value{}, ""},
	}
	for _, tc := range cases {
		if got := tc.value.Text(); got != tc.want {
			t.Errorf("Text(%v) = %q, want %q", tc.value.Kind(), got, tc.want)
		}
	}
}

func Test_Map_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	m := Map{"a": String("x")}
	c := m.Clone()
	c["a"] = String("y")
	if m.GetString("a") != "x" {
		t.Error("mutating clone leaked into original")
	}
}
