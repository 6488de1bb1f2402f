package trace

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

const sample = `{"steps": [
  {"step_number": 1, "line_no": 1, "line_content": "x = 10", "variables": {"x": 10}, "output": ""},
  {"step_number": 2, "line_no": 2, "line_content": "print(x)", "variables": {"x": 10, "name": "bob", "ok": true}, "output": "10"},
  {"step_number": 3, "line_no": 3, "line_content": "x = 11", "variables": {"x": 11, "name": "bob", "ok": true}, "output": "", "flowchart_node_id": "node_4"}
]}`

func TestParse(t *testing.T) {
	tr, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tr.Len())
	}
	want := Variables{{Name: "x", Value: "10"}, {Name: "name", Value: "bob"}, {Name: "ok", Value: "True"}}
	if !reflect.DeepEqual(tr.Steps[1].Variables, want) {
		t.Errorf("Variables = %v, want %v", tr.Steps[1].Variables, want)
	}
	if tr.Steps[2].NodeID != "node_4" {
		t.Errorf("NodeID = %q", tr.Steps[2].NodeID)
	}
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		steps int
	}{
		{"fenced json", "```json\n" + sample + "\n```", 3},
		{"bare fence", "```\n" + sample + "```", 3},
		{"bare list", `[{"line_no": 1, "variables": null}]`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if tr.Len() != tt.steps {
				t.Errorf("Len() = %d, want %d", tr.Len(), tt.steps)
			}
		})
	}

	if _, err := Parse([]byte("  ")); !errors.Is(err, ErrEmptyTrace) {
		t.Errorf("empty input error = %v", err)
	}
	if _, err := Parse([]byte(`{"steps": [{"variables": [1]}]}`)); err == nil {
		t.Error("expected error for non-object variables")
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"hi"`, "hi"},
		{`3`, "3"},
		{`2.50`, "2.50"},
		{`true`, "True"},
		{`false`, "False"},
		{`null`, "None"},
		{`[1, "a", null]`, "[1, 'a', None]"},
		{`{"b": 2, "a": "x"}`, "{'a': 'x', 'b': 2}"},
		{`["it's"]`, `['it\'s']`},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var vs Variables
			if err := json.Unmarshal([]byte(`{"v": `+tt.raw+`}`), &vs); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got := vs[0].Value; got != tt.want {
				t.Errorf("Display(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestVariablesMarshalKeepsOrder(t *testing.T) {
	vs := Variables{{Name: "z", Value: "1"}, {Name: "a", Value: `say "hi"`}}
	data, err := json.Marshal(vs)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"z":"1","a":"say \"hi\""}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	var back Variables
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, vs) {
		t.Errorf("round trip = %v", back)
	}
}

func TestValidate(t *testing.T) {
	tr := &Trace{Steps: []Step{{LineNo: 1}, {LineNo: 2}}}
	if err := tr.Validate(2); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if tr.Steps[1].StepNumber != 2 {
		t.Errorf("StepNumber not filled: %d", tr.Steps[1].StepNumber)
	}

	if err := tr.Validate(1); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("line past end: %v", err)
	}
	if err := (&Trace{Steps: []Step{{LineNo: 0}}}).Validate(3); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("line 0: %v", err)
	}
	var nilTrace *Trace
	if err := nilTrace.Validate(3); !errors.Is(err, ErrEmptyTrace) {
		t.Errorf("nil trace: %v", err)
	}
}

func TestOutputsAndChanges(t *testing.T) {
	tr, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	if got := tr.Outputs(0); len(got) != 0 {
		t.Errorf("Outputs(0) = %v", got)
	}
	if got := tr.Outputs(5); !reflect.DeepEqual(got, []string{"10"}) {
		t.Errorf("Outputs(5) = %v", got)
	}

	first := tr.Changes(0)
	if first["x"] != Added {
		t.Errorf("step 0 x = %q, want new", first["x"])
	}
	second := tr.Changes(1)
	if second["x"] != Unchanged || second["name"] != Added {
		t.Errorf("step 1 changes = %v", second)
	}
	third := tr.Changes(2)
	if third["x"] != Modified || third["ok"] != Unchanged {
		t.Errorf("step 2 changes = %v", third)
	}
	if tr.Changes(9) != nil {
		t.Error("out-of-range step should report nil")
	}
}

func TestAnnotate(t *testing.T) {
	lines := []string{"x = 10", "print(x)  "}
	s := Step{LineNo: 2, Variables: Variables{{Name: "x", Value: "10"}, {Name: "y", Value: "2"}}}

	got := Annotate(lines, s)
	if got[1] != "print(x)  # x: 10, y: 2" {
		t.Errorf("Annotate = %q", got[1])
	}
	if lines[1] != "print(x)  " {
		t.Error("Annotate modified its input")
	}

	out := Annotate(lines, Step{LineNo: 7, Variables: s.Variables})
	if !reflect.DeepEqual(out, lines) {
		t.Error("out-of-range step should leave lines unchanged")
	}
}

func TestKind(t *testing.T) {
	tests := map[string]string{
		"[1, 2]":   "list",
		"{'a': 1}": "dict",
		"42":       "int",
		"4.2":      "float",
		"'hi'":     "str",
		"hi":       "variable",
		"":         "variable",
		"1.2.3":    "variable",
	}
	for in, want := range tests {
		if got := Kind(in); got != want {
			t.Errorf("Kind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileProvider(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trace.json")
	tr, _ := Parse([]byte(sample))
	if err := WriteFile(path, tr); err != nil {
		t.Fatal(err)
	}

	p := FileProvider{Path: path}
	got, err := p.Trace(ctx, Request{Code: "x = 10\nprint(x)\nx = 11"})
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if !reflect.DeepEqual(got.Steps[2].Variables, tr.Steps[2].Variables) {
		t.Error("replayed trace differs")
	}

	if _, err := p.Trace(ctx, Request{Code: "x = 10"}); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("short source: %v", err)
	}
	if _, err := (Static{}).Trace(ctx, Request{}); !errors.Is(err, ErrEmptyTrace) {
		t.Errorf("empty static: %v", err)
	}
}
