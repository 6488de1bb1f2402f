package flow

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestMarshalShape(t *testing.T) {
	data, err := Marshal(validGraph())
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`"nodes": [`,
		`"id": "node_2"`,
		`"line_no": 1`,
		`"type": "operation"`,
		`"edges": [`,
		`"label": "loop"`,
		`"line_to_node": {`,
		`"1": "node_2"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
}

func TestMarshalErrorGraphHasEmptyCollections(t *testing.T) {
	data, err := Marshal(ErrorGraph("bad", 0))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"edges": []`) || !strings.Contains(out, `"line_to_node": {}`) {
		t.Errorf("expected empty collections, got %s", out)
	}
}

func TestUnmarshalRoundTrip(t *testing.T) {
	want := validGraph()
	data, err := Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestUnmarshalMissingFields(t *testing.T) {
	g, err := Unmarshal([]byte(`{"nodes":[{"id":"error","label":"x","type":"end","line_no":0}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Edges == nil || g.LineToNode == nil {
		t.Error("missing collections should decode as empty, not nil")
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"nodes":`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := WriteFile(validGraph(), path); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	g, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(g.Nodes) != 4 {
		t.Errorf("got %d nodes", len(g.Nodes))
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
