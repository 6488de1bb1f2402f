package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/render/label"
	"github.com/matzehuels/codeflow/pkg/syntax"
)

func loopGraph() *flow.Graph {
	src := "n = int(input())\nwhile n > 0:\n    n -= 1"
	return flow.Build(syntax.NewModule(src, []syntax.Stmt{
		&syntax.Assign{Line: 1},
		&syntax.Loop{Line: 2, Body: []syntax.Stmt{&syntax.AugAssign{Line: 3}}},
	}))
}

func TestToDOT_Basic(t *testing.T) {
	dot := ToDOT(loopGraph(), Options{})

	for _, want := range []string{
		"digraph G",
		`"node_1" [label="Start", shape=oval`,
		`"node_3" [label="while n > 0", shape=box`,
		`"node_1" -> "node_2";`,
		`"node_4" -> "node_3" [label="loop", style=dashed, constraint=false];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() output missing %s", want)
		}
	}
	if strings.Contains(dot, "#FF4B2B") {
		t.Error("ToDOT() highlighted a node without an active line")
	}
}

func TestToDOT_Active(t *testing.T) {
	dot := ToDOT(loopGraph(), Options{
		ActiveLine: 1,
		Variables:  []label.Binding{{Name: "n", Value: "3"}},
	})

	if !strings.Contains(dot, `"node_2" [label="n = 3"`) {
		t.Errorf("active label not templated:\n%s", dot)
	}
	if strings.Count(dot, `fillcolor="#FF4B2B"`) != 1 {
		t.Error("expected exactly one highlighted node")
	}
}

func TestToDOT_Shapes(t *testing.T) {
	g := &flow.Graph{Nodes: []flow.Node{
		{ID: "c", Type: flow.NodeCondition},
		{ID: "i", Type: flow.NodeIO},
		{ID: "s", Type: flow.NodeSubroutine},
		{ID: "x", Type: "unknown"},
	}}
	dot := ToDOT(g, Options{})

	for _, want := range []string{"shape=diamond", "shape=parallelogram", "peripheries=2"} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %s", want)
		}
	}
	if !strings.Contains(dot, `"x" [label="", shape=box`) {
		t.Error("unknown node type should fall back to a box")
	}
}

func TestToDOT_QuotesLabels(t *testing.T) {
	g := &flow.Graph{Nodes: []flow.Node{{ID: "n", Label: `print("hi")`, Type: flow.NodeIO}}}
	dot := ToDOT(g, Options{})
	if !strings.Contains(dot, `label="print(\"hi\")"`) {
		t.Errorf("label not quoted:\n%s", dot)
	}
}

func TestToDOT_EscapesForGraphviz(t *testing.T) {
	g := &flow.Graph{Nodes: []flow.Node{
		{ID: "n", Label: "print('a\\tb')", Type: flow.NodeIO},
		{ID: "m", Label: "x = 'é'\ny\tz", Type: flow.NodeOperation},
	}}
	dot := ToDOT(g, Options{})

	if !strings.Contains(dot, `label="print('a\\tb')"`) {
		t.Errorf("backslash not doubled:\n%s", dot)
	}
	if !strings.Contains(dot, "label=\"x = 'é'\\ny\tz\"") {
		t.Errorf("newline not mapped or tab escaped:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.25" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.50 200.25" width="100" height="200"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}

	plain := []byte(`<svg><g/></svg>`)
	if got := normalizeViewBox(plain); string(got) != string(plain) {
		t.Error("SVG without viewBox should pass through")
	}
}
