package mermaid

import (
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/render/label"
	"github.com/matzehuels/codeflow/pkg/syntax"
)

func scenarioA() *flow.Graph {
	src := strings.Join([]string{
		`x = 1`,
		`if x > 0:`,
		`    print("positive")`,
		`else:`,
		`    print("not positive")`,
		`print("done")`,
	}, "\n")
	return flow.Build(syntax.NewModule(src, []syntax.Stmt{
		&syntax.Assign{Line: 1},
		&syntax.If{
			Line:   2,
			Body:   []syntax.Stmt{&syntax.Expr{Line: 3, Callee: "print"}},
			Orelse: []syntax.Stmt{&syntax.Expr{Line: 5, Callee: "print"}},
		},
		&syntax.Expr{Line: 6, Callee: "print"},
	}))
}

const scenarioAActive3 = `%%{init: {'flowchart': {'curve': 'linear', 'htmlLabels': true}}}%%
flowchart TD

    node_1(["Start"])
    node_2["x = 1"]
    node_3{"if x &gt; 0"}
    node_4[/"print('positive')"/]
    node_5[/"print('not positive')"/]
    node_6[/"print('done')"/]
    node_7(["End"])

    node_1 --> node_2
    node_2 --> node_3
    node_3 -->|Yes| node_4
    node_3 -->|No| node_5
    node_4 --> node_6
    node_5 --> node_6
    node_6 --> node_7

    %% Inline styles
    style node_1 fill:#50E3C2,stroke:#2DA87F,color:#000
    style node_2 fill:#2d2d2d,stroke:#555,color:#fff
    style node_3 fill:#F5A623,stroke:#C77F1B,color:#fff
    style node_4 fill:#4A90E2,stroke:#2E5C8A,color:#fff
    style node_5 fill:#4A90E2,stroke:#2E5C8A,color:#fff
    style node_6 fill:#4A90E2,stroke:#2E5C8A,color:#fff
    style node_7 fill:#50E3C2,stroke:#2DA87F,color:#000
    style node_4 fill:#FF4B2B,stroke:#FF416C,color:#fff,stroke-width:4px`

func TestRenderGolden(t *testing.T) {
	got := Render(scenarioA(), Options{ActiveLine: 3})
	if got != scenarioAActive3 {
		t.Errorf("Render() mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, scenarioAActive3)
	}
}

func TestRenderActiveStyleLast(t *testing.T) {
	out := Render(scenarioA(), Options{ActiveLine: 2})
	lines := strings.Split(out, "\n")
	last := lines[len(lines)-1]
	if last != "    style node_3 "+StyleActive {
		t.Errorf("last line = %q", last)
	}
	if strings.Count(out, "style node_3 ") != 2 {
		t.Error("active node should have its default style and the override")
	}
}

func TestRenderNoActive(t *testing.T) {
	for _, line := range []int{0, 4, 99, -1} {
		out := Render(scenarioA(), Options{ActiveLine: line, Variables: []label.Binding{{Name: "x", Value: "1"}}})
		if strings.Contains(out, StyleActive) {
			t.Errorf("ActiveLine %d: unexpected active style", line)
		}
		if strings.Contains(out, `"if 1 &gt; 0"`) {
			t.Errorf("ActiveLine %d: variables applied without an active node", line)
		}
	}
}

func TestRenderInputCapture(t *testing.T) {
	src := `count = input("Enter:")`
	g := flow.Build(syntax.NewModule(src, []syntax.Stmt{&syntax.Assign{Line: 1}}))

	out := RenderMap(g, 1, map[string]string{"count": "5"})
	if !strings.Contains(out, `    node_2["count = 5"]`) {
		t.Errorf("expected rewritten label, got:\n%s", out)
	}

	// The stored label is untouched.
	if g.Nodes[1].Label != src {
		t.Errorf("graph label mutated to %q", g.Nodes[1].Label)
	}
}

func TestRenderVariablesOnlyOnActiveNode(t *testing.T) {
	src := "x = 1\ny = x + 1\nz = x * 2"
	g := flow.Build(syntax.NewModule(src, []syntax.Stmt{
		&syntax.Assign{Line: 1}, &syntax.Assign{Line: 2}, &syntax.Assign{Line: 3},
	}))

	out := RenderMap(g, 2, map[string]string{"x": "1"})
	if !strings.Contains(out, `node_3["y = 1 + 1"]`) {
		t.Errorf("active label not rewritten:\n%s", out)
	}
	if !strings.Contains(out, `node_4["z = x * 2"]`) {
		t.Errorf("inactive label rewritten:\n%s", out)
	}
}

func TestRenderErrorGraph(t *testing.T) {
	out := Render(flow.ErrorGraph("expected ':'", 2), Options{ActiveLine: 2})
	want := `%%{init: {'flowchart': {'curve': 'linear', 'htmlLabels': true}}}%%
flowchart TD

    error(["Syntax Error: expected ':'"])


    %% Inline styles
    style error fill:#50E3C2,stroke:#2DA87F,color:#000`
	if out != want {
		t.Errorf("Render(ErrorGraph) =\n%s\nwant\n%s", out, want)
	}
}

func TestRenderShapes(t *testing.T) {
	g := &flow.Graph{
		Nodes: []flow.Node{
			{ID: "a", Label: "s", Type: flow.NodeStart},
			{ID: "b", Label: "op", Type: flow.NodeOperation},
			{ID: "c", Label: "cond", Type: flow.NodeCondition},
			{ID: "d", Label: "io", Type: flow.NodeIO},
			{ID: "e", Label: "sub", Type: flow.NodeSubroutine},
			{ID: "f", Label: "e", Type: flow.NodeEnd},
			{ID: "g", Label: "odd", Type: "mystery"},
		},
	}
	out := Render(g, Options{})
	for _, want := range []string{
		`a(["s"])`, `b["op"]`, `c{"cond"}`, `d[/"io"/]`, `e[["sub"]]`, `f(["e"])`, `g["odd"]`,
		"style g " + StyleDefault,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
}

func TestRenderEscapes(t *testing.T) {
	g := &flow.Graph{
		Nodes: []flow.Node{{ID: "n", Label: `if a < b and s == "x"<br/>`, Type: flow.NodeCondition}},
	}
	out := Render(g, Options{})
	if !strings.Contains(out, `n{"if a &lt; b and s == 'x'<br/>"}`) {
		t.Errorf("label not escaped:\n%s", out)
	}
}

func TestRenderDeterministic(t *testing.T) {
	g := scenarioA()
	vars := map[string]string{"x": "1", "y": "2", "z": "3"}
	first := RenderMap(g, 2, vars)
	for i := 0; i < 20; i++ {
		if got := RenderMap(g, 2, vars); got != first {
			t.Fatalf("render %d differs", i)
		}
	}
}

func TestRenderConcurrent(t *testing.T) {
	g := scenarioA()
	want := Render(g, Options{ActiveLine: 2, Variables: []label.Binding{{Name: "x", Value: "7"}}})

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Render(g, Options{ActiveLine: 2, Variables: []label.Binding{{Name: "x", Value: "7"}}})
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if got != want {
			t.Errorf("goroutine %d produced different output", i)
		}
	}
}

type stubTemplater struct{}

func (stubTemplater) Apply(string, []label.Binding) string { return "custom" }

func TestRenderCustomTemplater(t *testing.T) {
	out := Render(scenarioA(), Options{
		ActiveLine: 1,
		Variables:  []label.Binding{{Name: "x", Value: "1"}},
		Templater:  stubTemplater{},
	})
	if !strings.Contains(out, `node_2["custom"]`) {
		t.Errorf("custom templater not used:\n%s", out)
	}
}
