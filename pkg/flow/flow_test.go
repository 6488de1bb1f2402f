package flow

import (
	"errors"
	"strings"
	"testing"
)

func validGraph() *Graph {
	return &Graph{
		Nodes: []Node{
			{ID: "node_1", Label: "Start", Type: NodeStart},
			{ID: "node_2", Label: "while x", Type: NodeOperation, Line: 1},
			{ID: "node_3", Label: "x -= 1", Type: NodeOperation, Line: 2},
			{ID: "node_4", Label: "End", Type: NodeEnd},
		},
		Edges: []Edge{
			{From: "node_1", To: "node_2"},
			{From: "node_2", To: "node_3"},
			{From: "node_3", To: "node_2", Label: LabelLoop},
			{From: "node_2", To: "node_4"},
		},
		LineToNode: map[int]string{1: "node_2", 2: "node_3"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *Graph)
		wantErr error
	}{
		{"valid", func(g *Graph) {}, nil},
		{"empty id", func(g *Graph) { g.Nodes[1].ID = "" }, ErrInvalidNodeID},
		{"id with newline", func(g *Graph) {
			g.Nodes[3].ID = "a\nclick a href \"javascript:alert(1)\""
			g.Edges[3].To = g.Nodes[3].ID
		}, ErrInvalidNodeID},
		{"duplicate id", func(g *Graph) { g.Nodes[2].ID = "node_2" }, ErrDuplicateNodeID},
		{"dangling edge", func(g *Graph) { g.Edges[0].To = "node_9" }, ErrInvalidEdgeEndpoint},
		{"unknown edge label", func(g *Graph) { g.Edges[0].Label = "x| --> y" }, ErrInvalidEdgeLabel},
		{"two ends", func(g *Graph) { g.Nodes[2].Type = NodeEnd; g.Nodes[2].Line = 0; g.LineToNode = map[int]string{1: "node_2"} }, ErrTerminals},
		{"start with line", func(g *Graph) { g.Nodes[0].Line = 3 }, ErrTerminals},
		{"index not first", func(g *Graph) { g.LineToNode[1] = "node_3" }, ErrInconsistentIndex},
		{"index missing line", func(g *Graph) { delete(g.LineToNode, 2) }, ErrInconsistentIndex},
		{"unlabelled cycle", func(g *Graph) { g.Edges[2].Label = "" }, ErrGraphHasCycle},
		{"unreachable", func(g *Graph) { g.Edges[0].From = "node_3"; g.Edges[0].To = "node_4" }, ErrUnreachableNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGraph()
			tt.mutate(g)
			err := g.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestErrorGraph(t *testing.T) {
	g := ErrorGraph("invalid syntax", 3)

	if len(g.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(g.Nodes))
	}
	n := g.Nodes[0]
	if n.ID != ErrorNodeID || n.Type != NodeEnd || n.Line != 3 {
		t.Errorf("node = %+v", n)
	}
	if !strings.Contains(n.Label, "invalid syntax") {
		t.Errorf("label %q does not carry the diagnostic", n.Label)
	}
	if len(g.Edges) != 0 || len(g.LineToNode) != 0 {
		t.Errorf("edges=%d index=%d, want none", len(g.Edges), len(g.LineToNode))
	}
	if !g.IsError() {
		t.Error("IsError() = false")
	}
	if !errors.Is(g.Validate(), ErrTerminals) {
		t.Error("error graph should not pass Validate")
	}
	if ErrorGraph("x", -2).Nodes[0].Line != 0 {
		t.Error("negative line should clamp to 0")
	}
}

func TestGraphLookups(t *testing.T) {
	g := validGraph()

	if n, ok := g.Node("node_3"); !ok || n.Label != "x -= 1" {
		t.Errorf("Node(node_3) = %+v, %v", n, ok)
	}
	if _, ok := g.Node("missing"); ok {
		t.Error("Node(missing) found")
	}
	if id, ok := g.NodeForLine(2); !ok || id != "node_3" {
		t.Errorf("NodeForLine(2) = %q, %v", id, ok)
	}
	if _, ok := g.NodeForLine(0); ok {
		t.Error("NodeForLine(0) should not resolve")
	}
	if _, ok := g.NodeForLine(99); ok {
		t.Error("NodeForLine(99) should not resolve")
	}
	if got := len(g.Outgoing("node_2")); got != 2 {
		t.Errorf("Outgoing(node_2) = %d edges, want 2", got)
	}
	if got := len(g.Incoming("node_2")); got != 2 {
		t.Errorf("Incoming(node_2) = %d edges, want 2", got)
	}
	if g.IsError() {
		t.Error("IsError() = true for a built graph")
	}
}
