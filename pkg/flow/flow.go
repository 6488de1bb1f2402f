package flow

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.Validate] when a node
	// identifier is empty or holds anything but letters, digits and
	// underscores.
	ErrInvalidNodeID = errors.New("node ID must be a non-empty word")

	// ErrDuplicateNodeID is returned by [Graph.Validate] when two nodes share
	// an identifier.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrInvalidEdgeEndpoint is returned by [Graph.Validate] when an edge
	// references a node that doesn't exist.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrInvalidEdgeLabel is returned by [Graph.Validate] for an edge label
	// [Build] never produces.
	ErrInvalidEdgeLabel = errors.New("invalid edge label")

	// ErrTerminals is returned by [Graph.Validate] when the graph does not
	// have exactly one start node and one end node, both on line 0.
	ErrTerminals = errors.New("graph must have exactly one start and one end node on line 0")

	// ErrInconsistentIndex is returned by [Graph.Validate] when LineToNode
	// does not point at the first node created for a line.
	ErrInconsistentIndex = errors.New("line index does not match first node per line")

	// ErrGraphHasCycle is returned by [Graph.Validate] when a cycle exists
	// that is not closed by a loop edge.
	ErrGraphHasCycle = errors.New("graph contains a cycle outside loop edges")

	// ErrUnreachableNode is returned by [Graph.Validate] when a node cannot
	// be reached from the start node.
	ErrUnreachableNode = errors.New("node unreachable from start")
)

// NodeType selects the shape a node is drawn with.
type NodeType string

const (
	NodeStart      NodeType = "start"
	NodeEnd        NodeType = "end"
	NodeOperation  NodeType = "operation"
	NodeCondition  NodeType = "condition"
	NodeIO         NodeType = "io"
	NodeSubroutine NodeType = "subroutine"
)

// Edge labels produced by [Build].
const (
	LabelYes    = "Yes"
	LabelNo     = "No"
	LabelLoop   = "loop"
	LabelExcept = "except"
)

// ErrorNodeID is the identifier of the single node in an [ErrorGraph].
const ErrorNodeID = "error"

// Node is one box in the diagram.
type Node struct {
	ID    string   `json:"id" bson:"id"`
	Label string   `json:"label" bson:"label"`
	Type  NodeType `json:"type" bson:"type"`
	Line  int      `json:"line_no" bson:"line_no"` // 1-based source line, 0 for synthetic nodes
}

// Edge is a directed arrow between two nodes. Label is empty for plain
// sequential flow.
type Edge struct {
	From  string `json:"from" bson:"from"`
	To    string `json:"to" bson:"to"`
	Label string `json:"label" bson:"label"`
}

// Graph is the output of [Build]. Nodes and Edges are in creation order.
// LineToNode maps a source line to the id of the first node created for it.
type Graph struct {
	Nodes      []Node         `json:"nodes" bson:"nodes"`
	Edges      []Edge         `json:"edges" bson:"edges"`
	LineToNode map[int]string `json:"line_to_node" bson:"line_to_node"`
}

// ErrorGraph returns the degraded graph used when parsing fails: a single
// end node carrying the diagnostic and the best-known line (0 if unknown),
// no edges and an empty line index.
func ErrorGraph(msg string, line int) *Graph {
	if line < 0 {
		line = 0
	}
	return &Graph{
		Nodes: []Node{{
			ID:    ErrorNodeID,
			Label: fmt.Sprintf("Syntax Error: %s", msg),
			Type:  NodeEnd,
			Line:  line,
		}},
		Edges:      []Edge{},
		LineToNode: map[int]string{},
	}
}

// IsError reports whether g is a degraded graph produced by [ErrorGraph].
func (g *Graph) IsError() bool {
	return len(g.Nodes) == 1 && g.Nodes[0].ID == ErrorNodeID && len(g.Edges) == 0
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i := slices.IndexFunc(g.Nodes, func(n Node) bool { return n.ID == id })
	if i < 0 {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// NodeForLine returns the id of the first node created for line. Line 0 and
// unmapped lines report false.
func (g *Graph) NodeForLine(line int) (string, bool) {
	if line <= 0 {
		return "", false
	}
	id, ok := g.LineToNode[line]
	return id, ok
}

// Outgoing returns the edges leaving id, in creation order.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges entering id, in creation order.
func (g *Graph) Incoming(id string) []Edge {
	var in []Edge
	for _, e := range g.Edges {
		if e.To == id {
			in = append(in, e)
		}
	}
	return in
}

// CountByType returns how many nodes of each type the graph holds.
func (g *Graph) CountByType() map[NodeType]int {
	counts := make(map[NodeType]int)
	for _, n := range g.Nodes {
		counts[n.Type]++
	}
	return counts
}

// Validate checks the structural invariants every graph returned by [Build]
// satisfies:
//
//  1. Node ids are unique words; edges reference existing nodes and carry
//     one of the labels Build emits
//  2. Exactly one start and one end node, both on line 0
//  3. LineToNode maps each line to the first node created for it
//  4. Only loop edges close cycles
//  5. Every node is reachable from the start node
//
// Graphs from [ErrorGraph] are degraded and intentionally fail check 2.
func (g *Graph) Validate() error {
	ids := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if !isWord(n.ID) {
			return fmt.Errorf("%w: %q", ErrInvalidNodeID, n.ID)
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		ids[n.ID] = i
	}
	for _, e := range g.Edges {
		_, okF := ids[e.From]
		_, okT := ids[e.To]
		if !okF || !okT {
			return fmt.Errorf("%w: %q -> %q", ErrInvalidEdgeEndpoint, e.From, e.To)
		}
		switch e.Label {
		case "", LabelYes, LabelNo, LabelLoop, LabelExcept:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidEdgeLabel, e.Label)
		}
	}

	start, err := g.terminals()
	if err != nil {
		return err
	}
	if err := g.validateIndex(ids); err != nil {
		return err
	}
	if err := g.detectCycles(); err != nil {
		return err
	}
	return g.validateReachable(start)
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func (g *Graph) terminals() (string, error) {
	var start string
	var starts, ends int
	for _, n := range g.Nodes {
		switch n.Type {
		case NodeStart:
			starts++
			start = n.ID
		case NodeEnd:
			ends++
		default:
			continue
		}
		if n.Line != 0 {
			return "", ErrTerminals
		}
	}
	if starts != 1 || ends != 1 {
		return "", ErrTerminals
	}
	return start, nil
}

func (g *Graph) validateIndex(ids map[string]int) error {
	first := make(map[int]string)
	for _, n := range g.Nodes {
		if n.Line <= 0 {
			continue
		}
		if _, ok := first[n.Line]; !ok {
			first[n.Line] = n.ID
		}
	}
	if len(first) != len(g.LineToNode) {
		return ErrInconsistentIndex
	}
	for line, id := range g.LineToNode {
		if first[line] != id {
			return fmt.Errorf("%w: line %d", ErrInconsistentIndex, line)
		}
		if _, ok := ids[id]; !ok {
			return fmt.Errorf("%w: line %d", ErrInconsistentIndex, line)
		}
	}
	return nil
}

func (g *Graph) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	outgoing := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if e.Label == LabelLoop {
			continue
		}
		outgoing[e.From] = append(outgoing[e.From], e.To)
	}

	color := make(map[string]int, len(g.Nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range outgoing[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for _, n := range g.Nodes {
		if color[n.ID] == white {
			dfs(n.ID)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

func (g *Graph) validateReachable(start string) error {
	outgoing := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		outgoing[e.From] = append(outgoing[e.From], e.To)
	}
	seen := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range outgoing[id] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	for _, n := range g.Nodes {
		if !seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrUnreachableNode, n.ID)
		}
	}
	return nil
}
