package flow

import (
	"strconv"
	"strings"

	"github.com/matzehuels/codeflow/pkg/syntax"
)

// ioFuncs are the callees whose bare call statements are drawn as io nodes.
var ioFuncs = map[string]bool{
	"print": true,
	"input": true,
}

// pending is a branch exit waiting for its successor. The label is carried
// onto the edge once the successor exists.
type pending struct {
	id    string
	label string
}

// cursor is the flow state threaded from one statement to the next.
// pred is the node the next node hangs off ("" for none); frontier holds
// branch exits that also flow into the next node.
type cursor struct {
	pred     string
	frontier []pending
}

// exits returns every node the cursor would connect to a successor, the
// predecessor first.
func (c cursor) exits() []pending {
	var out []pending
	if c.pred != "" {
		out = append(out, pending{id: c.pred})
	}
	return append(out, c.frontier...)
}

type builder struct {
	mod *syntax.Module
	g   *Graph
	seq int
}

// Build converts a statement tree into a control-flow graph. It never fails:
// statement kinds without a dedicated rule fall back to a single operation
// node, and a nil or empty module yields start -> end.
//
// Each call numbers its nodes from node_1.
func Build(mod *syntax.Module) *Graph {
	b := &builder{
		mod: mod,
		g: &Graph{
			Nodes:      []Node{},
			Edges:      []Edge{},
			LineToNode: map[int]string{},
		},
	}

	var body []syntax.Stmt
	if mod != nil {
		body = mod.Body
	}

	start := b.add("Start", NodeStart, 0)
	cur := b.block(body, cursor{pred: start})
	end := b.add("End", NodeEnd, 0)
	b.join(cur, end)
	return b.g
}

func (b *builder) add(label string, typ NodeType, line int) string {
	b.seq++
	id := "node_" + strconv.Itoa(b.seq)
	b.g.Nodes = append(b.g.Nodes, Node{ID: id, Label: label, Type: typ, Line: line})
	if line > 0 {
		if _, ok := b.g.LineToNode[line]; !ok {
			b.g.LineToNode[line] = id
		}
	}
	return id
}

func (b *builder) edge(from, to, label string) {
	b.g.Edges = append(b.g.Edges, Edge{From: from, To: to, Label: label})
}

// join wires the cursor into id: the predecessor edge first, then one edge
// per frontier entry in order. The frontier is consumed and id becomes the
// predecessor.
func (b *builder) join(c cursor, id string) cursor {
	if c.pred != "" {
		b.edge(c.pred, id, "")
	}
	for _, p := range c.frontier {
		b.edge(p.id, id, p.label)
	}
	return cursor{pred: id}
}

func (b *builder) line(n int) string {
	return b.mod.Line(n)
}

func (b *builder) header(n int) string {
	return strings.TrimRight(b.line(n), ":")
}

func (b *builder) block(stmts []syntax.Stmt, c cursor) cursor {
	for _, s := range stmts {
		c = b.stmt(s, c)
	}
	return c
}

func (b *builder) simple(label string, typ NodeType, line int, c cursor) cursor {
	return b.join(c, b.add(label, typ, line))
}

func (b *builder) stmt(s syntax.Stmt, c cursor) cursor {
	switch s := s.(type) {
	case *syntax.Assign:
		return b.simple(b.line(s.Line), NodeOperation, s.Line, c)
	case *syntax.AugAssign:
		return b.simple(b.line(s.Line), NodeOperation, s.Line, c)
	case *syntax.Expr:
		if s.Docstring {
			return c
		}
		typ := NodeOperation
		if ioFuncs[s.Callee] {
			typ = NodeIO
		}
		return b.simple(b.line(s.Line), typ, s.Line, c)
	case *syntax.If:
		return b.ifStmt(s, c)
	case *syntax.Loop:
		return b.loop(s, c)
	case *syntax.FunctionDef:
		return b.function(s, c)
	case *syntax.Return:
		return b.simple(b.line(s.Line), NodeOperation, s.Line, c)
	case *syntax.Try:
		return b.try(s, c)
	case *syntax.Other:
		if s.Line > 0 {
			c = b.simple(b.line(s.Line), NodeOperation, s.Line, c)
		}
		return b.block(s.Body, c)
	default:
		if s != nil && s.Pos() > 0 {
			return b.simple(b.line(s.Pos()), NodeOperation, s.Pos(), c)
		}
		return c
	}
}

// branch visits body from an empty cursor and links from to the first node
// the body created. A body that creates no node leaves from itself as the
// exit, still carrying label.
func (b *builder) branch(from, label string, body []syntax.Stmt) []pending {
	first := len(b.g.Nodes)
	c := b.block(body, cursor{})
	if len(b.g.Nodes) == first {
		return []pending{{id: from, label: label}}
	}
	b.edge(from, b.g.Nodes[first].ID, label)
	return c.exits()
}

func (b *builder) ifStmt(s *syntax.If, c cursor) cursor {
	cond := b.add(b.header(s.Line), NodeCondition, s.Line)
	b.join(c, cond)

	exits := b.branch(cond, LabelYes, s.Body)
	if len(s.Orelse) > 0 {
		exits = append(exits, b.branch(cond, LabelNo, s.Orelse)...)
	} else {
		exits = append(exits, pending{id: cond, label: LabelNo})
	}
	return cursor{frontier: exits}
}

// loop draws the header once. The body's last node and any exits the body
// left pending link back to the header; flow after the loop continues from
// the header.
func (b *builder) loop(s *syntax.Loop, c cursor) cursor {
	head := b.add(b.header(s.Line), NodeOperation, s.Line)
	c = b.join(c, head)

	body := b.block(s.Body, c)
	if body.pred != "" && body.pred != head {
		b.edge(body.pred, head, LabelLoop)
	}
	for _, p := range body.frontier {
		b.edge(p.id, head, LabelLoop)
	}
	return cursor{pred: head}
}

func (b *builder) function(s *syntax.FunctionDef, c cursor) cursor {
	label := "def " + s.Name + "(" + strings.Join(s.Params, ", ") + ")"
	fn := b.add(label, NodeSubroutine, s.Line)
	c = b.join(c, fn)

	c = b.block(s.Body, c)
	if c.pred == "" {
		c.pred = fn
	}
	return c
}

// try fans out from a "try" condition into the body and one node per except
// clause. An else clause resumes from the first branch end collected so far,
// or from the try node when there is none.
func (b *builder) try(s *syntax.Try, c cursor) cursor {
	try := b.add("try", NodeCondition, s.Line)
	b.join(c, try)

	var ends []pending
	collect := func(c cursor, from string) {
		if c.pred != "" && c.pred != from {
			ends = append(ends, pending{id: c.pred})
		}
		ends = append(ends, c.frontier...)
	}

	collect(b.block(s.Body, cursor{pred: try}), try)

	for _, h := range s.Handlers {
		label := strings.TrimSpace("except " + h.Type)
		hid := b.add(label, NodeCondition, h.Line)
		b.edge(try, hid, LabelExcept)
		collect(b.block(h.Body, cursor{pred: hid}), hid)
	}

	if len(s.Orelse) > 0 {
		start := try
		if len(ends) > 0 {
			start = ends[0].id
		}
		collect(b.block(s.Orelse, cursor{pred: start}), start)
	}

	if len(ends) == 0 {
		ends = append(ends, pending{id: try})
	}
	return cursor{frontier: ends}
}
