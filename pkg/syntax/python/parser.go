package python

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/matzehuels/codeflow/pkg/syntax"
)

// DefaultMaxSourceSize is the largest source accepted by a Parser unless
// overridden with [WithMaxSourceSize].
const DefaultMaxSourceSize = 1 << 20

// Option configures a Parser.
type Option func(*Parser)

// WithMaxSourceSize sets the maximum source size in bytes. Non-positive
// values are ignored.
func WithMaxSourceSize(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxSize = n
		}
	}
}

// Parser converts Python source into a statement tree.
//
// A Parser is safe for concurrent use: every Parse call creates its own
// tree-sitter parser instance.
type Parser struct {
	maxSize int
}

// NewParser returns a Parser configured by opts.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxSize: DefaultMaxSourceSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses src. Source that does not parse cleanly yields a
// *syntax.SyntaxError carrying the line of the first problem.
func (p *Parser) Parse(ctx context.Context, src []byte) (*syntax.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if len(src) > p.maxSize {
		return nil, fmt.Errorf("source size %d exceeds limit %d", len(src), p.maxSize)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, &syntax.SyntaxError{Msg: "empty parse tree"}
	}
	if root.HasError() {
		return nil, firstError(root)
	}
	if err := newChecker(src).check(root); err != nil {
		return nil, err
	}

	c := converter{src: src}
	return syntax.NewModule(string(src), c.block(root)), nil
}

// Parse parses src with a default Parser.
func Parse(ctx context.Context, src []byte) (*syntax.Module, error) {
	return NewParser().Parse(ctx, src)
}

// firstError finds the first ERROR or MISSING node in document order.
func firstError(root *sitter.Node) *syntax.SyntaxError {
	var found *sitter.Node
	var walk func(n *sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if n.IsMissing() || n.Type() == "ERROR" {
			found = n
			return true
		}
		if !n.HasError() {
			return false
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if walk(n.Child(i)) {
				return true
			}
		}
		return false
	}
	walk(root)

	if found == nil {
		return &syntax.SyntaxError{Msg: "invalid syntax"}
	}
	line := int(found.StartPoint().Row) + 1
	if found.IsMissing() {
		return &syntax.SyntaxError{Msg: fmt.Sprintf("expected '%s'", found.Type()), Line: line}
	}
	return &syntax.SyntaxError{Msg: "invalid syntax", Line: line}
}

type converter struct {
	src []byte
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// block converts the statement children of a module or block node.
func (c *converter) block(n *sitter.Node) []syntax.Stmt {
	if n == nil {
		return nil
	}
	var out []syntax.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		if s := c.stmt(child); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *converter) stmt(n *sitter.Node) syntax.Stmt {
	switch n.Type() {
	case "expression_statement":
		return c.expressionStatement(n)
	case "if_statement":
		return c.ifStatement(n)
	case "for_statement", "while_statement":
		if isAsync(n) {
			return c.other(n, n.ChildByFieldName("body"))
		}
		return &syntax.Loop{Line: line(n), Body: c.block(n.ChildByFieldName("body"))}
	case "function_definition":
		return c.functionDefinition(n)
	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return c.stmt(def)
		}
		return &syntax.Other{Line: line(n)}
	case "return_statement":
		return &syntax.Return{Line: line(n)}
	case "try_statement":
		return c.tryStatement(n)
	case "class_definition", "with_statement":
		return c.other(n, n.ChildByFieldName("body"))
	case "match_statement":
		return c.matchStatement(n)
	default:
		return &syntax.Other{Line: line(n)}
	}
}

func (c *converter) expressionStatement(n *sitter.Node) syntax.Stmt {
	ln := line(n)
	if n.NamedChildCount() != 1 {
		return &syntax.Expr{Line: ln}
	}
	expr := n.NamedChild(0)
	switch expr.Type() {
	case "assignment":
		return &syntax.Assign{Line: ln}
	case "augmented_assignment":
		return &syntax.AugAssign{Line: ln}
	case "string", "concatenated_string":
		return &syntax.Expr{Line: ln, Docstring: c.isPlainString(expr)}
	case "call":
		fn := expr.ChildByFieldName("function")
		if fn != nil && fn.Type() == "identifier" {
			return &syntax.Expr{Line: ln, Callee: c.text(fn)}
		}
	}
	return &syntax.Expr{Line: ln}
}

// isPlainString reports whether a string literal is a text constant. Format
// strings and byte strings are evaluated expressions, not documentation.
func (c *converter) isPlainString(n *sitter.Node) bool {
	if n.Type() == "concatenated_string" {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if !c.isPlainString(n.NamedChild(i)) {
				return false
			}
		}
		return true
	}
	text := c.text(n)
	end := strings.IndexAny(text, `'"`)
	if end < 0 {
		return false
	}
	prefix := strings.ToLower(text[:end])
	return !strings.ContainsAny(prefix, "fb")
}

func (c *converter) ifStatement(n *sitter.Node) syntax.Stmt {
	root := &syntax.If{Line: line(n), Body: c.block(n.ChildByFieldName("consequence"))}
	tail := root
	for i := 0; i < int(n.NamedChildCount()); i++ {
		alt := n.NamedChild(i)
		switch alt.Type() {
		case "elif_clause":
			next := &syntax.If{Line: line(alt), Body: c.block(alt.ChildByFieldName("consequence"))}
			tail.Orelse = []syntax.Stmt{next}
			tail = next
		case "else_clause":
			tail.Orelse = c.block(alt.ChildByFieldName("body"))
		}
	}
	return root
}

func (c *converter) functionDefinition(n *sitter.Node) syntax.Stmt {
	if isAsync(n) {
		return c.other(n, n.ChildByFieldName("body"))
	}
	fn := &syntax.FunctionDef{Line: line(n), Body: c.block(n.ChildByFieldName("body"))}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = c.text(name)
	}
	fn.Params = c.params(n.ChildByFieldName("parameters"))
	return fn
}

// params returns the positional-or-keyword parameter names. Names before a
// "/" separator are positional-only and dropped; scanning stops at the first
// "*" separator or *args, since everything after it is keyword-only.
func (c *converter) params(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		switch p.Type() {
		case "identifier":
			names = append(names, c.text(p))
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				names = append(names, c.text(name))
			}
		case "typed_parameter":
			if p.NamedChildCount() == 0 {
				continue
			}
			first := p.NamedChild(0)
			switch first.Type() {
			case "identifier":
				names = append(names, c.text(first))
			case "list_splat_pattern":
				return names
			}
		case "positional_separator":
			names = nil
		case "keyword_separator", "list_splat_pattern":
			return names
		}
	}
	return names
}

func (c *converter) tryStatement(n *sitter.Node) syntax.Stmt {
	try := &syntax.Try{Line: line(n), Body: c.block(n.ChildByFieldName("body"))}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "except_clause", "except_group_clause":
			try.Handlers = append(try.Handlers, c.handler(child))
		case "else_clause":
			try.Orelse = c.block(child.ChildByFieldName("body"))
		}
	}
	return try
}

func (c *converter) handler(n *sitter.Node) syntax.Handler {
	h := syntax.Handler{Line: line(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "block":
			h.Body = c.block(child)
		case "comment":
		default:
			if h.Type != "" {
				continue
			}
			if child.Type() == "as_pattern" && child.NamedChildCount() > 0 {
				child = child.NamedChild(0)
			}
			h.Type = c.text(child)
		}
	}
	return h
}

func (c *converter) matchStatement(n *sitter.Node) syntax.Stmt {
	m := &syntax.Other{Line: line(n)}
	body := n.ChildByFieldName("body")
	if body == nil {
		return m
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		cc := body.NamedChild(i)
		if cc.Type() != "case_clause" {
			continue
		}
		m.Body = append(m.Body, c.block(cc.ChildByFieldName("consequence"))...)
	}
	return m
}

func (c *converter) other(n, body *sitter.Node) syntax.Stmt {
	return &syntax.Other{Line: line(n), Body: c.block(body)}
}

// isAsync reports whether a compound statement carries the async keyword.
func isAsync(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsNamed() {
			break
		}
		if child.Type() == "async" {
			return true
		}
	}
	return false
}
