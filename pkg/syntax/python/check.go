package python

import (
	"bytes"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/matzehuels/codeflow/pkg/syntax"
)

// checker rejects trees that tree-sitter recovered from without marking an
// error: inconsistent indentation, Python 2 print/exec statements, and a
// bare assignment expression used as a statement.
type checker struct {
	indents []int
	code    []bool // line holds code, not only blanks or a comment
}

func newChecker(src []byte) *checker {
	lines := bytes.Split(src, []byte("\n"))
	c := &checker{indents: make([]int, len(lines)), code: make([]bool, len(lines))}
	for i, l := range lines {
		rest := bytes.TrimLeft(l, " \t\f")
		c.indents[i] = len(l) - len(rest)
		rest = bytes.TrimSpace(rest)
		c.code[i] = len(rest) > 0 && rest[0] != '#'
	}
	return c
}

// dedented reports whether the code line before row is indented deeper
// than col, i.e. col closes a block rather than opening one.
func (c *checker) dedented(row, col int) bool {
	for r := row - 1; r >= 0; r-- {
		if r < len(c.code) && c.code[r] {
			return c.indents[r] > col
		}
	}
	return false
}

func (c *checker) indent(row int) int {
	if row < 0 || row >= len(c.indents) {
		return 0
	}
	return c.indents[row]
}

// leadsRow reports whether n is the first token on its line.
func (c *checker) leadsRow(n *sitter.Node) bool {
	p := n.StartPoint()
	return int(p.Column) == c.indent(int(p.Row))
}

// check walks the tree in document order and returns the first problem.
func (c *checker) check(n *sitter.Node) *syntax.SyntaxError {
	switch n.Type() {
	case "print_statement":
		return &syntax.SyntaxError{Msg: "Missing parentheses in call to 'print'", Line: line(n)}
	case "exec_statement":
		return &syntax.SyntaxError{Msg: "Missing parentheses in call to 'exec'", Line: line(n)}
	case "expression_statement":
		if n.NamedChildCount() == 1 && n.NamedChild(0).Type() == "named_expression" {
			return &syntax.SyntaxError{Msg: "invalid syntax", Line: line(n)}
		}
	case "module":
		if err := c.layout(n, 0, 0); err != nil {
			return err
		}
	case "block":
		outer := 0
		if parent := n.Parent(); parent != nil {
			outer = c.indent(int(parent.StartPoint().Row)) + 1
		}
		if err := c.layout(n, outer, -1); err != nil {
			return err
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if err := c.check(n.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

// layout checks that every statement of a block which starts its own line
// sits at the same column, at least min. A non-negative want fixes that
// column up front (module level is column 0).
func (c *checker) layout(n *sitter.Node, min, want int) *syntax.SyntaxError {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" || !c.leadsRow(child) {
			continue
		}
		col := int(child.StartPoint().Column)
		switch {
		case want < 0 && col < min:
			return &syntax.SyntaxError{Msg: "expected an indented block", Line: line(child)}
		case want < 0:
			want = col
		case col > want && c.dedented(int(child.StartPoint().Row), col):
			return &syntax.SyntaxError{Msg: "unindent does not match any outer indentation level", Line: line(child)}
		case col > want:
			return &syntax.SyntaxError{Msg: "unexpected indent", Line: line(child)}
		case col < want:
			return &syntax.SyntaxError{Msg: "unindent does not match any outer indentation level", Line: line(child)}
		}
	}
	return nil
}
