package syntax

import (
	"fmt"
	"strings"
)

// Stmt is a single statement in the tree. The set of implementations is
// closed; see the package documentation for the list.
type Stmt interface {
	// Pos returns the 1-based source line of the statement, or 0 if unknown.
	Pos() int
	stmt()
}

// Assign is a plain assignment such as "x = 1" or "a, b = b, a".
type Assign struct {
	Line int
}

// AugAssign is an augmented assignment such as "total += x".
type AugAssign struct {
	Line int
}

// Expr is an expression evaluated for its effect.
type Expr struct {
	Line int

	// Docstring is set for a bare string literal statement.
	Docstring bool

	// Callee names the called function when the expression is a direct call
	// to a plain identifier, e.g. "print" for print("hi"). Method calls and
	// calls on computed values leave it empty.
	Callee string
}

// If is a conditional. An elif chain is represented as a nested If that is
// the only statement of Orelse.
type If struct {
	Line   int
	Body   []Stmt
	Orelse []Stmt
}

// Loop is a for or while loop. Loop else clauses are not represented.
type Loop struct {
	Line int
	Body []Stmt
}

// FunctionDef is a function definition. Params holds the names of the
// positional-or-keyword parameters in declaration order.
type FunctionDef struct {
	Line   int
	Name   string
	Params []string
	Body   []Stmt
}

// Return is a return statement.
type Return struct {
	Line int
}

// Try is an exception-handling block. Finally bodies are not represented.
type Try struct {
	Line     int
	Body     []Stmt
	Handlers []Handler
	Orelse   []Stmt
}

// Handler is one except clause of a [Try].
type Handler struct {
	Line int

	// Type is the source text of the caught exception expression, e.g.
	// "ValueError" or "(KeyError, IndexError)". Empty for a bare except.
	Type string

	Body []Stmt
}

// Other is any statement kind without a dedicated type: pass, import,
// class definitions, with blocks, match statements and so on. Body holds the
// statements nested inside it, in source order.
type Other struct {
	Line int
	Body []Stmt
}

func (s *Assign) Pos() int      { return s.Line }
func (s *AugAssign) Pos() int   { return s.Line }
func (s *Expr) Pos() int        { return s.Line }
func (s *If) Pos() int          { return s.Line }
func (s *Loop) Pos() int        { return s.Line }
func (s *FunctionDef) Pos() int { return s.Line }
func (s *Return) Pos() int      { return s.Line }
func (s *Try) Pos() int         { return s.Line }
func (s *Other) Pos() int       { return s.Line }

func (*Assign) stmt()      {}
func (*AugAssign) stmt()   {}
func (*Expr) stmt()        {}
func (*If) stmt()          {}
func (*Loop) stmt()        {}
func (*FunctionDef) stmt() {}
func (*Return) stmt()      {}
func (*Try) stmt()         {}
func (*Other) stmt()       {}

// Module is a parsed program: its top-level statements plus the raw source
// split into lines.
type Module struct {
	Body  []Stmt
	Lines []string
}

// NewModule returns a Module for the given statements, splitting src on
// newlines. A trailing carriage return on each line is dropped.
func NewModule(src string, body []Stmt) *Module {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return &Module{Body: body, Lines: lines}
}

// Line returns the whitespace-trimmed text of the 1-based line n.
// Out-of-range lines yield the empty string.
func (m *Module) Line(n int) string {
	if m == nil || n < 1 || n > len(m.Lines) {
		return ""
	}
	return strings.TrimSpace(m.Lines[n-1])
}

// SyntaxError reports source that could not be parsed.
type SyntaxError struct {
	Msg  string
	Line int // 1-based; 0 if unknown
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}
