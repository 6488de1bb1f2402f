package python

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matzehuels/codeflow/pkg/syntax"
)

func mustParse(t *testing.T, src string) *syntax.Module {
	t.Helper()
	mod, err := Parse(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return mod
}

func TestParseStatementKinds(t *testing.T) {
	src := strings.Join([]string{
		`"""module docstring"""`,
		`import os`,
		`x = 1`,
		`x += 2`,
		`print(x)`,
		`obj.method()`,
		`for i in range(3):`,
		`    pass`,
		`while x:`,
		`    x -= 1`,
		`def f(a, b=2):`,
		`    return a`,
		`try:`,
		`    f(1)`,
		`except ValueError:`,
		`    pass`,
	}, "\n")

	mod := mustParse(t, src)

	want := []string{"*syntax.Expr", "*syntax.Other", "*syntax.Assign", "*syntax.AugAssign",
		"*syntax.Expr", "*syntax.Expr", "*syntax.Loop", "*syntax.Loop", "*syntax.FunctionDef", "*syntax.Try"}
	if len(mod.Body) != len(want) {
		t.Fatalf("got %d statements, want %d", len(mod.Body), len(want))
	}
	for i, s := range mod.Body {
		if got := typeName(s); got != want[i] {
			t.Errorf("stmt %d: got %s, want %s", i, got, want[i])
		}
	}

	if doc := mod.Body[0].(*syntax.Expr); !doc.Docstring {
		t.Error("module string should be a docstring")
	}
	if call := mod.Body[4].(*syntax.Expr); call.Callee != "print" {
		t.Errorf("Callee = %q, want print", call.Callee)
	}
	if call := mod.Body[5].(*syntax.Expr); call.Callee != "" {
		t.Errorf("method call Callee = %q, want empty", call.Callee)
	}
	if got := mod.Body[2].Pos(); got != 3 {
		t.Errorf("assign line = %d, want 3", got)
	}
	if got := mod.Line(7); got != "for i in range(3):" {
		t.Errorf("Line(7) = %q", got)
	}
}

func TestParseElifChain(t *testing.T) {
	src := "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n"
	mod := mustParse(t, src)

	outer, ok := mod.Body[0].(*syntax.If)
	if !ok {
		t.Fatalf("got %T, want *syntax.If", mod.Body[0])
	}
	if len(outer.Body) != 1 || len(outer.Orelse) != 1 {
		t.Fatalf("outer if: body=%d orelse=%d", len(outer.Body), len(outer.Orelse))
	}
	inner, ok := outer.Orelse[0].(*syntax.If)
	if !ok {
		t.Fatalf("elif: got %T, want *syntax.If", outer.Orelse[0])
	}
	if inner.Line != 3 {
		t.Errorf("elif line = %d, want 3", inner.Line)
	}
	if len(inner.Orelse) != 1 || inner.Orelse[0].Pos() != 6 {
		t.Errorf("else branch not attached to the elif")
	}
}

func TestParseFunctionParams(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"def f():\n    pass\n", ""},
		{"def f(a, b):\n    pass\n", "a,b"},
		{"def f(a, b=1, c: int = 2, d: str = 'x'):\n    pass\n", "a,b,c,d"},
		{"def f(self, *args, **kwargs):\n    pass\n", "self"},
		{"def f(a, *, b):\n    pass\n", "a"},
		{"def f(a, /, b):\n    pass\n", "b"},
		{"@decorator\ndef f(x):\n    pass\n", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			mod := mustParse(t, tt.src)
			fn, ok := mod.Body[0].(*syntax.FunctionDef)
			if !ok {
				t.Fatalf("got %T, want *syntax.FunctionDef", mod.Body[0])
			}
			if fn.Name != "f" {
				t.Errorf("Name = %q", fn.Name)
			}
			if got := strings.Join(fn.Params, ","); got != tt.want {
				t.Errorf("Params = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDecoratedLine(t *testing.T) {
	mod := mustParse(t, "@decorator\ndef f(x):\n    pass\n")
	if got := mod.Body[0].Pos(); got != 2 {
		t.Errorf("decorated def line = %d, want 2", got)
	}
}

func TestParseDocstrings(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{`"doc"`, true},
		{`'''doc'''`, true},
		{`r"raw"`, true},
		{`"a" "b"`, true},
		{`f"hello {x}"`, false},
		{`b"bytes"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			mod := mustParse(t, tt.src+"\n")
			e, ok := mod.Body[0].(*syntax.Expr)
			if !ok {
				t.Fatalf("got %T, want *syntax.Expr", mod.Body[0])
			}
			if e.Docstring != tt.want {
				t.Errorf("Docstring = %v, want %v", e.Docstring, tt.want)
			}
		})
	}
}

func TestParseTryHandlers(t *testing.T) {
	src := strings.Join([]string{
		"try:",
		"    x = 1",
		"except ValueError as e:",
		"    x = 2",
		"except (KeyError, IndexError):",
		"    x = 3",
		"except:",
		"    x = 4",
		"else:",
		"    x = 5",
		"finally:",
		"    x = 6",
	}, "\n")
	mod := mustParse(t, src)

	try, ok := mod.Body[0].(*syntax.Try)
	if !ok {
		t.Fatalf("got %T, want *syntax.Try", mod.Body[0])
	}
	if len(try.Handlers) != 3 {
		t.Fatalf("got %d handlers, want 3", len(try.Handlers))
	}
	wantTypes := []string{"ValueError", "(KeyError, IndexError)", ""}
	for i, h := range try.Handlers {
		if h.Type != wantTypes[i] {
			t.Errorf("handler %d Type = %q, want %q", i, h.Type, wantTypes[i])
		}
		if len(h.Body) != 1 {
			t.Errorf("handler %d body = %d statements, want 1", i, len(h.Body))
		}
	}
	if len(try.Orelse) != 1 || try.Orelse[0].Pos() != 10 {
		t.Errorf("else clause not captured")
	}
}

func TestParseNestedOther(t *testing.T) {
	src := "class C:\n    x = 1\n    def m(self):\n        pass\nwith open('f') as fh:\n    data = fh.read()\n"
	mod := mustParse(t, src)

	cls, ok := mod.Body[0].(*syntax.Other)
	if !ok {
		t.Fatalf("class: got %T, want *syntax.Other", mod.Body[0])
	}
	if len(cls.Body) != 2 {
		t.Errorf("class body = %d statements, want 2", len(cls.Body))
	}
	with, ok := mod.Body[1].(*syntax.Other)
	if !ok {
		t.Fatalf("with: got %T, want *syntax.Other", mod.Body[1])
	}
	if len(with.Body) != 1 {
		t.Errorf("with body = %d statements, want 1", len(with.Body))
	}
}

func TestParseAsyncIsOther(t *testing.T) {
	mod := mustParse(t, "async def f():\n    await g()\n")
	other, ok := mod.Body[0].(*syntax.Other)
	if !ok {
		t.Fatalf("got %T, want *syntax.Other", mod.Body[0])
	}
	if len(other.Body) != 1 {
		t.Errorf("async def body = %d statements, want 1", len(other.Body))
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), []byte("x = 1\nif x > 0\n    print(x)\n"))
	var se *syntax.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *syntax.SyntaxError", err)
	}
	if se.Msg == "" {
		t.Error("syntax error message is empty")
	}
	if se.Line < 1 {
		t.Errorf("syntax error line = %d, want >= 1", se.Line)
	}
}

func TestParseRejectsRecoveredSyntax(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"unexpected indent", "x = 5\n  y = 6\n", 2, "unexpected indent"},
		{"unmatched dedent", "if x:\n    a = 1\n  b = 2\n", 3, "unindent"},
		{"print statement", `print "hello"`, 1, "print"},
		{"exec statement", `exec "x = 1"`, 1, "exec"},
		{"bare walrus", "y := 2\n", 1, "invalid syntax"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tt.src))
			var se *syntax.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *syntax.SyntaxError", err)
			}
			if se.Line != tt.line {
				t.Errorf("line = %d, want %d", se.Line, tt.line)
			}
			if !strings.Contains(se.Msg, tt.msg) {
				t.Errorf("message = %q, want it to contain %q", se.Msg, tt.msg)
			}
		})
	}
}

func TestParseAcceptsValidLayout(t *testing.T) {
	srcs := []string{
		"if x: a = 1; b = 2\nc = 3\n",
		"def f():\n    # note\n    return 1\n",
		"y = (n := 2)\n",
		"x = [1,\n     2]\nprint(x)\n",
		"class A:\n\tdef f(self):\n\t\tpass\n",
		"@dec\ndef g():\n    pass\n",
	}
	for _, src := range srcs {
		if _, err := Parse(context.Background(), []byte(src)); err != nil {
			t.Errorf("Parse(%q) error: %v", src, err)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	mod := mustParse(t, "")
	if len(mod.Body) != 0 {
		t.Errorf("got %d statements, want 0", len(mod.Body))
	}
}

func TestParseSizeLimit(t *testing.T) {
	p := NewParser(WithMaxSourceSize(4))
	if _, err := p.Parse(context.Background(), []byte("x = 12345")); err == nil {
		t.Error("expected size limit error")
	}
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Parse(ctx, []byte("x = 1")); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func typeName(s syntax.Stmt) string {
	switch s.(type) {
	case *syntax.Assign:
		return "*syntax.Assign"
	case *syntax.AugAssign:
		return "*syntax.AugAssign"
	case *syntax.Expr:
		return "*syntax.Expr"
	case *syntax.If:
		return "*syntax.If"
	case *syntax.Loop:
		return "*syntax.Loop"
	case *syntax.FunctionDef:
		return "*syntax.FunctionDef"
	case *syntax.Return:
		return "*syntax.Return"
	case *syntax.Try:
		return "*syntax.Try"
	case *syntax.Other:
		return "*syntax.Other"
	}
	return "unknown"
}
