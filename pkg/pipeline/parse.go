package pipeline

import (
	"context"
	"errors"
	"time"

	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/observability"
	"github.com/matzehuels/codeflow/pkg/syntax"
	"github.com/matzehuels/codeflow/pkg/syntax/python"
)

// Parser turns source into a statement tree.
type Parser interface {
	Parse(ctx context.Context, src []byte) (*syntax.Module, error)
}

// Build parses code and derives its flowchart. A syntax error is not an
// error here: it produces the single-node error graph at the reported line.
func Build(ctx context.Context, p Parser, code string) (*flow.Graph, error) {
	if p == nil {
		p = python.NewParser()
	}
	hooks := observability.Pipeline()
	hooks.OnParseStart(ctx, "python", len(code))

	start := time.Now()
	mod, err := p.Parse(ctx, []byte(code))
	stmts := 0
	if mod != nil {
		stmts = len(mod.Body)
	}
	hooks.OnParseComplete(ctx, "python", stmts, time.Since(start), err)

	var synErr *syntax.SyntaxError
	switch {
	case errors.As(err, &synErr):
		return flow.ErrorGraph(synErr.Msg, synErr.Line), nil
	case err != nil:
		if ctx.Err() != nil {
			return nil, codeerr.Wrap(codeerr.ErrCodeTimeout, err, "parse timed out")
		}
		return nil, codeerr.Wrap(codeerr.ErrCodeInternal, err, "parse failed")
	}

	start = time.Now()
	g := flow.Build(mod)
	hooks.OnBuildComplete(ctx, len(g.Nodes), len(g.Edges), time.Since(start))
	return g, nil
}
