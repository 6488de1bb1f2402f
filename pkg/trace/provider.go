package trace

import (
	"context"
	"strings"
)

// Request is what a provider needs to trace a program.
type Request struct {
	Code string `json:"code"`

	// Inputs are the values fed to input() calls, in call order.
	Inputs []string `json:"inputs,omitempty"`
}

// LineCount returns the number of source lines in the request.
func (r Request) LineCount() int {
	return len(strings.Split(r.Code, "\n"))
}

// Provider produces an execution trace.
type Provider interface {
	// Name identifies the provider in cache keys and logs.
	Name() string

	Trace(ctx context.Context, req Request) (*Trace, error)
}

// Summarizer produces a prose walkthrough of a program.
type Summarizer interface {
	Summary(ctx context.Context, req Request) (string, error)
}

// FileProvider replays a trace stored on disk, ignoring the request's inputs.
type FileProvider struct {
	Path string
}

// Name implements Provider.
func (p FileProvider) Name() string { return "file" }

// Trace implements Provider.
func (p FileProvider) Trace(ctx context.Context, req Request) (*Trace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(req.LineCount()); err != nil {
		return nil, err
	}
	return t, nil
}

// Static returns the same trace for every request.
type Static struct {
	T *Trace
}

// Name implements Provider.
func (Static) Name() string { return "static" }

// Trace implements Provider.
func (p Static) Trace(ctx context.Context, req Request) (*Trace, error) {
	if p.T.Len() == 0 {
		return nil, ErrEmptyTrace
	}
	return p.T, nil
}
