package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codeflow/pkg/cache"
	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/render/label"
	"github.com/matzehuels/codeflow/pkg/syntax"
	"github.com/matzehuels/codeflow/pkg/trace"
)

const src = "x = 1\nprint(x)"

// stubParser returns a fixed tree for src and counts calls.
type stubParser struct {
	calls atomic.Int32
	err   error
}

func (p *stubParser) Parse(ctx context.Context, b []byte) (*syntax.Module, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return syntax.NewModule(string(b), []syntax.Stmt{
		&syntax.Assign{Line: 1},
		&syntax.Expr{Line: 2, Callee: "print"},
	}), nil
}

type stubProvider struct {
	calls atomic.Int32
	t     *trace.Trace
	err   error
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "m1" }

func (p *stubProvider) Trace(ctx context.Context, req trace.Request) (*trace.Trace, error) {
	p.calls.Add(1)
	return p.t, p.err
}

func (p *stubProvider) Summary(ctx context.Context, req trace.Request) (string, error) {
	p.calls.Add(1)
	return "prints 1", nil
}

func newTestRunner(t *testing.T) (*Runner, *stubParser, *stubProvider) {
	t.Helper()
	c, err := cache.NewMemoryCache(64)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	p := &stubParser{}
	prov := &stubProvider{t: &trace.Trace{Steps: []trace.Step{
		{LineNo: 1, Variables: trace.Variables{{Name: "x", Value: "1"}}},
		{LineNo: 2, Variables: trace.Variables{{Name: "x", Value: "1"}}, Output: "1"},
	}}}
	r.Parser = p
	r.Provider = prov
	return r, p, prov
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"mermaid", false},
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !codeerr.Is(err, codeerr.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, codeerr.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"mermaid", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Code: src}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatMermaid {
		t.Errorf("Formats = %v", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	tests := []struct {
		name string
		opts Options
		code codeerr.Code
	}{
		{"empty code", Options{}, codeerr.ErrCodeInvalidInput},
		{"negative line", Options{Code: src, ActiveLine: -1}, codeerr.ErrCodeInvalidInput},
		{"bad variable", Options{Code: src, Variables: []label.Binding{{Name: "1x"}}}, codeerr.ErrCodeInvalidInput},
		{"bad format", Options{Code: src, Formats: []string{"gif"}}, codeerr.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !codeerr.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	r, parser, _ := newTestRunner(t)
	ctx := context.Background()

	opts := Options{
		Code:       src,
		ActiveLine: 2,
		Variables:  []label.Binding{{Name: "x", Value: "5"}},
		Formats:    []string{FormatMermaid, FormatDOT, FormatJSON},
	}
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats.NodeCount != 4 || res.Stats.EdgeCount != 3 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.GraphHash == "" {
		t.Error("GraphHash should be set")
	}
	if !strings.Contains(string(res.Artifacts[FormatMermaid]), `node_3[/"print(5)"/]`) {
		t.Errorf("mermaid missing templated label:\n%s", res.Artifacts[FormatMermaid])
	}
	if !strings.Contains(string(res.Artifacts[FormatDOT]), "digraph G") {
		t.Error("dot artifact missing")
	}
	if !strings.Contains(string(res.Artifacts[FormatJSON]), `"line_to_node"`) {
		t.Error("json artifact missing")
	}
	if res.Trace != nil {
		t.Error("trace should not run unless requested")
	}

	// Second run hits the graph cache
	res, err = r.Execute(ctx, Options{Code: src})
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheInfo.GraphHit {
		t.Error("second build should hit the cache")
	}
	if parser.calls.Load() != 1 {
		t.Errorf("parser called %d times", parser.calls.Load())
	}
}

func TestExecuteSyntaxError(t *testing.T) {
	r, parser, prov := newTestRunner(t)
	parser.err = &syntax.SyntaxError{Msg: "invalid syntax", Line: 2}

	res, err := r.Execute(context.Background(), Options{Code: "x = (", Trace: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Graph.IsError() {
		t.Fatal("expected the error graph")
	}
	if got := string(res.Artifacts[FormatMermaid]); !strings.Contains(got, "Syntax Error: invalid syntax") {
		t.Errorf("error graph not rendered:\n%s", got)
	}
	if prov.calls.Load() != 0 {
		t.Error("error graphs should not be traced")
	}
}

func TestBuildIndentationErrorIsErrorGraph(t *testing.T) {
	g, err := Build(context.Background(), nil, "x = 5\n  y = 6\n")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !g.IsError() {
		t.Fatalf("expected the error graph, got %d nodes", len(g.Nodes))
	}
	if n := g.Nodes[0]; n.Line != 2 || !strings.Contains(n.Label, "unexpected indent") {
		t.Errorf("error node = %+v", n)
	}
}

func TestBuildCorruptCacheEntry(t *testing.T) {
	r, parser, _ := newTestRunner(t)
	var logs bytes.Buffer
	r.Logger = log.New(&logs)
	ctx := context.Background()

	if err := r.Cache.Set(ctx, r.Keyer.GraphKey(src), []byte("{"), time.Hour); err != nil {
		t.Fatal(err)
	}
	g, hit, err := r.BuildWithCacheInfo(ctx, src)
	if err != nil || hit || g == nil {
		t.Fatalf("BuildWithCacheInfo = %v, %v, %v", g, hit, err)
	}
	if !strings.Contains(logs.String(), "graph cache get") {
		t.Errorf("corrupt entry not logged:\n%s", logs.String())
	}

	// The rebuilt graph replaced the bad entry
	if _, hit, _ := r.BuildWithCacheInfo(ctx, src); !hit {
		t.Error("rebuilt graph should be cached")
	}
	if parser.calls.Load() != 1 {
		t.Errorf("parser called %d times", parser.calls.Load())
	}
}

// downCache fails every operation, like an unreachable Redis.
type downCache struct{}

func (downCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, cache.Retryable(cache.ErrUnavailable)
}
func (downCache) Set(context.Context, string, []byte, time.Duration) error {
	return cache.Retryable(cache.ErrUnavailable)
}
func (downCache) Delete(context.Context, string) error { return nil }
func (downCache) Close() error                         { return nil }

func TestExecuteWithCacheDown(t *testing.T) {
	var logs bytes.Buffer
	r := NewRunner(downCache{}, nil, log.New(&logs))
	r.Parser = &stubParser{}

	res, err := r.Execute(context.Background(), Options{Code: src})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheInfo.GraphHit || len(res.Artifacts[FormatMermaid]) == 0 {
		t.Errorf("result = %+v", res.CacheInfo)
	}
	for _, want := range []string{"graph cache get", "graph cache set", "cache backend unavailable"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q:\n%s", want, logs.String())
		}
	}
}

func TestRenderKeyFollowsTemplater(t *testing.T) {
	plain := Options{ActiveLine: 1}
	custom := Options{ActiveLine: 1, Templater: label.Default().With(upper{})}
	k := cache.NewDefaultKeyer()

	a := k.RenderKey("h", plain.RenderKeyOpts(FormatSVG))
	b := k.RenderKey("h", custom.RenderKeyOpts(FormatSVG))
	if a == b {
		t.Error("templaters with different rules share a render key")
	}
	if c := k.RenderKey("h", (&Options{ActiveLine: 1, Templater: label.Default()}).RenderKeyOpts(FormatSVG)); c != a {
		t.Error("the default templater should key like no templater")
	}
}

// upper is a rule that upper-cases labels mentioning a bound name.
type upper struct{}

func (upper) Name() string { return "upper" }

func (upper) Rewrite(l string, b label.Binding) (string, bool) {
	if !strings.Contains(l, b.Name) {
		return l, false
	}
	return strings.ToUpper(l), true
}

func TestExecuteParseFailure(t *testing.T) {
	r, parser, _ := newTestRunner(t)
	parser.err = errors.New("parser crashed")

	_, err := r.Execute(context.Background(), Options{Code: src})
	if !codeerr.Is(err, codeerr.ErrCodeInternal) {
		t.Errorf("error = %v", err)
	}
}

func TestExecuteTrace(t *testing.T) {
	r, _, prov := newTestRunner(t)
	ctx := context.Background()

	res, err := r.Execute(ctx, Options{Code: src, Trace: true, Summary: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Trace.Len() != 2 || res.Stats.StepCount != 2 {
		t.Fatalf("trace = %+v", res.Trace)
	}
	if res.Trace.Steps[1].NodeID != "node_3" {
		t.Errorf("step not linked to node: %q", res.Trace.Steps[1].NodeID)
	}
	if res.Summary != "prints 1" {
		t.Errorf("Summary = %q", res.Summary)
	}
	if prov.calls.Load() != 2 {
		t.Errorf("provider calls = %d", prov.calls.Load())
	}

	res, err = r.Execute(ctx, Options{Code: src, Trace: true, Summary: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheInfo.TraceHit || !res.CacheInfo.SummaryHit {
		t.Errorf("cache info = %+v", res.CacheInfo)
	}
	if prov.calls.Load() != 2 {
		t.Error("cached trace should not call the provider")
	}

	// Different inputs miss
	if _, hit, _ := r.TraceWithCacheInfo(ctx, trace.Request{Code: src, Inputs: []string{"9"}}, false); hit {
		t.Error("different inputs should miss")
	}
	// Refresh skips the cache
	if _, hit, _ := r.TraceWithCacheInfo(ctx, trace.Request{Code: src}, true); hit {
		t.Error("refresh should skip the cache")
	}
}

func TestTraceErrors(t *testing.T) {
	ctx := context.Background()

	r, _, prov := newTestRunner(t)
	r.Provider = nil
	if _, err := r.Trace(ctx, trace.Request{Code: src}); !codeerr.Is(err, codeerr.ErrCodeUnsupported) {
		t.Errorf("no provider error = %v", err)
	}

	r.Provider = prov
	prov.err = errors.New("quota")
	if _, err := r.Trace(ctx, trace.Request{Code: src}); !codeerr.Is(err, codeerr.ErrCodeTraceProvider) {
		t.Errorf("provider error = %v", err)
	}

	prov.err = nil
	prov.t = &trace.Trace{Steps: []trace.Step{{LineNo: 40}}}
	if _, err := r.Trace(ctx, trace.Request{Code: src}); !codeerr.Is(err, codeerr.ErrCodeInvalidTrace) {
		t.Errorf("invalid trace error = %v", err)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	r, _, _ := newTestRunner(t)
	g, err := r.Build(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Render(context.Background(), g, Options{Formats: []string{"gif"}}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLinkSteps(t *testing.T) {
	r, _, _ := newTestRunner(t)
	g, _ := r.Build(context.Background(), src)

	tr := &trace.Trace{Steps: []trace.Step{
		{LineNo: 1, NodeID: "A"},
		{LineNo: 2, NodeID: "node_1"},
		{LineNo: 9},
	}}
	LinkSteps(tr, g)

	want := []string{"node_2", "node_1", ""}
	for i, s := range tr.Steps {
		if s.NodeID != want[i] {
			t.Errorf("step %d NodeID = %q, want %q", i, s.NodeID, want[i])
		}
	}
	LinkSteps(nil, g)
}
