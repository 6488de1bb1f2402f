package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codeflow/pkg/cache"
	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/observability"
	"github.com/matzehuels/codeflow/pkg/trace"
)

// ModelProvider is implemented by providers whose output depends on a
// model name, which then becomes part of the cache key.
type ModelProvider interface {
	Model() string
}

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its collaborators - it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Parser   Parser
	Provider trace.Provider
	Logger   *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, caching is disabled (see cache.NewNullCache).
// Set Provider to enable tracing; Parser defaults to the Python parser.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → trace → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	result := &Result{}

	// Stage 1: Parse and build
	buildStart := time.Now()
	g, hit, err := r.BuildWithCacheInfo(ctx, opts.Code)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = len(g.Nodes)
	result.Stats.EdgeCount = len(g.Edges)
	result.CacheInfo.GraphHit = hit
	if data, err := flow.Marshal(g); err == nil {
		result.GraphHash = cache.Hash(data)
	}

	r.Logger.Info("built flowchart",
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"error_graph", g.IsError(),
		"duration", result.Stats.BuildTime)

	// Stage 2: Trace
	if opts.Trace && !g.IsError() {
		traceStart := time.Now()
		t, hit, err := r.TraceWithCacheInfo(ctx, opts.TraceRequest(), opts.Refresh)
		if err != nil {
			return nil, err
		}
		LinkSteps(t, g)
		result.Trace = t
		result.Stats.StepCount = t.Len()
		result.Stats.TraceTime = time.Since(traceStart)
		result.CacheInfo.TraceHit = hit

		r.Logger.Info("traced execution",
			"steps", t.Len(),
			"cached", hit,
			"duration", result.Stats.TraceTime)
	}
	if opts.Summary && !g.IsError() {
		s, hit, err := r.SummaryWithCacheInfo(ctx, opts.TraceRequest(), opts.Refresh)
		if err != nil {
			return nil, err
		}
		result.Summary = s
		result.CacheInfo.SummaryHit = hit
	}

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, g, result.GraphHash, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// BuildWithCacheInfo builds the flowchart with caching and returns cache hit info.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, code string) (*flow.Graph, bool, error) {
	if err := codeerr.ValidateSource([]byte(code)); err != nil {
		return nil, false, err
	}
	key := r.Keyer.GraphKey(code)

	var g *flow.Graph
	if r.cached(ctx, cache.KindGraph, key, func(data []byte) (err error) {
		g, err = flow.Unmarshal(data)
		return err
	}) {
		return g, true, nil
	}

	g, err := Build(ctx, r.Parser, code)
	if err != nil {
		return nil, false, err
	}
	data, err := flow.Marshal(g)
	if err != nil {
		r.warnCache(&cache.Error{Kind: cache.KindGraph, Op: "set", Err: err})
		return g, false, nil
	}
	r.store(ctx, cache.KindGraph, key, data, cache.TTLGraph)
	return g, false, nil
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and discards the cache hit info.
func (r *Runner) Build(ctx context.Context, code string) (*flow.Graph, error) {
	g, _, err := r.BuildWithCacheInfo(ctx, code)
	return g, err
}

func (r *Runner) traceKeyOpts() (cache.TraceKeyOpts, error) {
	if r.Provider == nil {
		return cache.TraceKeyOpts{}, codeerr.New(codeerr.ErrCodeUnsupported, "no trace provider configured")
	}
	opts := cache.TraceKeyOpts{Provider: r.Provider.Name()}
	if m, ok := r.Provider.(ModelProvider); ok {
		opts.Model = m.Model()
	}
	return opts, nil
}

// TraceWithCacheInfo asks the provider for a trace unless a cached one
// exists. refresh skips the cache lookup but still stores the new trace.
func (r *Runner) TraceWithCacheInfo(ctx context.Context, req trace.Request, refresh bool) (*trace.Trace, bool, error) {
	keyOpts, err := r.traceKeyOpts()
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.TraceKey(req.Code, req.Inputs, keyOpts)

	if !refresh {
		var t trace.Trace
		hit, err := cache.GetJSON(ctx, r.Cache, cache.KindTrace, key, &t)
		r.warnCache(err)
		if hit && t.Validate(req.LineCount()) == nil {
			return &t, true, nil
		}
	}

	hooks := observability.Pipeline()
	hooks.OnTraceStart(ctx, keyOpts.Provider)
	start := time.Now()
	t, err := r.Provider.Trace(ctx, req)
	hooks.OnTraceComplete(ctx, keyOpts.Provider, t.Len(), time.Since(start), err)
	if err != nil {
		if codeerr.GetCode(err) == "" {
			err = codeerr.Wrap(codeerr.ErrCodeTraceProvider, err, "trace failed")
		}
		return nil, false, err
	}
	if err := t.Validate(req.LineCount()); err != nil {
		return nil, false, codeerr.Wrap(codeerr.ErrCodeInvalidTrace, err, "provider returned an invalid trace")
	}

	r.warnCache(cache.SetJSON(ctx, r.Cache, cache.KindTrace, key, t, cache.TTLTrace))
	return t, false, nil
}

// Trace is a convenience wrapper that calls TraceWithCacheInfo and discards the cache hit info.
func (r *Runner) Trace(ctx context.Context, req trace.Request) (*trace.Trace, error) {
	t, _, err := r.TraceWithCacheInfo(ctx, req, false)
	return t, err
}

// SummaryWithCacheInfo asks the provider for a prose walkthrough. The
// provider must implement trace.Summarizer.
func (r *Runner) SummaryWithCacheInfo(ctx context.Context, req trace.Request, refresh bool) (string, bool, error) {
	keyOpts, err := r.traceKeyOpts()
	if err != nil {
		return "", false, err
	}
	sum, ok := r.Provider.(trace.Summarizer)
	if !ok {
		return "", false, codeerr.New(codeerr.ErrCodeUnsupported, "provider %s cannot summarize", keyOpts.Provider)
	}
	key := r.Keyer.SummaryKey(req.Code, req.Inputs, keyOpts)

	if !refresh {
		var s string
		hit, err := cache.GetJSON(ctx, r.Cache, cache.KindSummary, key, &s)
		r.warnCache(err)
		if hit {
			return s, true, nil
		}
	}
	s, err := sum.Summary(ctx, req)
	if err != nil {
		return "", false, err
	}
	r.warnCache(cache.SetJSON(ctx, r.Cache, cache.KindSummary, key, s, cache.TTLSummary))
	return s, false, nil
}

// RenderWithCacheInfo renders every requested format. Graphviz and PDF
// outputs are cached by graph hash and render options; text formats are
// cheap and always rendered. The bool reports whether every cacheable
// format came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *flow.Graph, graphHash string, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	if graphHash == "" {
		data, err := flow.Marshal(g)
		if err != nil {
			return nil, false, fmt.Errorf("serialize graph for cache key: %w", err)
		}
		graphHash = cache.Hash(data)
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var pending []string
	cacheable := 0
	for _, format := range opts.Formats {
		if !binaryFormats[format] {
			pending = append(pending, format)
			continue
		}
		cacheable++
		key := r.Keyer.RenderKey(graphHash, opts.RenderKeyOpts(format))
		if r.cached(ctx, cache.KindRender, key, func(data []byte) error {
			artifacts[format] = data
			return nil
		}) {
			continue
		}
		pending = append(pending, format)
	}

	allHit := cacheable > 0
	if len(pending) > 0 {
		sub := opts
		sub.Formats = pending
		rendered, err := Render(ctx, g, sub)
		if err != nil {
			return nil, false, err
		}
		for format, data := range rendered {
			artifacts[format] = data
			if !binaryFormats[format] {
				continue
			}
			allHit = false
			key := r.Keyer.RenderKey(graphHash, opts.RenderKeyOpts(format))
			r.store(ctx, cache.KindRender, key, data, cache.TTLRender)
		}
	}
	return artifacts, allHit, nil
}

// cached looks key up and hands the entry to decode. Backend failures and
// entries that do not decode count as misses and are logged.
func (r *Runner) cached(ctx context.Context, kind, key string, decode func([]byte) error) bool {
	data, hit, err := r.Cache.Get(ctx, key)
	switch {
	case err != nil:
		r.warnCache(&cache.Error{Kind: kind, Op: "get", Err: err})
	case hit:
		if err := decode(data); err != nil {
			r.warnCache(&cache.Error{Kind: kind, Op: "get", Err: fmt.Errorf("%w: %v", cache.ErrCorrupt, err)})
			break
		}
		observability.Cache().OnCacheHit(ctx, kind)
		return true
	}
	observability.Cache().OnCacheMiss(ctx, kind)
	return false
}

func (r *Runner) store(ctx context.Context, kind, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.warnCache(&cache.Error{Kind: kind, Op: "set", Err: err})
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

// warnCache logs a cache failure; the pipeline carries on without the cache.
func (r *Runner) warnCache(err error) {
	if err != nil {
		r.Logger.Warn("cache unavailable", "err", err)
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// LinkSteps fills each step's flowchart node from the graph's line index
// when the provider did not name one.
func LinkSteps(t *trace.Trace, g *flow.Graph) {
	if t == nil || g == nil {
		return
	}
	for i := range t.Steps {
		s := &t.Steps[i]
		if s.NodeID != "" {
			if _, ok := g.Node(s.NodeID); ok {
				continue
			}
		}
		s.NodeID, _ = g.NodeForLine(s.LineNo)
	}
}
