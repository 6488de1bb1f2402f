package cache

// Keyer derives cache keys.
type Keyer interface {
	// GraphKey identifies the flowchart built from source.
	GraphKey(code string) string

	// TraceKey identifies a trace for source, inputs and provider/model.
	TraceKey(code string, inputs []string, opts TraceKeyOpts) string

	// SummaryKey identifies a prose summary for source and inputs.
	SummaryKey(code string, inputs []string, opts TraceKeyOpts) string

	// RenderKey identifies a rendered diagram of a graph.
	RenderKey(graphHash string, opts RenderKeyOpts) string
}

// TraceKeyOpts are the provider settings that change a trace.
type TraceKeyOpts struct {
	Provider string
	Model    string
}

// RenderKeyOpts are the render settings that change output.
type RenderKeyOpts struct {
	Format     string
	ActiveLine int
	// Variables holds the active bindings as alternating names and values.
	Variables []string
	// Rules names the label rewrite rules in effect; a diagram templated
	// by one rule set is never served for another.
	Rules []string
}

// DefaultKeyer hashes its inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) GraphKey(code string) string {
	return KindGraph + ":" + Hash([]byte(code))
}

func (DefaultKeyer) TraceKey(code string, inputs []string, opts TraceKeyOpts) string {
	return traceHash(code, inputs, opts).key(KindTrace)
}

func (DefaultKeyer) SummaryKey(code string, inputs []string, opts TraceKeyOpts) string {
	return traceHash(code, inputs, opts).key(KindSummary)
}

func (DefaultKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return newKeyHash().
		str(graphHash).
		str(opts.Format).
		num(opts.ActiveLine).
		list(opts.Variables).
		list(opts.Rules).
		key(KindRender)
}

func traceHash(code string, inputs []string, opts TraceKeyOpts) *keyHash {
	return newKeyHash().str(code).list(inputs).str(opts.Provider).str(opts.Model)
}
