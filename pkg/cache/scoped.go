package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
//
// Example usage:
//
//	// Per-deployment keys on a shared Redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "codeflow:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// GraphKey generates a prefixed key for flowchart caching.
func (k *ScopedKeyer) GraphKey(code string) string {
	return k.prefix + k.inner.GraphKey(code)
}

// TraceKey generates a prefixed key for trace caching.
func (k *ScopedKeyer) TraceKey(code string, inputs []string, opts TraceKeyOpts) string {
	return k.prefix + k.inner.TraceKey(code, inputs, opts)
}

// SummaryKey generates a prefixed key for summary caching.
func (k *ScopedKeyer) SummaryKey(code string, inputs []string, opts TraceKeyOpts) string {
	return k.prefix + k.inner.SummaryKey(code, inputs, opts)
}

// RenderKey generates a prefixed key for diagram caching.
func (k *ScopedKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(graphHash, opts)
}
