package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a charm logger at debug level; failures
// are logged as warnings.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log through logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

// Register installs h for every hook category.
func (h *LogHooks) Register() {
	SetPipelineHooks(h)
	SetCacheHooks(h)
	SetProviderHooks(h)
}

func (h *LogHooks) done(msg string, err error, kv ...any) {
	if err != nil {
		h.logger.Warn(msg+" failed", append(kv, "err", err)...)
		return
	}
	h.logger.Debug(msg, kv...)
}

func (h *LogHooks) OnParseStart(_ context.Context, language string, size int) {
	h.logger.Debug("parse start", "language", language, "bytes", size)
}

func (h *LogHooks) OnParseComplete(_ context.Context, language string, stmts int, d time.Duration, err error) {
	h.done("parse", err, "language", language, "statements", stmts, "took", d)
}

func (h *LogHooks) OnBuildComplete(_ context.Context, nodes, edges int, d time.Duration) {
	h.logger.Debug("build", "nodes", nodes, "edges", edges, "took", d)
}

func (h *LogHooks) OnTraceStart(_ context.Context, provider string) {
	h.logger.Debug("trace start", "provider", provider)
}

func (h *LogHooks) OnTraceComplete(_ context.Context, provider string, steps int, d time.Duration, err error) {
	h.done("trace", err, "provider", provider, "steps", steps, "took", d)
}

func (h *LogHooks) OnRenderStart(_ context.Context, format string) {
	h.logger.Debug("render start", "format", format)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, format string, d time.Duration, err error) {
	h.done("render", err, "format", format, "took", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, provider, model string, size int) {
	h.logger.Debug("provider request", "provider", provider, "model", model, "prompt", size)
}

func (h *LogHooks) OnResponse(_ context.Context, provider, model string, size int, d time.Duration) {
	h.logger.Debug("provider response", "provider", provider, "model", model, "bytes", size, "took", d)
}

func (h *LogHooks) OnError(_ context.Context, provider, model string, err error) {
	h.logger.Warn("provider error", "provider", provider, "model", model, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ ProviderHooks = (*LogHooks)(nil)
)
