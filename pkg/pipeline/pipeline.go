// Package pipeline provides the core flowchart pipeline for codeflow.
//
// This package implements the complete parse → build → trace → render
// pipeline used by the CLI and the API server. By centralizing this logic,
// both entry points share caching, validation and defaults.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Parse: turn Python source into a statement tree
//  2. Build: derive the control-flow graph (a syntax error yields the
//     single-node error graph instead of failing)
//  3. Trace: optionally ask a provider for an execution trace
//  4. Render: produce Mermaid, DOT, SVG, PNG, PDF or JSON output
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Code:       src,
//	    ActiveLine: 3,
//	    Formats:    []string{pipeline.FormatMermaid},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(string(result.Artifacts["mermaid"]))
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/codeflow/pkg/cache"
	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/render/label"
	"github.com/matzehuels/codeflow/pkg/trace"
)

// Format constants for output formats.
const (
	FormatMermaid = "mermaid"
	FormatDOT     = "dot"
	FormatSVG     = "svg"
	FormatPNG     = "png"
	FormatPDF     = "pdf"
	FormatJSON    = "json"
)

// DefaultFormat is used when no format is requested.
const DefaultFormat = FormatMermaid

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatMermaid: true,
	FormatDOT:     true,
	FormatSVG:     true,
	FormatPNG:     true,
	FormatPDF:     true,
	FormatJSON:    true,
}

// binaryFormats are rendered through Graphviz or librsvg and worth caching.
var binaryFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the flowchart pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Source options
	Code   string   `json:"code"`
	Inputs []string `json:"inputs,omitempty"`

	// Trace options
	Trace   bool `json:"trace,omitempty"`
	Summary bool `json:"summary,omitempty"`
	Refresh bool `json:"refresh,omitempty"`

	// Render options
	Formats    []string        `json:"formats,omitempty"`
	ActiveLine int             `json:"active_line,omitempty"`
	Variables  []label.Binding `json:"variables,omitempty"`

	// Runtime options (not serialized)
	Logger    *log.Logger     `json:"-"`
	Templater label.Templater `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the control-flow graph; the error graph when parsing failed.
	Graph *flow.Graph

	// GraphHash is the content hash of the graph's JSON encoding.
	GraphHash string

	// Trace is set when Options.Trace was requested.
	Trace *trace.Trace

	// Summary is set when Options.Summary was requested.
	Summary string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	StepCount  int
	BuildTime  time.Duration
	TraceTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	GraphHit   bool // Whether the graph came from cache
	TraceHit   bool // Whether the trace came from cache
	SummaryHit bool // Whether the summary came from cache
	RenderHit  bool // Whether all cacheable artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return codeerr.New(codeerr.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: mermaid, dot, svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForBuild checks the source.
func (o *Options) ValidateForBuild() error {
	if err := codeerr.ValidateSource([]byte(o.Code)); err != nil {
		return err
	}
	o.setLogger()
	return nil
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.ActiveLine < 0 {
		return codeerr.New(codeerr.ErrCodeInvalidInput, "active_line must not be negative")
	}
	for _, v := range o.Variables {
		if err := codeerr.ValidateVariableName(v.Name); err != nil {
			return err
		}
	}
	o.setLogger()
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// TraceRequest returns the provider request for these options.
func (o *Options) TraceRequest() trace.Request {
	return trace.Request{Code: o.Code, Inputs: o.Inputs}
}

// RenderKeyOpts returns cache key options for a format.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	vars := make([]string, 0, 2*len(o.Variables))
	for _, v := range o.Variables {
		vars = append(vars, v.Name, v.Value)
	}
	return cache.RenderKeyOpts{
		Format:     format,
		ActiveLine: o.ActiveLine,
		Variables:  vars,
		Rules:      label.Describe(o.Templater),
	}
}

