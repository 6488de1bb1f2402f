package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/observability"
	"github.com/matzehuels/codeflow/pkg/render"
	"github.com/matzehuels/codeflow/pkg/render/mermaid"
	"github.com/matzehuels/codeflow/pkg/render/nodelink"
)

// Render generates output artifacts in the requested formats. The active
// line and variables apply to every format except JSON.
func Render(ctx context.Context, g *flow.Graph, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string
	var svg []byte

	dotFor := func() string {
		if dot == "" {
			dot = nodelink.ToDOT(g, nodelink.Options{
				ActiveLine: opts.ActiveLine,
				Variables:  opts.Variables,
				Templater:  opts.Templater,
			})
		}
		return dot
	}
	svgFor := func() ([]byte, error) {
		if svg == nil {
			var err error
			if svg, err = nodelink.RenderSVG(ctx, dotFor()); err != nil {
				return nil, err
			}
		}
		return svg, nil
	}

	for _, format := range opts.Formats {
		hooks := observability.Pipeline()
		hooks.OnRenderStart(ctx, format)
		start := time.Now()

		var data []byte
		var err error
		switch format {
		case FormatMermaid:
			data = []byte(mermaid.Render(g, mermaid.Options{
				ActiveLine: opts.ActiveLine,
				Variables:  opts.Variables,
				Templater:  opts.Templater,
			}))
		case FormatDOT:
			data = []byte(dotFor())
		case FormatSVG:
			data, err = svgFor()
		case FormatPNG:
			data, err = nodelink.RenderPNG(ctx, dotFor())
		case FormatPDF:
			var src []byte
			if src, err = svgFor(); err == nil {
				data, err = render.ToPDF(ctx, src)
			}
		case FormatJSON:
			data, err = flow.Marshal(g)
		default:
			err = ValidateFormat(format)
		}

		hooks.OnRenderComplete(ctx, format, time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
