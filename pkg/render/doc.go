// Package render holds the diagram serializers for control-flow graphs and
// the format conversion they share.
//
// # Serializers
//
//   - [mermaid]: Mermaid flowchart text, the primary output
//   - [nodelink]: Graphviz DOT plus in-process SVG and PNG rendering
//   - [label]: the label templating both serializers use for the
//     active node
//
// # Format Conversion
//
// [ToPDF] converts SVG produced by [nodelink.RenderSVG] to PDF using the
// external rsvg-convert tool (from librsvg); the conversion stops when the
// context is cancelled.
//
//	svg, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(g, opts))
//	pdf, err := render.ToPDF(ctx, svg)
package render
