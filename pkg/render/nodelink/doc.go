// Package nodelink renders control-flow graphs as Graphviz diagrams.
//
// # Overview
//
// This is the secondary serializer next to
// [github.com/matzehuels/codeflow/pkg/render/mermaid]. It draws the same
// nodes and edges with the same active-node overlay, but hands layout to
// Graphviz so the result can be rendered in-process to SVG or PNG.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{ActiveLine: 3})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// # DOT Format
//
// The generated DOT uses top-to-bottom layout (rankdir=TB). Node shapes
// follow the node type: ovals for start and end, boxes for operations,
// diamonds for conditions, parallelograms for io and double-bordered boxes
// for subroutines. Loop edges are dashed and do not constrain ranking, so
// back-edges do not push the loop header down.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process rendering.
package nodelink
