package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/render/label"
)

// Options configures node-link diagram rendering.
type Options struct {
	// ActiveLine highlights the node for this source line; 0 for none.
	ActiveLine int

	// Variables are applied to the active node's label, in order.
	Variables []label.Binding

	// Templater rewrites the active label. Nil uses [label.Default].
	Templater label.Templater
}

type nodeStyle struct {
	shape, fill, stroke, font string
	extra                     []string
}

var styles = map[flow.NodeType]nodeStyle{
	flow.NodeStart:      {shape: "oval", fill: "#50E3C2", stroke: "#2DA87F", font: "#000000"},
	flow.NodeEnd:        {shape: "oval", fill: "#50E3C2", stroke: "#2DA87F", font: "#000000"},
	flow.NodeOperation:  {shape: "box", fill: "#2d2d2d", stroke: "#555555", font: "#ffffff"},
	flow.NodeCondition:  {shape: "diamond", fill: "#F5A623", stroke: "#C77F1B", font: "#ffffff"},
	flow.NodeIO:         {shape: "parallelogram", fill: "#4A90E2", stroke: "#2E5C8A", font: "#ffffff"},
	flow.NodeSubroutine: {shape: "box", fill: "#2d2d2d", stroke: "#555555", font: "#ffffff", extra: []string{"peripheries=2"}},
}

// ToDOT converts a control-flow graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG] or [RenderPNG].
func ToDOT(g *flow.Graph, opts Options) string {
	active, hasActive := g.NodeForLine(opts.ActiveLine)
	tmpl := opts.Templater
	if tmpl == nil {
		tmpl = label.Default()
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=12];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		text := n.Label
		isActive := hasActive && n.ID == active
		if isActive && len(opts.Variables) > 0 {
			text = tmpl.Apply(text, opts.Variables)
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", quote(n.ID), strings.Join(fmtAttrs(n.Type, text, isActive), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		var attrs []string
		if e.Label != "" {
			attrs = append(attrs, "label="+quote(e.Label))
		}
		if e.Label == flow.LabelLoop {
			attrs = append(attrs, "style=dashed", "constraint=false")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %s -> %s;\n", quote(e.From), quote(e.To))
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", quote(e.From), quote(e.To), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(t flow.NodeType, text string, active bool) []string {
	s, ok := styles[t]
	if !ok {
		s = styles[flow.NodeOperation]
	}
	fill, stroke, width := s.fill, s.stroke, "1"
	font := s.font
	if active {
		fill, stroke, font, width = "#FF4B2B", "#FF416C", "#ffffff", "4"
	}
	attrs := []string{
		"label=" + quote(text),
		"shape=" + s.shape,
		"fillcolor=" + quote(fill),
		"color=" + quote(stroke),
		"fontcolor=" + quote(font),
		"penwidth=" + width,
	}
	return append(attrs, s.extra...)
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r\n", `\n`, "\n", `\n`, "\r", `\n`)

// quote returns s as a DOT double-quoted string. Backslashes are doubled so
// Graphviz does not read them as label escapes; line breaks become \n.
func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := renderFormat(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderFormat(ctx, dot, graphviz.PNG)
}

func renderFormat(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
