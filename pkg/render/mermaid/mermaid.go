package mermaid

import (
	"strings"

	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/render/label"
)

const header = "%%{init: {'flowchart': {'curve': 'linear', 'htmlLabels': true}}}%%\nflowchart TD\n"

// Options configures a render.
type Options struct {
	// ActiveLine is the source line being executed; 0 for none.
	ActiveLine int

	// Variables are applied to the active node's label, in order.
	Variables []label.Binding

	// Templater rewrites the active label. Nil uses [label.Default].
	Templater label.Templater
}

type shape struct{ open, close string }

var shapes = map[flow.NodeType]shape{
	flow.NodeStart:      {`([`, `])`},
	flow.NodeEnd:        {`([`, `])`},
	flow.NodeOperation:  {`[`, `]`},
	flow.NodeCondition:  {`{`, `}`},
	flow.NodeIO:         {`[/`, `/]`},
	flow.NodeSubroutine: {`[[`, `]]`},
}

// Node fill styles keyed by type.
const (
	StyleCondition = "fill:#F5A623,stroke:#C77F1B,color:#fff"
	StyleIO        = "fill:#4A90E2,stroke:#2E5C8A,color:#fff"
	StyleTerminal  = "fill:#50E3C2,stroke:#2DA87F,color:#000"
	StyleDefault   = "fill:#2d2d2d,stroke:#555,color:#fff"
	StyleActive    = "fill:#FF4B2B,stroke:#FF416C,color:#fff,stroke-width:4px"
)

func styleFor(t flow.NodeType) string {
	switch t {
	case flow.NodeCondition:
		return StyleCondition
	case flow.NodeIO:
		return StyleIO
	case flow.NodeStart, flow.NodeEnd:
		return StyleTerminal
	default:
		return StyleDefault
	}
}

// Render converts g to Mermaid text.
func Render(g *flow.Graph, opts Options) string {
	active, hasActive := g.NodeForLine(opts.ActiveLine)
	tmpl := opts.Templater
	if tmpl == nil {
		tmpl = label.Default()
	}

	var buf strings.Builder
	buf.WriteString(header)

	buf.WriteString("\n")
	for _, n := range g.Nodes {
		text := n.Label
		if hasActive && n.ID == active && len(opts.Variables) > 0 {
			text = tmpl.Apply(text, opts.Variables)
		}
		s, ok := shapes[n.Type]
		if !ok {
			s = shapes[flow.NodeOperation]
		}
		buf.WriteString("    " + n.ID + s.open + `"` + label.Escape(text) + `"` + s.close + "\n")
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if e.Label != "" {
			buf.WriteString("    " + e.From + " -->|" + e.Label + "| " + e.To + "\n")
		} else {
			buf.WriteString("    " + e.From + " --> " + e.To + "\n")
		}
	}

	buf.WriteString("\n    %% Inline styles\n")
	for _, n := range g.Nodes {
		buf.WriteString("    style " + n.ID + " " + styleFor(n.Type) + "\n")
	}
	if hasActive {
		buf.WriteString("    style " + active + " " + StyleActive + "\n")
	}

	return strings.TrimSuffix(buf.String(), "\n")
}

// RenderMap is Render with variables given as a map; bindings are applied
// in name order.
func RenderMap(g *flow.Graph, activeLine int, vars map[string]string) string {
	return Render(g, Options{ActiveLine: activeLine, Variables: label.BindingsFromMap(vars)})
}
