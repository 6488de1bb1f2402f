// Package mermaid renders a [flow.Graph] as Mermaid flowchart text.
//
// The output lists, in order: an init directive and "flowchart TD" header,
// one declaration per node, one arrow per edge, one style line per node
// keyed by its type, and finally an override style for the active node when
// [Options.ActiveLine] resolves to one. The override comes last so that it
// wins over the default style.
//
//	text := mermaid.Render(g, mermaid.Options{
//	    ActiveLine: 3,
//	    Variables:  label.BindingsFromMap(map[string]string{"count": "5"}),
//	})
//
// Render is a pure function: it does not modify the graph, keeps no state
// between calls and produces byte-identical output for identical inputs.
// Any number of goroutines may render the same graph concurrently.
package mermaid
