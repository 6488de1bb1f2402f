// Package trace models a step-by-step execution trace of a program and the
// providers that produce one.
//
// # Overview
//
// A [Trace] is an ordered list of [Step] values. Each step names the source
// line executing at that moment, the variables visible after it ran and any
// output it printed. The JSON shape is:
//
//	{"steps": [{"step_number": 1, "line_no": 1, "line_content": "x = 10",
//	            "explanation": "...", "variables": {"x": 10},
//	            "output": "", "flowchart_node_id": "node_2"}]}
//
// Variable values may arrive as any JSON type. [Variables] keeps them in the
// order they were written and turns each into the display string used for
// label templating (Python-style: True, None, ['a', 1]).
//
// # Providers
//
// A [Provider] turns source code plus user input values into a trace.
// [FileProvider] replays a trace from disk;
// [github.com/matzehuels/codeflow/pkg/trace/gemini] asks a language model.
// Providers return traces that passed [Trace.Validate].
//
// # Inputs
//
// [InputPrompts] scans source for input() calls so callers can ask for the
// values before requesting a trace.
package trace
