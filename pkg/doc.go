// Package pkg provides the core libraries for codeflow, a control-flow
// visualizer for short Python programs.
//
// # Overview
//
// codeflow parses a program, builds a control-flow graph (CFG) of basic
// blocks, and serializes it as a Mermaid flowchart or a Graphviz diagram.
// An optional execution trace, produced by a language model, lets a viewer
// step through the program with the node for the current line highlighted.
//
// # Architecture
//
// The typical data flow through codeflow:
//
//	Python source
//	     ↓
//	[syntax] (tree-sitter parse into a statement tree)
//	     ↓
//	[flow] (CFG construction)
//	     ↓
//	[render/mermaid], [render/nodelink] (diagram text, SVG, PNG, PDF)
//
// Tracing runs alongside:
//
//	Python source → [trace] provider → steps → [pipeline.LinkSteps] → [session]
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/codeflow/pkg/flow"
//	    "github.com/matzehuels/codeflow/pkg/render/mermaid"
//	    "github.com/matzehuels/codeflow/pkg/syntax/python"
//	)
//
//	mod, err := python.Parse(ctx, src)
//	g := flow.Build(mod)
//	text := mermaid.Render(g, mermaid.Options{})
//
// Most callers go through [pipeline.Runner], which adds caching and
// observability hooks around the same steps.
//
// # Packages
//
//   - [syntax]: language-neutral statement tree and the Python front end
//   - [flow]: graph types, the builder, validation and JSON encoding
//   - [render]: Mermaid and Graphviz serializers, PDF conversion
//   - [trace]: execution traces, input prompts, file and Gemini providers
//   - [session]: step-through sessions and their stores
//   - [pipeline]: orchestration with caching
//   - [cache]: file, memory and Redis cache backends
//   - [observability]: pipeline, cache and provider hooks
//   - [errors]: coded errors and input validation
//   - [buildinfo]: version metadata
//
// [syntax]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/syntax
// [flow]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/flow
// [render]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/render
// [render/mermaid]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/render/mermaid
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/render/nodelink
// [trace]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/trace
// [session]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/session
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/pipeline
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/pipeline#Runner
// [pipeline.LinkSteps]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/pipeline#LinkSteps
// [cache]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/codeflow/pkg/buildinfo
package pkg
