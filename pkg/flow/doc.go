// Package flow builds control-flow diagrams from a statement tree.
//
// # Overview
//
// [Build] walks a [syntax.Module] once, in source order, and produces a
// [Graph]: an ordered list of typed nodes, an ordered list of labelled
// edges, and an index from source line to the first node created for that
// line. The index is what lets a host highlight "the node for line 7" while
// stepping through an execution trace.
//
//	mod, err := python.Parse(ctx, src)
//	if err != nil {
//	    var se *syntax.SyntaxError
//	    if errors.As(err, &se) {
//	        g = flow.ErrorGraph(se.Msg, se.Line)
//	    }
//	} else {
//	    g = flow.Build(mod)
//	}
//
// # Node Types
//
// Every graph starts with one [NodeStart] node and ends with one [NodeEnd]
// node, both synthetic and carrying line 0. Statements map to the other
// types:
//
//   - [NodeCondition]: if/elif headers, try and except clauses
//   - [NodeIO]: bare calls to print or input
//   - [NodeSubroutine]: function definitions
//   - [NodeOperation]: everything else, including loop headers and returns
//
// # Control-Flow Merging
//
// The builder threads a cursor through the statements: the predecessor node
// whose outgoing edge targets the next node, plus a frontier of branch exits
// still waiting for a successor. Conditionals and try blocks end with an
// empty predecessor and a populated frontier, so the next node created
// receives one edge from every exit. No explicit join nodes are created.
//
// Loops get a single header node. The body's last node links back to the
// header with a [LabelLoop] edge, and the statement after the loop continues
// from the header. Loop edges are the only edges allowed to close a cycle;
// [Graph.Validate] checks this along with the other structural invariants.
//
// # Concurrency
//
// Build keeps all state, including the node id sequence, local to the call.
// Independent builds can run concurrently, and ids always start at node_1.
// A built Graph is never mutated by this package and can be read from many
// goroutines.
package flow
