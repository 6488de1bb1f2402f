// Package syntax defines the line-numbered statement tree that the flow
// builder consumes.
//
// The tree is deliberately small: it keeps only what a control-flow diagram
// needs, which is the statement kind, the 1-based source line, and the
// nested statement sequences of compound statements. Labels are not stored
// in the tree; the builder extracts them from [Module.Lines] so that node
// labels always show the program exactly as it was written.
//
// # Statement Kinds
//
// [Stmt] is a closed union. The concrete types are:
//
//   - [*Assign] and [*AugAssign]: plain and augmented assignment
//   - [*Expr]: an expression statement, with docstring and call detection
//   - [*If]: a conditional with an optional else branch (elif chains nest)
//   - [*Loop]: both for and while loops
//   - [*FunctionDef]: a function definition with its parameter names
//   - [*Return]: a return statement
//   - [*Try]: a try block with handlers and an optional else clause
//   - [*Other]: every remaining kind, with any nested statements it owns
//
// Parsers for concrete languages live in subpackages such as
// [github.com/matzehuels/codeflow/pkg/syntax/python].
package syntax
