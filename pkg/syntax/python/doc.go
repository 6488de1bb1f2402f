// Package python parses Python source into a [syntax.Module] using the
// tree-sitter Python grammar.
//
// Tree-sitter recovers from errors instead of failing, so [Parser.Parse]
// inspects the resulting tree and reports the first ERROR or MISSING node as
// a [*syntax.SyntaxError]. Callers turn that error into a degraded diagram
// with [github.com/matzehuels/codeflow/pkg/flow.ErrorGraph].
//
// # Mapping
//
// Grammar nodes map onto statement kinds as follows:
//
//	assignment                    -> Assign
//	augmented_assignment          -> AugAssign
//	other expression_statement    -> Expr
//	if_statement (+ elif chain)   -> If
//	for_statement, while_statement -> Loop
//	function_definition           -> FunctionDef
//	return_statement              -> Return
//	try_statement                 -> Try
//	everything else               -> Other
//
// Async for, with and def statements map to Other with their bodies nested.
// Decorated definitions are reported on the line of the def or class keyword.
package python
