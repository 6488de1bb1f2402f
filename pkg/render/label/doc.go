// Package label rewrites node labels to show live variable values.
//
// When a host highlights the node for the line currently executing, it can
// also show what the variables on that line hold. [Templater.Apply] takes
// the stored label and an ordered list of [Binding] values and returns the
// text to display; the stored graph is never modified.
//
// # Rules
//
// Rewriting is a fixed pipeline of named [Rule] values applied per binding,
// followed by [Finisher] values applied once. [Default] returns:
//
//   - input-capture: "n = int(input('N? '))" becomes "n = 7"; no other rule
//     runs for that binding
//   - placeholder: "{n}" becomes "7"
//   - assignment: whole-word substitution, restricted to the right of the
//     first "=" when the label assigns to the variable, so "n = n + 1"
//     becomes "n = 7 + 1"
//   - template-prefix (finisher): once no "{" remains, f'…' becomes '…'
//
// New idioms are added by building a [RuleSet] with extra rules; graph
// construction is unaffected.
//
// Word boundaries follow Go's regexp package and are ASCII-only: a variable
// named with non-ASCII letters is substituted without boundary checks on
// those letters.
package label
