package gemini

import (
	"fmt"
	"strings"
)

// numbered prefixes each line with its 1-based number, right-aligned to
// three columns.
func numbered(code string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		lines[i] = fmt.Sprintf("%3d: %s", i+1, l)
	}
	return strings.Join(lines, "\n")
}

func inputList(inputs []string) string {
	if len(inputs) == 0 {
		return "(none)"
	}
	quoted := make([]string, len(inputs))
	for i, in := range inputs {
		quoted[i] = fmt.Sprintf("%q", in)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

const traceRules = `You are an expert Python code tutor. Explain the following Python code step by step, EXACTLY as it would execute at runtime.

RULES:
1. Execute exactly as a debugger would. Do not summarize or skip steps.
2. LOOPS: step onto the loop header line at the start of EVERY iteration, and once more when the condition is false before leaving the loop.
3. IF/ELSE: execute ONLY the branch that matches the condition. Never step into the other branch. Continue with the statement after the whole if/else block.
4. FUNCTION CALLS: step on the calling line, then the def line, then the body, then return to the caller.
5. RETURN: a return statement ends the function immediately.
6. PRINT: put everything printed by a step in its "output" field.
7. VARIABLES: include the state of ALL data variables (not functions) at EACH step.
8. END: stop after the last executed statement. Do not add extra steps.`

const traceFormat = `Return a JSON object {"steps": [...]} where each step has:
- "step_number": integer, 1-based
- "line_no": integer, the EXACT line number from the numbered code
- "line_content": the line of code without its number prefix
- "explanation": a short HTML <ul> list describing what happens
- "variables": object of variable name to current value
- "output": string printed at this step, or ""

Only include lines that actually execute. Return ONLY the raw JSON, without markdown fences.`

// tracePrompt builds the step-by-step trace request.
func tracePrompt(code string, inputs []string) string {
	var b strings.Builder
	b.WriteString(traceRules)
	b.WriteString("\n\nValues for the input() calls, in order: ")
	b.WriteString(inputList(inputs))
	b.WriteString("\nUse these values when simulating the execution.\n\nCode (with line numbers):\n```python\n")
	b.WriteString(numbered(code))
	b.WriteString("\n```\n\n")
	b.WriteString(traceFormat)
	return b.String()
}

const summaryRules = `You are an expert Python code tutor. Explain what the following Python code does, using a short real-world analogy.

RULES:
1. Keep the content family-friendly and educational.
2. Use the ACTUAL input values given below instead of describing them abstractly.
3. Walk through the code in order and name the line each point refers to.
4. Use plain text with "-" bullet points under the headings "Summary", "Analogy" and "Result".`

// summaryPrompt builds the prose walkthrough request.
func summaryPrompt(code string, inputs []string) string {
	var b strings.Builder
	b.WriteString(summaryRules)
	b.WriteString("\n\nInput values, in order: ")
	b.WriteString(inputList(inputs))
	b.WriteString("\n\nCode:\n```python\n")
	b.WriteString(code)
	b.WriteString("\n```\n")
	return b.String()
}
