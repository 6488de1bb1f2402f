package trace

import (
	"regexp"
	"strconv"
	"strings"
)

// Prompt is one input() call found in source.
type Prompt struct {
	// Var is the assignment target, or "Input N" when the call is not
	// assigned to a plain name.
	Var string `json:"var_name"`

	// Text is the prompt literal with surrounding quotes removed.
	Text string `json:"prompt"`

	// Line is the 1-based source line.
	Line int `json:"line"`
}

var (
	inputCall  = regexp.MustCompile(`input\s*\((.*?)\)`)
	identifier = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)
)

// InputPrompts lists the input() calls in src, one per line containing
// "input(", in source order.
func InputPrompts(src string) []Prompt {
	var prompts []Prompt
	for i, line := range strings.Split(src, "\n") {
		if !strings.Contains(line, "input(") {
			continue
		}
		p := Prompt{Line: i + 1}
		if lhs, _, ok := strings.Cut(line, "="); ok {
			if lhs = strings.TrimSpace(lhs); identifier.MatchString(lhs) {
				p.Var = lhs
			}
		}
		if m := inputCall.FindStringSubmatch(line); m != nil {
			p.Text = strings.Trim(m[1], `"'`)
		}
		if p.Var == "" {
			p.Var = "Input " + strconv.Itoa(len(prompts)+1)
		}
		prompts = append(prompts, p)
	}
	return prompts
}
