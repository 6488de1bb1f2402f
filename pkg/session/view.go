package session

import (
	"strings"

	"github.com/matzehuels/codeflow/pkg/render/label"
	"github.com/matzehuels/codeflow/pkg/render/mermaid"
	"github.com/matzehuels/codeflow/pkg/trace"
)

// View is everything a front end shows for one step.
type View struct {
	Index   int                     `json:"index"`
	Total   int                     `json:"total"`
	Step    trace.Step              `json:"step"`
	Diagram string                  `json:"diagram"`
	Source  []string                `json:"source"`
	Outputs []string                `json:"outputs"`
	Changes map[string]trace.Change `json:"changes"`
}

// View renders step i: the flowchart with the step's line active and its
// variables templated into the label, the annotated source, the output so
// far and which variables changed.
func (s *Session) View(i int) (*View, error) {
	return s.ViewWith(i, nil)
}

// ViewWith is View with a custom label templater; nil uses the default.
func (s *Session) ViewWith(i int, tmpl label.Templater) (*View, error) {
	if i < 0 || i >= s.Len() {
		return nil, ErrStepOutOfRange
	}
	step := s.Trace.Steps[i]
	return &View{
		Index: i,
		Total: s.Len(),
		Step:  step,
		Diagram: mermaid.Render(s.Graph, mermaid.Options{
			ActiveLine: step.LineNo,
			Variables:  step.Variables.Bindings(),
			Templater:  tmpl,
		}),
		Source:  trace.Annotate(strings.Split(s.Code, "\n"), step),
		Outputs: s.Trace.Outputs(i),
		Changes: s.Trace.Changes(i),
	}, nil
}
