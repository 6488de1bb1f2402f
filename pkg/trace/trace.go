package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrEmptyTrace is returned when a trace has no steps.
	ErrEmptyTrace = errors.New("trace has no steps")

	// ErrInvalidStep is returned when a step points outside the source.
	ErrInvalidStep = errors.New("invalid step")
)

// Step is one executed line.
type Step struct {
	StepNumber  int       `json:"step_number" bson:"step_number"`
	LineNo      int       `json:"line_no" bson:"line_no"`
	LineContent string    `json:"line_content" bson:"line_content"`
	Explanation string    `json:"explanation,omitempty" bson:"explanation,omitempty"`
	Variables   Variables `json:"variables" bson:"variables"`
	Output      string    `json:"output" bson:"output"`
	NodeID      string    `json:"flowchart_node_id,omitempty" bson:"flowchart_node_id,omitempty"`
}

// Trace is an ordered execution trace.
type Trace struct {
	Steps []Step `json:"steps" bson:"steps"`
}

// Len returns the number of steps; a nil trace has none.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Steps)
}

// Validate checks that the trace has steps and that each step's line lies
// within a source of lineCount lines. Missing step numbers are filled in
// from the position.
func (t *Trace) Validate(lineCount int) error {
	if t.Len() == 0 {
		return ErrEmptyTrace
	}
	for i := range t.Steps {
		s := &t.Steps[i]
		if s.StepNumber <= 0 {
			s.StepNumber = i + 1
		}
		if s.LineNo < 1 || s.LineNo > lineCount {
			return fmt.Errorf("%w: step %d line %d outside 1..%d", ErrInvalidStep, s.StepNumber, s.LineNo, lineCount)
		}
	}
	return nil
}

// Outputs returns the non-empty outputs of steps 0..i inclusive.
func (t *Trace) Outputs(i int) []string {
	var out []string
	for j := 0; j < t.Len() && j <= i; j++ {
		if o := t.Steps[j].Output; o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Change classifies a variable relative to the previous step.
type Change string

const (
	Unchanged Change = ""
	Added     Change = "new"
	Modified  Change = "changed"
)

// Changes compares step i's variables with step i-1's. The first step
// reports every variable as new.
func (t *Trace) Changes(i int) map[string]Change {
	if i < 0 || i >= t.Len() {
		return nil
	}
	var prev Variables
	if i > 0 {
		prev = t.Steps[i-1].Variables
	}
	out := make(map[string]Change, len(t.Steps[i].Variables))
	for _, v := range t.Steps[i].Variables {
		old, ok := prev.Get(v.Name)
		switch {
		case !ok:
			out[v.Name] = Added
		case old != v.Value:
			out[v.Name] = Modified
		default:
			out[v.Name] = Unchanged
		}
	}
	return out
}

// Annotate returns the source lines with the step's variables appended to
// the active line as a comment ("  # x: 1, y: 2").
func Annotate(lines []string, s Step) []string {
	out := append([]string(nil), lines...)
	if s.LineNo < 1 || s.LineNo > len(out) || len(s.Variables) == 0 {
		return out
	}
	parts := make([]string, len(s.Variables))
	for i, v := range s.Variables {
		parts[i] = v.Name + ": " + v.Value
	}
	i := s.LineNo - 1
	out[i] = strings.TrimRight(out[i], " \t") + "  # " + strings.Join(parts, ", ")
	return out
}

// Parse decodes a trace. It accepts the {"steps": [...]} object, a bare
// step list, and either wrapped in a markdown code fence.
func Parse(data []byte) (*Trace, error) {
	data = bytes.TrimSpace([]byte(StripFences(string(data))))
	if len(data) == 0 {
		return nil, ErrEmptyTrace
	}
	if data[0] == '[' {
		var steps []Step
		if err := json.Unmarshal(data, &steps); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
		return &Trace{Steps: steps}, nil
	}
	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}
	return &t, nil
}

// StripFences removes a leading ```json or ``` marker and a trailing ```.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ReadFile loads a trace from a JSON file.
func ReadFile(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// WriteFile stores a trace as indented JSON.
func WriteFile(path string, t *Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Write(f, t)
}

// Write encodes t as indented JSON.
func Write(w io.Writer, t *Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
