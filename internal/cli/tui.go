package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/codeflow/pkg/session"
	"github.com/matzehuels/codeflow/pkg/trace"
)

var (
	stepActiveStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	stepCodeStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	stepDimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	stepNewStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	stepChangedStyle = lipgloss.NewStyle().Foreground(colorYellow)
	stepPanelStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// =============================================================================
// StepModel - Interactive trace stepping
// =============================================================================

// StepModel is the bubbletea model for stepping through a session.
type StepModel struct {
	Session     *session.Session
	Current     *session.View
	ShowDiagram bool
	Width       int
	Err         error
}

// NewStepModel creates a model positioned at the session's current step.
func NewStepModel(sess *session.Session) StepModel {
	m := StepModel{Session: sess, Width: 100}
	m.refresh()
	return m
}

func (m *StepModel) refresh() {
	m.Current, m.Err = m.Session.View(m.Session.Current)
}

func (m StepModel) Init() tea.Cmd {
	return nil
}

func (m StepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l", "n", " ":
			m.Session.Next()
		case "left", "h", "p":
			m.Session.Prev()
		case "home", "g":
			m.Session.Seek(0)
		case "end", "G":
			m.Session.Seek(m.Session.Len() - 1)
		case "d":
			m.ShowDiagram = !m.ShowDiagram
		}
		m.refresh()
	case tea.WindowSizeMsg:
		m.Width = msg.Width
	}
	return m, nil
}

func (m StepModel) View() string {
	if m.Err != nil {
		return styleIconError.Render(iconError) + " " + m.Err.Error() + "\n"
	}
	v := m.Current
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Step %d of %d", v.Index+1, v.Total)))
	b.WriteString("  ")
	b.WriteString(stepDimStyle.Render(fmt.Sprintf("line %d", v.Step.LineNo)))
	b.WriteString("\n")
	b.WriteString(stepDimStyle.Render("←/→ step  g/G first/last  d diagram  q quit"))
	b.WriteString("\n\n")

	half := max(30, m.Width/2-2)
	code := stepPanelStyle.Width(half).Render(renderCode(v))
	side := stepPanelStyle.Width(max(24, m.Width-half-6)).Render(renderState(v))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, code, side))
	b.WriteString("\n")

	if v.Step.Explanation != "" {
		b.WriteString(StyleValue.Render(v.Step.Explanation))
		b.WriteString("\n")
	}
	if m.ShowDiagram {
		b.WriteString("\n")
		b.WriteString(stepPanelStyle.Render(v.Diagram))
		b.WriteString("\n")
	}
	return b.String()
}

// renderCode shows the annotated source with an arrow on the active line.
func renderCode(v *session.View) string {
	lines := make([]string, len(v.Source))
	width := len(fmt.Sprint(len(v.Source)))
	for i, line := range v.Source {
		no := fmt.Sprintf("%*d", width, i+1)
		if i+1 == v.Step.LineNo {
			lines[i] = stepActiveStyle.Render(iconArrow+" "+no+"  "+line)
			continue
		}
		lines[i] = stepDimStyle.Render("  "+no+"  ") + stepCodeStyle.Render(line)
	}
	return strings.Join(lines, "\n")
}

// renderState lists variables, marking new and changed ones, and the
// output printed so far.
func renderState(v *session.View) string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render("Variables"))
	b.WriteString("\n")
	if len(v.Step.Variables) == 0 {
		b.WriteString(stepDimStyle.Render("(none)"))
		b.WriteString("\n")
	}
	for _, bind := range v.Step.Variables {
		line := fmt.Sprintf("%s = %s", bind.Name, bind.Value)
		kind := stepDimStyle.Render(" " + trace.Kind(bind.Value))
		switch v.Changes[bind.Name] {
		case trace.Added:
			b.WriteString(stepNewStyle.Render(line + " (" + string(trace.Added) + ")"))
		case trace.Modified:
			b.WriteString(stepChangedStyle.Render(line + " (" + string(trace.Modified) + ")"))
		default:
			b.WriteString(StyleValue.Render(line))
		}
		b.WriteString(kind)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StyleTitle.Render("Output"))
	b.WriteString("\n")
	if len(v.Outputs) == 0 {
		b.WriteString(stepDimStyle.Render("(none)"))
	}
	b.WriteString(strings.Join(v.Outputs, "\n"))
	return b.String()
}
