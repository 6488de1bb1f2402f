package label

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Binding is one variable and its display value.
type Binding struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BindingsFromMap converts a map into bindings sorted by name, giving a
// deterministic rewrite order.
func BindingsFromMap(m map[string]string) []Binding {
	out := make([]Binding, 0, len(m))
	for k, v := range m {
		out = append(out, Binding{Name: k, Value: v})
	}
	slices.SortFunc(out, func(a, b Binding) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Rule rewrites a label for a single binding. The returned bool stops the
// remaining rules for this binding.
type Rule interface {
	Name() string
	Rewrite(label string, b Binding) (string, bool)
}

// Finisher runs once after every binding has been applied.
type Finisher interface {
	Name() string
	Finish(label string) string
}

// Templater turns a stored label into display text for a set of bindings.
type Templater interface {
	Apply(label string, vars []Binding) string
}

// RuleSet is a Templater built from an ordered list of rules and finishers.
// The zero value applies no rewrites.
type RuleSet struct {
	Rules     []Rule
	Finishers []Finisher
}

// Default returns the standard rule set.
func Default() *RuleSet {
	return &RuleSet{
		Rules:     []Rule{InputCapture{}, Placeholder{}, Assignment{}},
		Finishers: []Finisher{TemplatePrefix{}},
	}
}

// With returns a copy of rs with extra rules appended.
func (rs *RuleSet) With(rules ...Rule) *RuleSet {
	return &RuleSet{
		Rules:     append(slices.Clone(rs.Rules), rules...),
		Finishers: slices.Clone(rs.Finishers),
	}
}

// Names returns the rule and finisher names in the order they run.
func (rs *RuleSet) Names() []string {
	names := make([]string, 0, len(rs.Rules)+len(rs.Finishers))
	for _, r := range rs.Rules {
		names = append(names, r.Name())
	}
	for _, f := range rs.Finishers {
		names = append(names, f.Name())
	}
	return names
}

// Describe identifies a templater, so output rendered with different rule
// sets can be told apart. A nil templater means [Default]. Templaters
// without a Names method are identified by their Go type.
func Describe(t Templater) []string {
	if t == nil {
		t = Default()
	}
	if n, ok := t.(interface{ Names() []string }); ok {
		return n.Names()
	}
	return []string{fmt.Sprintf("%T", t)}
}

// Apply implements Templater. Bindings with an empty name are skipped.
func (rs *RuleSet) Apply(label string, vars []Binding) string {
	for _, b := range vars {
		if b.Name == "" {
			continue
		}
		for _, r := range rs.Rules {
			var stop bool
			label, stop = r.Rewrite(label, b)
			if stop {
				break
			}
		}
	}
	for _, f := range rs.Finishers {
		label = f.Finish(label)
	}
	return label
}

// InputCapture replaces "name = [int|float|str](input(...))" with
// "name = value".
type InputCapture struct{}

func (InputCapture) Name() string { return "input-capture" }

func (InputCapture) Rewrite(label string, b Binding) (string, bool) {
	re := regexp.MustCompile(regexp.QuoteMeta(b.Name) + `\s*=\s*(?:int|float|str)?\s*\(?\s*input\s*\([^)]*\)\s*\)?`)
	if !re.MatchString(label) {
		return label, false
	}
	return re.ReplaceAllLiteralString(label, b.Name+" = "+b.Value), true
}

// Placeholder replaces "{name}" with the value.
type Placeholder struct{}

func (Placeholder) Name() string { return "placeholder" }

func (Placeholder) Rewrite(label string, b Binding) (string, bool) {
	return strings.ReplaceAll(label, "{"+b.Name+"}", b.Value), false
}

// Assignment substitutes whole-word occurrences of the name. When the
// trimmed label starts with "name =", only the text after the first "=" is
// rewritten so the assignment target stays readable.
type Assignment struct{}

func (Assignment) Name() string { return "assignment" }

func (Assignment) Rewrite(label string, b Binding) (string, bool) {
	name := regexp.QuoteMeta(b.Name)
	word := regexp.MustCompile(`\b` + name + `\b`)

	target := regexp.MustCompile(`^` + name + `\s*=`)
	if target.MatchString(strings.TrimSpace(label)) {
		lhs, rhs, ok := strings.Cut(label, "=")
		if ok {
			return lhs + "=" + word.ReplaceAllLiteralString(rhs, b.Value), false
		}
		return label, false
	}
	return word.ReplaceAllLiteralString(label, b.Value), false
}

var fstringPrefix = regexp.MustCompile(`\bf(['"])`)

// TemplatePrefix drops the f marker of format strings once every
// placeholder has been substituted.
type TemplatePrefix struct{}

func (TemplatePrefix) Name() string { return "template-prefix" }

func (TemplatePrefix) Finish(label string) string {
	if strings.Contains(label, "{") {
		return label
	}
	return fstringPrefix.ReplaceAllString(label, "$1")
}

var escaper = strings.NewReplacer(`"`, `'`, `<`, `&lt;`, `>`, `&gt;`, "\r\n", " ", "\n", " ", "\r", " ")

// Escape makes a label safe inside a quoted Mermaid node: double quotes
// become single quotes and angle brackets become entities, except for the
// <br/> line-break marker. Raw line breaks become spaces.
func Escape(label string) string {
	return strings.ReplaceAll(escaper.Replace(label), "&lt;br/&gt;", "<br/>")
}
