package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/pipeline"
	"github.com/matzehuels/codeflow/pkg/render/label"
	"github.com/matzehuels/codeflow/pkg/trace"
)

// extensions maps formats to output file extensions.
var extensions = map[string]string{
	pipeline.FormatMermaid: ".mmd",
	pipeline.FormatDOT:     ".dot",
	pipeline.FormatSVG:     ".svg",
	pipeline.FormatPNG:     ".png",
	pipeline.FormatPDF:     ".pdf",
	pipeline.FormatJSON:    ".graph.json",
}

type renderOpts struct {
	formats   string
	output    string
	line      int
	vars      []string
	tracePath string
	step      int
	noCache   bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := &renderOpts{}

	cmd := &cobra.Command{
		Use:   "render <file.py|graph.json>",
		Short: "Render a flowchart as Mermaid, DOT, SVG, PNG or PDF",
		Long: `Render draws the flowchart of a Python program, or of a graph written by
"codeflow build", in one or more formats.

--line highlights the node of a source line and --var fills variable values
into its label. With --trace and --step both come from a recorded trace.

A single text format without --output is written to stdout; otherwise each
format is written to <output>.<ext>.`,
		Example: `  codeflow render prog.py
  codeflow render prog.py -f svg,png -o out/prog
  codeflow render prog.py --line 3 --var x=5
  codeflow render prog.graph.json --trace prog.trace.json --step 4 -f svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats: mermaid, dot, svg, png, pdf, json (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path without extension (default: input path)")
	cmd.Flags().IntVar(&opts.line, "line", 0, "source line to highlight")
	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "variable value as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "trace file to take the line and variables from")
	cmd.Flags().IntVar(&opts.step, "step", 1, "step number in --trace (1-based)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts *renderOpts) error {
	ctx := cmd.Context()
	formats := parseFormats(opts.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}
	vars, err := parseVars(opts.vars)
	if err != nil {
		return err
	}
	line := opts.line
	if opts.tracePath != "" {
		if line, vars, err = stepOverlay(opts.tracePath, opts.step); err != nil {
			return err
		}
	}

	runner, err := c.newRunner(ctx, opts.noCache, false)
	if err != nil {
		return err
	}
	defer runner.Close()

	var g *flow.Graph
	if isGraphFile(input) {
		if g, err = flow.ReadFile(input); err != nil {
			return codeerr.Wrap(codeerr.ErrCodeInvalidGraph, err, "read graph")
		}
		if !g.IsError() {
			if err := g.Validate(); err != nil {
				return codeerr.Wrap(codeerr.ErrCodeInvalidGraph, err, "invalid graph")
			}
		}
	} else {
		code, err := c.readSource(input)
		if err != nil {
			return err
		}
		if g, err = runner.Build(ctx, code); err != nil {
			return err
		}
	}

	popts := pipeline.Options{
		Formats:    formats,
		ActiveLine: line,
		Variables:  vars,
		Logger:     c.Logger,
	}
	st := startStage(c.Logger, "render")
	var artifacts map[string][]byte
	var hit bool
	err = withSpinner(ctx, "Rendering...", func(ctx context.Context) error {
		var err error
		artifacts, hit, err = runner.RenderWithCacheInfo(ctx, g, "", popts)
		return err
	})
	if err != nil {
		return err
	}
	st.done("Rendered flowchart", hit, "formats", strings.Join(formats, ","))

	if opts.output == "" && len(formats) == 1 && !binaryFormat(formats[0]) {
		_, err := c.stdout.Write(artifacts[formats[0]])
		if err == nil && formats[0] != pipeline.FormatJSON {
			_, err = fmt.Fprintln(c.stdout)
		}
		return err
	}

	base := basePath(opts.output, input)
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	printSuccess("Rendered flowchart")
	printStats(pipeline.Stats{NodeCount: len(g.Nodes), EdgeCount: len(g.Edges)}, hit)
	for _, f := range formats {
		path := base + extensions[f]
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

// stepOverlay returns the line and variables of a step in a trace file.
func stepOverlay(path string, step int) (int, []label.Binding, error) {
	t, err := trace.ReadFile(path)
	if err != nil {
		return 0, nil, codeerr.Wrap(codeerr.ErrCodeInvalidTrace, err, "read trace")
	}
	if step < 1 || step > t.Len() {
		return 0, nil, codeerr.New(codeerr.ErrCodeStepOutOfRange, "step %d out of range 1..%d", step, t.Len())
	}
	s := t.Steps[step-1]
	return s.LineNo, s.Variables.Bindings(), nil
}

func isGraphFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func binaryFormat(f string) bool {
	return f == pipeline.FormatSVG || f == pipeline.FormatPNG || f == pipeline.FormatPDF
}

// basePath derives the output path without extension.
func basePath(output, input string) string {
	if output != "" {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	if input == "-" {
		return "flowchart"
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return strings.TrimSuffix(base, ".graph")
}
