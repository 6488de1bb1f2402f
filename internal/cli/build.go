package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/pipeline"
)

type buildOpts struct {
	output  string
	noCache bool
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	opts := &buildOpts{}

	cmd := &cobra.Command{
		Use:   "build <file.py>",
		Short: "Derive the flowchart graph of a Python program",
		Long: `Build parses a Python program and writes its flowchart graph as JSON.

A program that does not parse still produces a graph: a single node that
carries the syntax error and its line. Use "-" to read from stdin.`,
		Example: `  codeflow build prog.py
  codeflow build prog.py -o prog.graph.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, input string, opts *buildOpts) error {
	ctx := cmd.Context()
	code, err := c.readSource(input)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.noCache, false)
	if err != nil {
		return err
	}
	defer runner.Close()

	st := startStage(c.Logger, "build")
	g, hit, err := runner.BuildWithCacheInfo(ctx, code)
	if err != nil {
		return err
	}
	st.done("Built flowchart", hit, "nodes", len(g.Nodes), "edges", len(g.Edges))
	if g.IsError() {
		c.Logger.Warn("source has a syntax error", "label", g.Nodes[0].Label, "line", g.Nodes[0].Line)
	}

	if opts.output == "" {
		return flow.Write(g, c.stdout)
	}
	if err := flow.WriteFile(g, opts.output); err != nil {
		return err
	}
	printSuccess("Flowchart built")
	printStats(pipeline.Stats{NodeCount: len(g.Nodes), EdgeCount: len(g.Edges)}, hit)
	printFile(opts.output)
	printNextStep("Render it", fmt.Sprintf("codeflow render %s -f svg", opts.output))
	return nil
}
