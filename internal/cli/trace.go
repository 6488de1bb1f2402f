package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/pipeline"
	"github.com/matzehuels/codeflow/pkg/trace"
)

type traceOpts struct {
	inputs   []string
	noPrompt bool
	summary  bool
	refresh  bool
	output   string
	noCache  bool
}

// traceCommand creates the trace command.
func (c *CLI) traceCommand() *cobra.Command {
	opts := &traceOpts{}

	cmd := &cobra.Command{
		Use:   "trace <file.py>",
		Short: "Generate a step-by-step execution trace",
		Long: `Trace asks the configured model for a line-by-line execution trace of a
Python program: which line runs at each step, the variables after it and
any printed output.

Values for input() calls are given with --input in call order. When none
are given, trace asks for them interactively.

Traces are cached by source and inputs; --refresh asks again.`,
		Example: `  codeflow trace prog.py -o prog.trace.json
  codeflow trace prog.py --input 4 --input alice --summary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTrace(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.inputs, "input", "i", nil, "value for the next input() call (repeatable)")
	cmd.Flags().BoolVar(&opts.noPrompt, "no-prompt", false, "never ask for input values")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "also print a plain-language walkthrough")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached traces")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runTrace(cmd *cobra.Command, input string, opts *traceOpts) error {
	ctx := cmd.Context()
	code, err := c.readSource(input)
	if err != nil {
		return err
	}

	inputs := opts.inputs
	if len(inputs) == 0 && !opts.noPrompt && input != "-" {
		if inputs, err = askInputs(ctx, trace.InputPrompts(code), c.stdin, os.Stderr); err != nil {
			return err
		}
	}

	runner, err := c.newRunner(ctx, opts.noCache, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := pipeline.Options{
		Code:    code,
		Inputs:  inputs,
		Trace:   true,
		Summary: opts.summary,
		Refresh: opts.refresh,
		Logger:  c.Logger,
	}
	var result *pipeline.Result
	err = withSpinner(ctx, "Tracing execution...", func(ctx context.Context) error {
		var err error
		result, err = runner.Execute(ctx, popts)
		return err
	})
	if err != nil {
		return err
	}
	if result.Graph.IsError() {
		n := result.Graph.Nodes[0]
		return codeerr.New(codeerr.ErrCodeSyntax, "%s (line %d)", n.Label, n.Line)
	}

	if opts.output == "" {
		if err := trace.Write(c.stdout, result.Trace); err != nil {
			return err
		}
	} else {
		if err := trace.WriteFile(opts.output, result.Trace); err != nil {
			return err
		}
		printSuccess("Traced execution")
		printStats(result.Stats, result.CacheInfo.TraceHit)
		printFile(opts.output)
		printNextStep("Step through it", fmt.Sprintf("codeflow step %s --trace %s", input, opts.output))
	}

	if opts.summary {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, StyleTitle.Render("Walkthrough"))
		fmt.Fprintln(os.Stderr, result.Summary)
	}
	return nil
}

// askInputs prompts for each input() call on out and reads one line per
// answer from in.
func askInputs(ctx context.Context, prompts []trace.Prompt, in io.Reader, out io.Writer) ([]string, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	logger := commandLogger(ctx)
	logger.Debug("program reads input", "calls", len(prompts))

	fmt.Fprintln(out, StyleTitle.Render("Program input"))
	scanner := bufio.NewScanner(in)
	values := make([]string, 0, len(prompts))
	for _, p := range prompts {
		text := p.Text
		if text == "" {
			text = p.Var
		}
		fmt.Fprintf(out, "%s %s ", StyleDim.Render(fmt.Sprintf("line %d", p.Line)), strings.TrimSpace(text))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, codeerr.New(codeerr.ErrCodeInvalidInput, "no value for %s (line %d)", p.Var, p.Line)
		}
		values = append(values, scanner.Text())
	}
	return values, nil
}
