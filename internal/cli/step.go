package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/internal/config"
	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/pipeline"
	"github.com/matzehuels/codeflow/pkg/session"
	"github.com/matzehuels/codeflow/pkg/trace"
)

type stepOpts struct {
	tracePath string
	inputs    []string
	save      bool
	noCache   bool
}

// stepCommand creates the interactive step command.
func (c *CLI) stepCommand() *cobra.Command {
	opts := &stepOpts{}

	cmd := &cobra.Command{
		Use:   "step <file.py>",
		Short: "Step through a program's execution in the terminal",
		Long: `Step replays an execution trace one step at a time: the source with the
active line marked and annotated with variable values, the variables (new
and changed ones highlighted), the output so far and the flowchart with the
active node highlighted.

The trace comes from --trace, or is generated as with "codeflow trace".
--save keeps the session in the configured session store, which must be
the file or mongo backend.`,
		Example: `  codeflow step prog.py --trace prog.trace.json
  codeflow step prog.py --input 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStep(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "trace file (default: generate one)")
	cmd.Flags().StringArrayVarP(&opts.inputs, "input", "i", nil, "value for the next input() call (repeatable)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "store the session in the session store")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runStep(cmd *cobra.Command, input string, opts *stepOpts) error {
	ctx := cmd.Context()
	// A memory store dies with this process, so a saved session could
	// never be resumed.
	if opts.save && c.Config.Session.Backend == config.SessionMemory {
		return codeerr.New(codeerr.ErrCodeInvalidInput,
			"--save needs a persistent session store: set [session] backend or %s to %q or %q",
			config.EnvSessionBackend, config.SessionFile, config.SessionMongo)
	}
	code, err := c.readSource(input)
	if err != nil {
		return err
	}

	// A replayed trace file bypasses the cache so edits to it are seen.
	runner, err := c.newRunner(ctx, opts.noCache || opts.tracePath != "", opts.tracePath == "")
	if err != nil {
		return err
	}
	defer runner.Close()
	if opts.tracePath != "" {
		runner.Provider = trace.FileProvider{Path: opts.tracePath}
	}

	sess, err := c.newSession(ctx, runner, code, opts.inputs)
	if err != nil {
		return err
	}

	var store session.Store
	if opts.save {
		if store, err = c.Config.OpenSessions(ctx); err != nil {
			return err
		}
		defer store.Close()
		if err := store.Set(ctx, sess); err != nil {
			return err
		}
	}

	final, err := tea.NewProgram(NewStepModel(sess), tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if store != nil {
		if m, ok := final.(StepModel); ok {
			if err := store.Set(ctx, m.Session); err != nil {
				return err
			}
		}
		printSuccess("Session saved")
		printKeyValue("id", sess.ID)
		printKeyValue("step", fmt.Sprintf("%d of %d", sess.Current+1, sess.Len()))
	}
	return nil
}

// newSession builds and traces code and opens a session on the result.
func (c *CLI) newSession(ctx context.Context, runner *pipeline.Runner, code string, inputs []string) (*session.Session, error) {
	var result *pipeline.Result
	err := withSpinner(ctx, "Tracing execution...", func(ctx context.Context) error {
		var err error
		result, err = runner.Execute(ctx, pipeline.Options{
			Code:   code,
			Inputs: inputs,
			Trace:  true,
			Logger: c.Logger,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if result.Graph.IsError() {
		n := result.Graph.Nodes[0]
		return nil, codeerr.New(codeerr.ErrCodeSyntax, "%s (line %d)", n.Label, n.Line)
	}
	return session.New(code, result.Graph, result.Trace, inputs, c.Config.Session.TTL.Duration)
}
