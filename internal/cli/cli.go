// Package cli implements the codeflow command-line interface.
//
// Commands:
//   - build: derive a flowchart graph from a Python file
//   - render: write Mermaid, DOT, SVG, PNG, PDF or JSON diagrams
//   - trace: generate an execution trace (and optional walkthrough)
//   - inputs: list the input() prompts a program will ask for
//   - step: step through a traced program in the terminal
//   - serve: run the HTTP API
//   - cache: inspect or clear the result cache
//
// All commands support --verbose (-v) for debug-level logging and
// --config to read settings from a specific TOML file.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/internal/config"
	"github.com/matzehuels/codeflow/pkg/buildinfo"
	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/observability"
	"github.com/matzehuels/codeflow/pkg/pipeline"
	"github.com/matzehuels/codeflow/pkg/render/label"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "codeflow"

// skipSetup marks commands that run without loading the config.
const skipSetup = "codeflow/skip-setup"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any command runs.
	Config *config.Config

	configPath string
	verbose    bool
	stdin      io.Reader
	stdout     io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Codeflow turns Python programs into flowcharts you can step through",
		Long:         `Codeflow derives a control-flow diagram from Python source, renders it as Mermaid, DOT or images, and replays an execution trace step by step with the active node highlighted.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/codeflow/config.toml)")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.traceCommand())
	root.AddCommand(c.inputsCommand())
	root.AddCommand(c.stepCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the config, applies the log level and attaches the logger to
// the command context.
func (c *CLI) setup(cmd *cobra.Command) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	if cmd.Annotations[skipSetup] != "" {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	observability.NewLogHooks(c.Logger).Register()
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. The trace provider is
// only created when needed so that build and render work without an API key.
func (c *CLI) newRunner(ctx context.Context, noCache, withProvider bool) (*pipeline.Runner, error) {
	store, err := c.Config.OpenCache(ctx, noCache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	r := pipeline.NewRunner(store, c.Config.Keyer(), c.Logger)
	if withProvider {
		p, err := c.Config.OpenProvider(ctx, c.Logger)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.Provider = p
	}
	return r, nil
}

// =============================================================================
// Input Helpers
// =============================================================================

// readSource reads a program from path, or from stdin when path is "-".
func (c *CLI) readSource(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(c.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", codeerr.Wrap(codeerr.ErrCodeFileNotFound, err, "read %s", path)
	}
	if err := codeerr.ValidateSource(data); err != nil {
		return "", err
	}
	return string(data), nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.DefaultFormat}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseVars parses name=value pairs, keeping their order.
func parseVars(pairs []string) ([]label.Binding, error) {
	out := make([]label.Binding, 0, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok {
			return nil, codeerr.New(codeerr.ErrCodeInvalidInput, "variable %q must be name=value", p)
		}
		if err := codeerr.ValidateVariableName(name); err != nil {
			return nil, err
		}
		out = append(out, label.Binding{Name: name, Value: value})
	}
	return out, nil
}
