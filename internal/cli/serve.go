package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/internal/api"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve runs the codeflow HTTP API: flowchart building, diagram rendering
and step-through sessions, including a websocket for live stepping.

Cache and session backends come from the config file. Without a Gemini API
key the server still builds and renders, and accepts sessions that carry
their own trace.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.Config.Server.Addr
			}

			runner, err := c.newRunner(ctx, noCache, false)
			if err != nil {
				return err
			}
			defer runner.Close()
			if p, err := c.Config.OpenProvider(ctx, c.Logger); err != nil {
				c.Logger.Warn("tracing disabled", "err", err)
			} else {
				runner.Provider = p
			}

			sessions, err := c.Config.OpenSessions(ctx)
			if err != nil {
				return err
			}
			defer sessions.Close()

			srv := api.New(api.Config{
				Runner:         runner,
				Sessions:       sessions,
				Logger:         c.Logger,
				RequestTimeout: c.Config.Server.RequestTimeout.Duration,
				SessionTTL:     c.Config.Session.TTL.Duration,
				AllowedOrigins: c.Config.Server.AllowedOrigins,
			})
			c.Logger.Info("serving",
				"addr", addr,
				"cache", c.Config.Cache.Backend,
				"sessions", c.Config.Session.Backend)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}
