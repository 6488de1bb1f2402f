package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/codeflow/internal/config"
	"github.com/matzehuels/codeflow/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear cached graphs, traces and renders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.Config.OpenCache(ctx, false)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer store.Close()

			if cache.IsDisabled(store) {
				printInfo("Caching is disabled, nothing to clear")
				return nil
			}
			clearer, ok := store.(cache.Clearer)
			if !ok {
				printInfo("Cache backend %q holds nothing to clear", c.Config.Cache.Backend)
				return nil
			}
			count, err := clearer.Clear(ctx)
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Backend: %s", cacheLocation(c.Config))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache lives",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(c.stdout, cacheLocation(c.Config))
			return nil
		},
	}
}

// cacheLocation describes the configured backend: the directory for the
// file cache, the address for Redis.
func cacheLocation(cfg *config.Config) string {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		return "redis://" + cfg.Cache.RedisAddr + "/" + cfg.Cache.Prefix
	case config.CacheFile:
		dir, err := cfg.CacheDir()
		if err != nil {
			return "(unknown)"
		}
		return dir
	default:
		return cfg.Cache.Backend
	}
}
