package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/sherpa/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the LLM response cache",
}

func openCache(enabled bool) (*cache.Cache, error) {
	e, err := loadEnv(nil)
	if err != nil {
		return nil, err
	}
	c, err := cache.New(enabled || e.cfg.Cache.Enabled, e.cfg.Cache.Dir, e.cfg.Cache.TTL())
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(true)
		if err != nil {
			return err
		}
		n, err := c.Clear()
		if err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared (%d entries removed).\n", n)
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(true)
		if err != nil {
			return err
		}
		n, err := c.Prune()
		if err != nil {
			return fmt.Errorf("pruning cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", n)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(false)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !c.Enabled() {
			fmt.Fprintln(out, "Cache is disabled.")
			return nil
		}
		stats, err := c.GetStats()
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}
		fmt.Fprintf(out, "Directory: %s\n", stats.Dir)
		fmt.Fprintf(out, "Entries:   %d (%d expired)\n", stats.Entries, stats.Expired)
		fmt.Fprintf(out, "Size:      %d bytes\n", stats.TotalBytes)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
}
