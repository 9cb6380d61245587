package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"greenroom/internal/blobcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the recording cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show recording cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			stats, err := cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recordings: %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:       %s / %s\n",
				humanize.IBytes(uint64(stats.TotalBytes)),
				humanize.IBytes(uint64(stats.CapacityBytes)))
			printCacheEntries(out, stats.EntryInfos)
			return nil
		},
	}
}

func printCacheEntries(out io.Writer, entries []blobcache.EntryInfo) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached recordings: none")
		return
	}
	fmt.Fprintln(out, "Cached recordings:")
	for _, entry := range entries {
		label := entry.Meta.Title
		if label == "" {
			label = entry.ID
		}
		fmt.Fprintf(out, "  - %s: %s (recorded %s)\n",
			label,
			humanize.IBytes(uint64(entry.SizeBytes)),
			entry.Meta.CreatedAt.Local().Format(time.DateTime),
		)
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Evict recordings older than the configured age limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			if cfg.Cache.MaxAgeDays <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No age limit configured (set max_age_days in config.toml)")
				return nil
			}
			maxAge := time.Duration(cfg.Cache.MaxAgeDays) * 24 * time.Hour
			evicted, err := cache.EvictOlderThan(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			if evicted == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recordings pruned")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d recordings\n", evicted)
			return nil
		},
	}
}
