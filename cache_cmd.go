package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aminemaliki7/NEWS/internal/cache"
	"github.com/aminemaliki7/NEWS/internal/config"
)

var (
	pruneOlderThan time.Duration

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the audio cache",
		Long:  paragraph(fmt.Sprintf("\nManage the %s where downloaded narrations are kept.", keyword("audio cache"))),
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show what the audio cache holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			disk, err := openCache()
			if err != nil {
				return err
			}
			defer func() { _ = disk.Close() }()

			st := disk.Stats()
			entries := disk.Entries()
			var original int64
			for _, e := range entries {
				original += e.OriginalSize
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", keyword(" Directory "), disk.Path())
			fmt.Fprintf(out, "%s  %d\n", keyword(" Entries   "), st.Items)
			fmt.Fprintf(out, "%s  %s of %s\n", keyword(" Size      "),
				humanize.Bytes(uint64(st.Size)), humanize.Bytes(uint64(st.Capacity))) //nolint:gosec
			if original > st.Size && st.Size > 0 {
				fmt.Fprintf(out, "%s  %s by compression\n", keyword(" Saved     "),
					humanize.Bytes(uint64(original-st.Size))) //nolint:gosec
			}
			if len(entries) > 0 {
				sort.Slice(entries, func(i, j int) bool {
					return entries[i].Timestamp.Before(entries[j].Timestamp)
				})
				fmt.Fprintf(out, "%s  %s\n", keyword(" Oldest    "), humanize.Time(entries[0].Timestamp))
				fmt.Fprintf(out, "%s  %s\n", keyword(" Newest    "), humanize.Time(entries[len(entries)-1].Timestamp))
			}
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached narration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			disk, err := openCache()
			if err != nil {
				return err
			}
			defer func() { _ = disk.Close() }()

			freed := disk.Stats().Size
			if err := disk.Clear(); err != nil {
				return fmt.Errorf("unable to clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Freed %s\n", humanize.Bytes(uint64(freed))) //nolint:gosec
			return nil
		},
	}

	cachePruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete narrations older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			age := cfg.Cache.MaxAge
			if cmd.Flags().Changed("older-than") {
				age = pruneOlderThan
			}
			if age <= 0 {
				return fmt.Errorf("invalid age %s", age)
			}

			disk, err := openCache()
			if err != nil {
				return err
			}
			defer func() { _ = disk.Close() }()

			n, err := disk.Prune(age)
			if err != nil {
				return fmt.Errorf("unable to prune cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d narrations older than %s\n", n, age)
			return nil
		},
	}
)

func init() {
	cachePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "age past which narrations are removed (default from config)")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePruneCmd)
}

// openCache opens the audio cache as configured, without pruning it.
func openCache() (*cache.DiskCache, error) {
	dir, err := config.CacheDir(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	disk, err := cache.NewDiskCache(dir, cfg.Cache.MaxSizeBytes(), cfg.Cache.Compression)
	if err != nil {
		return nil, fmt.Errorf("unable to open audio cache: %w", err)
	}
	return disk, nil
}
