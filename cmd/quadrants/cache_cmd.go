package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Genesis-Embodied-AI/quadrants/cache"
)

func newCacheCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the on-disk compiled-kernel cache",
	}
	cmd.AddCommand(newCacheListCmd(state))
	cmd.AddCommand(newCacheDumpCmd(state))
	return cmd
}

func newCacheListCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached kernel fingerprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cache.Open(state.cfg.CacheRoot, state.log, nil)
			if err != nil {
				return err
			}
			entries := mgr.Entries()
			fingerprints := make([]string, 0, len(entries))
			for fp := range entries {
				fingerprints = append(fingerprints, fp)
			}
			sort.Strings(fingerprints)
			for _, fp := range fingerprints {
				meta := entries[fp]
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tarch=%d\tsize=%d\tlast_used=%d\n", fp, meta.Architecture, meta.Size, meta.LastUsedAt)
			}
			return nil
		},
	}
}

func newCacheDumpCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Flush any pending cache writes to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cache.Open(state.cfg.CacheRoot, state.log, &cache.SizeBoundCleaner{MaxBytes: 0})
			if err != nil {
				return err
			}
			return mgr.Dump()
		},
	}
}
