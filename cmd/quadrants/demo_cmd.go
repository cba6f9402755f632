package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Genesis-Embodied-AI/quadrants/cache"
	"github.com/Genesis-Embodied-AI/quadrants/codegen"
	"github.com/Genesis-Embodied-AI/quadrants/pipeline"
	"github.com/Genesis-Embodied-AI/quadrants/testutil"
)

// newDemoCmd compiles the fixed `c = a + b; store(p, c)` fixture kernel end
// to end through the pass pipeline, codegen, and the cache — useful as a
// smoke test that the toolchain wiring is intact.
func newDemoCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Compile a fixed add/store kernel through the full pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cache.Open(state.cfg.CacheRoot, state.log, nil)
			if err != nil {
				return err
			}
			body := testutil.SerialAddStore()
			result, err := pipeline.Compile(body, state.cfg, state.caps, state.log, mgr, codegen.ModuleOpt{}, codegen.BlockOpt{}, time.Now().UnixNano())
			if err != nil {
				return err
			}
			if err := mgr.Dump(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fingerprint=%s tasks=%d from_cache=%v\n", result.Fingerprint, len(result.Compiled), result.FromCache)
			return nil
		},
	}
}
