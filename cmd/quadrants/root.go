package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
)

// rootState carries the flag-bound values and resolved objects shared by
// every subcommand, built once in PersistentPreRunE.
type rootState struct {
	cfg  *config.CompileConfig
	log  *qlog.Logger
	caps *config.DeviceCapabilityConfig
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	state := &rootState{}

	root := &cobra.Command{
		Use:   "quadrants",
		Short: "Quadrants kernel compiler and launcher CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.BindViper(v, state.cfg)
			state.log = qlog.New(qlog.OptionsFromEnv())
			return nil
		},
	}

	state.cfg = config.Default()
	state.caps = config.NewDeviceCapabilityConfig()

	flags := root.PersistentFlags()
	flags.String("arch", state.cfg.Arch.String(), "target architecture: x64, arm64, cuda, amdgpu, vulkan, metal")
	flags.Bool("fast_math", state.cfg.FastMath, "enable fast-math algebraic rewrites")
	flags.Bool("offline_cache", state.cfg.OfflineCacheOn, "persist compiled kernels to the on-disk cache")
	flags.String("cache_root", state.cfg.CacheRoot, "on-disk cache root directory")
	flags.Bool("debug_bounds", state.cfg.DebugOutOfBound, "insert bounds-check guards")
	_ = v.BindPFlags(flags)

	root.AddCommand(newCacheCmd(state))
	root.AddCommand(newDemoCmd(state))
	return root
}
