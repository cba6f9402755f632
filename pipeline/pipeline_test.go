package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Genesis-Embodied-AI/quadrants/cache"
	"github.com/Genesis-Embodied-AI/quadrants/codegen"
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
	"github.com/Genesis-Embodied-AI/quadrants/pipeline"
	"github.com/Genesis-Embodied-AI/quadrants/testutil"
)

func buildSerialKernel() *ir.Block {
	return testutil.SerialAddStore()
}

func TestBackendSelectsLLVMForCPUArches(t *testing.T) {
	backend, err := pipeline.Backend(config.ArchX64, qlog.Nop())
	require.NoError(t, err)
	require.Equal(t, config.ArchX64, backend.Arch())
}

func TestBackendSelectsSPIRVForVulkan(t *testing.T) {
	backend, err := pipeline.Backend(config.ArchVulkan, qlog.Nop())
	require.NoError(t, err)
	require.Equal(t, config.ArchVulkan, backend.Arch())
}

func TestBackendRejectsUnknownArch(t *testing.T) {
	_, err := pipeline.Backend(config.ArchUnknown, qlog.Nop())
	require.Error(t, err)
}

func TestCompileProducesTasksAndCachesResult(t *testing.T) {
	root := t.TempDir()
	mgr, err := cache.Open(root, qlog.Nop(), nil)
	require.NoError(t, err)

	cfg := config.Default()
	caps := config.NewDeviceCapabilityConfig()

	result, err := pipeline.Compile(buildSerialKernel(), cfg, caps, qlog.Nop(), mgr, codegen.ModuleOpt{}, codegen.BlockOpt{}, 1000)
	require.NoError(t, err)
	require.False(t, result.FromCache)
	require.NotEmpty(t, result.Tasks)
	require.Len(t, result.Compiled, len(result.Tasks))
}

func TestCompileSecondCallHitsCache(t *testing.T) {
	root := t.TempDir()
	mgr, err := cache.Open(root, qlog.Nop(), nil)
	require.NoError(t, err)

	cfg := config.Default()
	caps := config.NewDeviceCapabilityConfig()

	first, err := pipeline.Compile(buildSerialKernel(), cfg, caps, qlog.Nop(), mgr, codegen.ModuleOpt{}, codegen.BlockOpt{}, 1000)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := pipeline.Compile(buildSerialKernel(), cfg, caps, qlog.Nop(), mgr, codegen.ModuleOpt{}, codegen.BlockOpt{}, 2000)
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Len(t, second.Compiled, len(first.Compiled))
	require.Equal(t, first.Compiled[0].EntryPoint, second.Compiled[0].EntryPoint)
}

func TestCompileIsDeterministicAcrossRuns(t *testing.T) {
	cfg := config.Default()
	caps := config.NewDeviceCapabilityConfig()

	r1, err := pipeline.Compile(buildSerialKernel(), cfg, caps, qlog.Nop(), nil, codegen.ModuleOpt{}, codegen.BlockOpt{}, 1)
	require.NoError(t, err)
	r2, err := pipeline.Compile(buildSerialKernel(), cfg, caps, qlog.Nop(), nil, codegen.ModuleOpt{}, codegen.BlockOpt{}, 2)
	require.NoError(t, err)
	require.Equal(t, r1.Fingerprint, r2.Fingerprint)
}
