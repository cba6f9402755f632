package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Genesis-Embodied-AI/quadrants/codegen"
	"github.com/Genesis-Embodied-AI/quadrants/codegen/llvmgen"
	"github.com/Genesis-Embodied-AI/quadrants/codegen/spirv"
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

func buildAddStoreTask() *ir.OffloadedTask {
	t := ir.NewOffloadedTask(1, ir.TaskSerial)
	a := &ir.Statement{ID: 1, Tag: ir.TagConstI32, IntImm: 2}
	b := &ir.Statement{ID: 2, Tag: ir.TagConstI32, IntImm: 3}
	add := &ir.Statement{ID: 3, Tag: ir.TagAdd}
	add.AddOperand(a)
	add.AddOperand(b)
	p := &ir.Statement{ID: 4, Tag: ir.TagGlobalPtr}
	store := &ir.Statement{ID: 5, Tag: ir.TagGlobalStore}
	store.AddOperand(p)
	store.AddOperand(add)
	for _, s := range []*ir.Statement{a, b, add, p, store} {
		t.Body.Insert(s)
	}
	return t
}

func TestLLVMBackendCompilesCPUTask(t *testing.T) {
	backend := llvmgen.New(config.ArchX64, qlog.Nop())
	var kcg codegen.KernelCodeGen = backend
	compiled, err := kcg.CompileTask(buildAddStoreTask(), config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	require.Equal(t, config.ArchX64, compiled.Arch)
	require.NotEmpty(t, compiled.Artifact)
	require.Contains(t, string(compiled.Artifact), "task_1_serial")
}

func TestLLVMBackendCUDATargetTriple(t *testing.T) {
	backend := llvmgen.New(config.ArchCUDA, qlog.Nop())
	compiled, err := backend.CompileTask(buildAddStoreTask(), config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	require.Contains(t, string(compiled.Artifact), "nvptx64-nvidia-cuda")
}

func TestSPIRVBackendProducesHeader(t *testing.T) {
	backend := spirv.New(config.ArchVulkan, qlog.Nop())
	var kcg codegen.KernelCodeGen = backend
	compiled, err := kcg.CompileTask(buildAddStoreTask(), config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	require.Equal(t, config.ArchVulkan, compiled.Arch)
	require.GreaterOrEqual(t, len(compiled.Artifact), 20)
}

func TestCompileTasksCompilesEveryTask(t *testing.T) {
	backend := llvmgen.New(config.ArchX64, qlog.Nop())
	tasks := []*ir.OffloadedTask{buildAddStoreTask(), buildAddStoreTask()}
	compiled, err := codegen.CompileTasks(backend, tasks, config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	require.Len(t, compiled, 2)
}

func TestLLVMBackendRangeForCallsCPUParallelRangeFor(t *testing.T) {
	task := ir.NewOffloadedTask(2, ir.TaskRangeFor)
	task.Begin, task.End, task.NumCPUThreads, task.BlockDim = 0, 1024, 4, 32
	backend := llvmgen.New(config.ArchX64, qlog.Nop())
	compiled, err := backend.CompileTask(task, config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	artifact := string(compiled.Artifact)
	require.Contains(t, artifact, "cpu_parallel_range_for")
	require.Contains(t, artifact, "task_2_range_for_body")
}

func TestLLVMBackendMeshForCallsCPUParallelMeshFor(t *testing.T) {
	task := ir.NewOffloadedTask(3, ir.TaskMeshFor)
	task.Mesh = &ir.MeshMeta{PatchCount: 8, OwnedCounts: map[string]int{"vertex": 16}}
	backend := llvmgen.New(config.ArchX64, qlog.Nop())
	compiled, err := backend.CompileTask(task, config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	artifact := string(compiled.Artifact)
	require.Contains(t, artifact, "cpu_parallel_mesh_for")
	require.Contains(t, artifact, "task_3_mesh_for_body")
}

func TestLLVMBackendStructForCallsCPUStructFor(t *testing.T) {
	task := ir.NewOffloadedTask(4, ir.TaskStructFor)
	task.TargetSNode = ir.NewSNode(1, ir.SNodeDense, nil)
	backend := llvmgen.New(config.ArchX64, qlog.Nop())
	compiled, err := backend.CompileTask(task, config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	artifact := string(compiled.Artifact)
	require.Contains(t, artifact, "cpu_struct_for")
	require.Contains(t, artifact, "task_4_struct_for_body")
}

func TestLLVMBackendListGenAndGCEmitDirectRuntimeCalls(t *testing.T) {
	target := ir.NewSNode(7, ir.SNodePointer, nil)

	listGen := ir.NewOffloadedTask(5, ir.TaskListGen)
	listGen.TargetSNode = target
	backend := llvmgen.New(config.ArchX64, qlog.Nop())
	compiled, err := backend.CompileTask(listGen, config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	require.Contains(t, string(compiled.Artifact), "quadrants_rt_list_gen")

	gc := ir.NewOffloadedTask(6, ir.TaskGC)
	gc.TargetSNode = target
	compiled, err = backend.CompileTask(gc, config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	require.Contains(t, string(compiled.Artifact), "quadrants_rt_gc")
}

func TestLLVMBackendBLSSizeEmitsThreadLocalBuffer(t *testing.T) {
	task := ir.NewOffloadedTask(8, ir.TaskStructFor)
	task.TargetSNode = ir.NewSNode(1, ir.SNodeDense, nil)
	task.BLSSize = 256
	backend := llvmgen.New(config.ArchX64, qlog.Nop())
	compiled, err := backend.CompileTask(task, config.Default(), codegen.ModuleOpt{}, codegen.BlockOpt{})
	require.NoError(t, err)
	require.Contains(t, string(compiled.Artifact), "bls_buffer")
}
