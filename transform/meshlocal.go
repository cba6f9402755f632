package transform

import (
	"sort"

	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

type meshCount struct {
	name  string
	count int
}

// MakeMeshThreadLocal attaches the per-thread TLS prologue/epilogue to a
// mesh_for task: each thread accumulates into a thread-local scratch slot
// for every owned-element-type count recorded in MeshMeta, then the
// epilogue folds the thread-local slots into the shared mesh buffer. Only
// mesh_for tasks carry MeshMeta; anything else is left untouched.
func MakeMeshThreadLocal(task *ir.OffloadedTask, cfg *config.CompileConfig, log *qlog.Logger) Result {
	if task.Kind != ir.TaskMeshFor || task.Mesh == nil || len(task.Mesh.OwnedCounts) == 0 {
		return Unchanged
	}
	task.TLSPrologue = ir.NewBlock(nil)
	task.TLSEpilogue = ir.NewBlock(nil)
	size := 0
	for i, mc := range sortedMeshCounts(task.Mesh) {
		alloc := &ir.Statement{ID: -(i + 1), Tag: ir.TagAllocaLocal, Name: mc.name, IntImm: int64(mc.count)}
		task.TLSPrologue.Insert(alloc)
		fold := &ir.Statement{ID: -(i + 1001), Tag: ir.TagAtomicAdd, Name: mc.name}
		task.TLSEpilogue.Insert(fold)
		size += mc.count * 4
	}
	task.TLSSize = size
	if cfg != nil && cfg.DumpIR && log != nil {
		log.Debugw("make_mesh_thread_local staged owned counts", "bytes", task.TLSSize)
	}
	return Modified
}

// sortedMeshCounts returns OwnedCounts entries sorted by element type name
// so the generated alloca/fold sequence is deterministic across identical
// mesh metadata rather than varying with Go's randomized map iteration.
func sortedMeshCounts(m *ir.MeshMeta) []meshCount {
	out := make([]meshCount, 0, len(m.OwnedCounts))
	for name, count := range m.OwnedCounts {
		out = append(out, meshCount{name, count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
