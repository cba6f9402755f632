package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// InsertScratchPad appends one AllocaGlobalTmp slot per reduction found in
// the task body to the task's BLS epilogue, creating the epilogue block if
// needed. It runs after make_block_local/make_mesh_thread_local and leaves
// BLSSize and the body's atomic statements unchanged.
func InsertScratchPad(task *ir.OffloadedTask, cfg *config.CompileConfig, log *qlog.Logger) Result {
	reductions := gatherReductions(task)
	if len(reductions) == 0 {
		return Unchanged
	}
	if task.BLSEpilogue == nil {
		task.BLSEpilogue = ir.NewBlock(nil)
	}
	for i, r := range reductions {
		tmp := &ir.Statement{ID: -(i + 1), Tag: ir.TagAllocaGlobalTmp, Type: r.Type}
		task.BLSEpilogue.Insert(tmp)
	}
	if cfg != nil && cfg.DumpIR && log != nil {
		log.Debugw("insert_scratch_pad allocated reduction slots", "count", len(reductions))
	}
	return Modified
}

// gatherReductions finds the AtomicAdd/AtomicMax/AtomicMin statements in
// task's body that have no SNode target, treating each as a reduction.
func gatherReductions(task *ir.OffloadedTask) []*ir.Statement {
	var out []*ir.Statement
	v := ir.NewVisitor()
	for _, tag := range []ir.Tag{ir.TagAtomicAdd, ir.TagAtomicMax, ir.TagAtomicMin} {
		t := tag
		v.On(t, func(s *ir.Statement) {
			if s.SNode == nil {
				out = append(out, s)
			}
		})
	}
	task.Body.Accept(v)
	return out
}
