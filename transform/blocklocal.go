package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// BLSAnalyzer scans a struct_for task's body for GlobalPtr accesses to
// SNodes flagged block_local and reports the set plus a conservative byte
// size for the staging buffer the offloaded task will allocate in shared
// memory.
type BLSAnalyzer struct {
	SNodes    []*ir.SNode
	TotalSize int
}

func analyzeBLS(task *ir.OffloadedTask) *BLSAnalyzer {
	a := &BLSAnalyzer{}
	seen := make(map[*ir.SNode]bool)
	v := ir.NewVisitor()
	v.On(ir.TagGlobalPtr, func(s *ir.Statement) {
		if s.SNode == nil || !task.MemAccessOpt[s.SNode] || seen[s.SNode] {
			return
		}
		seen[s.SNode] = true
		a.SNodes = append(a.SNodes, s.SNode)
		a.TotalSize += blsElementSize(s.SNode) * s.SNode.MaxNumElements()
	})
	task.Body.Accept(v)
	return a
}

func blsElementSize(n *ir.SNode) int {
	switch n.DType {
	case ir.TypeI64, ir.TypeU64, ir.TypeF64:
		return 8
	case ir.TypeI32, ir.TypeU32, ir.TypeF32:
		return 4
	default:
		return 4
	}
}

// MakeBlockLocal lays out a per-task shared-memory staging buffer for the
// SNodes flagged block_local, sets BLSSize, and attaches fetch/writeback
// prologue and epilogue blocks addressing each SNode's offset in it. It
// does not rewrite the task body: its GlobalPtr/Load/Store statements still
// address the SNodes directly. Only
// struct_for tasks are eligible: range_for/serial tasks have no SNode block
// decomposition to stage.
func MakeBlockLocal(task *ir.OffloadedTask, cfg *config.CompileConfig, log *qlog.Logger) Result {
	if task.Kind != ir.TaskStructFor || len(task.MemAccessOpt) == 0 {
		return Unchanged
	}
	analysis := analyzeBLS(task)
	if len(analysis.SNodes) == 0 {
		return Unchanged
	}

	task.BLSPrologue = ir.NewBlock(nil)
	task.BLSEpilogue = ir.NewBlock(nil)
	offset := 0
	for i, n := range analysis.SNodes {
		fetch := &ir.Statement{ID: -(i + 1), Tag: ir.TagGlobalLoad, SNode: n, IntImm: int64(offset)}
		writeback := &ir.Statement{ID: -(i + 1000), Tag: ir.TagGlobalStore, SNode: n, IntImm: int64(offset)}
		task.BLSPrologue.Insert(fetch)
		task.BLSEpilogue.Insert(writeback)
		offset += blsElementSize(n) * n.MaxNumElements()
	}
	task.BLSSize = offset

	if cfg != nil && cfg.DumpIR && log != nil {
		log.Debugw("make_block_local staged snodes", "count", len(analysis.SNodes), "bytes", task.BLSSize)
	}
	return Modified
}
