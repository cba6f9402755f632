package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// CheckOutOfBound inserts a TagBoundsGuard right after every GlobalPtr into
// an SNode whose RequiresListGen reports true (every tag except Dense) when
// CompileConfig asks for bounds checking. Dense SNodes are statically in-bounds by construction
// and are skipped.
func CheckOutOfBound(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	if cfg == nil || !cfg.DebugOutOfBound {
		return Unchanged
	}
	modified := false
	var mod ir.DelayedIRModifier
	guardID := 0
	v := ir.NewVisitor()
	v.On(ir.TagGlobalPtr, func(s *ir.Statement) {
		if s.SNode == nil || !s.SNode.RequiresListGen() {
			return
		}
		guardID++
		guard := &ir.Statement{ID: s.ID*1000000 + guardID, Tag: ir.TagBoundsGuard, SNode: s.SNode}
		guard.AddOperand(s)
		mod.InsertAfter(s, guard)
	})
	ir.Walk(body, v)
	if mod.Apply() {
		modified = true
	}
	if cfg.DumpIR && log != nil && modified {
		log.Debugw("check_out_of_bound inserted guards")
	}
	if modified {
		return Modified
	}
	return Unchanged
}
