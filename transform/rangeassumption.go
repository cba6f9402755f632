package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// RemoveRangeAssumption erases TagRangeAssumption marker statements,
// rewiring their users to the marker's first operand. The pipeline runs it
// before offload, ahead of cfg_optimization and bounds-check insertion; the
// markers carry no codegen meaning of their own.
func RemoveRangeAssumption(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	return eraseMarkers(body, ir.TagRangeAssumption)
}

// RemoveLoopUnique erases TagLoopUnique marker statements for the same
// reason: they exist only to let loop-invariant analyses reason about
// uniqueness within an iteration, and have no backend representation.
func RemoveLoopUnique(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	return eraseMarkers(body, ir.TagLoopUnique)
}

func eraseMarkers(body *ir.Block, tag ir.Tag) Result {
	modified := false
	var mod ir.DelayedIRModifier
	v := ir.NewVisitor()
	v.On(tag, func(s *ir.Statement) {
		mod.ReplaceUsagesWith(s, firstOperandOrNil(s))
		mod.Erase(s)
	})
	ir.Walk(body, v)
	if mod.Apply() {
		modified = true
	}
	if modified {
		return Modified
	}
	return Unchanged
}

func firstOperandOrNil(s *ir.Statement) *ir.Statement {
	if len(s.Operands) == 0 {
		return nil
	}
	return s.Operands[0]
}
