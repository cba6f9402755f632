package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// SimplifyI runs the algebraic + peephole + constant-propagation + dead-code
// sub-pipeline. Separated from II/III so the canonical pipeline order can
// interleave it with constant_fold, remove_loop_unique, and
// remove_range_assumption.
func SimplifyI(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	return simplifyCore(body, cfg, log)
}

// SimplifyII runs after offload, same semantics as I
// but named separately because the pipeline restarts its own sub-pipeline
// independently per stage.
func SimplifyII(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	return simplifyCore(body, cfg, log)
}

// SimplifyIII runs after lower_access and after make_block_local.
func SimplifyIII(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	return simplifyCore(body, cfg, log)
}

func simplifyCore(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	modified := false
	if algebraicPeephole(body) {
		modified = true
	}
	if constantPropagate(body) {
		modified = true
	}
	if DIE(body, cfg, log) == Modified {
		modified = true
	}
	if cfg != nil && cfg.DumpSimplify && log != nil {
		log.Debugw("simplify pass ran", "modified", modified)
	}
	if modified {
		return Modified
	}
	return Unchanged
}

// algebraicPeephole applies local rewrites: x+0 -> x, 0+x -> x, x*1 -> x,
// x*0 -> 0, x-x -> 0. The multiplication rewrites look only at a constant
// second operand.
func algebraicPeephole(body *ir.Block) bool {
	modified := false
	var mod ir.DelayedIRModifier
	v := ir.NewVisitor()
	v.On(ir.TagAdd, func(s *ir.Statement) {
		if c, ok := constOperand(s.Operands[1]); ok && c == 0 {
			mod.ReplaceUsagesWith(s, s.Operands[0])
			mod.Erase(s)
		} else if c, ok := constOperand(s.Operands[0]); ok && c == 0 {
			mod.ReplaceUsagesWith(s, s.Operands[1])
			mod.Erase(s)
		}
	})
	v.On(ir.TagMul, func(s *ir.Statement) {
		if c, ok := constOperand(s.Operands[1]); ok {
			if c == 1 {
				mod.ReplaceUsagesWith(s, s.Operands[0])
				mod.Erase(s)
			} else if c == 0 {
				zero := zeroConstLike(s)
				s.Parent.InsertAt(s.Parent.IndexOf(s), zero)
				mod.ReplaceUsagesWith(s, zero)
				mod.Erase(s)
			}
		}
	})
	v.On(ir.TagSub, func(s *ir.Statement) {
		if s.Operands[0] == s.Operands[1] {
			zero := zeroConstLike(s)
			s.Parent.InsertAt(s.Parent.IndexOf(s), zero)
			mod.ReplaceUsagesWith(s, zero)
			mod.Erase(s)
		}
	})
	ir.Walk(body, v)
	if mod.Apply() {
		modified = true
	}
	return modified
}

func constOperand(s *ir.Statement) (int64, bool) {
	switch s.Tag {
	case ir.TagConstI32, ir.TagConstI64:
		return s.IntImm, true
	}
	return 0, false
}

func zeroConstLike(s *ir.Statement) *ir.Statement {
	return &ir.Statement{ID: s.ID, Tag: ir.TagConstI32, Type: s.Type, IntImm: 0}
}

// constantPropagate folds binary ops whose both operands are constants into
// a single new constant statement for add, sub and mul, which
// constant_fold's allow-list does not cover.
func constantPropagate(body *ir.Block) bool {
	modified := false
	var mod ir.DelayedIRModifier
	v := ir.NewVisitor()
	fold := func(s *ir.Statement, compute func(a, b int64) int64) {
		a, aok := constOperand(s.Operands[0])
		b, bok := constOperand(s.Operands[1])
		if !aok || !bok {
			return
		}
		folded := &ir.Statement{ID: s.ID, Tag: ir.TagConstI32, Type: s.Type, IntImm: compute(a, b)}
		s.Parent.InsertAt(s.Parent.IndexOf(s), folded)
		mod.ReplaceUsagesWith(s, folded)
		mod.Erase(s)
	}
	v.On(ir.TagAdd, func(s *ir.Statement) { fold(s, func(a, b int64) int64 { return a + b }) })
	v.On(ir.TagSub, func(s *ir.Statement) { fold(s, func(a, b int64) int64 { return a - b }) })
	v.On(ir.TagMul, func(s *ir.Statement) { fold(s, func(a, b int64) int64 { return a * b }) })
	ir.Walk(body, v)
	if mod.Apply() {
		modified = true
	}
	return modified
}
