package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// constantFoldableOps is the per-operator allow-list: folding comparisons
// and shifts here (on top of simplify's arithmetic subset) is safe because
// these never change the value lowered by a backend's codegen facade.
var constantFoldableOps = map[ir.Tag]func(a, b int64) int64{
	ir.TagDiv: func(a, b int64) int64 {
		if b == 0 {
			return 0
		}
		return a / b
	},
	ir.TagMod: func(a, b int64) int64 {
		if b == 0 {
			return 0
		}
		return a % b
	},
	ir.TagBitAnd: func(a, b int64) int64 { return a & b },
	ir.TagBitOr:  func(a, b int64) int64 { return a | b },
	ir.TagBitXor: func(a, b int64) int64 { return a ^ b },
	ir.TagShl:    func(a, b int64) int64 { return a << uint(b) },
	ir.TagShr:    func(a, b int64) int64 { return a >> uint(b) },
	ir.TagCmpLT:  func(a, b int64) int64 { return boolInt(a < b) },
	ir.TagCmpLE:  func(a, b int64) int64 { return boolInt(a <= b) },
	ir.TagCmpEQ:  func(a, b int64) int64 { return boolInt(a == b) },
	ir.TagCmpNE:  func(a, b int64) int64 { return boolInt(a != b) },
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ConstantFold folds every statement in constantFoldableOps whose operands
// are both compile-time constants into a single new constant statement.
// Runs as its own pass (distinct from simplify's narrower always-safe
// arithmetic identities) because division/modulo folding needs the by-zero
// guard above and comparison folding needs a dedicated result type.
func ConstantFold(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	modified := false
	var mod ir.DelayedIRModifier
	v := ir.NewVisitor()
	v.Generic = func(s *ir.Statement) {
		compute, ok := constantFoldableOps[s.Tag]
		if !ok || len(s.Operands) < 2 {
			return
		}
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
	ir.Walk(body, v)
	if mod.Apply() {
		modified = true
	}
	if modified {
		return Modified
	}
	return Unchanged
}
