package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// DIE (dead-instruction-elimination) removes statements with no users and
// no side effects, recursing into container bodies.
func DIE(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	modified := false
	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		for _, s := range b.Stmts {
			if s.Body != nil {
				visit(s.Body)
			}
			if s.Body2 != nil {
				visit(s.Body2)
			}
		}
		var mod ir.DelayedIRModifier
		for i := len(b.Stmts) - 1; i >= 0; i-- {
			s := b.Stmts[i]
			if s.HasNoUsers() && !s.Tag.HasSideEffect() {
				mod.Erase(s)
			}
		}
		if mod.Apply() {
			modified = true
		}
	}
	visit(body)
	if modified {
		return Modified
	}
	return Unchanged
}
