package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// LowerAccess rewrites each GlobalPtr that addresses a leaf SNode through an
// ancestor chain deeper than one level into an explicit sequence of
// GetChildPtr steps, one per SNode below the root (the leaf included),
// followed by a new GlobalPtr on the last step, so later passes (codegen,
// make_block_local) never need to re-walk the SNode tree themselves.
func LowerAccess(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	modified := false
	var mod ir.DelayedIRModifier
	v := ir.NewVisitor()
	v.On(ir.TagGlobalPtr, func(s *ir.Statement) {
		if s.SNode == nil || s.SNode.Parent == nil || s.SNode.Parent.Parent == nil {
			return
		}
		chain := ancestorChain(s.SNode)
		if len(chain) <= 2 {
			return
		}
		var steps []*ir.Statement
		var cur *ir.Statement
		for i, n := range chain {
			if i == 0 {
				continue
			}
			step := &ir.Statement{ID: s.ID*1000 + i, Tag: ir.TagGetChildPtr, Type: ir.TypePtr, SNode: n}
			if cur != nil {
				step.AddOperand(cur)
			}
			steps = append(steps, step)
			cur = step
		}
		if len(steps) == 0 {
			return
		}
		mod.InsertBefore(s, steps...)
		leaf := &ir.Statement{ID: s.ID, Tag: ir.TagGlobalPtr, Type: s.Type, SNode: s.SNode}
		leaf.AddOperand(cur)
		mod.InsertBefore(s, leaf)
		mod.ReplaceUsagesWith(s, leaf)
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

// ancestorChain returns n's ancestors from the root down to n itself.
func ancestorChain(n *ir.SNode) []*ir.SNode {
	var rev []*ir.SNode
	for c := n; c != nil; c = c.Parent {
		rev = append(rev, c)
	}
	chain := make([]*ir.SNode, len(rev))
	for i, n := range rev {
		chain[len(rev)-1-i] = n
	}
	return chain
}
