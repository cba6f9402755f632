package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

func TestReplaceUsagesWith(t *testing.T) {
	block := ir.NewBlock(nil)
	a := &ir.Statement{ID: 1, Tag: ir.TagConstI32, Type: ir.TypeI32}
	b := &ir.Statement{ID: 2, Tag: ir.TagConstI32, Type: ir.TypeI32}
	add := &ir.Statement{ID: 3, Tag: ir.TagAdd, Type: ir.TypeI32}
	add.AddOperand(a)
	add.AddOperand(a)
	block.Insert(a)
	block.Insert(add)

	a.ReplaceUsagesWith(b)

	require.Equal(t, b, add.Operands[0])
	require.Equal(t, b, add.Operands[1])
	require.True(t, a.HasNoUsers())
	require.Contains(t, b.Users(), add)
}

func TestDelayedIRModifierErase(t *testing.T) {
	block := ir.NewBlock(nil)
	a := &ir.Statement{ID: 1, Tag: ir.TagConstI32}
	b := &ir.Statement{ID: 2, Tag: ir.TagConstI32}
	block.Insert(a)
	block.Insert(b)

	var mod ir.DelayedIRModifier
	mod.Erase(a)
	modified := mod.Apply()

	require.True(t, modified)
	require.Len(t, block.Stmts, 1)
	require.Equal(t, b, block.Stmts[0])
}

func TestDelayedIRModifierInsertBeforeAfter(t *testing.T) {
	block := ir.NewBlock(nil)
	a := &ir.Statement{ID: 1, Tag: ir.TagConstI32}
	block.Insert(a)

	before := &ir.Statement{ID: 2, Tag: ir.TagConstI32}
	after := &ir.Statement{ID: 3, Tag: ir.TagConstI32}

	var mod ir.DelayedIRModifier
	mod.InsertBefore(a, before)
	mod.InsertAfter(a, after)
	mod.Apply()

	require.Len(t, block.Stmts, 3)
	require.Equal(t, []int{2, 1, 3}, ids(block.Stmts))
}

func ids(stmts []*ir.Statement) []int {
	out := make([]int, len(stmts))
	for i, s := range stmts {
		out[i] = s.ID
	}
	return out
}

func TestVisitorDispatchAndContainer(t *testing.T) {
	kernel := ir.NewKernel("k")
	loopBody := ir.NewBlock(nil)
	loop := &ir.Statement{ID: 1, Tag: ir.TagRangeFor, Body: loopBody}
	loopBody.Parent = loop
	inner := &ir.Statement{ID: 2, Tag: ir.TagConstI32}
	loopBody.Insert(inner)
	kernel.Body.Insert(loop)

	var containerHits, innerHits int
	v := ir.NewVisitor()
	v.PreprocessContainerStmt = func(s *ir.Statement) { containerHits++ }
	v.On(ir.TagConstI32, func(s *ir.Statement) { innerHits++ })

	ir.Walk(kernel.Body, v)

	require.Equal(t, 1, containerHits)
	require.Equal(t, 1, innerHits)
}
