package transform_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
	"github.com/Genesis-Embodied-AI/quadrants/transform"
)

func TestDIERemovesUnusedStatement(t *testing.T) {
	body := ir.NewBlock(nil)
	dead := &ir.Statement{ID: 1, Tag: ir.TagConstI32}
	body.Insert(dead)
	p := &ir.Statement{ID: 2, Tag: ir.TagGlobalPtr, Type: ir.TypePtr}
	store := &ir.Statement{ID: 3, Tag: ir.TagGlobalStore}
	store.AddOperand(p)
	body.Insert(p)
	body.Insert(store)

	r := transform.DIE(body, config.Default(), qlog.Nop())
	require.Equal(t, transform.Modified, r)
	require.Len(t, body.Stmts, 2)
}

func TestSimplifyFoldsConstantAdd(t *testing.T) {
	body := ir.NewBlock(nil)
	a := &ir.Statement{ID: 1, Tag: ir.TagConstI32, IntImm: 2}
	b := &ir.Statement{ID: 2, Tag: ir.TagConstI32, IntImm: 3}
	add := &ir.Statement{ID: 3, Tag: ir.TagAdd}
	add.AddOperand(a)
	add.AddOperand(b)
	p := &ir.Statement{ID: 4, Tag: ir.TagGlobalPtr, Type: ir.TypePtr}
	store := &ir.Statement{ID: 5, Tag: ir.TagGlobalStore}
	store.AddOperand(p)
	store.AddOperand(add)
	for _, s := range []*ir.Statement{a, b, add, p, store} {
		body.Insert(s)
	}

	transform.RunToFixedPoint(transform.SimplifyI, body, config.Default(), qlog.Nop(), 8)

	var folded *ir.Statement
	for _, s := range body.Stmts {
		if s.Tag == ir.TagConstI32 && s.IntImm == 5 {
			folded = s
		}
	}
	require.NotNil(t, folded)
	require.Equal(t, folded, store.Operands[1])
}

func TestConstantFoldDivision(t *testing.T) {
	body := ir.NewBlock(nil)
	a := &ir.Statement{ID: 1, Tag: ir.TagConstI32, IntImm: 9}
	b := &ir.Statement{ID: 2, Tag: ir.TagConstI32, IntImm: 2}
	div := &ir.Statement{ID: 3, Tag: ir.TagDiv}
	div.AddOperand(a)
	div.AddOperand(b)
	p := &ir.Statement{ID: 4, Tag: ir.TagGlobalPtr, Type: ir.TypePtr}
	store := &ir.Statement{ID: 5, Tag: ir.TagGlobalStore}
	store.AddOperand(p)
	store.AddOperand(div)
	for _, s := range []*ir.Statement{a, b, div, p, store} {
		body.Insert(s)
	}

	r := transform.ConstantFold(body, config.Default(), qlog.Nop())
	require.Equal(t, transform.Modified, r)
	require.Equal(t, int64(4), store.Operands[1].IntImm)
}

func TestRemoveRangeAssumptionErasesMarker(t *testing.T) {
	body := ir.NewBlock(nil)
	underlying := &ir.Statement{ID: 1, Tag: ir.TagConstI32, IntImm: 7}
	marker := &ir.Statement{ID: 2, Tag: ir.TagRangeAssumption}
	marker.AddOperand(underlying)
	user := &ir.Statement{ID: 3, Tag: ir.TagLocalStore}
	user.AddOperand(marker)
	for _, s := range []*ir.Statement{underlying, marker, user} {
		body.Insert(s)
	}

	r := transform.RemoveRangeAssumption(body, config.Default(), qlog.Nop())
	require.Equal(t, transform.Modified, r)
	require.Equal(t, underlying, user.Operands[0])
}

func TestMakeBlockLocalStagesFlaggedSNode(t *testing.T) {
	root := ir.NewSNode(0, ir.SNodeRoot, nil)
	dense := ir.NewSNode(1, ir.SNodeDense, root)
	place := ir.NewSNode(2, ir.SNodePlace, dense)

	task := ir.NewOffloadedTask(1, ir.TaskStructFor)
	task.TargetSNode = dense
	task.MemAccessOpt[place] = true
	ptr := &ir.Statement{ID: 1, Tag: ir.TagGlobalPtr, SNode: place}
	task.Body.Insert(ptr)

	r := transform.MakeBlockLocal(task, config.Default(), qlog.Nop())
	require.Equal(t, transform.Modified, r)
	require.NotNil(t, task.BLSPrologue)
	require.NotNil(t, task.BLSEpilogue)
	require.Greater(t, task.BLSSize, 0)
}

func TestCheckOutOfBoundInsertsGuardWhenEnabled(t *testing.T) {
	root := ir.NewSNode(0, ir.SNodeRoot, nil)
	dyn := ir.NewSNode(1, ir.SNodeDynamic, root)

	body := ir.NewBlock(nil)
	ptr := &ir.Statement{ID: 1, Tag: ir.TagGlobalPtr, SNode: dyn}
	body.Insert(ptr)

	cfg := config.Default()
	cfg.DebugOutOfBound = true
	r := transform.CheckOutOfBound(body, cfg, qlog.Nop())
	require.Equal(t, transform.Modified, r)
	require.Len(t, body.Stmts, 2)
	require.Equal(t, ir.TagBoundsGuard, body.Stmts[1].Tag)
}
