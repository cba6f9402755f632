package offload_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
	"github.com/Genesis-Embodied-AI/quadrants/offload"
)

func TestOffloadSerialKernel(t *testing.T) {
	body := ir.NewBlock(nil)
	a := &ir.Statement{ID: 1, Tag: ir.TagArgLoad}
	b := &ir.Statement{ID: 2, Tag: ir.TagArgLoad}
	c := &ir.Statement{ID: 3, Tag: ir.TagAdd}
	c.AddOperand(a)
	c.AddOperand(b)
	p := &ir.Statement{ID: 4, Tag: ir.TagGlobalPtr}
	store := &ir.Statement{ID: 5, Tag: ir.TagGlobalStore}
	store.AddOperand(p)
	store.AddOperand(c)
	for _, s := range []*ir.Statement{a, b, c, p, store} {
		body.Insert(s)
	}

	tasks, _ := offload.Offload(body, config.Default(), qlog.Nop(), 1)
	require.Len(t, tasks, 1)
	require.Equal(t, ir.TaskSerial, tasks[0].Kind)
	require.Len(t, tasks[0].Body.Stmts, 5)
}

func TestOffloadEmptyBodyProducesSingleSerialTask(t *testing.T) {
	body := ir.NewBlock(nil)
	tasks, _ := offload.Offload(body, config.Default(), qlog.Nop(), 1)
	require.Len(t, tasks, 1)
	require.Equal(t, ir.TaskSerial, tasks[0].Kind)
}

func TestOffloadRangeFor(t *testing.T) {
	body := ir.NewBlock(nil)
	loop := &ir.Statement{ID: 1, Tag: ir.TagRangeFor, Begin: 0, End: 100}
	loop.Body = ir.NewBlock(loop)
	store := &ir.Statement{ID: 2, Tag: ir.TagGlobalStore}
	loop.Body.Insert(store)
	body.Insert(loop)

	tasks, _ := offload.Offload(body, config.Default(), qlog.Nop(), 1)
	require.Len(t, tasks, 1)
	require.Equal(t, ir.TaskRangeFor, tasks[0].Kind)
	require.Equal(t, int64(0), tasks[0].Begin)
	require.Equal(t, int64(100), tasks[0].End)
	require.Equal(t, int64(1), tasks[0].Step)
}

func TestOffloadReversedRangeForSetsStepNegative(t *testing.T) {
	body := ir.NewBlock(nil)
	loop := &ir.Statement{ID: 1, Tag: ir.TagRangeFor, Begin: 0, End: 10, Reversed: true}
	loop.Body = ir.NewBlock(loop)
	body.Insert(loop)

	tasks, _ := offload.Offload(body, config.Default(), qlog.Nop(), 1)
	require.Equal(t, int64(-1), tasks[0].Step)
	require.Equal(t, int64(0), tasks[0].Begin)
	require.Equal(t, int64(10), tasks[0].End)
}

func TestOffloadStructForOnDenseSkipsListGen(t *testing.T) {
	root := ir.NewSNode(0, ir.SNodeRoot, nil)
	dense := ir.NewSNode(1, ir.SNodeDense, root)

	body := ir.NewBlock(nil)
	loop := &ir.Statement{ID: 1, Tag: ir.TagStructFor, SNode: dense}
	loop.Body = ir.NewBlock(loop)
	body.Insert(loop)

	tasks, _ := offload.Offload(body, config.Default(), qlog.Nop(), 1)
	require.Len(t, tasks, 1)
	require.Equal(t, ir.TaskStructFor, tasks[0].Kind)
}

func TestOffloadStructForOnDynamicPrecededByListGenAndTrailingGC(t *testing.T) {
	root := ir.NewSNode(0, ir.SNodeRoot, nil)
	dyn := ir.NewSNode(1, ir.SNodeDynamic, root)

	body := ir.NewBlock(nil)
	loop := &ir.Statement{ID: 1, Tag: ir.TagStructFor, SNode: dyn}
	loop.Body = ir.NewBlock(loop)
	body.Insert(loop)

	tasks, _ := offload.Offload(body, config.Default(), qlog.Nop(), 1)
	require.Len(t, tasks, 3)
	require.Equal(t, ir.TaskListGen, tasks[0].Kind)
	require.Equal(t, ir.TaskStructFor, tasks[1].Kind)
	require.Equal(t, ir.TaskGC, tasks[2].Kind)
}
