package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Genesis-Embodied-AI/quadrants/ir"
	"github.com/Genesis-Embodied-AI/quadrants/testutil"
)

func TestSerialAddStoreWellFormed(t *testing.T) {
	body := testutil.SerialAddStore()
	require.Len(t, body.Stmts, 5)
	require.Equal(t, ir.TagGlobalStore, body.Stmts[len(body.Stmts)-1].Tag)
}

func TestRangeForKernelWrapsBodyWithBounds(t *testing.T) {
	inner := testutil.SerialAddStore()
	outer := testutil.RangeForKernel(0, 16, inner)
	require.Len(t, outer.Stmts, 1)
	loop := outer.Stmts[0]
	require.Equal(t, ir.TagRangeFor, loop.Tag)
	require.Equal(t, int64(0), loop.Begin)
	require.Equal(t, int64(16), loop.End)
	require.Same(t, inner, loop.Body)
}

func TestDenseSNodeChainLength(t *testing.T) {
	leaf := testutil.DenseSNodeChain(3)
	depth := 0
	for n := leaf; n != nil; n = n.Parent {
		depth++
	}
	require.Equal(t, 3, depth)
	require.False(t, leaf.RequiresListGen())
}

func TestOneTaskSerialHasBody(t *testing.T) {
	task := testutil.OneTaskSerial(9)
	require.Equal(t, 9, task.ID)
	require.Equal(t, ir.TaskSerial, task.Kind)
	require.NotEmpty(t, task.Body.Stmts)
}
