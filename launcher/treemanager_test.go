package launcher_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Genesis-Embodied-AI/quadrants/codegen"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
	"github.com/Genesis-Embodied-AI/quadrants/launcher"
)

func TestSNodeTreeBufferManagerAllocateAndRoot(t *testing.T) {
	dev := newFakeDevice()
	mgr := launcher.NewSNodeTreeBufferManager(dev)

	_, ok := mgr.Root(1)
	require.False(t, ok)

	alloc, err := mgr.Allocate(1, 256)
	require.NoError(t, err)

	got, ok := mgr.Root(1)
	require.True(t, ok)
	require.Equal(t, alloc, got)
}

func TestSNodeTreeBufferManagerAllocateTwiceErrors(t *testing.T) {
	dev := newFakeDevice()
	mgr := launcher.NewSNodeTreeBufferManager(dev)

	_, err := mgr.Allocate(1, 256)
	require.NoError(t, err)

	_, err = mgr.Allocate(1, 256)
	require.Error(t, err)
}

func TestSNodeTreeBufferManagerDestroyAbsentTreeIsNoOp(t *testing.T) {
	dev := newFakeDevice()
	mgr := launcher.NewSNodeTreeBufferManager(dev)
	require.NoError(t, mgr.Destroy(42))
}

func TestSNodeTreeBufferManagerDestroyFreesAndForgets(t *testing.T) {
	dev := newFakeDevice()
	mgr := launcher.NewSNodeTreeBufferManager(dev)

	_, err := mgr.Allocate(1, 256)
	require.NoError(t, err)
	require.NoError(t, mgr.Destroy(1))

	_, ok := mgr.Root(1)
	require.False(t, ok)

	// Allocating again after destroy must succeed since the tree id is free.
	_, err = mgr.Allocate(1, 256)
	require.NoError(t, err)
}

func TestLaunchAllocatesTreeRootForStructForTask(t *testing.T) {
	dev := newFakeDevice()
	l := launcher.New(dev, qlog.Nop())

	target := ir.NewSNode(1, ir.SNodeDense, nil)
	task := ir.NewOffloadedTask(1, ir.TaskStructFor)
	task.TargetSNode = target

	req := launcher.LaunchRequest{
		Tasks:           []*ir.OffloadedTask{task},
		Compiled:        []*codegen.CompiledTask{{EntryPoint: "task_1_struct_for"}},
		Session:         fakeSession{},
		GraphWhileArgID: -1,
	}
	_, err := l.Launch(req)
	require.NoError(t, err)

	_, ok := l.Trees.Root(target.TreeID)
	require.True(t, ok)
}

func TestLaunchReusesExistingTreeRootAcrossLaunches(t *testing.T) {
	dev := newFakeDevice()
	l := launcher.New(dev, qlog.Nop())

	target := ir.NewSNode(1, ir.SNodeDense, nil)
	task := ir.NewOffloadedTask(1, ir.TaskStructFor)
	task.TargetSNode = target

	req := launcher.LaunchRequest{
		Tasks:           []*ir.OffloadedTask{task},
		Compiled:        []*codegen.CompiledTask{{EntryPoint: "task_1_struct_for"}},
		Session:         fakeSession{},
		GraphWhileArgID: -1,
	}
	_, err := l.Launch(req)
	require.NoError(t, err)
	first, _ := l.Trees.Root(target.TreeID)

	_, err = l.Launch(req)
	require.NoError(t, err)
	second, _ := l.Trees.Root(target.TreeID)

	require.Equal(t, first, second)
}
