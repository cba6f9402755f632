package launcher_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Genesis-Embodied-AI/quadrants/codegen"
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
	"github.com/Genesis-Embodied-AI/quadrants/launcher"
)

type fakeDevice struct {
	nextID      uint64
	buffers     map[uint64][]byte
	launches    int
	graph       *fakeGraph
	graphCalled bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{buffers: make(map[uint64][]byte), graph: &fakeGraph{}}
}

func (d *fakeDevice) Arch() config.Arch { return config.ArchCUDA }

func (d *fakeDevice) Allocate(size int) (launcher.DeviceAllocation, error) {
	d.nextID++
	d.buffers[d.nextID] = make([]byte, size)
	return launcher.DeviceAllocation{}, nil
}

func (d *fakeDevice) Free(launcher.DeviceAllocation) error { return nil }

func (d *fakeDevice) CopyHostToDevice(dst launcher.DeviceAllocation, src []byte) error {
	return nil
}

func (d *fakeDevice) CopyDeviceToHost(dst []byte, src launcher.DeviceAllocation) error {
	return nil
}

func (d *fakeDevice) IsDevicePointer(tag uintptr) (launcher.DeviceAllocation, bool) {
	return launcher.DeviceAllocation{}, false
}

func (d *fakeDevice) Launch(fn launcher.FunctionHandle, gridDim, blockDim int, rc launcher.DeviceAllocation) error {
	d.launches++
	return nil
}

func (d *fakeDevice) SupportsGraphs() bool { return true }

func (d *fakeDevice) Graph() launcher.GraphSession { d.graphCalled = true; return d.graph }

type fakeGraph struct {
	instantiated int
	replayed     int
}

func (g *fakeGraph) Instantiate(nodes []launcher.GraphNode) (launcher.GraphHandle, error) {
	g.instantiated++
	return launcher.GraphHandle{}, nil
}

func (g *fakeGraph) Replay(handle launcher.GraphHandle, argBuffer []byte) error {
	g.replayed++
	return nil
}

type fakeSession struct{}

func (fakeSession) Lookup(entryPoint string) (launcher.FunctionHandle, error) {
	return launcher.FunctionHandle{Symbol: entryPoint}, nil
}

func serialTask(id int) *ir.OffloadedTask {
	return ir.NewOffloadedTask(id, ir.TaskSerial)
}

func TestLaunchInvokesEveryTaskOnce(t *testing.T) {
	dev := newFakeDevice()
	l := launcher.New(dev, qlog.Nop())

	req := launcher.LaunchRequest{
		Tasks:    []*ir.OffloadedTask{serialTask(1), serialTask(2)},
		Compiled: []*codegen.CompiledTask{{EntryPoint: "task_1"}, {EntryPoint: "task_2"}},
		Session:  fakeSession{},
		Args: []launcher.Argument{
			{Kind: launcher.ArgScalar, Scalar: []byte{1, 2, 3, 4}},
		},
		GraphWhileArgID: -1,
	}
	_, err := l.Launch(req)
	require.NoError(t, err)
	require.Equal(t, 2, dev.launches)
}

func TestLaunchUsesCUDAGraphFastPathOnSecondCall(t *testing.T) {
	dev := newFakeDevice()
	l := launcher.New(dev, qlog.Nop())

	req := launcher.LaunchRequest{
		Tasks:           []*ir.OffloadedTask{serialTask(1), serialTask(2)},
		Compiled:        []*codegen.CompiledTask{{EntryPoint: "task_1"}, {EntryPoint: "task_2"}},
		Session:         fakeSession{},
		UseCUDAGraph:    true,
		LaunchID:        "kernel-x",
		GraphWhileArgID: -1,
	}
	_, err := l.Launch(req)
	require.NoError(t, err)
	require.Equal(t, 1, dev.graph.instantiated)
	require.Equal(t, 0, dev.graph.replayed)

	_, err = l.Launch(req)
	require.NoError(t, err)
	require.Equal(t, 1, dev.graph.instantiated)
	require.Equal(t, 1, dev.graph.replayed)
}
