package launcher

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Genesis-Embodied-AI/quadrants/codegen"
	"github.com/Genesis-Embodied-AI/quadrants/internal/errs"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

const resultBufferMinSize = 8 // sizeof(uint64)

// LaunchRequest bundles everything one kernel invocation needs: the
// compiled task sequence (in OffloadedTask order, each entry paired with
// its compiled artifact by index), the caller's argument list, and the
// graph-batching options.
type LaunchRequest struct {
	Tasks    []*ir.OffloadedTask
	Compiled []*codegen.CompiledTask
	Session  JitSession
	Args     []Argument

	UseCUDAGraph bool
	// GraphWhileArgID indexes into Args for the loop-continuation flag, or
	// -1 if this launch has no graph-while wrapper.
	GraphWhileArgID int
	// LaunchID keys the persistent CUDA-graph buffers/handle across repeated
	// launches of the same kernel; callers should reuse the same id for
	// every invocation of a given cached kernel.
	LaunchID string
}

// Launcher binds arguments to device memory and dispatches a compiled
// kernel's tasks. One Launcher serves many kernels; graph state is
// namespaced per LaunchID. Trees owns every SNode-tree root buffer this
// launcher's Device has allocated.
type Launcher struct {
	dev   Device
	log   *qlog.Logger
	Trees *SNodeTreeBufferManager

	mu     sync.Mutex
	graphs map[string]*graphState
}

type graphState struct {
	handle   GraphHandle
	argAlloc DeviceAllocation
	resAlloc DeviceAllocation
}

func New(dev Device, log *qlog.Logger) *Launcher {
	return &Launcher{dev: dev, log: log, Trees: NewSNodeTreeBufferManager(dev), graphs: make(map[string]*graphState)}
}

// Launch implements the per-launch sequence: resolve arguments, allocate
// scratch, invoke tasks (via the CUDA-graph fast path when requested and
// eligible), copy results back, and release launcher-owned allocations.
func (l *Launcher) Launch(req LaunchRequest) ([]byte, error) {
	if req.GraphWhileArgID < 0 {
		req.GraphWhileArgID = -1
	}
	graphEligible := req.UseCUDAGraph && l.dev.SupportsGraphs() &&
		(len(req.Tasks) >= 2 || req.GraphWhileArgID >= 0)

	resolved, err := resolveArguments(l.dev, req.Args)
	if err != nil {
		return nil, err
	}
	defer l.releaseOwned(resolved)

	if err := l.ensureTreeRoots(req.Tasks); err != nil {
		return nil, err
	}

	resultAlloc, err := l.dev.Allocate(resultBufferMinSize)
	if err != nil {
		return nil, err
	}
	defer l.dev.Free(resultAlloc)

	argBytes := packArgBuffer(resolved, addressOfStub)
	argAlloc, err := l.dev.Allocate(len(argBytes))
	if err != nil {
		return nil, err
	}
	defer l.dev.Free(argAlloc)
	if err := l.dev.CopyHostToDevice(argAlloc, argBytes); err != nil {
		return nil, err
	}

	rc := RuntimeContext{
		ArgBufferPtr:    addressOfStub(argAlloc),
		ResultBufferPtr: addressOfStub(resultAlloc),
		NumCPUThreads:   1,
	}
	rcAlloc, err := l.dev.Allocate(runtimeContextSize)
	if err != nil {
		return nil, err
	}
	defer l.dev.Free(rcAlloc)
	if err := l.dev.CopyHostToDevice(rcAlloc, rc.Encode()); err != nil {
		return nil, err
	}

	if graphEligible {
		if err := l.launchViaGraph(req, argAlloc, argBytes, rcAlloc); err != nil {
			return nil, err
		}
	} else if req.GraphWhileArgID >= 0 {
		if err := l.launchGraphWhileHostLoop(req, rcAlloc, resolved[req.GraphWhileArgID].buf); err != nil {
			return nil, err
		}
	} else {
		if err := l.invokeAll(req, rcAlloc); err != nil {
			return nil, err
		}
	}

	result := make([]byte, resultBufferMinSize)
	if err := l.dev.CopyDeviceToHost(result, resultAlloc); err != nil {
		return nil, err
	}
	for i, r := range resolved {
		if r.owned && req.Args[i].Kind == ArgArray {
			if err := l.dev.CopyDeviceToHost(req.Args[i].HostData, r.buf); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func (l *Launcher) invokeAll(req LaunchRequest, rcAlloc DeviceAllocation) error {
	for i, task := range req.Tasks {
		fn, err := req.Session.Lookup(req.Compiled[i].EntryPoint)
		if err != nil {
			return errs.Wrap(errs.DeviceError, err, "looking up task entry point")
		}
		grid := gridDim(task)
		if err := l.dev.Launch(fn, grid, task.BlockDim, rcAlloc); err != nil {
			return errs.Wrap(errs.DeviceError, err, "launching task")
		}
	}
	return nil
}

func gridDim(task *ir.OffloadedTask) int {
	if task.NumCPUThreads > 1 {
		return task.NumCPUThreads
	}
	return 1
}

func (l *Launcher) launchViaGraph(req LaunchRequest, argAlloc DeviceAllocation, argBytes []byte, rcAlloc DeviceAllocation) error {
	sess, ok := l.dev.(interface{ Graph() GraphSession })
	if !ok {
		return l.invokeAll(req, rcAlloc)
	}
	graphSession := sess.Graph()

	l.mu.Lock()
	gs, exists := l.graphs[req.LaunchID]
	l.mu.Unlock()
	if exists {
		if err := graphSession.Replay(gs.handle, argBytes); err != nil {
			return errs.Wrap(errs.DeviceError, err, "replaying persistent cuda graph")
		}
		return nil
	}

	nodes := make([]GraphNode, len(req.Tasks))
	for i, task := range req.Tasks {
		fn, err := req.Session.Lookup(req.Compiled[i].EntryPoint)
		if err != nil {
			return errs.Wrap(errs.DeviceError, err, "looking up task entry point for graph instantiation")
		}
		nodes[i] = GraphNode{Fn: fn, GridDim: gridDim(task), BlockDim: task.BlockDim}
	}
	handle, err := graphSession.Instantiate(nodes)
	if err != nil {
		return errs.Wrap(errs.DeviceError, err, "instantiating cuda graph")
	}

	l.mu.Lock()
	l.graphs[req.LaunchID] = &graphState{handle: handle, argAlloc: argAlloc, resAlloc: rcAlloc}
	l.mu.Unlock()
	return nil
}

// launchGraphWhileHostLoop implements the non-graph fallback for a
// graph-while kernel: repeat the task sequence, copying the continuation
// flag back to the host after each iteration, until it reads zero.
func (l *Launcher) launchGraphWhileHostLoop(req LaunchRequest, rcAlloc DeviceAllocation, flagAlloc DeviceAllocation) error {
	flag := make([]byte, 4)
	for {
		if err := l.invokeAll(req, rcAlloc); err != nil {
			return err
		}
		if err := l.dev.CopyDeviceToHost(flag, flagAlloc); err != nil {
			return err
		}
		if flag[0] == 0 && flag[1] == 0 && flag[2] == 0 && flag[3] == 0 {
			return nil
		}
	}
}

// treeRootElementSize is the conservative per-element width used to size a
// lazily-allocated SNode-tree root buffer; real element widths come from the
// tree's DType, but a struct_for/list_gen/gc task only needs the buffer to
// exist, not packed tightly.
const treeRootElementSize = 8

// ensureTreeRoots allocates the root buffer for every SNode tree a struct_for,
// list_gen, or gc task in this launch targets, if that tree has no root
// buffer yet. Root buffers outlive a single Launch call: once allocated they
// stay registered in l.Trees until the owning tree is destroyed.
func (l *Launcher) ensureTreeRoots(tasks []*ir.OffloadedTask) error {
	for _, task := range tasks {
		if task.TargetSNode == nil {
			continue
		}
		treeID := task.TargetSNode.TreeID
		if _, ok := l.Trees.Root(treeID); ok {
			continue
		}
		size := task.TargetSNode.MaxNumElements() * treeRootElementSize
		if _, err := l.Trees.Allocate(treeID, size); err != nil {
			return errs.Wrap(errs.DeviceError, err, "allocating snode tree root buffer")
		}
	}
	return nil
}

func (l *Launcher) releaseOwned(resolved []resolvedArg) {
	for _, r := range resolved {
		if r.owned {
			_ = l.dev.Free(r.buf)
		}
	}
}

// NewLaunchID mints a fresh launch id for a newly cached kernel.
func NewLaunchID() string {
	return uuid.NewString()
}

// addressOfStub is the in-process stand-in for querying a DeviceAllocation's
// raw device address; real backends resolve this through their driver
// handle instead of the allocation's opaque id.
func addressOfStub(a DeviceAllocation) uint64 {
	return a.id
}
