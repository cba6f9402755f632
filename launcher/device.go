// Package launcher binds per-invocation arguments to device memory, invokes
// a compiled kernel's OffloadedTasks, and copies results back: one
// abstract Device interface with swappable backends.
package launcher

import "github.com/Genesis-Embodied-AI/quadrants/config"

// DeviceAllocation is an opaque handle to a device-resident buffer, resolved
// to a raw device address only by the Device that allocated it.
type DeviceAllocation struct {
	id   uint64
	size int
}

// JitSession is a loaded compiled module: one per cached kernel, holding the
// function symbols the launcher invokes by name.
type JitSession interface {
	// Lookup returns the device-callable entry point for an OffloadedTask's
	// EntryPoint name. Every backend must implement this even when the
	// underlying driver doesn't support dynamic symbol lookup (e.g. a
	// pre-linked static module) — an unimplemented lookup is a fatal
	// "not implemented" error at launch time, never nil.
	Lookup(entryPoint string) (FunctionHandle, error)
}

// FunctionHandle is an opaque device-callable entry point.
type FunctionHandle struct {
	Symbol string
	taskID int
}

// Device is the abstract backend a launcher dispatches through: CPU thread
// pool, CUDA, AMDGPU, or the Metal/Vulkan SPIR-V path.
type Device interface {
	Arch() config.Arch

	// Allocate reserves a device-resident buffer of size bytes.
	Allocate(size int) (DeviceAllocation, error)
	// Free releases a DeviceAllocation obtained from Allocate.
	Free(alloc DeviceAllocation) error
	// CopyHostToDevice and CopyDeviceToHost transfer raw bytes.
	CopyHostToDevice(dst DeviceAllocation, src []byte) error
	CopyDeviceToHost(dst []byte, src DeviceAllocation) error

	// IsDevicePointer reports whether a caller-supplied pointer tag already
	// names a buffer resident on this device, avoiding a redundant copy.
	IsDevicePointer(tag uintptr) (DeviceAllocation, bool)

	// Launch invokes fn with (gridDim, blockDim, runtimeContextPtr).
	Launch(fn FunctionHandle, gridDim, blockDim int, runtimeContextPtr DeviceAllocation) error

	// SupportsGraphs reports whether this device can batch launches into a
	// persistent execution graph (true only for the CUDA backend here).
	SupportsGraphs() bool
}

// GraphSession captures the CUDA-graph fast path: instantiate once per
// launch id, then replay by copying only the argument buffer.
type GraphSession interface {
	// Instantiate records the given launch sequence as a graph, returning an
	// opaque graph handle.
	Instantiate(launches []GraphNode) (GraphHandle, error)
	// Replay copies argBuffer into the graph's persistent slot and executes
	// the pre-baked graph, skipping re-instantiation.
	Replay(handle GraphHandle, argBuffer []byte) error
}

// GraphNode is one launch recorded into a CUDA graph.
type GraphNode struct {
	Fn                FunctionHandle
	GridDim, BlockDim int
}

// GraphHandle is an opaque persistent graph handle. The Launcher keeps it
// under the request's LaunchID for the Launcher's lifetime; nothing
// releases it.
type GraphHandle struct {
	id uint64
}
