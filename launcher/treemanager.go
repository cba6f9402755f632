package launcher

import (
	"sync"

	"github.com/Genesis-Embodied-AI/quadrants/internal/errs"
)

// SNodeTreeBufferManager owns the per-SNode-tree root device buffer, keyed
// by tree id, and releases it when the owning tree is destroyed. Each
// Launcher creates its own instance, shared by every launch through it: a
// struct_for/list_gen/gc task only ever needs to resolve its target tree's
// root pointer, never allocate it itself.
type SNodeTreeBufferManager struct {
	mu  sync.Mutex
	dev Device

	roots map[int]DeviceAllocation // tree id -> root buffer
}

// NewSNodeTreeBufferManager constructs a manager allocating root buffers
// through dev.
func NewSNodeTreeBufferManager(dev Device) *SNodeTreeBufferManager {
	return &SNodeTreeBufferManager{dev: dev, roots: make(map[int]DeviceAllocation)}
}

// Allocate reserves the root buffer for treeID, sized to size bytes.
// Calling it twice for the same treeID without an intervening Destroy is a
// programmer error, since a tree's root buffer is allocated exactly once
// for its lifetime.
func (m *SNodeTreeBufferManager) Allocate(treeID int, size int) (DeviceAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roots[treeID]; ok {
		return DeviceAllocation{}, errs.New(errs.DeviceError, "snode tree %d already has a root buffer", treeID)
	}
	alloc, err := m.dev.Allocate(size)
	if err != nil {
		return DeviceAllocation{}, err
	}
	m.roots[treeID] = alloc
	return alloc, nil
}

// Root returns the root buffer previously allocated for treeID.
func (m *SNodeTreeBufferManager) Root(treeID int) (DeviceAllocation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alloc, ok := m.roots[treeID]
	return alloc, ok
}

// Destroy releases treeID's root buffer. Destroying a tree with no
// allocated root is a no-op: a tree that was declared but never
// materialized on this device has nothing to free.
func (m *SNodeTreeBufferManager) Destroy(treeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	alloc, ok := m.roots[treeID]
	if !ok {
		return nil
	}
	delete(m.roots, treeID)
	return m.dev.Free(alloc)
}
