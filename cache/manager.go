package cache

import (
	"os"
	"sync"

	"github.com/Genesis-Embodied-AI/quadrants/codegen"
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/errs"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
)

// Manager owns the on-disk kernel_compilation_manager directory plus its
// in-memory mirror. One Manager per process: CacheKernel and Lookup both
// take lock, so there is never more than one writer touching the metadata
// index or a given .qdc file at a time.
type Manager struct {
	mu         sync.Mutex
	root       string
	tcb        *tcbFile
	dirty      map[string]*QDCFile         // fingerprint -> not-yet-dumped payload
	memory     map[string]*KernelCacheMeta // fingerprint -> entry never written to qdcache.tcb
	memPayload map[string]*QDCFile         // fingerprint -> payload for a memory-only entry, process lifetime only
	log        *qlog.Logger
	clean      Cleaner
}

// Open loads qdcache.tcb from root (creating an empty index if absent) and
// sweeps .qdc files that have no corresponding metadata entry — the
// metadata file is the sole authority on what is live.
func Open(root string, log *qlog.Logger, clean Cleaner) (*Manager, error) {
	if err := os.MkdirAll(kernelDir(root), 0o755); err != nil {
		return nil, errs.Wrap(errs.DeviceError, err, "creating kernel_compilation_manager directory")
	}
	tcb, err := loadTCB(tcbPath(root))
	if err != nil {
		return nil, err
	}
	m := &Manager{
		root:       root,
		tcb:        tcb,
		dirty:      make(map[string]*QDCFile),
		memory:     make(map[string]*KernelCacheMeta),
		memPayload: make(map[string]*QDCFile),
		log:        log,
		clean:      clean,
	}
	if err := m.sweepOrphans(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) sweepOrphans() error {
	entries, err := os.ReadDir(kernelDir(m.root))
	if err != nil {
		return errs.Wrap(errs.DeviceError, err, "listing kernel_compilation_manager directory")
	}
	for _, e := range entries {
		name := e.Name()
		if len(name) < 4 || name[len(name)-4:] != ".qdc" {
			continue
		}
		fp := name[:len(name)-4]
		if _, ok := m.tcb.Entries[fp]; !ok {
			if err := os.Remove(qdcPath(m.root, fp)); err != nil && m.log != nil {
				m.log.Warnw("failed to remove orphaned qdc file", "fingerprint", fp, "err", err)
			}
		}
	}
	return nil
}

// Lookup reports whether fingerprint is already cached, either on disk or
// pending a dump, without deserializing the payload.
func (m *Manager) Lookup(fingerprint string) (*KernelCacheMeta, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if meta, ok := m.tcb.Entries[fingerprint]; ok {
		return meta, true
	}
	meta, ok := m.memory[fingerprint]
	return meta, ok
}

// Entries returns a snapshot copy of the fingerprint -> metadata index, for
// callers that need to enumerate the cache (e.g. the CLI's cache list
// command).
func (m *Manager) Entries() map[string]*KernelCacheMeta {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*KernelCacheMeta, len(m.tcb.Entries)+len(m.memory))
	for fp, meta := range m.tcb.Entries {
		copied := *meta
		out[fp] = &copied
	}
	for fp, meta := range m.memory {
		copied := *meta
		out[fp] = &copied
	}
	return out
}

// CacheKernel records a freshly compiled task under fingerprint. Calling it
// twice for the same fingerprint without an intervening eviction is a
// programmer error — the caller should have looked up first — and returns
// CacheFingerprintCollision.
func (m *Manager) CacheKernel(fingerprint string, cfg *config.CompileConfig, compiled *codegen.CompiledTask, meta KernelMetadata, now int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tcb.Entries[fingerprint]; ok {
		return errs.New(errs.CacheFingerprintCollision, "fingerprint %q already cached", fingerprint)
	}
	if _, ok := m.memory[fingerprint]; ok {
		return errs.New(errs.CacheFingerprintCollision, "fingerprint %q already cached", fingerprint)
	}

	qf := &QDCFile{
		ArchTag:  uint32(compiled.Arch),
		Metadata: meta.marshal(),
		Payload:  compiled.Artifact,
	}
	encoded := qf.Encode()

	entry := &KernelCacheMeta{
		Size:         int64(len(encoded)),
		Architecture: uint32(compiled.Arch),
		Args:         join(meta.Args),
		Rets:         join(meta.Rets),
		RetType:      meta.RetType,
		ArgsType:     meta.ArgsType,
		CreatedAt:    now,
		LastUsedAt:   now,
	}

	if !cfg.OfflineCacheOn {
		// In-memory only: this process sees it as cached, but it is never
		// added to the tcb index or written to disk, so it never survives a
		// Dump/Open cycle.
		m.memory[fingerprint] = entry
		m.memPayload[fingerprint] = qf
		return nil
	}

	m.tcb.Entries[fingerprint] = entry
	m.tcb.TotalSize += entry.Size
	m.dirty[fingerprint] = qf
	return nil
}

// Touch updates LastUsedAt for a cache hit, feeding the eviction Cleaner.
func (m *Manager) Touch(fingerprint string, now int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.tcb.Entries[fingerprint]; ok {
		e.LastUsedAt = now
		return
	}
	if e, ok := m.memory[fingerprint]; ok {
		e.LastUsedAt = now
	}
}

// Load returns a cached entry's decoded .qdc contents: a not-yet-dumped or
// memory-only entry (OfflineCacheOn was false when it was cached) is served
// from memory, anything else is read and decoded from disk. Callers should
// have checked Lookup first; a miss here after a Lookup hit means the file
// was evicted.
func (m *Manager) Load(fingerprint string) (*QDCFile, error) {
	m.mu.Lock()
	if qf, ok := m.dirty[fingerprint]; ok {
		m.mu.Unlock()
		return qf, nil
	}
	if qf, ok := m.memPayload[fingerprint]; ok {
		m.mu.Unlock()
		return qf, nil
	}
	m.mu.Unlock()

	data, err := os.ReadFile(qdcPath(m.root, fingerprint))
	if err != nil {
		return nil, errs.Wrap(errs.DeviceError, err, "reading cached qdc file")
	}
	return DecodeQDC(data)
}

// Dump writes every not-yet-persisted .qdc file plus the metadata index,
// then runs the configured Cleaner if the total size exceeds its bound.
// The metadata file is written last and atomically so a crash mid-dump
// never advertises an entry whose .qdc file doesn't exist yet.
func (m *Manager) Dump() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for fp, qf := range m.dirty {
		if err := os.WriteFile(qdcPath(m.root, fp), qf.Encode(), 0o644); err != nil {
			return errs.Wrap(errs.DeviceError, err, "writing qdc file")
		}
		delete(m.dirty, fp)
	}

	if m.clean != nil {
		evicted := m.clean.Evict(m.tcb.Entries, m.tcb.TotalSize)
		for _, fp := range evicted {
			if e, ok := m.tcb.Entries[fp]; ok {
				m.tcb.TotalSize -= e.Size
				delete(m.tcb.Entries, fp)
				_ = os.Remove(qdcPath(m.root, fp))
			}
		}
	}

	return saveTCB(tcbPath(m.root), m.tcb)
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
