package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Genesis-Embodied-AI/quadrants/internal/errs"
)

// tcbVersion is the version triple stamped into qdcache.tcb.
type tcbVersion struct {
	Major, Minor, Patch int
}

var currentTCBVersion = tcbVersion{1, 0, 0}

// KernelCacheMeta is one qdcache.tcb entry: everything needed to decide
// eviction order and to answer a lookup without opening the .qdc file.
type KernelCacheMeta struct {
	Size         int64  `json:"size"`
	Architecture uint32 `json:"architecture"`
	Args         string `json:"args"`
	Rets         string `json:"rets"`
	RetType      string `json:"ret_type"`
	ArgsType     string `json:"args_type"`
	CreatedAt    int64  `json:"created_at"`  // unix nanos
	LastUsedAt   int64  `json:"last_used_at"`
}

// tcbFile is the serialized form of qdcache.tcb: a version triple, total
// size, and the fingerprint → KernelCacheMeta index.
type tcbFile struct {
	Version   tcbVersion                  `json:"version"`
	TotalSize int64                       `json:"total_size"`
	Entries   map[string]*KernelCacheMeta `json:"entries"`
}

func loadTCB(path string) (*tcbFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &tcbFile{Version: currentTCBVersion, Entries: make(map[string]*KernelCacheMeta)}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.DeviceError, err, "reading qdcache.tcb")
	}
	var f tcbFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errs.Wrap(errs.DeviceError, err, "parsing qdcache.tcb")
	}
	if f.Entries == nil {
		f.Entries = make(map[string]*KernelCacheMeta)
	}
	return &f, nil
}

// saveTCB writes the metadata file atomically: a temp file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// truncated qdcache.tcb that open() would choke on.
func saveTCB(path string, f *tcbFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errs.Wrap(errs.DeviceError, err, "marshalling qdcache.tcb")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Wrap(errs.DeviceError, err, "writing qdcache.tcb temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Wrap(errs.DeviceError, err, "renaming qdcache.tcb into place")
	}
	return nil
}

func kernelDir(root string) string {
	return filepath.Join(root, "kernel_compilation_manager")
}

func tcbPath(root string) string {
	return filepath.Join(kernelDir(root), "qdcache.tcb")
}

func qdcPath(root, fingerprint string) string {
	return filepath.Join(root, "kernel_compilation_manager", fingerprint+".qdc")
}
