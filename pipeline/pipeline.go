// Package pipeline assembles the analysis/transform passes, the offloader,
// and the backend codegen facade into the canonical compile path: IR in,
// compiled+cached OffloadedTasks out. Grounded on the staged
// Run/Restart loop in the `standardbeagle-lci` indexing-pipeline reference.
package pipeline

import (
	"encoding/binary"
	"encoding/json"

	"github.com/Genesis-Embodied-AI/quadrants/analysis"
	"github.com/Genesis-Embodied-AI/quadrants/cache"
	"github.com/Genesis-Embodied-AI/quadrants/codegen"
	"github.com/Genesis-Embodied-AI/quadrants/codegen/llvmgen"
	"github.com/Genesis-Embodied-AI/quadrants/codegen/spirv"
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/errs"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
	"github.com/Genesis-Embodied-AI/quadrants/offload"
	"github.com/Genesis-Embodied-AI/quadrants/transform"
)

const maxSubPipelineIters = 16

// Backend constructs the codegen.KernelCodeGen implementation for an Arch.
// This is the one place config.Arch dispatches to a concrete backend,
// kept here rather than in codegen.go to avoid a codegen <-> llvmgen/spirv
// import cycle (see DESIGN.md's "codegen package" section).
func Backend(arch config.Arch, log *qlog.Logger) (codegen.KernelCodeGen, error) {
	if arch.IsLLVMBacked() {
		return llvmgen.New(arch, log), nil
	}
	if arch == config.ArchVulkan || arch == config.ArchMetal {
		return spirv.New(arch, log), nil
	}
	return nil, errs.New(errs.Unsupported, "no codegen backend for arch %s", arch)
}

// CompileResult bundles everything a caller needs to cache and later
// launch a compiled kernel.
type CompileResult struct {
	Fingerprint string
	Tasks       []*ir.OffloadedTask
	Compiled    []*codegen.CompiledTask
	FromCache   bool
}

// Compile runs the full pipeline from a simplified kernel body to a
// compiled+cached task list, consulting cacheMgr before touching codegen:
// on a cache hit, no pass or backend runs at all.
func Compile(body *ir.Block, cfg *config.CompileConfig, caps *config.DeviceCapabilityConfig, log *qlog.Logger, cacheMgr *cache.Manager, mopt codegen.ModuleOpt, bopt codegen.BlockOpt, nowUnixNano int64) (*CompileResult, error) {
	key := analysis.OfflineCacheKey(body, cfg, caps)
	fingerprint := fingerprintString(key)

	if cacheMgr != nil {
		if _, hit := cacheMgr.Lookup(fingerprint); hit {
			cacheMgr.Touch(fingerprint, nowUnixNano)
			qf, err := cacheMgr.Load(fingerprint)
			if err != nil {
				return nil, err
			}
			compiled, err := unpackCompiledTasks(qf, config.Arch(qf.ArchTag))
			if err != nil {
				return nil, err
			}
			return &CompileResult{Fingerprint: fingerprint, Compiled: compiled, FromCache: true}, nil
		}
	}

	tasks, err := runPasses(body, cfg, log)
	if err != nil {
		return nil, err
	}

	backend, err := Backend(cfg.Arch, log)
	if err != nil {
		return nil, err
	}
	compiled, err := codegen.CompileTasks(backend, tasks, cfg, mopt, bopt)
	if err != nil {
		return nil, err
	}

	if cacheMgr != nil {
		qf := packCompiledTasks(compiled, cfg.Arch)
		meta := cache.KernelMetadata{}
		if err := cacheMgr.CacheKernel(fingerprint, cfg, qf, meta, nowUnixNano); err != nil && !errs.IsKind(err, errs.CacheFingerprintCollision) {
			return nil, err
		}
	}

	return &CompileResult{Fingerprint: fingerprint, Tasks: tasks, Compiled: compiled, FromCache: false}, nil
}

// packCompiledTasks bundles a kernel's compiled artifacts into one
// codegen.CompiledTask whose Artifact is the length-prefixed concatenation
// of every task's bytes, since the on-disk cache stores one .qdc file per
// kernel fingerprint, not per task.
func packCompiledTasks(tasks []*codegen.CompiledTask, arch config.Arch) *codegen.CompiledTask {
	type entry struct {
		TaskID     int    `json:"task_id"`
		EntryPoint string `json:"entry_point"`
		Length     int    `json:"length"`
	}
	var entries []entry
	var payload []byte
	for _, t := range tasks {
		entries = append(entries, entry{TaskID: t.TaskID, EntryPoint: t.EntryPoint, Length: len(t.Artifact)})
		payload = append(payload, t.Artifact...)
	}
	index, _ := json.Marshal(entries)
	var buf []byte
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(index)))
	buf = append(buf, lenBuf...)
	buf = append(buf, index...)
	buf = append(buf, payload...)
	return &codegen.CompiledTask{Arch: arch, Artifact: buf}
}

func unpackCompiledTasks(qf *cache.QDCFile, arch config.Arch) ([]*codegen.CompiledTask, error) {
	type entry struct {
		TaskID     int    `json:"task_id"`
		EntryPoint string `json:"entry_point"`
		Length     int    `json:"length"`
	}
	data := qf.Payload
	if len(data) < 4 {
		return nil, errs.New(errs.DeviceError, "cached kernel payload too short")
	}
	indexLen := binary.LittleEndian.Uint32(data[:4])
	rest := data[4:]
	if uint32(len(rest)) < indexLen {
		return nil, errs.New(errs.DeviceError, "cached kernel index truncated")
	}
	var entries []entry
	if err := json.Unmarshal(rest[:indexLen], &entries); err != nil {
		return nil, errs.Wrap(errs.DeviceError, err, "decoding cached kernel index")
	}
	payload := rest[indexLen:]
	out := make([]*codegen.CompiledTask, 0, len(entries))
	offset := 0
	for _, e := range entries {
		if offset+e.Length > len(payload) {
			return nil, errs.New(errs.DeviceError, "cached kernel payload shorter than index declares")
		}
		out = append(out, &codegen.CompiledTask{
			TaskID:     e.TaskID,
			Arch:       arch,
			EntryPoint: e.EntryPoint,
			Artifact:   payload[offset : offset+e.Length],
		})
		offset += e.Length
	}
	return out, nil
}

// runPasses implements the canonical ordering:
//
//	simplify_I -> constant_fold -> remove_loop_unique -> remove_range_assumption -> simplify_I
//	die -> offload -> simplify_II
//	cfg_optimization
//	lower_access -> simplify_III -> cfg_optimization
//	make_block_local / make_mesh_thread_local -> insert_scratch_pad -> simplify_III
//	die
func runPasses(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) ([]*ir.OffloadedTask, error) {
	runStage(body, cfg, log, transform.SimplifyI, transform.ConstantFold, transform.RemoveLoopUnique, transform.RemoveRangeAssumption, transform.SimplifyI)
	transform.DIE(body, cfg, log)

	tasks, _ := offload.Offload(body, cfg, log, 0)

	for _, t := range tasks {
		transform.RunToFixedPoint(transform.SimplifyII, t.Body, cfg, log, maxSubPipelineIters)
		transform.CFGOptimization(t.Body, cfg, log)
		transform.LowerAccess(t.Body, cfg, log)
		transform.RunToFixedPoint(transform.SimplifyIII, t.Body, cfg, log, maxSubPipelineIters)
		transform.CFGOptimization(t.Body, cfg, log)

		if t.Kind == ir.TaskStructFor {
			transform.MakeBlockLocal(t, cfg, log)
		}
		if t.Kind == ir.TaskMeshFor {
			transform.MakeMeshThreadLocal(t, cfg, log)
		}
		transform.InsertScratchPad(t, cfg, log)
		transform.RunToFixedPoint(transform.SimplifyIII, t.Body, cfg, log, maxSubPipelineIters)

		transform.CheckOutOfBound(t.Body, cfg, log)
		transform.DIE(t.Body, cfg, log)
	}

	return tasks, nil
}

// runStage runs each pass once in order; if any reports Restart, the whole
// stage restarts from the top, bounded by maxSubPipelineIters.
func runStage(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger, passes ...transform.Pass) {
	for i := 0; i < maxSubPipelineIters; i++ {
		restart := false
		for _, p := range passes {
			if p(body, cfg, log) == transform.Restart {
				restart = true
				break
			}
		}
		if !restart {
			return
		}
	}
}

func fingerprintString(key uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[key&0xf]
		key >>= 4
	}
	return string(buf)
}
