// Package codegen defines the backend-agnostic KernelCodeGen contract every
// architecture facade implements: the LLVM-IR builder (codegen/llvmgen,
// CPU/CUDA/AMDGPU) and the SPIR-V emitter (codegen/spirv, Metal/Vulkan).
// This package does not choose a backend from CompileConfig.Arch; the
// pipeline package owns that switch.
package codegen

import (
	"fmt"

	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// CompiledTask is the backend-produced artifact for one OffloadedTask: a
// self-contained blob (LLVM bitcode text for the LLVM path, a SPIR-V module
// for the Metal/Vulkan path) plus the entry symbol the launcher invokes.
type CompiledTask struct {
	TaskID     int
	Arch       config.Arch
	EntryPoint string
	Artifact   []byte
}

// ModuleOpt and BlockOpt are the tuning knobs compile_task accepts;
// kept as separate structs (rather than folded into CompileConfig) because
// they are codegen-only and never participate in the cache fingerprint.
type ModuleOpt struct {
	OptLevel int
}

type BlockOpt struct {
	VectorizeWidth int
}

// KernelCodeGen is the facade every backend architecture implements. The
// pipeline's only contract with a backend is this function signature plus
// the requirement that its output round-trips through the cache format.
type KernelCodeGen interface {
	CompileTask(task *ir.OffloadedTask, cfg *config.CompileConfig, mopt ModuleOpt, bopt BlockOpt) (*CompiledTask, error)
	Arch() config.Arch
}

// CompileTasks runs every task in order through backend, returning the
// first error encountered (compile_task is not expected to partially
// succeed: a failed task means the whole kernel failed to compile).
func CompileTasks(backend KernelCodeGen, tasks []*ir.OffloadedTask, cfg *config.CompileConfig, mopt ModuleOpt, bopt BlockOpt) ([]*CompiledTask, error) {
	out := make([]*CompiledTask, 0, len(tasks))
	for _, t := range tasks {
		compiled, err := backend.CompileTask(t, cfg, mopt, bopt)
		if err != nil {
			return nil, fmt.Errorf("compile_task(task_id=%d, kind=%s): %w", t.ID, t.Kind, err)
		}
		out = append(out, compiled)
	}
	return out, nil
}
