// Package transform implements the ordered IR transformation passes that
// lower a kernel body toward offloadable form. Each pass takes (IRNode,
// CompileConfig, pass-specific args) and reports a Result; passes preserve
// IR well-formedness on success and leave the IR unchanged on failure.
package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// Result is the outcome of running a pass: whether it left the IR
// untouched, rewrote it in place, or needs its sub-pipeline restarted.
type Result int

const (
	Unchanged Result = iota
	Modified
	Restart
)

// Pass is the common signature of the transforms in this package that work
// on a Block: the kernel body before offload, or a task body after it.
type Pass func(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result

// TaskPass is the signature for passes that run after offload, once the
// kernel body has been split into OffloadedTasks and BLS/TLS staging
// becomes meaningful (make_block_local, make_mesh_thread_local,
// insert_scratch_pad).
type TaskPass func(task *ir.OffloadedTask, cfg *config.CompileConfig, log *qlog.Logger) Result

// RunToFixedPoint applies pass repeatedly until it reports Unchanged,
// restarting (not looping forever) when it reports Restart — the
// orchestrator-level recovery for a pass that needs its sub-pipeline
// re-run from scratch. maxIters bounds pathological non-termination.
func RunToFixedPoint(pass Pass, body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger, maxIters int) Result {
	overall := Unchanged
	for i := 0; i < maxIters; i++ {
		r := pass(body, cfg, log)
		if r == Unchanged {
			return overall
		}
		overall = Modified
		if r == Restart {
			continue
		}
	}
	return overall
}
