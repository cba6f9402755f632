package transform

import (
	"github.com/Genesis-Embodied-AI/quadrants/analysis"
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// CFGOptimization rebuilds the control-flow graph for body and runs
// basic-block merging, store-to-load forwarding, and dead-store elimination
// to a local fixed point. Those steps edit the statements of body in place;
// there is no separate write-back of the graph.
func CFGOptimization(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger) Result {
	graph := analysis.BuildCFG(body)
	modified := false
	for i := 0; i < 32; i++ {
		round := false
		if graph.SimplifyGraph() {
			round = true
		}
		if graph.StoreToLoadForwarding() {
			round = true
		}
		if graph.DeadStoreElimination() {
			round = true
		}
		if !round {
			break
		}
		modified = true
	}
	if cfg != nil && cfg.DumpCFG && log != nil {
		log.Debugw("cfg_optimization converged", "modified", modified, "blocks", len(graph.Nodes))
	}
	if modified {
		return Modified
	}
	return Unchanged
}
