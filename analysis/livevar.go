package analysis

import "github.com/Genesis-Embodied-AI/quadrants/ir"

// LiveVarAnalysisConfig chooses whether globals (SNode-backed loads/stores)
// are tracked by live-variable analysis, or only local/register values.
type LiveVarAnalysisConfig struct {
	TrackGlobals bool
}

// LiveVariableAnalysis computes live-in/live-out over the CFG via the
// standard backward data-flow fixed point:
//
//	live_out(b) = union of live_in(s) for s in succ(b)
//	live_in(b)  = uses(b) U (live_out(b) - defs(b))
func LiveVariableAnalysis(cfg *ControlFlowGraph, cfgConfig LiveVarAnalysisConfig) {
	for _, bb := range cfg.Nodes {
		bb.LiveIn = make(map[*ir.Statement]bool)
		bb.LiveOut = make(map[*ir.Statement]bool)
	}

	changed := true
	for changed {
		changed = false
		for i := len(cfg.Nodes) - 1; i >= 0; i-- {
			bb := cfg.Nodes[i]

			newOut := make(map[*ir.Statement]bool)
			for _, succ := range bb.Succs {
				for s := range succ.LiveIn {
					newOut[s] = true
				}
			}

			newIn := make(map[*ir.Statement]bool)
			for s, ok := range bb.Uses {
				if ok && includeStmt(s, cfgConfig) {
					newIn[s] = true
				}
			}
			for s := range newOut {
				if !bb.Defs[s] {
					newIn[s] = true
				}
			}

			if !setsEqual(bb.LiveOut, newOut) || !setsEqual(bb.LiveIn, newIn) {
				changed = true
			}
			bb.LiveOut = newOut
			bb.LiveIn = newIn
		}
	}
}

func includeStmt(s *ir.Statement, cfgConfig LiveVarAnalysisConfig) bool {
	if cfgConfig.TrackGlobals {
		return true
	}
	return s.Tag != ir.TagGlobalLoad && s.Tag != ir.TagGlobalStore
}

func setsEqual(a, b map[*ir.Statement]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
