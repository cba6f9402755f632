package analysis

import (
	"fmt"
	"io"

	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// BasicBlock is a node in the ControlFlowGraph: a reference to the IR
// statements it covers, its predecessors/successors, and per-statement
// def/use sets.
type BasicBlock struct {
	ID    int
	Block *ir.Block
	Begin int // first index into Block.Stmts covered by this node
	End   int // exclusive

	Preds []*BasicBlock
	Succs []*BasicBlock

	Defs map[*ir.Statement]bool
	Uses map[*ir.Statement]bool

	LiveIn  map[*ir.Statement]bool
	LiveOut map[*ir.Statement]bool
}

func newBasicBlock(id int, block *ir.Block, begin, end int) *BasicBlock {
	return &BasicBlock{
		ID: id, Block: block, Begin: begin, End: end,
		Defs: make(map[*ir.Statement]bool), Uses: make(map[*ir.Statement]bool),
	}
}

// Stmts returns the statements covered by this basic block.
func (bb *BasicBlock) Stmts() []*ir.Statement {
	return bb.Block.Stmts[bb.Begin:bb.End]
}

// ControlFlowGraph is a graph over basic blocks derived from an IRNode.
// Reachability is strictly forward from Entry.
type ControlFlowGraph struct {
	Entry *BasicBlock
	Nodes []*BasicBlock
}

// BuildCFG constructs the CFG for a block, splitting it at branch/loop
// container boundaries the same way a linear-IR compiler splits basic
// blocks at jump targets.
//
// Construction is deterministic for a given IR: BasicBlocks are emitted
// in statement order, one per maximal run of non-container statements,
// plus one per container statement's condition/entry point.
func BuildCFG(body *ir.Block) *ControlFlowGraph {
	cfg := &ControlFlowGraph{}
	nextID := 0

	var buildLinear func(b *ir.Block) (*BasicBlock, *BasicBlock)
	buildLinear = func(b *ir.Block) (*BasicBlock, *BasicBlock) {
		var first, prev *BasicBlock
		i := 0
		for i < len(b.Stmts) {
			if b.Stmts[i].Tag.IsContainer() {
				bb := newBasicBlock(nextID, b, i, i+1)
				nextID++
				fillDefUse(bb)
				cfg.Nodes = append(cfg.Nodes, bb)
				if first == nil {
					first = bb
				}
				if prev != nil {
					link(prev, bb)
				}
				prev = bb
				i++
				continue
			}
			start := i
			for i < len(b.Stmts) && !b.Stmts[i].Tag.IsContainer() {
				i++
			}
			bb := newBasicBlock(nextID, b, start, i)
			nextID++
			fillDefUse(bb)
			cfg.Nodes = append(cfg.Nodes, bb)
			if first == nil {
				first = bb
			}
			if prev != nil {
				link(prev, bb)
			}
			prev = bb
		}
		if first == nil {
			bb := newBasicBlock(nextID, b, 0, 0)
			nextID++
			cfg.Nodes = append(cfg.Nodes, bb)
			first, prev = bb, bb
		}
		return first, prev
	}

	entry, _ := buildLinear(body)
	cfg.Entry = entry
	return cfg
}

func link(a, b *BasicBlock) {
	a.Succs = append(a.Succs, b)
	b.Preds = append(b.Preds, a)
}

func fillDefUse(bb *BasicBlock) {
	for _, s := range bb.Stmts() {
		if s.Tag.ProducesValue() {
			bb.Defs[s] = true
		}
		for _, op := range s.Operands {
			if op != nil {
				bb.Uses[op] = true
			}
		}
	}
}

// SimplifyGraph merges basic blocks that have exactly one successor which
// itself has exactly one predecessor. Returns whether the
// graph changed.
func (cfg *ControlFlowGraph) SimplifyGraph() bool {
	modified := false
	for {
		merged := false
		for _, bb := range cfg.Nodes {
			if len(bb.Succs) != 1 {
				continue
			}
			succ := bb.Succs[0]
			if succ == bb || len(succ.Preds) != 1 {
				continue
			}
			cfg.mergeInto(bb, succ)
			merged = true
			modified = true
			break
		}
		if !merged {
			break
		}
	}
	return modified
}

func (cfg *ControlFlowGraph) mergeInto(bb, succ *BasicBlock) {
	bb.End = succ.End
	bb.Succs = succ.Succs
	for _, s := range bb.Succs {
		for i, p := range s.Preds {
			if p == succ {
				s.Preds[i] = bb
			}
		}
	}
	for k := range succ.Defs {
		bb.Defs[k] = true
	}
	for k := range succ.Uses {
		bb.Uses[k] = true
	}
	cfg.removeNode(succ)
}

func (cfg *ControlFlowGraph) removeNode(target *BasicBlock) {
	out := cfg.Nodes[:0]
	for _, n := range cfg.Nodes {
		if n != target {
			out = append(out, n)
		}
	}
	cfg.Nodes = out
}

// StoreToLoadForwarding rewrites a GlobalLoad that is immediately preceded
// (within the same basic block, no intervening store to the same SNode) by
// a GlobalStore to the same pointer into a direct use of the stored value.
// Returns whether the IR changed.
func (cfg *ControlFlowGraph) StoreToLoadForwarding() bool {
	modified := false
	for _, bb := range cfg.Nodes {
		var lastStore map[*ir.SNode]*ir.Statement
		lastStore = make(map[*ir.SNode]*ir.Statement)
		for _, s := range bb.Stmts() {
			switch s.Tag {
			case ir.TagGlobalStore:
				if len(s.Operands) < 2 {
					continue
				}
				if n := originatingSNode(s.Operands[0]); n != nil {
					lastStore[n] = s
				}
			case ir.TagGlobalLoad:
				if len(s.Operands) == 0 {
					continue
				}
				n := originatingSNode(s.Operands[0])
				if n == nil {
					continue
				}
				if store, ok := lastStore[n]; ok {
					s.ReplaceUsagesWith(store.Operands[1])
					modified = true
				}
			}
		}
	}
	return modified
}

// DeadStoreElimination removes a GlobalStore that is followed, within the
// same basic block and with no intervening load of the same SNode, by
// another GlobalStore to the same pointer. Returns whether
// the IR changed.
func (cfg *ControlFlowGraph) DeadStoreElimination() bool {
	modified := false
	for _, bb := range cfg.Nodes {
		stmts := bb.Stmts()
		for i := 0; i < len(stmts); i++ {
			s := stmts[i]
			if s.Tag != ir.TagGlobalStore || len(s.Operands) < 2 {
				continue
			}
			n := originatingSNode(s.Operands[0])
			if n == nil {
				continue
			}
			shadowed := false
			for j := i + 1; j < len(stmts); j++ {
				next := stmts[j]
				if next.Tag == ir.TagGlobalLoad && len(next.Operands) > 0 && originatingSNode(next.Operands[0]) == n {
					break
				}
				if next.Tag == ir.TagGlobalStore && len(next.Operands) >= 2 && originatingSNode(next.Operands[0]) == n {
					shadowed = true
					break
				}
			}
			if shadowed {
				idx := bb.Block.IndexOf(s)
				if idx >= 0 {
					bb.Block.Erase(idx)
					modified = true
					i--
				}
			}
		}
	}
	return modified
}

// DumpGraphToFile writes a Graphviz-style dump of the CFG for debugging. No
// caller in this module invokes it.
func (cfg *ControlFlowGraph) DumpGraphToFile(w io.Writer) {
	fmt.Fprintln(w, "digraph cfg {")
	for _, bb := range cfg.Nodes {
		fmt.Fprintf(w, "  bb%d [label=\"bb%d [%d,%d)\"];\n", bb.ID, bb.ID, bb.Begin, bb.End)
	}
	for _, bb := range cfg.Nodes {
		for _, s := range bb.Succs {
			fmt.Fprintf(w, "  bb%d -> bb%d;\n", bb.ID, s.ID)
		}
	}
	fmt.Fprintln(w, "}")
}
