// Package offload implements the single pass that splits a simplified
// kernel body into a flat sequence of OffloadedTasks: the boundary between
// the IR pass pipeline and backend codegen.
package offload

import (
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// Offload walks body and returns the flat OffloadedTask sequence it
// decomposes into, along with the next id to hand out (so callers chain
// multiple kernels through the same id space without collisions).
//
// An empty body produces a single zero-iteration serial task rather than an
// empty task list, so the launcher always has at least one dispatch unit to
// reason about.
func Offload(body *ir.Block, cfg *config.CompileConfig, log *qlog.Logger, startID int) ([]*ir.OffloadedTask, int) {
	nextID := startID
	var tasks []*ir.OffloadedTask

	flushSerial := func(stmts []*ir.Statement) {
		if len(stmts) == 0 {
			return
		}
		t := ir.NewOffloadedTask(nextID, ir.TaskSerial)
		nextID++
		for _, s := range stmts {
			t.Body.Insert(s)
		}
		tasks = append(tasks, t)
	}

	var pending []*ir.Statement
	for _, s := range body.Stmts {
		switch s.Tag {
		case ir.TagRangeFor:
			flushSerial(pending)
			pending = nil
			t := rangeForTask(s, nextID, cfg)
			nextID++
			tasks = append(tasks, t)
		case ir.TagStructFor:
			flushSerial(pending)
			pending = nil
			structTasks, n := structForTasks(s, nextID)
			nextID = n
			tasks = append(tasks, structTasks...)
		case ir.TagMeshFor:
			flushSerial(pending)
			pending = nil
			t := meshForTask(s, nextID)
			nextID++
			tasks = append(tasks, t)
		default:
			pending = append(pending, s)
		}
	}
	flushSerial(pending)

	if len(tasks) == 0 {
		tasks = append(tasks, ir.NewOffloadedTask(nextID, ir.TaskSerial))
		nextID++
	}

	gcTasks, n := gcTasksFor(tasks, nextID)
	nextID = n
	tasks = append(tasks, gcTasks...)

	if cfg != nil && cfg.DumpIR && log != nil {
		log.Debugw("offload produced tasks", "count", len(tasks))
	}
	return tasks, nextID
}

func rangeForTask(s *ir.Statement, id int, cfg *config.CompileConfig) *ir.OffloadedTask {
	t := ir.NewOffloadedTask(id, ir.TaskRangeFor)
	t.Begin, t.End = s.Begin, s.End
	t.Reversed = s.Reversed
	if t.Reversed {
		t.Step = -1
	}
	t.BlockDim = defaultBlockDim
	if s.Body != nil {
		t.Body.Stmts = append(t.Body.Stmts, s.Body.Stmts...)
		for _, inner := range t.Body.Stmts {
			inner.Parent = t.Body
		}
	}
	return t
}

const defaultBlockDim = 256

// structForTasks returns the list_gen (if required) plus struct_for task
// pair for a struct_for statement, consuming two ids when list_gen is
// needed and one otherwise.
func structForTasks(s *ir.Statement, nextID int) ([]*ir.OffloadedTask, int) {
	var out []*ir.OffloadedTask
	if s.SNode != nil && s.SNode.RequiresListGen() {
		lg := ir.NewOffloadedTask(nextID, ir.TaskListGen)
		nextID++
		lg.TargetSNode = s.SNode
		out = append(out, lg)
	}
	sf := ir.NewOffloadedTask(nextID, ir.TaskStructFor)
	nextID++
	sf.TargetSNode = s.SNode
	if s.SNode != nil {
		sf.BlockDim = s.SNode.MaxNumElements()
		if sf.BlockDim > defaultBlockDim {
			sf.BlockDim = defaultBlockDim
		}
	} else {
		sf.BlockDim = defaultBlockDim
	}
	if s.Body != nil {
		sf.Body.Stmts = append(sf.Body.Stmts, s.Body.Stmts...)
		for _, inner := range sf.Body.Stmts {
			inner.Parent = sf.Body
		}
		sf.MemAccessOpt = gatherMemAccessOpt(s.Body)
	}
	out = append(out, sf)
	return out, nextID
}

// gatherMemAccessOpt collects the SNodes a struct_for body flags as
// block_local through SNode.MemAccessOpt, so make_block_local doesn't need
// to re-walk the tree to learn what was annotated by the frontend.
func gatherMemAccessOpt(body *ir.Block) map[*ir.SNode]bool {
	out := make(map[*ir.SNode]bool)
	v := ir.NewVisitor()
	v.Generic = func(s *ir.Statement) {
		if s.SNode != nil && s.SNode.MemAccessOpt["block_local"] {
			out[s.SNode] = true
		}
	}
	body.Accept(v)
	return out
}

func meshForTask(s *ir.Statement, id int) *ir.OffloadedTask {
	t := ir.NewOffloadedTask(id, ir.TaskMeshFor)
	t.Mesh = &ir.MeshMeta{OwnedCounts: make(map[string]int)}
	if s.Body != nil {
		t.Body.Stmts = append(t.Body.Stmts, s.Body.Stmts...)
		for _, inner := range t.Body.Stmts {
			inner.Parent = t.Body
		}
	}
	if s.Body2 != nil {
		t.MeshPrologue = s.Body2
	}
	return t
}

// gcTasksFor appends a trailing gc task per distinct dealloc-eligible SNode
// referenced by the already-built tasks.
func gcTasksFor(tasks []*ir.OffloadedTask, nextID int) ([]*ir.OffloadedTask, int) {
	seen := make(map[*ir.SNode]bool)
	var out []*ir.OffloadedTask
	for _, t := range tasks {
		if t.TargetSNode == nil || !t.TargetSNode.IsDeallocEligible() || seen[t.TargetSNode] {
			continue
		}
		seen[t.TargetSNode] = true
		gc := ir.NewOffloadedTask(nextID, ir.TaskGC)
		nextID++
		gc.TargetSNode = t.TargetSNode
		out = append(out, gc)
	}
	return out, nextID
}
