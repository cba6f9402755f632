// Package testutil builds small IR fixtures used by the pipeline tests (the
// analysis, transform, offload, and codegen tests build theirs inline),
// following the table-driven construction idiom used elsewhere in this
// module's tests.
package testutil

import "github.com/Genesis-Embodied-AI/quadrants/ir"

// SerialAddStore builds `c = a + b; store(p, c)` as a flat, non-container
// block: the smallest fixture exercising operand wiring, a GlobalPtr, and a
// GlobalStore.
func SerialAddStore() *ir.Block {
	body := ir.NewBlock(nil)
	a := &ir.Statement{ID: 1, Tag: ir.TagConstI32, IntImm: 2}
	b := &ir.Statement{ID: 2, Tag: ir.TagConstI32, IntImm: 3}
	add := &ir.Statement{ID: 3, Tag: ir.TagAdd}
	add.AddOperand(a)
	add.AddOperand(b)
	p := &ir.Statement{ID: 4, Tag: ir.TagGlobalPtr}
	store := &ir.Statement{ID: 5, Tag: ir.TagGlobalStore}
	store.AddOperand(p)
	store.AddOperand(add)
	for _, s := range []*ir.Statement{a, b, add, p, store} {
		body.Insert(s)
	}
	return body
}

// RangeForKernel wraps body (typically built with SerialAddStore or a
// caller-supplied block) in a TagRangeFor container with the given static
// bounds.
func RangeForKernel(begin, end int64, loopBody *ir.Block) *ir.Block {
	outer := ir.NewBlock(nil)
	loop := &ir.Statement{ID: 100, Tag: ir.TagRangeFor, Begin: begin, End: end, Body: loopBody}
	loopBody.Parent = loop
	outer.Insert(loop)
	return outer
}

// DenseSNodeChain builds a parent->child SNode chain of the given length,
// all Dense, returning the leaf (the one a GlobalPtr would reference).
func DenseSNodeChain(length int) *ir.SNode {
	var parent *ir.SNode
	var leaf *ir.SNode
	for i := 0; i < length; i++ {
		n := ir.NewSNode(i, ir.SNodeDense, parent)
		parent = n
		leaf = n
	}
	return leaf
}

// OneTaskSerial builds a single-task kernel body: handy when a test only
// needs an OffloadedTask-shaped object without running the full offloader.
func OneTaskSerial(id int) *ir.OffloadedTask {
	task := ir.NewOffloadedTask(id, ir.TaskSerial)
	body := SerialAddStore()
	task.Body = body
	return task
}
