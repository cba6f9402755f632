package analysis

import (
	"github.com/dolthub/swiss"

	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// Pred is the predicate used by GatherStatements.
type Pred func(*ir.Statement) bool

// GatherStatements returns all statements satisfying pred, stopping descent
// into a container's body the moment pred returns true for it, stopping
// descent as soon as a container itself matches.
func GatherStatements(root ir.IRNode, pred Pred) []*ir.Statement {
	var out []*ir.Statement
	var walk func(ir.IRNode)
	walk = func(n ir.IRNode) {
		switch node := n.(type) {
		case *ir.Block:
			for _, s := range node.Stmts {
				walk(s)
			}
		case *ir.Statement:
			matched := pred(node)
			if matched {
				out = append(out, node)
			}
			if node.Tag.IsContainer() && matched {
				return
			}
			if node.Body != nil {
				walk(node.Body)
			}
			if node.Body2 != nil {
				walk(node.Body2)
			}
		}
	}
	walk(root)
	return out
}

// GatherDeactivations returns the set of SNodes referenced by any
// deactivation SNodeOp.
func GatherDeactivations(root ir.IRNode) []*ir.SNode {
	stmts := GatherStatements(root, func(s *ir.Statement) bool {
		return s.Tag == ir.TagSNodeOpDeactivate
	})
	seen := swiss.NewMap[*ir.SNode, struct{}](8)
	var out []*ir.SNode
	for _, s := range stmts {
		if s.SNode == nil {
			continue
		}
		if _, ok := seen.Get(s.SNode); !ok {
			seen.Put(s.SNode, struct{}{})
			out = append(out, s.SNode)
		}
	}
	return out
}

// ReadWrites is the (reads, writes) pair produced by
// GatherSNodeReadWrites.
type ReadWrites struct {
	Reads  []*ir.SNode
	Writes []*ir.SNode
}

// Contains reports whether an SNode is present in rw.Reads (resp. Writes
// via ContainsWrite).
func (rw ReadWrites) Contains(n *ir.SNode) bool {
	for _, s := range rw.Reads {
		if s == n {
			return true
		}
	}
	return false
}

func (rw ReadWrites) ContainsWrite(n *ir.SNode) bool {
	for _, s := range rw.Writes {
		if s == n {
			return true
		}
	}
	return false
}

// originatingSNode chases a GetChildPtr/GlobalPtr pointer-derivation chain
// back to the SNode it ultimately references.
func originatingSNode(ptr *ir.Statement) *ir.SNode {
	cur := ptr
	for cur != nil {
		if cur.SNode != nil {
			return cur.SNode
		}
		if cur.Tag == ir.TagGetChildPtr && len(cur.Operands) > 0 {
			cur = cur.Operands[0]
			continue
		}
		return nil
	}
	return nil
}

// GatherSNodeReadWrites inspects every global load/store/atomic and chases
// the pointer derivation chain to the originating SNode.
func GatherSNodeReadWrites(root ir.IRNode) ReadWrites {
	reads := swiss.NewMap[*ir.SNode, struct{}](8)
	writes := swiss.NewMap[*ir.SNode, struct{}](8)

	v := ir.NewVisitor()
	v.On(ir.TagGlobalLoad, func(s *ir.Statement) {
		if len(s.Operands) == 0 {
			return
		}
		if n := originatingSNode(s.Operands[0]); n != nil {
			reads.Put(n, struct{}{})
		}
	})
	v.On(ir.TagGlobalStore, func(s *ir.Statement) {
		if len(s.Operands) == 0 {
			return
		}
		if n := originatingSNode(s.Operands[0]); n != nil {
			writes.Put(n, struct{}{})
		}
	})
	for _, atomicTag := range []ir.Tag{ir.TagAtomicAdd, ir.TagAtomicSub, ir.TagAtomicMax, ir.TagAtomicMin, ir.TagAtomicCAS} {
		tag := atomicTag
		v.On(tag, func(s *ir.Statement) {
			if len(s.Operands) == 0 {
				return
			}
			if n := originatingSNode(s.Operands[0]); n != nil {
				reads.Put(n, struct{}{})
				writes.Put(n, struct{}{})
			}
		})
	}
	ir.Walk(root, v)

	return ReadWrites{Reads: keys(reads), Writes: keys(writes)}
}

func keys(m *swiss.Map[*ir.SNode, struct{}]) []*ir.SNode {
	out := make([]*ir.SNode, 0, m.Count())
	m.Iter(func(k *ir.SNode, _ struct{}) (stop bool) {
		out = append(out, k)
		return false
	})
	return out
}

// UniquePointers maps, for a single offloaded task, a bit-struct SNode to
// the single GlobalPtr that accesses it; a SNode present with a nil value
// means accesses were non-unique and bit-field packing must not assume
// exclusivity.
type UniquePointers map[*ir.SNode]*ir.Statement

// GatherUniquelyAccessedPointers finds pointers only ever dereferenced
// through one static operand, used to decide bit-field packing for
// bit_struct SNodes.
func GatherUniquelyAccessedPointers(taskBody ir.IRNode) UniquePointers {
	counts := make(map[*ir.SNode]int)
	ptrs := make(map[*ir.SNode]*ir.Statement)

	v := ir.NewVisitor()
	v.On(ir.TagGlobalPtr, func(s *ir.Statement) {
		if s.SNode == nil || s.SNode.Tag != ir.SNodeBitStruct {
			return
		}
		counts[s.SNode]++
		ptrs[s.SNode] = s
	})
	ir.Walk(taskBody, v)

	result := make(UniquePointers, len(counts))
	for n, c := range counts {
		if c == 1 {
			result[n] = ptrs[n]
		} else {
			result[n] = nil
		}
	}
	return result
}
