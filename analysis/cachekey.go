package analysis

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

// CacheKeyer supplies the CompileConfig/DeviceCapabilityConfig fingerprint
// fields to OfflineCacheKey without analysis depending on the cache or
// config package's full surface.
type CacheKeyer interface {
	FingerprintFields() []byte
}

// OfflineCacheKey produces a stable 64-bit fingerprint of an IR
// subtree: independent of pointer identity and of map
// insertion order, and folding in CompileConfig, DeviceCapabilityConfig,
// and each referenced SNode's structural hash.
//
// Determinism across pointer identity comes from hashing the *shape* of
// the IR (tag sequence, operand back-references expressed as relative
// indices, SNode structural hashes) rather than any address, matching the
// property that equal keys must yield byte-identical compiles.
func OfflineCacheKey(root ir.IRNode, cfg *config.CompileConfig, caps *config.DeviceCapabilityConfig) uint64 {
	h := xxhash.New()

	index := make(map[*ir.Statement]int)
	var order []*ir.Statement
	snodeSet := make(map[*ir.SNode]bool)

	v := ir.NewVisitor()
	v.Generic = func(s *ir.Statement) {
		index[s] = len(order)
		order = append(order, s)
		if s.SNode != nil {
			snodeSet[s.SNode] = true
		}
	}
	ir.Walk(root, v)

	var buf [8]byte
	writeU64 := func(x uint64) {
		binary.LittleEndian.PutUint64(buf[:], x)
		h.Write(buf[:])
	}

	for i, s := range order {
		writeU64(uint64(s.Tag))
		writeU64(uint64(s.Type))
		writeU64(uint64(s.IntImm))
		for _, op := range s.Operands {
			if op == nil {
				writeU64(^uint64(0))
				continue
			}
			// Relative back-reference: independent of absolute identity or
			// allocation order across distinct-but-isomorphic IRs.
			writeU64(uint64(i - index[op]))
		}
		if s.SNode != nil {
			writeU64(snodeStructuralHash(s.SNode))
		}
	}

	// SNodes referenced anywhere in the subtree, in a deterministic order
	// independent of map iteration.
	snodes := maps.Keys(snodeSet)
	slices.SortFunc(snodes, func(a, b *ir.SNode) int { return a.ID - b.ID })
	for _, n := range snodes {
		writeU64(snodeStructuralHash(n))
	}

	if cfg != nil {
		h.Write(cfg.FingerprintFields())
	}
	if caps != nil {
		h.Write(caps.FingerprintFields())
	}

	return h.Sum64()
}

// snodeStructuralHash hashes an SNode's shape (tag, axes, dtype, child
// count) rather than its identity, so two structurally equivalent SNode
// trees built independently produce the same key.
func snodeStructuralHash(n *ir.SNode) uint64 {
	h := xxhash.New()
	var buf [8]byte
	w := func(x uint64) {
		binary.LittleEndian.PutUint64(buf[:], x)
		h.Write(buf[:])
	}
	w(uint64(n.Tag))
	w(uint64(n.DType))
	w(uint64(len(n.Children)))
	for _, ax := range n.Axes {
		if ax.Active {
			w(1)
			w(uint64(ax.Bits))
		} else {
			w(0)
		}
	}
	return h.Sum64()
}
