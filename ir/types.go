// Package ir implements the typed statement/block tree: a closed tagged
// sum of Statement variants, Blocks, SNodes, and the visitor protocol used
// to walk them.
package ir

import "fmt"

// DataType is the closed set of primitive value types a Statement can
// produce. There is no value type for statements with no result (e.g. a
// pure control-flow statement).
type DataType int

const (
	TypeNone DataType = iota
	TypeI32
	TypeI64
	TypeU32
	TypeU64
	TypeF32
	TypeF64
	TypePtr
)

func (t DataType) String() string {
	switch t {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypePtr:
		return "ptr"
	default:
		return "none"
	}
}

// SNodeTag is the closed set of SNode classifications.
type SNodeTag int

const (
	SNodeRoot SNodeTag = iota
	SNodeDense
	SNodePointer
	SNodeBitmasked
	SNodeDynamic
	SNodeHash
	SNodeBitStruct
	SNodeBitArray
	SNodePlace
)

func (t SNodeTag) String() string {
	switch t {
	case SNodeRoot:
		return "root"
	case SNodeDense:
		return "dense"
	case SNodePointer:
		return "pointer"
	case SNodeBitmasked:
		return "bitmasked"
	case SNodeDynamic:
		return "dynamic"
	case SNodeHash:
		return "hash"
	case SNodeBitStruct:
		return "bit_struct"
	case SNodeBitArray:
		return "bit_array"
	case SNodePlace:
		return "place"
	default:
		return "unknown"
	}
}

// Extractor marks whether an axis participates in an SNode's indexing and
// its bit-width.
type Extractor struct {
	Active bool
	Bits   int
}

// SNode is a node in the data-structure hierarchy. SNodes are
// built once by the frontend and are immutable during compilation.
type SNode struct {
	ID   int
	Tag  SNodeTag
	Name string

	Parent   *SNode
	Children []*SNode

	// Axes holds one Extractor per physical axis (a fixed small count is
	// assumed, as in the source system's taichi_max_num_indices).
	Axes [maxNumAxes]Extractor

	DType DataType // only meaningful for SNodePlace leaves

	TreeID int

	IsPathAllDense  bool
	NumActiveIndices int
	Shape            []int64

	// MemAccessOpt records the block-local annotations used by
	// make_block_local: e.g. "block_local".
	MemAccessOpt map[string]bool
}

const maxNumAxes = 8

// NewSNode creates a child SNode under parent (parent may be nil for a
// root). Deliberately minimal: the frontend that builds SNode trees is out
// of scope; this constructor exists for tests and tooling.
func NewSNode(id int, tag SNodeTag, parent *SNode) *SNode {
	n := &SNode{ID: id, Tag: tag, Parent: parent, MemAccessOpt: make(map[string]bool)}
	if parent != nil {
		n.TreeID = parent.TreeID
		parent.Children = append(parent.Children, n)
	} else {
		n.TreeID = id
	}
	return n
}

// MaxNumElements returns the clamp used by the offloader for a struct_for's
// block_dim: the product of the node's per-axis shape, or a
// conservative default when shape information is absent.
func (s *SNode) MaxNumElements() int {
	if len(s.Shape) == 0 {
		return 1024
	}
	total := int64(1)
	for _, v := range s.Shape {
		total *= v
	}
	if total <= 0 || total > (1<<20) {
		return 1024
	}
	return int(total)
}

// IsDeallocEligible reports whether the SNode's tag requires a trailing gc
// task after struct_for iteration.
func (s *SNode) IsDeallocEligible() bool {
	switch s.Tag {
	case SNodePointer, SNodeBitmasked, SNodeDynamic, SNodeHash:
		return true
	default:
		return false
	}
}

// RequiresListGen reports whether a struct_for over this SNode must be
// preceded by a list_gen task.
func (s *SNode) RequiresListGen() bool {
	return s.Tag != SNodeDense
}

func (s *SNode) String() string {
	return fmt.Sprintf("SNode#%d(%s,%s)", s.ID, s.Tag, s.Name)
}
