package ir

// Tag is the closed classification of a Statement. A representative, exhaustive-enough-to-drive-
// every-pass subset is modeled; tags are grouped by the operand layout they
// imply, which is what dispatch and the analyses actually key off of.
type Tag int

const (
	TagInvalid Tag = iota

	// Arithmetic / bitwise (binary, operands: LHS, RHS).
	TagAdd
	TagSub
	TagMul
	TagDiv
	TagMod
	TagBitAnd
	TagBitOr
	TagBitXor
	TagShl
	TagShr
	TagCmpLT
	TagCmpLE
	TagCmpEQ
	TagCmpNE
	TagLogicalAnd
	TagLogicalOr

	// Unary (operand: Operand).
	TagNeg
	TagNot
	TagCast
	TagSqrt
	TagAbs

	// Constants (no operands).
	TagConstI32
	TagConstI64
	TagConstF32
	TagConstF64

	// Memory: pointer derivation, load/store/atomic.
	TagGlobalPtr   // operands: indices; references an SNode
	TagGetChildPtr // pointer derivation chain step: operand is parent ptr
	TagGlobalLoad  // operand: GlobalPtr
	TagGlobalStore // operands: GlobalPtr, Value
	TagAtomicAdd
	TagAtomicSub
	TagAtomicMax
	TagAtomicMin
	TagAtomicCAS

	// Local allocation / load / store (register-like locals within a
	// kernel, distinct from SNode-backed globals).
	TagAllocaLocal
	TagLocalLoad
	TagLocalStore

	// Control flow containers.
	TagIf
	TagWhileLoop
	TagRangeFor
	TagStructFor
	TagMeshFor
	TagWhileControl // break-like

	// Loop-analysis helper markers.
	TagRangeAssumption
	TagLoopUnique

	// SNode structural operations.
	TagSNodeOpActivate
	TagSNodeOpDeactivate
	TagSNodeOpLength
	TagSNodeOpAppend

	// Offload / task boundary.
	TagOffloaded

	// External interop.
	TagExternalCall
	TagExternalPtr
	TagArgLoad
	TagReturn

	// Allocation.
	TagAllocaGlobalTmp

	// Bounds-check marker inserted by check_out_of_bound.
	TagBoundsGuard
)

// IsContainer reports whether a statement owns one or more child Blocks
// (loops, conditionals, offloaded tasks) and therefore triggers the
// visitor's preprocess_container_stmt hook.
func (t Tag) IsContainer() bool {
	switch t {
	case TagIf, TagWhileLoop, TagRangeFor, TagStructFor, TagMeshFor, TagOffloaded:
		return true
	default:
		return false
	}
}

// HasSideEffect reports whether a statement must be retained even with no
// users, for die / dead-code elimination purposes.
func (t Tag) HasSideEffect() bool {
	switch t {
	case TagGlobalStore, TagLocalStore, TagAtomicAdd, TagAtomicSub, TagAtomicMax,
		TagAtomicMin, TagAtomicCAS, TagSNodeOpActivate, TagSNodeOpDeactivate,
		TagSNodeOpAppend, TagExternalCall, TagReturn, TagOffloaded, TagBoundsGuard:
		return true
	default:
		return false
	}
}

// ProducesValue reports whether the statement has a result type.
func (t Tag) ProducesValue() bool {
	switch t {
	case TagGlobalStore, TagLocalStore, TagIf, TagWhileLoop, TagRangeFor,
		TagStructFor, TagMeshFor, TagWhileControl, TagSNodeOpActivate,
		TagSNodeOpDeactivate, TagReturn, TagOffloaded, TagBoundsGuard:
		return false
	default:
		return true
	}
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return "invalid"
}

var tagNames = map[Tag]string{
	TagAdd: "add", TagSub: "sub", TagMul: "mul", TagDiv: "div", TagMod: "mod",
	TagBitAnd: "bit_and", TagBitOr: "bit_or", TagBitXor: "bit_xor",
	TagShl: "shl", TagShr: "shr",
	TagCmpLT: "cmp_lt", TagCmpLE: "cmp_le", TagCmpEQ: "cmp_eq", TagCmpNE: "cmp_ne",
	TagLogicalAnd: "land", TagLogicalOr: "lor",
	TagNeg: "neg", TagNot: "not", TagCast: "cast", TagSqrt: "sqrt", TagAbs: "abs",
	TagConstI32: "const_i32", TagConstI64: "const_i64", TagConstF32: "const_f32", TagConstF64: "const_f64",
	TagGlobalPtr: "global_ptr", TagGetChildPtr: "get_child_ptr",
	TagGlobalLoad: "global_load", TagGlobalStore: "global_store",
	TagAtomicAdd: "atomic_add", TagAtomicSub: "atomic_sub", TagAtomicMax: "atomic_max",
	TagAtomicMin: "atomic_min", TagAtomicCAS: "atomic_cas",
	TagAllocaLocal: "alloca_local", TagLocalLoad: "local_load", TagLocalStore: "local_store",
	TagIf: "if", TagWhileLoop: "while", TagRangeFor: "range_for", TagStructFor: "struct_for",
	TagMeshFor: "mesh_for", TagWhileControl: "while_control",
	TagRangeAssumption: "range_assumption", TagLoopUnique: "loop_unique",
	TagSNodeOpActivate: "snode_activate", TagSNodeOpDeactivate: "snode_deactivate",
	TagSNodeOpLength: "snode_length", TagSNodeOpAppend: "snode_append",
	TagOffloaded: "offloaded",
	TagExternalCall: "external_call", TagExternalPtr: "external_ptr",
	TagArgLoad: "arg_load", TagReturn: "return",
	TagAllocaGlobalTmp: "alloca_global_tmp",
	TagBoundsGuard:      "bounds_guard",
}
