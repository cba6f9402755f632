package ir

// IRNode is the polymorphic root: every Block and every Statement is an
// IRNode and accepts a Visitor.
type IRNode interface {
	Accept(v *Visitor)
	irNode()
}

// Statement is a node in the IR. Operand layout is tag-dependent: callers
// index into Operands following the convention documented per Tag.
type Statement struct {
	ID   int
	Tag  Tag
	Type DataType

	Operands []*Statement
	Parent   *Block // the Block this statement is inserted in

	// SNode is set for statements that reference one directly (GlobalPtr,
	// SNodeOp, struct_for/list_gen/gc targets).
	SNode *SNode

	// Body/Body2 hold the Blocks owned by container statements (if's
	// then/else, loop bodies, offloaded task bodies). Most container tags
	// use only Body.
	Body  *Block
	Body2 *Block

	// Immediate constants and similar small scalar payloads live here
	// instead of a second operand when they are not themselves IR values
	// (range_for bounds live in Begin/End below).
	IntImm   int64
	FloatImm float64
	Reversed bool

	// Begin/End are the static range_for bounds when known at IR-build
	// time; the offloader also accepts loop bounds expressed as operand
	// statements, in which case Begin/End are left zero and Operands[0:2]
	// hold the bound-producing statements instead.
	Begin int64
	End   int64

	// Name is used for external calls / arg loads / debug labels.
	Name string

	// uses is the reverse index of ReplaceUsagesWith: statements that
	// reference this one as an operand. Maintained alongside Operands.
	uses map[*Statement]struct{}
}

func (s *Statement) irNode() {}

// Accept dispatches to the visitor's per-tag callback, invoking
// preprocess_container_stmt first for container statements, then
// descending into owned blocks unless the visitor was built with
// NewShallowVisitor.
func (s *Statement) Accept(v *Visitor) {
	if s.Tag.IsContainer() && v.PreprocessContainerStmt != nil {
		v.PreprocessContainerStmt(s)
	}
	handled := v.dispatch(s)
	if !handled && v.Generic != nil {
		v.Generic(s)
	}
	if v.descendContainers && s.Tag.IsContainer() {
		if s.Body != nil {
			s.Body.Accept(v)
		}
		if s.Body2 != nil {
			s.Body2.Accept(v)
		}
	}
}

// AddOperand appends an operand and registers the use-def edge.
func (s *Statement) AddOperand(operand *Statement) {
	s.Operands = append(s.Operands, operand)
	if operand != nil {
		operand.addUse(s)
	}
}

func (s *Statement) addUse(by *Statement) {
	if s.uses == nil {
		s.uses = make(map[*Statement]struct{})
	}
	s.uses[by] = struct{}{}
}

func (s *Statement) removeUse(by *Statement) {
	delete(s.uses, by)
}

// Users returns the statements that reference s as an operand.
func (s *Statement) Users() []*Statement {
	out := make([]*Statement, 0, len(s.uses))
	for u := range s.uses {
		out = append(out, u)
	}
	return out
}

// HasNoUsers reports whether no live statement references s.
func (s *Statement) HasNoUsers() bool {
	return len(s.uses) == 0
}

// ReplaceUsagesWith atomically rewrites every operand reference from s to
// replacement, keeping the uses index consistent.
func (s *Statement) ReplaceUsagesWith(replacement *Statement) {
	for user := range s.uses {
		for i, op := range user.Operands {
			if op == s {
				user.Operands[i] = replacement
			}
		}
		if replacement != nil {
			replacement.addUse(user)
		}
	}
	s.uses = nil
}

// Block is an ordered sequence of statements; insertion order is
// significant.
type Block struct {
	Stmts  []*Statement
	Parent *Statement // the statement that owns this block, if any
}

func (b *Block) irNode() {}

// Accept walks the block's statements in order, applying DelayedIRModifier
// semantics is the caller's responsibility (the walk itself never mutates
// Stmts).
func (b *Block) Accept(v *Visitor) {
	// Copy the slice header so passes that splice via a DelayedIRModifier
	// during this walk (then apply after) don't see a mutated live slice
	// mid-iteration.
	stmts := b.Stmts
	for _, s := range stmts {
		s.Accept(v)
	}
}

// Insert appends a statement at the end of the block and sets its Parent.
func (b *Block) Insert(s *Statement) {
	s.Parent = b
	b.Stmts = append(b.Stmts, s)
}

// InsertAt inserts s at index i, shifting later statements right.
func (b *Block) InsertAt(i int, s *Statement) {
	s.Parent = b
	b.Stmts = append(b.Stmts, nil)
	copy(b.Stmts[i+1:], b.Stmts[i:])
	b.Stmts[i] = s
}

// IndexOf returns the index of s within the block, or -1.
func (b *Block) IndexOf(s *Statement) int {
	for i, st := range b.Stmts {
		if st == s {
			return i
		}
	}
	return -1
}

// Erase removes the statement at index i.
func (b *Block) Erase(i int) {
	b.Stmts = append(b.Stmts[:i], b.Stmts[i+1:]...)
}

// NewBlock constructs an empty block, optionally owned by parent.
func NewBlock(parent *Statement) *Block {
	return &Block{Parent: parent}
}
