package ir

// OffloadedTaskKind is the closed set of device-dispatch unit kinds
// produced by the offloader.
type OffloadedTaskKind int

const (
	TaskSerial OffloadedTaskKind = iota
	TaskRangeFor
	TaskStructFor
	TaskMeshFor
	TaskListGen
	TaskGC
)

func (k OffloadedTaskKind) String() string {
	switch k {
	case TaskSerial:
		return "serial"
	case TaskRangeFor:
		return "range_for"
	case TaskStructFor:
		return "struct_for"
	case TaskMeshFor:
		return "mesh_for"
	case TaskListGen:
		return "list_gen"
	case TaskGC:
		return "gc"
	default:
		return "unknown"
	}
}

// MeshMeta carries mesh-for prologue metadata: patch count and
// owned-element counts by element type.
type MeshMeta struct {
	PatchCount  int
	OwnedCounts map[string]int
}

// OffloadedTask is the unit of device dispatch produced by the offloader.
type OffloadedTask struct {
	ID   int
	Kind OffloadedTaskKind
	Body *Block

	TLSPrologue *Block
	TLSEpilogue *Block
	BLSPrologue *Block
	BLSEpilogue *Block

	MeshPrologue *Block
	Mesh         *MeshMeta

	TargetSNode *SNode // struct_for / list_gen / gc

	Begin, End int64 // range_for bounds
	Step       int64

	BlockDim      int
	NumCPUThreads int
	TLSSize       int
	BLSSize       int
	Reversed      bool

	// MemAccessOpt records which SNodes this task's struct_for body has
	// annotated for block-local staging; populated by the
	// frontend/offloader and consumed by make_block_local.
	MemAccessOpt map[*SNode]bool
}

func NewOffloadedTask(id int, kind OffloadedTaskKind) *OffloadedTask {
	return &OffloadedTask{
		ID:            id,
		Kind:          kind,
		Body:          NewBlock(nil),
		NumCPUThreads: 1,
		Step:          1,
		MemAccessOpt:  make(map[*SNode]bool),
	}
}

// Kernel is the top-level IR root the pass pipeline and offloader operate
// on: a single Block whose statements are ordinary IR before offload() and
// must be exclusively OffloadedTasks afterward.
type Kernel struct {
	Name string
	Body *Block

	// Tasks holds the flattened OffloadedTask sequence once offload() has
	// run; nil before that.
	Tasks []*OffloadedTask
}

func NewKernel(name string) *Kernel {
	return &Kernel{Name: name, Body: NewBlock(nil)}
}

// IsOffloaded reports whether the kernel body has already been split into
// OffloadedTasks.
func (k *Kernel) IsOffloaded() bool {
	return k.Tasks != nil
}
