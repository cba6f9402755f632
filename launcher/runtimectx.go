package launcher

// RuntimeContext is the bit-exact struct shared across the CPU worker pool,
// CUDA kernels, and the host launcher, which all address its fields by
// offset. Field order must never change without updating every backend's
// codegen lowering in lockstep.
type RuntimeContext struct {
	RuntimePtr     uint64
	ArgBufferPtr   uint64
	ResultBufferPtr uint64
	CPUThreadID    int32
	NumCPUThreads  int32
	_              int32 // unused; Encode writes only the 32 bytes above
}

// Encode serializes RuntimeContext into the fixed little-endian byte layout
// device code reads by raw offset.
func (c RuntimeContext) Encode() []byte {
	buf := make([]byte, runtimeContextSize)
	putU64(buf[0:8], c.RuntimePtr)
	putU64(buf[8:16], c.ArgBufferPtr)
	putU64(buf[16:24], c.ResultBufferPtr)
	putU32(buf[24:28], uint32(c.CPUThreadID))
	putU32(buf[28:32], uint32(c.NumCPUThreads))
	return buf
}

const runtimeContextSize = 32

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putU32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
