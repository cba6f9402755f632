// Package spirv emits a minimal SPIR-V module for the Metal and Vulkan
// backends. Unlike the LLVM path, full compute-shader lowering is out of
// scope here; the emitter produces a well-formed module header plus one
// OpEntryPoint per task so the cache/launcher round-trip is exercisable end
// to end, deferring full arithmetic lowering to a dedicated shader compiler.
package spirv

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Genesis-Embodied-AI/quadrants/codegen"
	"github.com/Genesis-Embodied-AI/quadrants/config"
	"github.com/Genesis-Embodied-AI/quadrants/internal/qlog"
	"github.com/Genesis-Embodied-AI/quadrants/ir"
)

const (
	magicNumber    = 0x07230203
	generatorMagic = 0x51554144 // "QUAD"
)

// Backend implements codegen.KernelCodeGen for Metal/Vulkan.
type Backend struct {
	arch config.Arch
	log  *qlog.Logger
}

func New(arch config.Arch, log *qlog.Logger) *Backend {
	return &Backend{arch: arch, log: log}
}

func (b *Backend) Arch() config.Arch { return b.arch }

// CompileTask emits a SPIR-V module header (magic, version, generator magic,
// bound, schema) followed by a single OpEntryPoint-equivalent record naming
// the task; this is sufficient for the cache format and launcher to treat it
// as an opaque, versioned artifact without depending on a real Vulkan/Metal
// toolchain being present.
func (b *Backend) CompileTask(task *ir.OffloadedTask, cfg *config.CompileConfig, mopt codegen.ModuleOpt, bopt codegen.BlockOpt) (*codegen.CompiledTask, error) {
	var buf bytes.Buffer
	header := []uint32{magicNumber, 0x00010300, generatorMagic, uint32(task.ID + 1), 0}
	for _, w := range header {
		binary.Write(&buf, binary.LittleEndian, w)
	}
	entry := fmt.Sprintf("task_%d_%s", task.ID, task.Kind)
	buf.WriteString(entry)

	return &codegen.CompiledTask{
		TaskID:     task.ID,
		Arch:       b.arch,
		EntryPoint: entry,
		Artifact:   buf.Bytes(),
	}, nil
}
