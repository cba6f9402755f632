// Package config defines CompileConfig and DeviceCapabilityConfig and loads them with flags > env > defaults layering, mirroring
// the cobra+viper pattern in the reference pack (see DESIGN.md). No config
// file is read.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Arch identifies a target backend architecture.
type Arch uint32

const (
	ArchUnknown Arch = iota
	ArchX64
	ArchARM64
	ArchCUDA
	ArchAMDGPU
	ArchVulkan
	ArchMetal
)

func (a Arch) String() string {
	switch a {
	case ArchX64:
		return "x64"
	case ArchARM64:
		return "arm64"
	case ArchCUDA:
		return "cuda"
	case ArchAMDGPU:
		return "amdgpu"
	case ArchVulkan:
		return "vulkan"
	case ArchMetal:
		return "metal"
	default:
		return "unknown"
	}
}

// IsLLVMBacked reports whether Arch is lowered through the common LLVM-IR
// builder path rather than the SPIR-V emitter.
func (a Arch) IsLLVMBacked() bool {
	return a == ArchX64 || a == ArchARM64 || a == ArchCUDA || a == ArchAMDGPU
}

// CompileConfig is consumed by every pass.
type CompileConfig struct {
	Arch Arch

	FastMath          bool
	RealMatrixEnabled bool
	OfflineCacheOn    bool
	AutodiffMode      string // "none", "forward", "reverse"

	DebugOutOfBound bool // gates check_out_of_bound insertion
	PrintIR         bool
	PrintIRDumpPath string

	// DumpIR/DumpCFG/DumpSimplify mirror QD_DUMP_IR / QD_DUMP_CFG /
	// QD_DUMP_SIMPLIFY (and the TI_* aliases). They do not affect codegen
	// output and are therefore excluded from the cache fingerprint.
	DumpIR       bool
	DumpCFG      bool
	DumpSimplify bool

	CacheRoot string
}

// FingerprintFields returns the subset of CompileConfig that affects
// codegen output — i.e. everything except the debug-dump/print-IR switches
// and CacheRoot.
func (c *CompileConfig) FingerprintFields() []byte {
	var b strings.Builder
	b.WriteString(c.Arch.String())
	b.WriteByte(0)
	writeBool(&b, c.FastMath)
	writeBool(&b, c.RealMatrixEnabled)
	writeBool(&b, c.OfflineCacheOn)
	b.WriteString(c.AutodiffMode)
	b.WriteByte(0)
	writeBool(&b, c.DebugOutOfBound)
	return []byte(b.String())
}

func writeBool(b *strings.Builder, v bool) {
	if v {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
}

// DeviceCapabilityConfig maps capability tags to integer levels and
// participates in cache keys.
type DeviceCapabilityConfig struct {
	levels map[string]int
}

func NewDeviceCapabilityConfig() *DeviceCapabilityConfig {
	return &DeviceCapabilityConfig{levels: make(map[string]int)}
}

func (d *DeviceCapabilityConfig) Set(tag string, level int) {
	d.levels[tag] = level
}

func (d *DeviceCapabilityConfig) Get(tag string) (int, bool) {
	v, ok := d.levels[tag]
	return v, ok
}

// FingerprintFields returns a deterministic (sorted-by-key) byte encoding of
// the capability map for use in cache fingerprints.
func (d *DeviceCapabilityConfig) FingerprintFields() []byte {
	keys := make([]string, 0, len(d.levels))
	for k := range d.levels {
		keys = append(keys, k)
	}
	sortStrings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(d.levels[k]))
		b.WriteByte(';')
	}
	return []byte(b.String())
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// EnvOptions carries the environment-variable driven debug switches,
// recognizing both the QD_ and TI_ prefixes for backward compatibility.
type EnvOptions struct {
	DumpIR       bool
	LoadIRPath   string
	DumpCFG      bool
	DumpSimplify bool
	CI           bool
	CacheRoot    string
}

func envFirst(names ...string) string {
	for _, n := range names {
		if v, ok := os.LookupEnv(n); ok {
			return v
		}
	}
	return ""
}

func envBool(names ...string) bool {
	v := envFirst(names...)
	if v == "" {
		return false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n != 0
	}
	return v == "true"
}

// LoadEnvOptions reads the debug environment variables directly (flags
// and viper layering are for CompileConfig; these switches are debug-only
// and intentionally bypass the config file).
func LoadEnvOptions() EnvOptions {
	root := envFirst("XDG_CACHE_HOME")
	if root != "" {
		root = root + "/quadrants"
	} else if home := envFirst("HOME"); home != "" {
		root = home + "/.cache/quadrants"
	} else {
		root = "C:/quadrants_cache"
	}
	return EnvOptions{
		DumpIR:       envBool("QD_DUMP_IR", "TI_DUMP_IR"),
		LoadIRPath:   envFirst("QD_LOAD_IR", "TI_LOAD_IR"),
		DumpCFG:      envBool("QD_DUMP_CFG", "TI_DUMP_CFG"),
		DumpSimplify: envBool("QD_DUMP_SIMPLIFY", "TI_DUMP_SIMPLIFY"),
		CI:           envBool("QD_CI", "TI_CI"),
		CacheRoot:    root,
	}
}

// Default returns a CompileConfig seeded from defaults and the environment,
// suitable as a starting point before viper/cobra flag binding overrides it.
func Default() *CompileConfig {
	env := LoadEnvOptions()
	return &CompileConfig{
		Arch:           ArchX64,
		OfflineCacheOn: true,
		AutodiffMode:   "none",
		DumpIR:         env.DumpIR,
		DumpCFG:        env.DumpCFG,
		DumpSimplify:   env.DumpSimplify,
		CacheRoot:      env.CacheRoot,
	}
}

// BindViper layers viper (QD_-prefixed env; no config file) over
// CompileConfig defaults;
// cobra command flags are expected to have already been bound into v by the
// caller (see cmd/quadrants).
func BindViper(v *viper.Viper, cfg *CompileConfig) {
	v.SetEnvPrefix("QD")
	v.AutomaticEnv()
	if v.IsSet("arch") {
		cfg.Arch = parseArch(v.GetString("arch"))
	}
	if v.IsSet("fast_math") {
		cfg.FastMath = v.GetBool("fast_math")
	}
	if v.IsSet("real_matrix") {
		cfg.RealMatrixEnabled = v.GetBool("real_matrix")
	}
	if v.IsSet("offline_cache") {
		cfg.OfflineCacheOn = v.GetBool("offline_cache")
	}
	if v.IsSet("cache_root") {
		cfg.CacheRoot = v.GetString("cache_root")
	}
	if v.IsSet("debug_bounds") {
		cfg.DebugOutOfBound = v.GetBool("debug_bounds")
	}
}

func parseArch(s string) Arch {
	switch strings.ToLower(s) {
	case "x64", "cpu":
		return ArchX64
	case "arm64":
		return ArchARM64
	case "cuda":
		return ArchCUDA
	case "amdgpu", "hip":
		return ArchAMDGPU
	case "vulkan":
		return ArchVulkan
	case "metal":
		return ArchMetal
	default:
		return ArchUnknown
	}
}
