// Package cache implements the content-addressed on-disk compiled-kernel
// store: one .qdc file per fingerprint under
// <cache_root>/kernel_compilation_manager/, plus a qdcache.tcb metadata
// index, with pluggable LRU/size-bound eviction.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"

	"github.com/Genesis-Embodied-AI/quadrants/internal/errs"
)

const (
	qdcMagic         uint32 = 0x51444348 // "QDCH"
	qdcFormatVersion uint32 = 1
)

// QDCFile is the decoded form of a <fingerprint>.qdc file: 4-byte magic,
// 4-byte format version, arch tag, a length-prefixed JSON metadata blob, a
// length-prefixed payload, and a trailing CRC32 over everything before it.
type QDCFile struct {
	ArchTag  uint32
	Metadata []byte // UTF-8 JSON
	Payload  []byte // backend-defined compiled bytes
}

// Encode serializes f into the on-disk .qdc byte layout.
func (f *QDCFile) Encode() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, qdcMagic)
	binary.Write(&buf, binary.LittleEndian, qdcFormatVersion)
	binary.Write(&buf, binary.LittleEndian, f.ArchTag)
	binary.Write(&buf, binary.LittleEndian, uint32(len(f.Metadata)))
	buf.Write(f.Metadata)
	binary.Write(&buf, binary.LittleEndian, uint64(len(f.Payload)))
	buf.Write(f.Payload)

	crc := crc32.ChecksumIEEE(buf.Bytes())
	binary.Write(&buf, binary.LittleEndian, crc)
	return buf.Bytes()
}

// DecodeQDC parses the .qdc byte layout, validating magic, format version,
// and the trailing CRC32.
func DecodeQDC(data []byte) (*QDCFile, error) {
	if len(data) < 20 {
		return nil, errs.New(errs.DeviceError, "qdc file too short: %d bytes", len(data))
	}
	r := bytes.NewReader(data)
	var magic, version, archTag, metaLen uint32
	binary.Read(r, binary.LittleEndian, &magic)
	if magic != qdcMagic {
		return nil, errs.New(errs.DeviceError, "qdc bad magic: %x", magic)
	}
	binary.Read(r, binary.LittleEndian, &version)
	if version != qdcFormatVersion {
		return nil, errs.New(errs.DeviceError, "qdc unsupported format version: %d", version)
	}
	binary.Read(r, binary.LittleEndian, &archTag)
	binary.Read(r, binary.LittleEndian, &metaLen)

	meta := make([]byte, metaLen)
	if _, err := r.Read(meta); err != nil {
		return nil, errs.Wrap(errs.DeviceError, err, "reading qdc metadata")
	}

	var payloadLen uint64
	binary.Read(r, binary.LittleEndian, &payloadLen)
	payload := make([]byte, payloadLen)
	if _, err := r.Read(payload); err != nil {
		return nil, errs.Wrap(errs.DeviceError, err, "reading qdc payload")
	}

	bodyLen := len(data) - 4 // everything except the trailing CRC
	var wantCRC uint32
	binary.Read(bytes.NewReader(data[bodyLen:]), binary.LittleEndian, &wantCRC)
	gotCRC := crc32.ChecksumIEEE(data[:bodyLen])
	if gotCRC != wantCRC {
		return nil, errs.New(errs.DeviceError, "qdc CRC mismatch: want %x got %x", wantCRC, gotCRC)
	}

	return &QDCFile{ArchTag: archTag, Metadata: meta, Payload: payload}, nil
}

// KernelMetadata is the JSON-serialized metadata blob embedded in each .qdc
// file, describing the kernel's calling convention for the launcher.
type KernelMetadata struct {
	Args     []string `json:"args"`
	Rets     []string `json:"rets"`
	RetType  string   `json:"ret_type"`
	ArgsType string   `json:"args_type"`
}

func (m *KernelMetadata) marshal() []byte {
	b, _ := json.Marshal(m)
	return b
}
