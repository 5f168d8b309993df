// Package persist implements the on-disk .evec file format:
// a fixed 64-byte file header, an optional 16-byte metadata section
// header, chunked snapshot I/O, and a binary write-ahead log.
package persist

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/evecdb/evec/internal/errs"
)

// HeaderSize is the fixed on-disk size of FileHeader in bytes.
const HeaderSize = 64

// MetaHeaderSize is the fixed on-disk size of MetadataSectionHeader.
const MetaHeaderSize = 16

var (
	magic       = [4]byte{'E', 'V', 'E', 'C'}
	metaMagic   = [4]byte{'M', 'E', 'T', 'A'}
	versionMajor uint8 = 0
	versionMinor uint8 = 3
	versionMinorMin uint8 = 1
)

// Format flags.
const (
	FlagCompressed uint16 = 1 << 0
	FlagQuantized  uint16 = 1 << 1
	FlagHasMetadata uint16 = 1 << 2
)

// Metadata serialization formats.
const (
	FormatMsgpack uint8 = 1
	FormatJSON    uint8 = 2
)

// FileHeader is the 64-byte .evec file header (field offsets in
// comments).
type FileHeader struct {
	Magic          [4]byte // 0
	VersionMajor   uint8   // 4
	VersionMinor   uint8   // 5
	Flags          uint16  // 6
	VectorCount    uint64  // 8
	IndexOffset    uint64  // 16
	MetadataOffset uint64  // 24
	RngSeed        uint64  // 32
	Dimensions     uint32  // 40
	HeaderCRC      uint32  // 44
	HnswM          uint32  // 48
	HnswM0         uint32  // 52
	DataCRC        uint32  // 56
	DeletedCount   uint32  // 60
}

// NewFileHeader returns a header with the current format version and the
// given dimensionality, checksum already computed.
func NewFileHeader(dimensions uint32) *FileHeader {
	h := &FileHeader{
		Magic:        magic,
		VersionMajor: versionMajor,
		VersionMinor: versionMinor,
		Dimensions:   dimensions,
		HnswM:        16,
		HnswM0:       32,
	}
	h.UpdateChecksum()
	return h
}

// Bytes serializes the header to its fixed 64-byte little-endian layout.
func (h *FileHeader) Bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:4], h.Magic[:])
	b[4] = h.VersionMajor
	b[5] = h.VersionMinor
	binary.LittleEndian.PutUint16(b[6:8], h.Flags)
	binary.LittleEndian.PutUint64(b[8:16], h.VectorCount)
	binary.LittleEndian.PutUint64(b[16:24], h.IndexOffset)
	binary.LittleEndian.PutUint64(b[24:32], h.MetadataOffset)
	binary.LittleEndian.PutUint64(b[32:40], h.RngSeed)
	binary.LittleEndian.PutUint32(b[40:44], h.Dimensions)
	binary.LittleEndian.PutUint32(b[44:48], h.HeaderCRC)
	binary.LittleEndian.PutUint32(b[48:52], h.HnswM)
	binary.LittleEndian.PutUint32(b[52:56], h.HnswM0)
	binary.LittleEndian.PutUint32(b[56:60], h.DataCRC)
	binary.LittleEndian.PutUint32(b[60:64], h.DeletedCount)
	return b
}

// UpdateChecksum recomputes HeaderCRC over the header with HeaderCRC
// zeroed.
func (h *FileHeader) UpdateChecksum() {
	h.HeaderCRC = 0
	h.HeaderCRC = crc32.ChecksumIEEE(h.Bytes())
}

// ParseFileHeader decodes and validates a 64-byte header: magic, major
// version match, minor version floor, and checksum.
func ParseFileHeader(b []byte) (*FileHeader, error) {
	if len(b) < HeaderSize {
		return nil, errs.New(errs.BufferTooShort, "file header requires 64 bytes")
	}
	var h FileHeader
	copy(h.Magic[:], b[0:4])
	h.VersionMajor = b[4]
	h.VersionMinor = b[5]
	h.Flags = binary.LittleEndian.Uint16(b[6:8])
	h.VectorCount = binary.LittleEndian.Uint64(b[8:16])
	h.IndexOffset = binary.LittleEndian.Uint64(b[16:24])
	h.MetadataOffset = binary.LittleEndian.Uint64(b[24:32])
	h.RngSeed = binary.LittleEndian.Uint64(b[32:40])
	h.Dimensions = binary.LittleEndian.Uint32(b[40:44])
	h.HeaderCRC = binary.LittleEndian.Uint32(b[44:48])
	h.HnswM = binary.LittleEndian.Uint32(b[48:52])
	h.HnswM0 = binary.LittleEndian.Uint32(b[52:56])
	h.DataCRC = binary.LittleEndian.Uint32(b[56:60])
	h.DeletedCount = binary.LittleEndian.Uint32(b[60:64])

	if h.Magic != magic {
		return nil, errs.New(errs.InvalidMagic, "file does not start with the EVEC magic number")
	}
	if h.VersionMajor != versionMajor || h.VersionMinor < versionMinorMin {
		return nil, errs.Newf(errs.UnsupportedVersion, "unsupported file version %d.%d", h.VersionMajor, h.VersionMinor)
	}

	check := h
	check.HeaderCRC = 0
	calculated := crc32.ChecksumIEEE(check.Bytes())
	if calculated != h.HeaderCRC {
		return nil, errs.Checksum(h.HeaderCRC, calculated)
	}
	return &h, nil
}

// SupportsSoftDelete reports whether the format version carries
// tombstone bookkeeping (v0.3+).
func (h *FileHeader) SupportsSoftDelete() bool { return h.VersionMinor >= 3 }

// MetadataSectionHeader is the 16-byte sub-header preceding a serialized
// metadata blob when FlagHasMetadata is set.
type MetadataSectionHeader struct {
	Magic    [4]byte
	Version  uint16
	Format   uint8
	Reserved uint8
	Size     uint32
	CRC      uint32
}

func NewMetadataSectionHeader(format uint8, size, crc uint32) *MetadataSectionHeader {
	return &MetadataSectionHeader{Magic: metaMagic, Version: 1, Format: format, Size: size, CRC: crc}
}

func (h *MetadataSectionHeader) Bytes() []byte {
	b := make([]byte, MetaHeaderSize)
	copy(b[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	b[6] = h.Format
	b[7] = h.Reserved
	binary.LittleEndian.PutUint32(b[8:12], h.Size)
	binary.LittleEndian.PutUint32(b[12:16], h.CRC)
	return b
}

func ParseMetadataSectionHeader(b []byte) (*MetadataSectionHeader, error) {
	if len(b) < MetaHeaderSize {
		return nil, errs.New(errs.BufferTooShort, "metadata section header requires 16 bytes")
	}
	var h MetadataSectionHeader
	copy(h.Magic[:], b[0:4])
	h.Version = binary.LittleEndian.Uint16(b[4:6])
	h.Format = b[6]
	h.Reserved = b[7]
	h.Size = binary.LittleEndian.Uint32(b[8:12])
	h.CRC = binary.LittleEndian.Uint32(b[12:16])

	if h.Magic != metaMagic {
		return nil, errs.New(errs.InvalidMagic, "metadata section does not start with the META magic number")
	}
	if h.Version > 1 {
		return nil, errs.Newf(errs.UnsupportedVersion, "unsupported metadata section version %d", h.Version)
	}
	if h.Format != FormatMsgpack && h.Format != FormatJSON {
		return nil, errs.Newf(errs.FilterTypeMismatch, "unsupported metadata serialization format %d", h.Format)
	}
	return &h, nil
}
