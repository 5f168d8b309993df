package persist

import (
	"bytes"
	"hash/crc32"
	"io"

	"github.com/evecdb/evec/internal/errs"
	"github.com/klauspost/compress/zstd"
)

// NodeRecordSize is the fixed on-disk size of one graph node record:
// VectorId(8) + neighbor_offset(4) + neighbor_len(2) + max_layer(1) +
// pad(1).
const NodeRecordSize = 16

// Options controls how a snapshot is serialized.
type Options struct {
	// ChunkSize bounds the unit in which the body is produced; values
	// below MinChunkSize are clamped. Chunk boundaries carry no meaning.
	ChunkSize int
	// Compress zstd-compresses everything after the file header when
	// set. Section offsets always refer to the uncompressed layout.
	Compress bool
}

// Snapshot is a fully assembled .evec file body, split into the
// sections the format defines. Offsets recorded in the header count
// from the start of the file: IndexOffset is where NodeData begins
// (the vector payload spans [HeaderSize, IndexOffset)), MetadataOffset
// is where Tombstones begins, and the neighbor pool fills the gap
// between the node array and the tombstone bitmap. The optional
// metadata section, when present, follows the tombstone bitmap with
// its own 16-byte sub-header.
type Snapshot struct {
	Header       *FileHeader
	VectorData   []byte // raw bytes of the active storage representation
	NodeData     []byte // packed NodeRecordSize-byte node records
	PoolData     []byte // neighbor pool: little-endian u32 stream
	Tombstones   []byte // deletion bitmap, LSB-first, ceil(N/8) bytes
	MetadataData []byte // serialized metadata map; nil if absent
}

// WriteSnapshot lays out snap's sections, stamps the section offsets
// and both CRCs into the header, and hands the blob to
// backend.AtomicWrite. DataCRC covers every stored byte after the
// 64-byte header — compressed form included, metadata section
// included — so any post-header bit flip is detected before sections
// are interpreted.
func WriteSnapshot(backend StorageBackend, name string, snap Snapshot, opts Options) error {
	h := *snap.Header
	h.IndexOffset = uint64(HeaderSize + len(snap.VectorData))
	h.MetadataOffset = h.IndexOffset + uint64(len(snap.NodeData)+len(snap.PoolData))

	body := make([]byte, 0, len(snap.VectorData)+len(snap.NodeData)+len(snap.PoolData)+len(snap.Tombstones))
	body = append(body, snap.VectorData...)
	body = append(body, snap.NodeData...)
	body = append(body, snap.PoolData...)
	body = append(body, snap.Tombstones...)

	if snap.MetadataData != nil {
		h.Flags |= FlagHasMetadata
		metaCRC := crc32.ChecksumIEEE(snap.MetadataData)
		metaHeader := NewMetadataSectionHeader(FormatMsgpack, uint32(len(snap.MetadataData)), metaCRC)
		body = append(body, metaHeader.Bytes()...)
		body = append(body, snap.MetadataData...)
	}

	if opts.Compress {
		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return errs.Wrap(errs.Io, err, "create zstd encoder")
		}
		if _, err := enc.Write(body); err != nil {
			enc.Close()
			return errs.Wrap(errs.Io, err, "compress snapshot body")
		}
		if err := enc.Close(); err != nil {
			return errs.Wrap(errs.Io, err, "finalize zstd stream")
		}
		body = buf.Bytes()
		h.Flags |= FlagCompressed
	}

	h.DataCRC = crc32.ChecksumIEEE(body)
	h.UpdateChecksum()

	// The header is written whole ahead of the body; only the body is
	// copied in bounded chunks (clamped to at least MinChunkSize).
	// Boundaries carry no meaning.
	out := make([]byte, 0, HeaderSize+len(body))
	out = append(out, h.Bytes()...)
	cr := NewChunkReader(body, opts.ChunkSize)
	for {
		chunk, ok := cr.Next()
		if !ok {
			break
		}
		out = append(out, chunk...)
	}

	return backend.AtomicWrite(name, out)
}

// ReadSnapshot loads and validates a snapshot previously written by
// WriteSnapshot: header checks first, then DataCRC over the raw stored
// body, then decompression, then section slicing by the header's
// offsets.
func ReadSnapshot(backend StorageBackend, name string) (*Snapshot, error) {
	raw, err := backend.Read(name)
	if err != nil {
		return nil, err
	}
	if len(raw) < HeaderSize {
		return nil, errs.New(errs.BufferTooShort, "snapshot shorter than the file header")
	}
	header, err := ParseFileHeader(raw[:HeaderSize])
	if err != nil {
		return nil, err
	}

	stored := raw[HeaderSize:]
	calculated := crc32.ChecksumIEEE(stored)
	if calculated != header.DataCRC {
		return nil, errs.Checksum(header.DataCRC, calculated)
	}

	body := stored
	if header.Flags&FlagCompressed != 0 {
		dec, err := zstd.NewReader(bytes.NewReader(stored))
		if err != nil {
			return nil, errs.Wrap(errs.Io, err, "create zstd decoder")
		}
		defer dec.Close()
		body, err = io.ReadAll(dec)
		if err != nil {
			return nil, errs.Wrap(errs.Io, err, "decompress snapshot body")
		}
	}

	n := int(header.VectorCount)

	indexOff := int(header.IndexOffset) - HeaderSize
	if indexOff < 0 || indexOff > len(body) {
		return nil, errs.New(errs.BufferTooShort, "index offset out of range")
	}
	nodesEnd := indexOff + n*NodeRecordSize
	if nodesEnd > len(body) {
		return nil, errs.New(errs.BufferTooShort, "snapshot truncated inside the node array")
	}

	snap := &Snapshot{
		Header:     header,
		VectorData: body[:indexOff],
		NodeData:   body[indexOff:nodesEnd],
	}

	if header.MetadataOffset == 0 {
		// No tombstone section: every node is live and no metadata
		// section can follow; the pool runs to the end of the body.
		snap.PoolData = body[nodesEnd:]
		return snap, nil
	}

	metaOff := int(header.MetadataOffset) - HeaderSize
	if metaOff < nodesEnd || metaOff > len(body) {
		return nil, errs.New(errs.BufferTooShort, "tombstone offset out of range")
	}
	snap.PoolData = body[nodesEnd:metaOff]

	tombLen := (n + 7) / 8
	tombEnd := metaOff + tombLen
	if tombEnd > len(body) {
		return nil, errs.New(errs.BufferTooShort, "snapshot truncated inside the tombstone bitmap")
	}
	snap.Tombstones = body[metaOff:tombEnd]

	if header.Flags&FlagHasMetadata != 0 {
		metaHeaderEnd := tombEnd + MetaHeaderSize
		if metaHeaderEnd > len(body) {
			return nil, errs.New(errs.BufferTooShort, "truncated metadata section header")
		}
		metaHeader, err := ParseMetadataSectionHeader(body[tombEnd:metaHeaderEnd])
		if err != nil {
			return nil, err
		}
		dataEnd := metaHeaderEnd + int(metaHeader.Size)
		if dataEnd > len(body) {
			return nil, errs.New(errs.BufferTooShort, "truncated metadata section body")
		}
		metaData := body[metaHeaderEnd:dataEnd]
		if crc := crc32.ChecksumIEEE(metaData); crc != metaHeader.CRC {
			return nil, errs.Checksum(metaHeader.CRC, crc)
		}
		snap.MetadataData = metaData
	}

	return snap, nil
}
