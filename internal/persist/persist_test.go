package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/evecdb/evec/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	h := NewFileHeader(128)
	h.VectorCount = 42
	h.UpdateChecksum()

	decoded, err := ParseFileHeader(h.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(128), decoded.Dimensions)
	assert.Equal(t, uint64(42), decoded.VectorCount)
	assert.True(t, decoded.SupportsSoftDelete())
}

func TestFileHeaderRejectsBadMagic(t *testing.T) {
	h := NewFileHeader(4)
	b := h.Bytes()
	b[0] = 'X'
	_, err := ParseFileHeader(b)
	assert.Error(t, err)
}

func TestFileHeaderRejectsChecksumMismatch(t *testing.T) {
	h := NewFileHeader(4)
	b := h.Bytes()
	b[40] = 255 // corrupt dimensions without recomputing CRC
	_, err := ParseFileHeader(b)
	assert.Error(t, err)
}

func TestFileHeaderRejectsShortBuffer(t *testing.T) {
	_, err := ParseFileHeader(make([]byte, 10))
	assert.Error(t, err)
}

func TestMetadataSectionHeaderRoundTrip(t *testing.T) {
	h := NewMetadataSectionHeader(FormatMsgpack, 1024, 0xDEADBEEF)
	decoded, err := ParseMetadataSectionHeader(h.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), decoded.Size)
	assert.Equal(t, uint32(0xDEADBEEF), decoded.CRC)
	assert.True(t, decoded.Format == FormatMsgpack)
}

// testSnapshot builds a structurally valid two-vector snapshot: dim 2,
// float32 payload, two 16-byte node records, a small pool, and a
// one-byte tombstone bitmap with the second slot deleted.
func testSnapshot(withMeta bool) Snapshot {
	h := NewFileHeader(2)
	h.VectorCount = 2
	snap := Snapshot{
		Header:     h,
		VectorData: make([]byte, 2*2*4),
		NodeData:   make([]byte, 2*NodeRecordSize),
		PoolData:   []byte{1, 0, 0, 0, 0, 0, 0, 0},
		Tombstones: []byte{0b10},
	}
	for i := range snap.VectorData {
		snap.VectorData[i] = byte(i)
	}
	for i := range snap.NodeData {
		snap.NodeData[i] = byte(i % 7)
	}
	// give both records well-formed (u32-aligned) neighbor offsets
	copy(snap.NodeData[8:12], []byte{0, 0, 0, 0})
	copy(snap.NodeData[NodeRecordSize+8:NodeRecordSize+12], []byte{4, 0, 0, 0})
	if withMeta {
		snap.MetadataData = []byte("pretend msgpack metadata")
	}
	return snap
}

func TestSnapshotRoundTripUncompressed(t *testing.T) {
	backend := NewFileBackend()
	path := filepath.Join(t.TempDir(), "index.evec")

	snap := testSnapshot(true)
	require.NoError(t, WriteSnapshot(backend, path, snap, Options{}))

	loaded, err := ReadSnapshot(backend, path)
	require.NoError(t, err)
	assert.Equal(t, snap.VectorData, loaded.VectorData)
	assert.Equal(t, snap.NodeData, loaded.NodeData)
	assert.Equal(t, snap.PoolData, loaded.PoolData)
	assert.Equal(t, snap.Tombstones, loaded.Tombstones)
	assert.Equal(t, snap.MetadataData, loaded.MetadataData)
	assert.Equal(t, uint32(2), loaded.Header.Dimensions)
}

func TestSnapshotOffsetsLocateSections(t *testing.T) {
	backend := NewFileBackend()
	path := filepath.Join(t.TempDir(), "index.evec")

	snap := testSnapshot(false)
	require.NoError(t, WriteSnapshot(backend, path, snap, Options{}))

	raw, err := backend.Read(path)
	require.NoError(t, err)
	h, err := ParseFileHeader(raw[:HeaderSize])
	require.NoError(t, err)

	// IndexOffset points at the node array; the vector payload fills
	// [HeaderSize, IndexOffset). MetadataOffset points at the tombstone
	// bitmap, with the neighbor pool in between.
	assert.Equal(t, uint64(HeaderSize+len(snap.VectorData)), h.IndexOffset)
	nodesEnd := int(h.IndexOffset) + len(snap.NodeData)
	assert.Equal(t, snap.VectorData, raw[HeaderSize:h.IndexOffset])
	assert.Equal(t, snap.NodeData, raw[h.IndexOffset:nodesEnd])
	assert.Equal(t, uint64(nodesEnd+len(snap.PoolData)), h.MetadataOffset)
	assert.Equal(t, snap.PoolData, raw[nodesEnd:h.MetadataOffset])
	assert.Equal(t, snap.Tombstones, raw[h.MetadataOffset:int(h.MetadataOffset)+len(snap.Tombstones)])
}

func TestSnapshotRoundTripCompressedNoMetadata(t *testing.T) {
	backend := NewFileBackend()
	path := filepath.Join(t.TempDir(), "index.evec")

	snap := testSnapshot(false)
	require.NoError(t, WriteSnapshot(backend, path, snap, Options{Compress: true}))

	loaded, err := ReadSnapshot(backend, path)
	require.NoError(t, err)
	assert.Equal(t, snap.VectorData, loaded.VectorData)
	assert.Equal(t, snap.NodeData, loaded.NodeData)
	assert.Equal(t, snap.Tombstones, loaded.Tombstones)
	assert.Nil(t, loaded.MetadataData)
	assert.NotZero(t, loaded.Header.Flags&FlagCompressed)
}

func TestSnapshotDetectsCorruption(t *testing.T) {
	backend := NewFileBackend()
	path := filepath.Join(t.TempDir(), "index.evec")

	snap := testSnapshot(false)
	require.NoError(t, WriteSnapshot(backend, path, snap, Options{}))

	raw, err := backend.Read(path)
	require.NoError(t, err)
	raw[HeaderSize] ^= 0xFF // flip a byte in the vector payload
	require.NoError(t, backend.AtomicWrite(path, raw))

	_, err = ReadSnapshot(backend, path)
	assert.Error(t, err)
}

func TestSnapshotDetectsMetaSubHeaderTamper(t *testing.T) {
	backend := NewFileBackend()
	path := filepath.Join(t.TempDir(), "index.evec")

	snap := testSnapshot(true)
	require.NoError(t, WriteSnapshot(backend, path, snap, Options{}))

	raw, err := backend.Read(path)
	require.NoError(t, err)
	h, err := ParseFileHeader(raw[:HeaderSize])
	require.NoError(t, err)

	// Flip a bit in the META sub-header's Size field. DataCRC covers
	// every byte after the file header, the sub-header included.
	metaHeaderStart := int(h.MetadataOffset) + len(snap.Tombstones)
	raw[metaHeaderStart+8] ^= 0x01
	require.NoError(t, backend.AtomicWrite(path, raw))

	_, err = ReadSnapshot(backend, path)
	require.Error(t, err)
	kindErr := &errs.Error{Kind: errs.ChecksumMismatch}
	assert.True(t, errors.Is(err, kindErr))
}

func TestChunkReaderClampsMinimumSize(t *testing.T) {
	data := make([]byte, 200)
	cr := NewChunkReader(data, 1)
	var total int
	for {
		chunk, ok := cr.Next()
		if !ok {
			break
		}
		assert.LessOrEqual(t, len(chunk), MinChunkSize)
		total += len(chunk)
	}
	assert.Equal(t, len(data), total)
}

func TestWALAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := OpenWAL(path)
	require.NoError(t, err)

	_, err = w.Append(RecordInsert, InsertRecord{VectorID: 1, Vector: []float32{1, 2, 3}})
	require.NoError(t, err)
	_, err = w.Append(RecordSoftDelete, SoftDeleteRecord{VectorID: 1})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w2, err := OpenWAL(path)
	require.NoError(t, err)
	frames, err := w2.Replay()
	require.NoError(t, err)
	require.Len(t, frames, 2)

	ins, err := DecodeInsert(frames[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ins.VectorID)
	assert.Equal(t, []float32{1, 2, 3}, ins.Vector)

	del, err := DecodeSoftDelete(frames[1])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), del.VectorID)
	require.NoError(t, w2.Close())
}

func TestWALReplayStopsAtTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := OpenWAL(path)
	require.NoError(t, err)
	_, err = w.Append(RecordInsert, InsertRecord{VectorID: 1, Vector: []float32{1}})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	backend := NewFileBackend()
	raw, err := backend.Read(path)
	require.NoError(t, err)
	truncated := raw[:len(raw)-2] // cut into the trailer
	require.NoError(t, backend.AtomicWrite(path, truncated))

	w2, err := OpenWAL(path)
	require.NoError(t, err)
	frames, err := w2.Replay()
	require.NoError(t, err)
	assert.Len(t, frames, 0)
	require.NoError(t, w2.Close())
}

func TestWALTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := OpenWAL(path)
	require.NoError(t, err)
	_, err = w.Append(RecordInsert, InsertRecord{VectorID: 1, Vector: []float32{1}})
	require.NoError(t, err)
	require.NoError(t, w.Truncate())

	frames, err := w.Replay()
	require.NoError(t, err)
	assert.Len(t, frames, 0)
	require.NoError(t, w.Close())
}

// chaosBackend simulates a crash at the rename step of FileBackend's
// temp-then-rename sequence: the temp file is written but never moved
// into place, and the call reports failure. Whatever was previously
// visible under the name must remain intact.
type chaosBackend struct {
	inner FileBackend
}

func (c chaosBackend) AtomicWrite(name string, data []byte) error {
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return errors.New("injected rename failure")
}

func (c chaosBackend) Read(name string) ([]byte, error) {
	return c.inner.Read(name)
}

func TestAtomicWriteFailureLeavesPreviousSnapshotIntact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.evec")

	file := NewFileBackend()
	original := testSnapshot(false)
	require.NoError(t, WriteSnapshot(file, path, original, Options{}))

	chaos := chaosBackend{}
	replacement := testSnapshot(false)
	for i := range replacement.VectorData {
		replacement.VectorData[i] = 0xEE
	}
	err := WriteSnapshot(chaos, path, replacement, Options{})
	require.Error(t, err)

	snap, err := ReadSnapshot(file, path)
	require.NoError(t, err)
	assert.Equal(t, original.VectorData, snap.VectorData)
}

func TestWALReplayStopsAtCorruptedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := OpenWAL(path)
	require.NoError(t, err)
	_, err = w.Append(RecordInsert, InsertRecord{VectorID: 1, Vector: []float32{1, 2}})
	require.NoError(t, err)
	_, err = w.Append(RecordInsert, InsertRecord{VectorID: 2, Vector: []float32{3, 4}})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[frameHeaderSize+2] ^= 0xFF // flip a byte inside the first payload
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	w2, err := OpenWAL(path)
	require.NoError(t, err)
	frames, err := w2.Replay()
	require.NoError(t, err)
	assert.Empty(t, frames, "corruption in frame 1 discards it and everything after")
	require.NoError(t, w2.Close())
}

func TestWALReplayAtEveryTruncationOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := OpenWAL(path)
	require.NoError(t, err)

	frameEnds := []int{}
	size := 0
	for i := 1; i <= 3; i++ {
		_, err = w.Append(RecordInsert, InsertRecord{VectorID: uint64(i), Vector: []float32{float32(i)}})
		require.NoError(t, err)
		info, err := os.Stat(path)
		require.NoError(t, err)
		size = int(info.Size())
		frameEnds = append(frameEnds, size)
	}
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	for cut := 0; cut <= size; cut++ {
		complete := 0
		for _, end := range frameEnds {
			if cut >= end {
				complete++
			}
		}

		trunc := filepath.Join(t.TempDir(), "cut.log")
		require.NoError(t, os.WriteFile(trunc, raw[:cut], 0o644))
		w2, err := OpenWAL(trunc)
		require.NoError(t, err)
		frames, err := w2.Replay()
		require.NoError(t, err)
		assert.Len(t, frames, complete, "truncation at offset %d", cut)
		require.NoError(t, w2.Close())
	}
}
