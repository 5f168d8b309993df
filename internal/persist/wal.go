package persist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/evecdb/evec/internal/errs"
	"github.com/vmihailenco/msgpack/v5"
)

// RecordType discriminates a WAL frame's payload.
type RecordType uint8

const (
	RecordInsert RecordType = iota
	RecordSoftDelete
	RecordSetMetadata
)

// frameHeaderSize is sequence(8) + type(1) + pad(3) + payload_len(4).
const frameHeaderSize = 16

// InsertRecord, SoftDeleteRecord and SetMetadataRecord are the payloads
// msgpack-encodes into a WAL frame.
type InsertRecord struct {
	VectorID uint64
	Vector   []float32
}

type SoftDeleteRecord struct {
	VectorID uint64
}

type SetMetadataRecord struct {
	VectorID uint64
	Key      string
	Value    []byte // msgpack-encoded meta.Value
}

// WAL is an append-only binary log of mutating operations, replayed to
// recover state written since the last snapshot. Each frame is
// [sequence:8][type:1][pad:3][payload_len:4][payload][crc32:4], all
// integers little-endian; the trailing CRC covers the frame header and
// the payload.
type WAL struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	path    string
	nextSeq uint64
	closed  bool
}

// OpenWAL opens or creates the log at path for appending, picking up
// nextSeq after whatever valid frames already exist.
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open WAL file: %w", err)
	}
	w := &WAL{file: f, writer: bufio.NewWriter(f), path: path}

	frames, _, err := replayFrames(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	for _, fr := range frames {
		if fr.Sequence >= w.nextSeq {
			w.nextSeq = fr.Sequence + 1
		}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek WAL to end: %w", err)
	}
	return w, nil
}

// Frame is one decoded WAL record.
type Frame struct {
	Sequence uint64
	Type     RecordType
	Payload  []byte
}

// Append encodes payload with msgpack, frames it, flushes, and fsyncs so
// the write is durable before Append returns.
func (w *WAL) Append(t RecordType, payload any) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, errs.New(errs.Io, "WAL is closed")
	}

	encoded, err := msgpack.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode WAL payload: %w", err)
	}
	if len(encoded) > 1<<24 {
		return 0, errs.New(errs.WalPayloadTooLarge, "WAL payload exceeds 16 MiB")
	}

	seq := w.nextSeq
	w.nextSeq++

	header := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], seq)
	header[8] = byte(t)
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(encoded)))

	crc := crc32.ChecksumIEEE(header)
	crc = crc32.Update(crc, crc32.IEEETable, encoded)
	trailer := make([]byte, 4)
	binary.LittleEndian.PutUint32(trailer, crc)

	if _, err := w.writer.Write(header); err != nil {
		return 0, fmt.Errorf("write WAL frame header: %w", err)
	}
	if _, err := w.writer.Write(encoded); err != nil {
		return 0, fmt.Errorf("write WAL frame payload: %w", err)
	}
	if _, err := w.writer.Write(trailer); err != nil {
		return 0, fmt.Errorf("write WAL frame trailer: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return 0, fmt.Errorf("flush WAL: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return 0, fmt.Errorf("sync WAL: %w", err)
	}
	return seq, nil
}

// Replay returns every well-formed frame written so far. A truncated
// final frame (torn write from a crash mid-append) or a frame whose CRC
// doesn't match is not an error: replay stops and returns the valid
// prefix. Partial tail damage loses at most the torn frames, never the
// log.
func (w *WAL) Replay() ([]Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.path)
	if err != nil {
		return nil, fmt.Errorf("open WAL for replay: %w", err)
	}
	defer f.Close()

	frames, _, err := replayFrames(f)
	return frames, err
}

func replayFrames(f *os.File) ([]Frame, int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek WAL to start: %w", err)
	}
	r := bufio.NewReader(f)

	var frames []Frame
	var offset int64
	for {
		header := make([]byte, frameHeaderSize)
		n, err := io.ReadFull(r, header)
		if err == io.EOF || (err == io.ErrUnexpectedEOF && n == 0) {
			break
		}
		if err == io.ErrUnexpectedEOF {
			break // torn header from a partial append
		}
		if err != nil {
			return nil, offset, fmt.Errorf("read WAL frame header: %w", err)
		}

		seq := binary.LittleEndian.Uint64(header[0:8])
		typ := RecordType(header[8])
		payloadLen := binary.LittleEndian.Uint32(header[12:16])

		if payloadLen > 1<<24 {
			break // garbage length field: treat as tail corruption
		}
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			break // torn payload
		}
		trailer := make([]byte, 4)
		if _, err := io.ReadFull(r, trailer); err != nil {
			break // torn trailer
		}
		wantCRC := binary.LittleEndian.Uint32(trailer)
		crc := crc32.ChecksumIEEE(header)
		crc = crc32.Update(crc, crc32.IEEETable, payload)
		if crc != wantCRC {
			break // CRC mismatch: stop at the last good frame
		}

		frames = append(frames, Frame{Sequence: seq, Type: typ, Payload: payload})
		offset += int64(frameHeaderSize + len(payload) + 4)
	}
	return frames, offset, nil
}

// Truncate discards all existing frames, used after a snapshot makes
// them redundant.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close WAL file before truncate: %w", err)
	}
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("recreate WAL file: %w", err)
	}
	w.file = f
	w.writer = bufio.NewWriter(f)
	w.nextSeq = 0
	return nil
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush WAL on close: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync WAL on close: %w", err)
	}
	w.closed = true
	return w.file.Close()
}

// DecodeInsert, DecodeSoftDelete and DecodeSetMetadata unmarshal a
// Frame's payload into its typed record.
func DecodeInsert(f Frame) (InsertRecord, error) {
	var r InsertRecord
	err := msgpack.Unmarshal(f.Payload, &r)
	return r, err
}

func DecodeSoftDelete(f Frame) (SoftDeleteRecord, error) {
	var r SoftDeleteRecord
	err := msgpack.Unmarshal(f.Payload, &r)
	return r, err
}

func DecodeSetMetadata(f Frame) (SetMetadataRecord, error) {
	var r SetMetadataRecord
	err := msgpack.Unmarshal(f.Payload, &r)
	return r, err
}
