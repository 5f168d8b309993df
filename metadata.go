package evec

import (
	"github.com/evecdb/evec/internal/meta"
	"github.com/evecdb/evec/internal/persist"
	"github.com/vmihailenco/msgpack/v5"
)

// Value is a single tagged metadata value.
type Value = meta.Value

func StringValue(s string) Value        { return meta.String(s) }
func IntValue(i int64) Value            { return meta.Int(i) }
func FloatValue(f float64) Value        { return meta.Float(f) }
func BoolValue(b bool) Value            { return meta.Bool(b) }
func StringArrayValue(s []string) Value { return meta.StringArray(s) }

// SetMetadata attaches a validated (key, value) pair to id's metadata
// map. It does not require id to currently exist in the graph, matching
// metadata's separately-allocated ownership model. WAL-framed, like
// Insert and SoftDelete, so metadata written since the last snapshot
// survives a crash.
func (idx *Index) SetMetadata(id uint64, key string, v Value) error {
	if err := meta.ValidateKey(key); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}
	if idx.wal != nil {
		encoded, err := msgpack.Marshal(v)
		if err != nil {
			return err
		}
		rec := persist.SetMetadataRecord{VectorID: id, Key: key, Value: encoded}
		if _, err := idx.wal.Append(persist.RecordSetMetadata, rec); err != nil {
			return err
		}
	}
	return idx.meta.Set(id, key, v)
}

// GetMetadata returns id's value for key, or ok=false if either is
// absent.
func (idx *Index) GetMetadata(id uint64, key string) (Value, bool) {
	return idx.meta.Get(id, key)
}

// DeleteMetadata drops every metadata key for id. The drop is not
// recorded in the WAL, so a crash before the next Save lets WAL replay
// restore keys that were set since the last snapshot.
func (idx *Index) DeleteMetadata(id uint64) {
	idx.meta.Delete(id)
}
