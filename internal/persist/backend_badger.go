package persist

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend stores snapshots as single values inside an embedded
// Badger KV store, for applications that already keep their own state
// in Badger and would rather not manage a second file format on disk.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadgerBackend opens (creating if absent) a Badger database at dir.
// Callers own the returned backend's lifetime and must call Close.
func OpenBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger backend: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Close() error { return b.db.Close() }

func (b *BadgerBackend) AtomicWrite(name string, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), data)
	})
}

func (b *BadgerBackend) Read(name string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read badger key %q: %w", name, err)
	}
	return out, nil
}
