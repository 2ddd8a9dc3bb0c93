package kv

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
)

// KVDB badger backed store of persisted artifacts.
type KVDB struct {
	db *badger.DB
}

func NewKVDB(db *badger.DB) *KVDB {
	return &KVDB{db}
}

// OpenBadger opens dir, or an in memory db when dir is empty.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

// NewBadgerInterchangeCache datadog zstd compressed records in badger.
func NewBadgerInterchangeCache(db *badger.DB) *InterchangeCache {
	return newInterchangeCache(NewKVDB(db), datadogCodec)
}

func (k *KVDB) setBatch(ctx context.Context, pairs []kvPair) error {
	batch := k.db.NewWriteBatch()
	defer batch.Cancel()

	for _, pair := range pairs {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "saving batch")
		default:
		}

		if err := batch.Set(pair.key, pair.value); err != nil {
			return err
		}
	}

	if err := batch.Flush(); err != nil {
		slog.Error("error saving batch", "error", err)
		return err
	}
	slog.Debug("saving batch done", "keys", len(pairs))
	return nil
}

func (k *KVDB) get(key []byte) ([]byte, error) {
	var val []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errKeyNotFound
	}
	return val, err
}

func (k *KVDB) dropPrefix(prefix []byte) error {
	return k.db.DropPrefix(prefix)
}

func (k *KVDB) Close() error {
	return k.db.Close()
}
