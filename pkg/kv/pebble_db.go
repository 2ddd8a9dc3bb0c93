package kv

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// PebbleDB pebble backed store of persisted artifacts.
type PebbleDB struct {
	db *pebble.DB
}

func NewPebbleDB(db *pebble.DB) *PebbleDB {
	return &PebbleDB{db: db}
}

// OpenPebble opens dir, or an in memory filesystem when dir is empty.
func OpenPebble(dir string) (*pebble.DB, error) {
	opts := &pebble.Options{}
	if dir == "" {
		opts.FS = vfs.NewMem()
	}
	return pebble.Open(dir, opts)
}

// NewPebbleInterchangeCache klauspost zstd compressed records in pebble.
func NewPebbleInterchangeCache(db *pebble.DB) *InterchangeCache {
	return newInterchangeCache(NewPebbleDB(db), klauspostCodec)
}

func (p *PebbleDB) setBatch(ctx context.Context, pairs []kvPair) error {
	batch := p.db.NewBatch()
	defer batch.Close()

	for _, pair := range pairs {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "saving batch")
		default:
		}
		if err := batch.Set(pair.key, pair.value, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleDB) get(key []byte) ([]byte, error) {
	val, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, errKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (p *PebbleDB) dropPrefix(prefix []byte) error {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	// prefix always ends with '/', incrementing the last byte bounds the range
	upper[len(upper)-1]++
	return p.db.DeleteRange(prefix, upper, pebble.Sync)
}

func (p *PebbleDB) Close() error {
	return p.db.Close()
}
