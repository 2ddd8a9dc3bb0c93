package kv

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/lintang-b-s/transitplanner/pkg/routes"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	errKeyNotFound      = errors.New("key not found")
)

const defaultBatchSize = 1000

type kvPair struct {
	key   []byte
	value []byte
}

// kvStore the few operations the interchange cache needs from a key value db.
type kvStore interface {
	get(key []byte) ([]byte, error)
	setBatch(ctx context.Context, pairs []kvPair) error
	dropPrefix(prefix []byte) error
}

// InterchangeCache stores interchange records under <key>/meta and <key>/batch/<n>.
// meta is written last, Has only reports complete artifacts.
type InterchangeCache struct {
	store     kvStore
	codec     codec
	batchSize int
}

var _ routes.InterchangeCache = (*InterchangeCache)(nil)

func newInterchangeCache(store kvStore, codec codec) *InterchangeCache {
	return &InterchangeCache{store: store, codec: codec, batchSize: defaultBatchSize}
}

func metaKey(key string) []byte {
	return []byte(key + "/meta")
}

func batchKey(key string, n uint32) []byte {
	return []byte(fmt.Sprintf("%s/batch/%08d", key, n))
}

func (c *InterchangeCache) Has(ctx context.Context, key string) (bool, error) {
	_, err := c.store.get(metaKey(key))
	if errors.Is(err, errKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *InterchangeCache) Save(ctx context.Context, key string, records iter.Seq[routes.InterchangeRecord]) error {
	if err := c.store.dropPrefix([]byte(key + "/")); err != nil {
		return errors.Wrapf(err, "dropping old artifact %s", key)
	}

	var (
		meta    artifactMeta
		batch   batchData
		pending []kvPair
	)

	flush := func() error {
		if len(batch.Records) == 0 {
			return nil
		}
		val, err := c.encode(batch)
		if err != nil {
			return err
		}
		pending = append(pending, kvPair{key: batchKey(key, meta.Batches), value: val})
		meta.Batches++
		batch.Records = make([]recordData, 0, c.batchSize)
		if len(pending) >= 16 {
			if err := c.store.setBatch(ctx, pending); err != nil {
				return err
			}
			pending = pending[:0]
		}
		return nil
	}

	for record := range records {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "saving interchange records")
		default:
		}
		if record.Overlaps != nil {
			batch.NumberOfRoutes = uint32(record.Overlaps.Size())
		}
		batch.Records = append(batch.Records, toRecordData(record))
		meta.Records++
		if len(batch.Records) == c.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	metaVal, err := encodeMeta(meta)
	if err != nil {
		return err
	}
	pending = append(pending, kvPair{key: metaKey(key), value: metaVal})
	if err := c.store.setBatch(ctx, pending); err != nil {
		return err
	}

	slog.Info("interchange records saved", "key", key, "records", meta.Records, "batches", meta.Batches)
	return nil
}

func (c *InterchangeCache) encode(batch batchData) ([]byte, error) {
	bb, err := encodeBatch(batch)
	if err != nil {
		return nil, errors.Wrap(err, "encoding interchange batch")
	}
	return c.codec.compress(bb)
}

func (c *InterchangeCache) Load(ctx context.Context, key string) iter.Seq2[routes.InterchangeRecord, error] {
	return func(yield func(routes.InterchangeRecord, error) bool) {
		metaVal, err := c.store.get(metaKey(key))
		if errors.Is(err, errKeyNotFound) {
			yield(routes.InterchangeRecord{}, errors.Wrapf(ErrArtifactNotFound, "key %s", key))
			return
		}
		if err != nil {
			yield(routes.InterchangeRecord{}, err)
			return
		}
		meta, err := decodeMeta(metaVal)
		if err != nil {
			yield(routes.InterchangeRecord{}, errors.Wrapf(err, "decoding meta of %s", key))
			return
		}

		var loaded uint64
		for n := uint32(0); n < meta.Batches; n++ {
			if ctx.Err() != nil {
				yield(routes.InterchangeRecord{}, ctx.Err())
				return
			}
			val, err := c.store.get(batchKey(key, n))
			if err != nil {
				yield(routes.InterchangeRecord{}, errors.Wrapf(err, "reading batch %d of %s", n, key))
				return
			}
			bb, err := c.codec.decompress(val)
			if err != nil {
				yield(routes.InterchangeRecord{}, errors.Wrapf(err, "decompressing batch %d of %s", n, key))
				return
			}
			batch, err := decodeBatch(bb)
			if err != nil {
				yield(routes.InterchangeRecord{}, errors.Wrapf(err, "decoding batch %d of %s", n, key))
				return
			}
			for _, data := range batch.Records {
				loaded++
				if !yield(data.toRecord(batch.NumberOfRoutes), nil) {
					return
				}
			}
		}
		if loaded != meta.Records {
			yield(routes.InterchangeRecord{}, errors.Wrapf(routes.ErrCorruptRecord,
				"artifact %s has %d records, meta says %d", key, loaded, meta.Records))
		}
	}
}
