package kv

import (
	"github.com/cockroachdb/errors"
)

const (
	BackendBadger = "badger"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// OpenInterchangeCache cache on the named backend. close releases the underlying store.
func OpenInterchangeCache(backend, dir string) (cache *InterchangeCache, close func() error, err error) {
	switch backend {
	case BackendBadger:
		db, err := OpenBadger(dir)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "opening badger at %s", dir)
		}
		return NewBadgerInterchangeCache(db), db.Close, nil
	case BackendPebble:
		db, err := OpenPebble(dir)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "opening pebble at %s", dir)
		}
		return NewPebbleInterchangeCache(db), db.Close, nil
	case BackendMemory:
		return NewMemoryInterchangeCache(), func() error { return nil }, nil
	}
	return nil, nil, errors.Newf("unknown cache backend %q", backend)
}
