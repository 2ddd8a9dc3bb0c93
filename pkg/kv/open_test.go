package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInterchangeCache(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{BackendBadger, BackendPebble, BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			cache, closeFn, err := OpenInterchangeCache(backend, t.TempDir())
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeFn()) }()

			require.NoError(t, cache.Save(ctx, "interchange/x", seqOf(testRecords(4))))
			has, err := cache.Has(ctx, "interchange/x")
			require.NoError(t, err)
			assert.True(t, has)
		})
	}

	_, _, err := OpenInterchangeCache("redis", "")
	assert.Error(t, err)
}
