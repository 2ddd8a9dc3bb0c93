package kv

import (
	"github.com/DataDog/zstd"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
)

type codec struct {
	compress   func([]byte) ([]byte, error)
	decompress func([]byte) ([]byte, error)
}

// datadogCodec cgo zstd, used with badger.
var datadogCodec = codec{compress: compress, decompress: decompress}

// klauspostCodec pure go zstd, used with pebble and the memory store.
var klauspostCodec = codec{compress: datastructure.CompressBytes, decompress: datastructure.DecompressBytes}

func compress(bb []byte) ([]byte, error) {
	var bbCompressed []byte
	bbCompressed, err := zstd.Compress(bbCompressed, bb)
	if err != nil {
		return []byte{}, err
	}
	return bbCompressed, nil
}

func decompress(bbCompressed []byte) ([]byte, error) {
	var bb []byte
	bb, err := zstd.Decompress(bb, bbCompressed)
	if err != nil {
		return []byte{}, err
	}

	return bb, nil
}
