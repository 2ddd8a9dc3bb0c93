package datastructure

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// CompressData zstd encodes inData into bbufOut.
func CompressData(inData []byte, bbufOut *bytes.Buffer) error {
	inputBuf := bytes.NewBuffer(inData)
	encoder, err := zstd.NewWriter(bbufOut, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return errors.Wrap(err, "creating zstd encoder")
	}

	_, err = io.Copy(encoder, inputBuf)
	if err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}

func DecompressData(inData []byte, out io.Writer) error {
	in := bytes.NewBuffer(inData)
	d, err := zstd.NewReader(in)
	if err != nil {
		return errors.Wrap(err, "creating zstd decoder")
	}
	defer d.Close()

	_, err = io.Copy(out, d)
	return err
}

func CompressBytes(inData []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := CompressData(inData, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecompressBytes(inData []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := DecompressData(inData, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
