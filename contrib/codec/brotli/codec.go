// Package brotli provides an optional, symmetric payload compression
// codec for large envelope data values. It operates at the application
// payload layer, distinct from a broker driver's own wire-level
// compression codec (e.g. the Kafka driver's Compression setting).
package brotli

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

// Name is the ClientConfig option value ("payloadCompression") that
// selects this codec.
const Name = "brotli"

// Quality is the brotli encoder quality level; higher compresses more at
// the cost of CPU. 5 favors latency over ratio, matching the
// fire-and-forget nature of envelope publishing.
const Quality = 5

// Compress brotli-encodes data.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, Quality)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. A corrupted or truncated input is
// treated the same as any other decode failure by the caller — dropped
// with a warning, never a crash.
func Decompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}
