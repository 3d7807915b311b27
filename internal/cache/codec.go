package cache

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// encoderPool and decoderPool provide reusable zstd codecs to avoid repeated
// allocations on the hot cache path.
var (
	encoderPool = sync.Pool{
		New: func() any {
			e, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
			if err != nil {
				panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
			}
			return e
		},
	}
	decoderPool = sync.Pool{
		New: func() any {
			d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
			}
			return d
		},
	}
)

// encodePayload marshals v to JSON and compresses it with zstd.
func encodePayload(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache payload: %w", err)
	}
	enc := encoderPool.Get().(*zstd.Encoder)
	defer encoderPool.Put(enc)
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// decodePayload decompresses data and unmarshals it into v.
func decodePayload(data []byte, v any) error {
	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decompression failed: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal cache payload: %w", err)
	}
	return nil
}
