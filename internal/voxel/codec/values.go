package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
)

// ValueCodec encodes one channel of chunk values. Decode is told how many
// values the chunk holds.
type ValueCodec[T any] interface {
	EncodeValues(vals []T) ([]byte, error)
	DecodeValues(data []byte, n int) ([]T, error)
}

// UintCodec run-length encodes palette-style ids.
type UintCodec[T Unsigned] struct{}

func (UintCodec[T]) EncodeValues(vals []T) ([]byte, error) { return EncodeRLE(vals), nil }

func (UintCodec[T]) DecodeValues(data []byte, n int) ([]T, error) { return DecodeRLE[T](data, n) }

// Float32Codec stores raw little-endian bits; the node codec's zstd pass
// takes care of the redundancy.
type Float32Codec[T ~float32] struct{}

func (Float32Codec[T]) EncodeValues(vals []T) ([]byte, error) {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(float32(v)))
	}
	return out, nil
}

func (Float32Codec[T]) DecodeValues(data []byte, n int) ([]T, error) {
	if len(data) != 4*n {
		return nil, fmt.Errorf("float32 payload: %d bytes for %d values", len(data), n)
	}
	out := make([]T, n)
	for i := range out {
		out[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
	}
	return out, nil
}

// GobCodec handles arbitrary value types.
type GobCodec[T any] struct{}

func (GobCodec[T]) EncodeValues(vals []T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(vals); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (GobCodec[T]) DecodeValues(data []byte, n int) ([]T, error) {
	var out []T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	if len(out) != n {
		return nil, fmt.Errorf("gob payload: %d values, want %d", len(out), n)
	}
	return out, nil
}
