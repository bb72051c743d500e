// Package codec turns chunk nodes into bytes for persistence collaborators.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/array"
	"voxelmap.ai/internal/voxel/chunk"
)

const nodeVersion = 1

// ChunkCodec encodes one chunk type. Decode receives the chunk's extent so
// payloads do not need to repeat it.
type ChunkCodec[P geom.Point[P], C any] interface {
	EncodeChunk(c C) ([]byte, error)
	DecodeChunk(extent geom.Extent[P], data []byte) (C, error)
}

type ArrayCodec[P geom.Point[P], T any] struct {
	Values ValueCodec[T]
}

func (c ArrayCodec[P, T]) EncodeChunk(a *array.Array[P, T]) ([]byte, error) {
	return c.Values.EncodeValues(a.Values())
}

func (c ArrayCodec[P, T]) DecodeChunk(extent geom.Extent[P], data []byte) (*array.Array[P, T], error) {
	vals, err := c.Values.DecodeValues(data, extent.Volume())
	if err != nil {
		return nil, err
	}
	return array.FromValues(extent, vals), nil
}

// MetaCodec stores the array followed by the gob-encoded metadata.
type MetaCodec[P geom.Point[P], T, M any] struct {
	Values ValueCodec[T]
}

func (c MetaCodec[P, T, M]) EncodeChunk(w *chunk.WithMeta[P, T, M]) ([]byte, error) {
	arr, err := c.Values.EncodeValues(w.Arr.Values())
	if err != nil {
		return nil, err
	}
	buf := binary.AppendUvarint(nil, uint64(len(arr)))
	out := bytes.NewBuffer(append(buf, arr...))
	if err := gob.NewEncoder(out).Encode(&w.Meta); err != nil {
		return nil, fmt.Errorf("meta encode: %w", err)
	}
	return out.Bytes(), nil
}

func (c MetaCodec[P, T, M]) DecodeChunk(extent geom.Extent[P], data []byte) (*chunk.WithMeta[P, T, M], error) {
	size, n := binary.Uvarint(data)
	if n <= 0 || uint64(len(data)-n) < size {
		return nil, errors.New("meta chunk: truncated array payload")
	}
	vals, err := c.Values.DecodeValues(data[n:n+int(size)], extent.Volume())
	if err != nil {
		return nil, err
	}
	out := &chunk.WithMeta[P, T, M]{Arr: array.FromValues(extent, vals)}
	if err := gob.NewDecoder(bytes.NewReader(data[n+int(size):])).Decode(&out.Meta); err != nil {
		return nil, fmt.Errorf("meta decode: %w", err)
	}
	return out, nil
}

// NodeCodec frames a node as [version, hasChunk, state] followed by the
// zstd-compressed chunk payload.
type NodeCodec[P geom.Point[P], C any] struct {
	Chunks ChunkCodec[P, C]
}

var (
	zOnce sync.Once
	zEnc  *zstd.Encoder
	zDec  *zstd.Decoder
	zErr  error
)

func zstdPair() (*zstd.Encoder, *zstd.Decoder, error) {
	zOnce.Do(func() {
		zEnc, zErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zErr != nil {
			return
		}
		zDec, zErr = zstd.NewReader(nil)
	})
	return zEnc, zDec, zErr
}

func (c NodeCodec[P, C]) Encode(n *chunk.Node[C]) ([]byte, error) {
	head := []byte{nodeVersion, 0, byte(n.State)}
	if !n.HasChunk {
		return head, nil
	}
	head[1] = 1
	payload, err := c.Chunks.EncodeChunk(n.Chunk)
	if err != nil {
		return nil, fmt.Errorf("encode chunk: %w", err)
	}
	enc, _, err := zstdPair()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(payload, head), nil
}

func (c NodeCodec[P, C]) Decode(extent geom.Extent[P], data []byte) (*chunk.Node[C], error) {
	if len(data) < 3 {
		return nil, errors.New("node: short header")
	}
	if data[0] != nodeVersion {
		return nil, fmt.Errorf("node: unsupported version %d", data[0])
	}
	n := &chunk.Node[C]{State: chunk.NodeState(data[2])}
	if data[1] == 0 {
		return n, nil
	}
	_, dec, err := zstdPair()
	if err != nil {
		return nil, err
	}
	payload, err := dec.DecodeAll(data[3:], nil)
	if err != nil {
		return nil, fmt.Errorf("node: zstd: %w", err)
	}
	n.Chunk, err = c.Chunks.DecodeChunk(extent, payload)
	if err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}
	n.HasChunk = true
	return n, nil
}
