package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/chunk"
	"voxelmap.ai/internal/voxel/codec"
)

const Version = 1

type Header struct {
	Version     int     `json:"version"`
	Dim         int     `json:"dim"`
	ChunkShape  []int32 `json:"chunk_shape"`
	RootLOD     uint8   `json:"root_lod"`
	Chunks      int     `json:"chunks"`
	CreatedUnix int64   `json:"created_unix"`
}

type SnapshotV1 struct {
	Header Header   `json:"header"`
	Chunks []NodeV1 `json:"chunks"`
}

// NodeV1 is one resident chunk; Data is a codec.NodeCodec frame.
type NodeV1 struct {
	LOD   uint8   `json:"lod"`
	Coord []int32 `json:"coord"`
	Data  []byte  `json:"data"`
}

// Export captures every resident chunk in key order. Clip state is session
// state and is not saved; placeholders are skipped.
func Export[P geom.Point[P], T any, C chunk.Chunk[P, T]](m *chunk.Map[P, T, C], nc codec.NodeCodec[P, C]) (SnapshotV1, error) {
	snap := SnapshotV1{Header: Header{
		Version:     Version,
		Dim:         m.ChunkShape().Dim(),
		ChunkShape:  geom.Slice(m.ChunkShape()),
		RootLOD:     m.RootLOD(),
		CreatedUnix: time.Now().Unix(),
	}}
	for lod := uint8(0); lod <= m.RootLOD(); lod++ {
		var err error
		m.VisitOccupied(lod, func(k chunk.Key[P], c C) {
			if err != nil {
				return
			}
			data, encErr := nc.Encode(chunk.NewNode(c))
			if encErr != nil {
				err = fmt.Errorf("chunk %s: %w", k, encErr)
				return
			}
			snap.Chunks = append(snap.Chunks, NodeV1{LOD: lod, Coord: geom.Slice(k.Coord), Data: data})
		})
		if err != nil {
			return SnapshotV1{}, err
		}
	}
	snap.Header.Chunks = len(snap.Chunks)
	return snap, nil
}

// Import builds a fresh in-memory map from snap. The builder's shape and
// root LOD must match the snapshot.
func Import[P geom.Point[P], T any, C chunk.Chunk[P, T]](b chunk.Builder[P, T, C], snap SnapshotV1, nc codec.NodeCodec[P, C]) (*chunk.Map[P, T, C], error) {
	m := b.BuildWithHashMapStorage()
	if err := Restore(m, snap, nc); err != nil {
		return nil, err
	}
	return m, nil
}

// Restore inserts snap's chunks into an existing map.
func Restore[P geom.Point[P], T any, C chunk.Chunk[P, T]](m *chunk.Map[P, T, C], snap SnapshotV1, nc codec.NodeCodec[P, C]) error {
	h := snap.Header
	if h.Version != Version {
		return fmt.Errorf("snapshot version %d not supported", h.Version)
	}
	shape, ok := geom.FromSlice[P](h.ChunkShape)
	if !ok || shape != m.ChunkShape() {
		return fmt.Errorf("snapshot chunk shape %v does not match %s", h.ChunkShape, m.ChunkShape())
	}
	if h.RootLOD != m.RootLOD() {
		return fmt.Errorf("snapshot root lod %d does not match %d", h.RootLOD, m.RootLOD())
	}
	for i, rec := range snap.Chunks {
		coord, ok := geom.FromSlice[P](rec.Coord)
		if !ok || rec.LOD > m.RootLOD() {
			return fmt.Errorf("chunk %d: bad key lod=%d coord=%v", i, rec.LOD, rec.Coord)
		}
		key := chunk.NewKey(rec.LOD, coord)
		n, err := nc.Decode(m.ChunkExtent(key), rec.Data)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", key, err)
		}
		if n.HasChunk {
			m.InsertChunk(key, n.Chunk)
		}
	}
	return nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for tools; gob carries its own copy.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("parse header: %w", err)
	}
	return h, nil
}
