package codec

import (
	"testing"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/array"
	"voxelmap.ai/internal/voxel/chunk"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10)

	enc := EncodeRLE(in)
	out, err := DecodeRLE[uint16](enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_RejectsOverflow(t *testing.T) {
	enc := EncodeRLE([]uint16{300, 300})
	if _, err := DecodeRLE[uint8](enc, 2); err == nil {
		t.Fatalf("expected value overflow error")
	}
	if _, err := DecodeRLE[uint16](enc, 1); err == nil {
		t.Fatalf("expected run overflow error")
	}
	if _, err := DecodeRLE[uint16](enc, 3); err == nil {
		t.Fatalf("expected short payload error")
	}
}

func TestNodeCodec_ArrayRoundTrip(t *testing.T) {
	ext := geom.ExtentFromMinShape(geom.P3(16, 0, -16), geom.P3(16, 16, 16))
	a := array.Fill(ext, uint8(0))
	a.Set(geom.P3(20, 3, -1), 5)
	n := &chunk.Node[*array.Array[geom.Point3i, uint8]]{Chunk: a, HasChunk: true, State: chunk.StateRendered}

	c := NodeCodec[geom.Point3i, *array.Array[geom.Point3i, uint8]]{Chunks: ArrayCodec[geom.Point3i, uint8]{Values: UintCodec[uint8]{}}}
	data, err := c.Encode(n)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) >= ext.Volume() {
		t.Fatalf("payload not compressed: %d bytes", len(data))
	}
	got, err := c.Decode(ext, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.HasChunk || got.State != chunk.StateRendered {
		t.Fatalf("header lost: %+v", got)
	}
	if got.Chunk.Get(geom.P3(20, 3, -1)) != 5 || got.Chunk.Get(geom.P3(16, 0, -16)) != 0 {
		t.Fatalf("values lost")
	}
}

func TestNodeCodec_Placeholder(t *testing.T) {
	c := NodeCodec[geom.Point2i, *array.Array[geom.Point2i, float32]]{Chunks: ArrayCodec[geom.Point2i, float32]{Values: Float32Codec[float32]{}}}
	data, err := c.Encode(&chunk.Node[*array.Array[geom.Point2i, float32]]{State: chunk.StateLoading})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(geom.ExtentFromMinShape(geom.P2(0, 0), geom.P2(4, 4)), data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.HasChunk || got.State != chunk.StateLoading {
		t.Fatalf("got %+v", got)
	}
	if _, err := c.Decode(geom.Extent2i{}, []byte{9, 0, 0}); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestMetaCodec_RoundTrip(t *testing.T) {
	type meta struct {
		Biome string
		Edits int
	}
	ext := geom.ExtentFromMinShape(geom.P2(0, 0), geom.P2(4, 4))
	w := &chunk.WithMeta[geom.Point2i, float32, meta]{Arr: array.Fill(ext, float32(1)), Meta: meta{Biome: "tundra", Edits: 3}}
	w.Arr.Set(geom.P2(1, 2), -0.25)

	c := MetaCodec[geom.Point2i, float32, meta]{Values: Float32Codec[float32]{}}
	data, err := c.EncodeChunk(w)
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	got, err := c.DecodeChunk(ext, data)
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if got.Meta != w.Meta || got.Arr.Get(geom.P2(1, 2)) != -0.25 || got.Arr.Get(geom.P2(0, 0)) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestGobCodec_LengthChecked(t *testing.T) {
	var c GobCodec[[2]int16]
	data, err := c.EncodeValues([][2]int16{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("EncodeValues: %v", err)
	}
	if _, err := c.DecodeValues(data, 3); err == nil {
		t.Fatalf("expected length error")
	}
	got, err := c.DecodeValues(data, 2)
	if err != nil || got[1] != [2]int16{3, 4} {
		t.Fatalf("got %v err %v", got, err)
	}
}
