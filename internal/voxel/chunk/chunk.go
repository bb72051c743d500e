// Package chunk partitions unbounded voxel space into fixed-shape chunks and
// indexes them per level of detail.
package chunk

import (
	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/array"
)

type Accessor[P geom.Point[P], T any] = array.Accessor[P, T]

// Chunk is anything that exposes one dense array. *array.Array and the
// multi-channel arrays satisfy it directly.
type Chunk[P geom.Point[P], T any] interface {
	Array() Accessor[P, T]
}

// AmbientFunc manufactures a chunk over extent filled with ambient.
type AmbientFunc[P geom.Point[P], T any, C Chunk[P, T]] func(extent geom.Extent[P], ambient T) C

// WithMeta pairs an array with caller metadata. Writes through Array never
// touch Meta.
type WithMeta[P geom.Point[P], T, M any] struct {
	Arr  *array.Array[P, T]
	Meta M
}

func (c *WithMeta[P, T, M]) Array() Accessor[P, T] { return c.Arr }

func NewArrayChunk[P geom.Point[P], T any](extent geom.Extent[P], ambient T) *array.Array[P, T] {
	return array.Fill(extent, ambient)
}

// NewMetaChunk leaves Meta at its zero value.
func NewMetaChunk[P geom.Point[P], T, M any](extent geom.Extent[P], ambient T) *WithMeta[P, T, M] {
	return &WithMeta[P, T, M]{Arr: array.Fill(extent, ambient)}
}
