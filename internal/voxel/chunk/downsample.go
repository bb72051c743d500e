package chunk

import (
	"fmt"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/array"
)

// Downsample rebuilds the chunk at key (LOD >= 1) from its 2^D children.
// Vacant children contribute ambient samples. It returns how many children
// were resident. Every chunk axis must be at least 2.
func (m *Map[P, T, C]) Downsample(key Key[P], sampler array.Downsampler[T]) int {
	if key.LOD == 0 {
		panic(fmt.Sprintf("chunk: cannot downsample into %s", key))
	}
	m.checkLOD(key.LOD)
	if !geom.AllPositive(m.builder.cfg.ChunkShape.Shr(1)) {
		panic(fmt.Sprintf("chunk: shape %s too small to downsample", m.builder.cfg.ChunkShape))
	}
	dst := m.getOrCreate(key).Array()
	resident := 0
	for _, child := range key.Children() {
		region := m.ChunkExtent(child).Shr(1)
		src, ok := m.GetChunk(child)
		if !ok {
			dst.FillExtent(region, m.builder.cfg.AmbientValue)
			continue
		}
		resident++
		array.DownsampleInto(dst, region, src.Array(), sampler)
	}
	return resident
}

// DownsampleAncestors propagates key's contents up to the root LOD.
func (m *Map[P, T, C]) DownsampleAncestors(key Key[P], sampler array.Downsampler[T]) {
	for k := key; k.LOD < m.RootLOD(); k = k.Parent() {
		m.Downsample(k.Parent(), sampler)
	}
}
