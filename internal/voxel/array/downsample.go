package array

import (
	"fmt"

	"voxelmap.ai/internal/geom"
)

// Downsampler reduces the 2^D samples of one coarse cell to a single value.
// children is ordered like Extent.Points over the 2x2(x2) block.
type Downsampler[T any] interface {
	Downsample(children []T) T
}

// PointSampler keeps the block's minimum-corner sample.
type PointSampler[T any] struct{}

func (PointSampler[T]) Downsample(children []T) T { return children[0] }

type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// MeanSampler averages the block, which suits signed-distance fields.
type MeanSampler[T Number] struct{}

func (MeanSampler[T]) Downsample(children []T) T {
	var sum float64
	for _, c := range children {
		sum += float64(c)
	}
	return T(sum / float64(len(children)))
}

// SamplerFunc adapts a plain function.
type SamplerFunc[T any] func(children []T) T

func (f SamplerFunc[T]) Downsample(children []T) T { return f(children) }

// DownsampleInto writes dstRegion of dst (one LOD coarser) from src. Every
// dst point q reads the src block starting at 2q; src must contain all of
// those blocks.
func DownsampleInto[P geom.Point[P], T any](dst Accessor[P, T], dstRegion geom.Extent[P], src Accessor[P, T], sampler Downsampler[T]) {
	if !dst.Extent().ContainsExtent(dstRegion) {
		panic(fmt.Sprintf("array: downsample target %s outside %s", dstRegion, dst.Extent()))
	}
	if !src.Extent().ContainsExtent(dstRegion.Shl(1)) {
		panic(fmt.Sprintf("array: downsample source %s does not cover %s", src.Extent(), dstRegion.Shl(1)))
	}
	block := geom.Extent[P]{Shape: geom.Fill[P](2)}
	children := make([]T, 0, block.Volume())
	for q := range dstRegion.Points() {
		children = children[:0]
		base := q.Shl(1)
		for off := range block.Points() {
			children = append(children, src.Get(base.Add(off)))
		}
		dst.Set(q, sampler.Downsample(children))
	}
}
