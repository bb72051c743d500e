package terrain

import (
	"math"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/array"
)

type NoiseParams struct {
	Freq    float64
	Scale   float64
	Seed    int64
	Octaves int
}

// Generator fills chunks with a height field built from fractal value noise.
type Generator struct {
	Noise NoiseParams
}

// Height is the surface height above world column (x, z).
func (g Generator) Height(x, z float64) float64 {
	n := g.Noise
	amp, freq, sum, norm := 1.0, n.Freq, 0.0, 0.0
	for o := 0; o < max(n.Octaves, 1); o++ {
		sum += amp * valueNoise2(n.Seed+int64(o)*1013, x*freq, z*freq)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return n.Scale * sum / norm
}

// Sample is the signed distance at a world point, negative below the surface.
func (g Generator) Sample(p geom.Point3i) float64 {
	return float64(p.Y()) - g.Height(float64(p.X()), float64(p.Z()))
}

// Chunk generates the samples of extent at lod; sample q stands for world
// point q<<lod. ok is false when every sample is empty, in which case the
// slot should stay vacant and read as Empty.
func (g Generator) Chunk(extent geom.Extent3i, lod uint8) (*array.Array[geom.Point3i, Voxel], bool, error) {
	arr := array.Fill(extent, Empty)
	vals := arr.Values()
	i := 0
	solid := false
	for q := range extent.Points() {
		v, err := FromFloat(g.Sample(q.Shl(uint(lod))))
		if err != nil {
			return nil, false, err
		}
		vals[i] = v
		i++
		if !v.IsEmpty() {
			solid = true
		}
	}
	if !solid {
		return nil, false, nil
	}
	return arr, true, nil
}

// valueNoise2 interpolates hashed lattice values in [-1, 1].
func valueNoise2(seed int64, x, z float64) float64 {
	x0, z0 := math.Floor(x), math.Floor(z)
	tx, tz := smooth(x-x0), smooth(z-z0)
	ix, iz := int32(x0), int32(z0)
	c00 := lattice(seed, ix, iz)
	c10 := lattice(seed, ix+1, iz)
	c01 := lattice(seed, ix, iz+1)
	c11 := lattice(seed, ix+1, iz+1)
	a := c00 + (c10-c00)*tx
	b := c01 + (c11-c01)*tx
	return a + (b-a)*tz
}

func lattice(seed int64, x, z int32) float64 {
	h := geom.Hash(seed, geom.P2(x, z))
	return float64(h>>11)/float64(1<<53)*2 - 1
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }
