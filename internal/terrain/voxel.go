// Package terrain is the generation side of the map: the signed-distance
// voxel type and a value-noise chunk generator.
package terrain

import (
	"fmt"
	"math"
)

// Voxel is a signed distance to the terrain surface. Negative is solid.
type Voxel float32

const (
	Empty  Voxel = 1
	Filled Voxel = -1
)

func (v Voxel) IsEmpty() bool { return v >= 0 }

// IsOpaque is true for every voxel; the mesher treats empties by IsEmpty.
func (v Voxel) IsOpaque() bool { return true }

// MergeValue is what greedy meshing compares when merging quads.
func (v Voxel) MergeValue() bool { return v < 0 }

// IsNegative reports the inside of the surface.
func (v Voxel) IsNegative() bool { return v < 0 }

// FromFloat converts a generated sample. NaN and values outside float32
// range are rejected rather than silently stored.
func FromFloat(f float64) (Voxel, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxFloat32 {
		return 0, fmt.Errorf("terrain: sample %v is not a finite float32", f)
	}
	return Voxel(f), nil
}

// FromFloats converts a whole buffer; the first bad sample aborts.
func FromFloats(samples []float32) ([]Voxel, error) {
	out := make([]Voxel, len(samples))
	for i, s := range samples {
		v, err := FromFloat(float64(s))
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
