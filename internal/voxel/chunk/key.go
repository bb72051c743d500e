package chunk

import (
	"fmt"

	"voxelmap.ai/internal/geom"
)

// Key addresses one storage slot. Coord is in chunk units of that LOD's grid.
type Key[P geom.Point[P]] struct {
	Coord P     `json:"coord"`
	LOD   uint8 `json:"lod"`
}

func NewKey[P geom.Point[P]](lod uint8, coord P) Key[P] {
	return Key[P]{Coord: coord, LOD: lod}
}

func (k Key[P]) String() string { return fmt.Sprintf("lod%d%s", k.LOD, k.Coord) }

// Less orders by coordinate, then LOD.
func (k Key[P]) Less(o Key[P]) bool {
	if k.Coord != o.Coord {
		return k.Coord.Less(o.Coord)
	}
	return k.LOD < o.LOD
}

// LODLess orders by LOD first; this is the order events are delivered in.
func (k Key[P]) LODLess(o Key[P]) bool {
	if k.LOD != o.LOD {
		return k.LOD < o.LOD
	}
	return k.Coord.Less(o.Coord)
}

func (k Key[P]) Parent() Key[P] {
	return Key[P]{Coord: k.Coord.Shr(1), LOD: k.LOD + 1}
}

// Ancestor returns the key covering k at the coarser lod.
func (k Key[P]) Ancestor(lod uint8) Key[P] {
	if lod < k.LOD {
		panic(fmt.Sprintf("chunk: ancestor lod %d below %s", lod, k))
	}
	return Key[P]{Coord: k.Coord.Shr(uint(lod - k.LOD)), LOD: lod}
}

// Children returns the 2^D keys one LOD finer, in iteration order.
func (k Key[P]) Children() []Key[P] {
	if k.LOD == 0 {
		panic(fmt.Sprintf("chunk: %s has no children", k))
	}
	block := geom.Extent[P]{Min: k.Coord.Shl(1), Shape: geom.Fill[P](2)}
	out := make([]Key[P], 0, block.Volume())
	for c := range block.Points() {
		out = append(out, Key[P]{Coord: c, LOD: k.LOD - 1})
	}
	return out
}
