// Package clipmap decides which chunk keys should be rendered around a focus
// and emits the transitions needed to get there.
package clipmap

import (
	"math"
	"slices"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/chunk"
)

// Tree is the part of chunk.Map the streaming algorithm reads and commits to.
type Tree[P geom.Point[P]] interface {
	RootLOD() uint8
	ChunkShape() P
	KeyForPoint(lod uint8, p P) chunk.Key[P]
	WorldExtent(key chunk.Key[P]) geom.Extent[P]
	State(key chunk.Key[P]) (chunk.NodeState, bool)
	HasChunk(key chunk.Key[P]) bool
	UpdateState(key chunk.Key[P], set, clear chunk.NodeState)
	KeysWithState(lod uint8, mask chunk.NodeState) []chunk.Key[P]
}

// Params control LOD selection and pacing.
type Params struct {
	// Detail scales the split distance: a key at LOD l > 0 is refined while
	// the focus is closer than Detail chunk edges of that LOD.
	Detail float64
	// Budget caps events per call; <= 0 means unlimited.
	Budget int
}

type keySet[P geom.Point[P]] map[chunk.Key[P]]struct{}

func (s keySet[P]) has(k chunk.Key[P]) bool {
	_, ok := s[k]
	return ok
}

func (s keySet[P]) sorted() []chunk.Key[P] {
	out := make([]chunk.Key[P], 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.SortFunc(out, compareKeys[P])
	return out
}

func compareKeys[P geom.Point[P]](a, b chunk.Key[P]) int {
	switch {
	case a.LODLess(b):
		return -1
	case b.LODLess(a):
		return 1
	default:
		return 0
	}
}

// ActiveSet returns the keys that should be rendered for focus, sorted by
// LOD then coordinate. No two returned keys overlap, and together they cover
// every root-level chunk that intersects the sphere.
func ActiveSet[P geom.Point[P]](tree Tree[P], focus geom.Sphere[P], detail float64) []chunk.Key[P] {
	return activeSet(tree, focus, detail).sorted()
}

func activeSet[P geom.Point[P]](tree Tree[P], focus geom.Sphere[P], detail float64) keySet[P] {
	out := keySet[P]{}
	if focus.Radius <= 0 {
		return out
	}
	root := tree.RootLOD()
	r := int32(math.Ceil(focus.Radius))
	bounds := geom.ExtentFromMinMax(
		tree.KeyForPoint(root, focus.Center.Sub(geom.Fill[P](r))).Coord,
		tree.KeyForPoint(root, focus.Center.Add(geom.Fill[P](r))).Coord,
	)
	edge := float64(geom.MaxAxis(tree.ChunkShape()))
	var refine func(k chunk.Key[P])
	refine = func(k chunk.Key[P]) {
		if k.LOD > 0 {
			d := geom.DistToExtent(focus.Center, tree.WorldExtent(k))
			if d < detail*edge*float64(uint64(1)<<k.LOD) {
				for _, c := range k.Children() {
					if focus.IntersectsExtent(tree.WorldExtent(c)) {
						refine(c)
					}
				}
				return
			}
		}
		out[k] = struct{}{}
	}
	for coord := range bounds.Points() {
		k := chunk.NewKey(root, coord)
		if focus.IntersectsExtent(tree.WorldExtent(k)) {
			refine(k)
		}
	}
	return out
}

// ancestorsOf is the set of every strict ancestor of the given keys.
func ancestorsOf[P geom.Point[P]](keys keySet[P], root uint8) keySet[P] {
	out := keySet[P]{}
	for k := range keys {
		for a := k; a.LOD < root; {
			a = a.Parent()
			if out.has(a) {
				break
			}
			out[a] = struct{}{}
		}
	}
	return out
}
