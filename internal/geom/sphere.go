package geom

import "math"

// Sphere is a ball in world voxel space.
type Sphere[P Point[P]] struct {
	Center P
	Radius float64
}

func (s Sphere[P]) Contains(p P) bool {
	return DistSq(s.Center, p) < s.Radius*s.Radius
}

// IntersectsExtent reports whether the closest point of e lies strictly
// inside the sphere.
func (s Sphere[P]) IntersectsExtent(e Extent[P]) bool {
	if e.IsEmpty() {
		return false
	}
	return DistSq(s.Center, e.ClosestPoint(s.Center)) < s.Radius*s.Radius
}

// DistToExtent is the euclidean distance from p to the nearest point of e.
func DistToExtent[P Point[P]](p P, e Extent[P]) float64 {
	return math.Sqrt(DistSq(p, e.ClosestPoint(p)))
}

func DistSq[P Point[P]](a, b P) float64 {
	var d float64
	for i := 0; i < a.Dim(); i++ {
		v := float64(a.At(i)) - float64(b.At(i))
		d += v * v
	}
	return d
}

func DistanceSqToExtent[P Point[P]](center P, e Extent[P]) float64 {
	return DistSq(center, e.ClosestPoint(center))
}
