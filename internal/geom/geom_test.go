package geom

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestShr_FloorsNegatives(t *testing.T) {
	p := P3(-1, -16, -17).Shr(4)
	if want := P3(-1, -1, -2); p != want {
		t.Fatalf("Shr: got %s want %s", p, want)
	}
	for _, a := range []int32{-33, -17, -16, -1, 0, 1, 15, 16, 31} {
		if got, want := a>>4, FloorDiv(a, 16); got != want {
			t.Fatalf("a=%d: shift=%d floordiv=%d", a, got, want)
		}
	}
}

func TestMod(t *testing.T) {
	if got := Mod(-1, 16); got != 15 {
		t.Fatalf("Mod(-1,16)=%d", got)
	}
	if got := Mod(17, 16); got != 1 {
		t.Fatalf("Mod(17,16)=%d", got)
	}
}

func TestLog2(t *testing.T) {
	if got := Log2(P3(16, 8, 1)); got != P3(4, 3, 0) {
		t.Fatalf("Log2: got %s", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for non power of two")
		}
	}()
	Log2(P2(3, 4))
}

func TestExtent_PointsRowMajor(t *testing.T) {
	e := ExtentFromMinShape(P2(-1, 5), P2(2, 2))
	got := slices.Collect(e.Points())
	want := []Point2i{{-1, 5}, {0, 5}, {-1, 6}, {0, 6}}
	if !slices.Equal(got, want) {
		t.Fatalf("Points: got %v want %v", got, want)
	}
	if !slices.IsSortedFunc(got, Compare[Point2i]) {
		t.Fatalf("iteration order must match Less order")
	}
}

func TestExtent_EmptyYieldsNothing(t *testing.T) {
	e := ExtentFromMinShape(P3(0, 0, 0), P3(4, 0, 4))
	if !e.IsEmpty() {
		t.Fatalf("expected empty")
	}
	n := 0
	for range e.Points() {
		n++
	}
	if n != 0 {
		t.Fatalf("empty extent yielded %d points", n)
	}
	if e.Volume() != 0 {
		t.Fatalf("volume=%d", e.Volume())
	}
}

func TestExtent_IntersectionAndShr(t *testing.T) {
	a := ExtentFromMinShape(P3(0, 0, 0), P3(16, 16, 16))
	b := ExtentFromMinShape(P3(8, -4, 15), P3(16, 8, 4))
	in := a.Intersection(b)
	if in.Min != P3(8, 0, 15) || in.Shape != P3(8, 4, 1) {
		t.Fatalf("intersection: %s", in)
	}
	if a.Intersects(ExtentFromMinShape(P3(16, 0, 0), P3(1, 1, 1))) {
		t.Fatalf("touching extents must not intersect")
	}

	s := ExtentFromMinShape(P3(-3, 0, 0), P3(6, 1, 1)).Shr(1)
	if s.Min != P3(-2, 0, 0) || s.Max() != P3(1, 0, 0) {
		t.Fatalf("Shr: %s", s)
	}
}

func TestSphere_IntersectsExtent(t *testing.T) {
	e := ExtentFromMinShape(P3(16, 0, 0), P3(16, 16, 16))
	s := Sphere3{Center: P3(0, 0, 0), Radius: 16}
	if s.IntersectsExtent(e) {
		t.Fatalf("distance equal to radius is outside")
	}
	s.Radius = 16.5
	if !s.IntersectsExtent(e) {
		t.Fatalf("expected intersection")
	}
	if d := DistToExtent(P3(0, 0, 0), e); d != 16 {
		t.Fatalf("dist=%v", d)
	}
}

func TestStridesAndLinearIndex(t *testing.T) {
	st := Strides(P3(4, 3, 2))
	if st != P3(1, 4, 12) {
		t.Fatalf("strides: %s", st)
	}
	if idx := LinearIndex(st, P3(3, 2, 1)); idx != 3+8+12 {
		t.Fatalf("index=%d", idx)
	}
}

func TestFromVec3(t *testing.T) {
	if p := FromVec3(mgl32.Vec3{-0.5, 1.9, 3}); p != P3(-1, 1, 3) {
		t.Fatalf("FromVec3: %s", p)
	}
}

func TestHash_Stable(t *testing.T) {
	if Hash(1, P3(1, 2, 3)) != Hash(1, P3(1, 2, 3)) {
		t.Fatalf("hash not deterministic")
	}
	if Hash(1, P3(1, 2, 3)) == Hash(2, P3(1, 2, 3)) {
		t.Fatalf("seed ignored")
	}
}

func TestExtent_UnionAndAdjacency(t *testing.T) {
	a := ExtentFromMinShape(P2(0, 0), P2(4, 4))
	b := ExtentFromMinShape(P2(4, 1), P2(2, 2))
	if !a.IsAdjacent(b) {
		t.Fatalf("expected face adjacency")
	}
	if a.IsAdjacent(ExtentFromMinShape(P2(4, 4), P2(1, 1))) {
		t.Fatalf("corner contact is not adjacency")
	}
	if a.IsAdjacent(ExtentFromMinShape(P2(3, 3), P2(2, 2))) {
		t.Fatalf("overlap is not adjacency")
	}
	u := a.BoundingUnion(b)
	if u.Min != P2(0, 0) || u.Shape != P2(6, 4) {
		t.Fatalf("union: %s", u)
	}
	if got := a.BoundingUnion(Extent2i{}); got != a {
		t.Fatalf("union with empty: %s", got)
	}
}
