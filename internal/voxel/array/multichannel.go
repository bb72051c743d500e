// Multi-channel arrays store one slice per channel over a shared grid.
// Every arity follows the Nx2 layout; keep them in sync when changing one.

package array

import "voxelmap.ai/internal/geom"

func fillSlice[T any](n int, v T) []T {
	s := make([]T, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// Tuple2 is the value type of a 2-channel array.
type Tuple2[A, B any] struct {
	C0 A
	C1 B
}

type ArrayNx2[P geom.Point[P], A, B any] struct {
	grid[P]
	c0 []A
	c1 []B
}

type Array2x2[A, B any] = ArrayNx2[geom.Point2i, A, B]
type Array3x2[A, B any] = ArrayNx2[geom.Point3i, A, B]

func FillNx2[P geom.Point[P], A, B any](extent geom.Extent[P], v Tuple2[A, B]) *ArrayNx2[P, A, B] {
	g := newGrid(extent)
	return &ArrayNx2[P, A, B]{
		grid: g,
		c0:   fillSlice(g.volume, v.C0),
		c1:   fillSlice(g.volume, v.C1),
	}
}

func (a *ArrayNx2[P, A, B]) Array() Accessor[P, Tuple2[A, B]] { return a }

func (a *ArrayNx2[P, A, B]) Get(p P) Tuple2[A, B] {
	i := a.index(p)
	return Tuple2[A, B]{a.c0[i], a.c1[i]}
}

func (a *ArrayNx2[P, A, B]) Set(p P, v Tuple2[A, B]) {
	i := a.index(p)
	a.c0[i] = v.C0
	a.c1[i] = v.C1
}

func (a *ArrayNx2[P, A, B]) FillExtent(sub geom.Extent[P], v Tuple2[A, B]) {
	a.checkSubset(sub)
	for p := range sub.Points() {
		i := a.index(p)
		a.c0[i] = v.C0
		a.c1[i] = v.C1
	}
}

func (a *ArrayNx2[P, A, B]) Clone() *ArrayNx2[P, A, B] {
	return &ArrayNx2[P, A, B]{
		grid: a.grid,
		c0:   append([]A(nil), a.c0...),
		c1:   append([]B(nil), a.c1...),
	}
}

func (a *ArrayNx2[P, A, B]) C0() *Array[P, A] { return &Array[P, A]{grid: a.grid, values: a.c0} }
func (a *ArrayNx2[P, A, B]) C1() *Array[P, B] { return &Array[P, B]{grid: a.grid, values: a.c1} }

// Tuple3 is the value type of a 3-channel array.
type Tuple3[A, B, C any] struct {
	C0 A
	C1 B
	C2 C
}

type ArrayNx3[P geom.Point[P], A, B, C any] struct {
	grid[P]
	c0 []A
	c1 []B
	c2 []C
}

type Array2x3[A, B, C any] = ArrayNx3[geom.Point2i, A, B, C]
type Array3x3[A, B, C any] = ArrayNx3[geom.Point3i, A, B, C]

func FillNx3[P geom.Point[P], A, B, C any](extent geom.Extent[P], v Tuple3[A, B, C]) *ArrayNx3[P, A, B, C] {
	g := newGrid(extent)
	return &ArrayNx3[P, A, B, C]{
		grid: g,
		c0:   fillSlice(g.volume, v.C0),
		c1:   fillSlice(g.volume, v.C1),
		c2:   fillSlice(g.volume, v.C2),
	}
}

func (a *ArrayNx3[P, A, B, C]) Array() Accessor[P, Tuple3[A, B, C]] { return a }

func (a *ArrayNx3[P, A, B, C]) Get(p P) Tuple3[A, B, C] {
	i := a.index(p)
	return Tuple3[A, B, C]{a.c0[i], a.c1[i], a.c2[i]}
}

func (a *ArrayNx3[P, A, B, C]) Set(p P, v Tuple3[A, B, C]) {
	i := a.index(p)
	a.c0[i] = v.C0
	a.c1[i] = v.C1
	a.c2[i] = v.C2
}

func (a *ArrayNx3[P, A, B, C]) FillExtent(sub geom.Extent[P], v Tuple3[A, B, C]) {
	a.checkSubset(sub)
	for p := range sub.Points() {
		i := a.index(p)
		a.c0[i] = v.C0
		a.c1[i] = v.C1
		a.c2[i] = v.C2
	}
}

func (a *ArrayNx3[P, A, B, C]) Clone() *ArrayNx3[P, A, B, C] {
	return &ArrayNx3[P, A, B, C]{
		grid: a.grid,
		c0:   append([]A(nil), a.c0...),
		c1:   append([]B(nil), a.c1...),
		c2:   append([]C(nil), a.c2...),
	}
}

func (a *ArrayNx3[P, A, B, C]) C0() *Array[P, A] { return &Array[P, A]{grid: a.grid, values: a.c0} }
func (a *ArrayNx3[P, A, B, C]) C1() *Array[P, B] { return &Array[P, B]{grid: a.grid, values: a.c1} }
func (a *ArrayNx3[P, A, B, C]) C2() *Array[P, C] { return &Array[P, C]{grid: a.grid, values: a.c2} }

// Tuple4 is the value type of a 4-channel array.
type Tuple4[A, B, C, D any] struct {
	C0 A
	C1 B
	C2 C
	C3 D
}

type ArrayNx4[P geom.Point[P], A, B, C, D any] struct {
	grid[P]
	c0 []A
	c1 []B
	c2 []C
	c3 []D
}

type Array2x4[A, B, C, D any] = ArrayNx4[geom.Point2i, A, B, C, D]
type Array3x4[A, B, C, D any] = ArrayNx4[geom.Point3i, A, B, C, D]

func FillNx4[P geom.Point[P], A, B, C, D any](extent geom.Extent[P], v Tuple4[A, B, C, D]) *ArrayNx4[P, A, B, C, D] {
	g := newGrid(extent)
	return &ArrayNx4[P, A, B, C, D]{
		grid: g,
		c0:   fillSlice(g.volume, v.C0),
		c1:   fillSlice(g.volume, v.C1),
		c2:   fillSlice(g.volume, v.C2),
		c3:   fillSlice(g.volume, v.C3),
	}
}

func (a *ArrayNx4[P, A, B, C, D]) Array() Accessor[P, Tuple4[A, B, C, D]] { return a }

func (a *ArrayNx4[P, A, B, C, D]) Get(p P) Tuple4[A, B, C, D] {
	i := a.index(p)
	return Tuple4[A, B, C, D]{a.c0[i], a.c1[i], a.c2[i], a.c3[i]}
}

func (a *ArrayNx4[P, A, B, C, D]) Set(p P, v Tuple4[A, B, C, D]) {
	i := a.index(p)
	a.c0[i] = v.C0
	a.c1[i] = v.C1
	a.c2[i] = v.C2
	a.c3[i] = v.C3
}

func (a *ArrayNx4[P, A, B, C, D]) FillExtent(sub geom.Extent[P], v Tuple4[A, B, C, D]) {
	a.checkSubset(sub)
	for p := range sub.Points() {
		i := a.index(p)
		a.c0[i] = v.C0
		a.c1[i] = v.C1
		a.c2[i] = v.C2
		a.c3[i] = v.C3
	}
}

func (a *ArrayNx4[P, A, B, C, D]) Clone() *ArrayNx4[P, A, B, C, D] {
	return &ArrayNx4[P, A, B, C, D]{
		grid: a.grid,
		c0:   append([]A(nil), a.c0...),
		c1:   append([]B(nil), a.c1...),
		c2:   append([]C(nil), a.c2...),
		c3:   append([]D(nil), a.c3...),
	}
}

func (a *ArrayNx4[P, A, B, C, D]) C0() *Array[P, A] { return &Array[P, A]{grid: a.grid, values: a.c0} }
func (a *ArrayNx4[P, A, B, C, D]) C1() *Array[P, B] { return &Array[P, B]{grid: a.grid, values: a.c1} }
func (a *ArrayNx4[P, A, B, C, D]) C2() *Array[P, C] { return &Array[P, C]{grid: a.grid, values: a.c2} }
func (a *ArrayNx4[P, A, B, C, D]) C3() *Array[P, D] { return &Array[P, D]{grid: a.grid, values: a.c3} }

// Tuple5 is the value type of a 5-channel array.
type Tuple5[A, B, C, D, E any] struct {
	C0 A
	C1 B
	C2 C
	C3 D
	C4 E
}

type ArrayNx5[P geom.Point[P], A, B, C, D, E any] struct {
	grid[P]
	c0 []A
	c1 []B
	c2 []C
	c3 []D
	c4 []E
}

type Array2x5[A, B, C, D, E any] = ArrayNx5[geom.Point2i, A, B, C, D, E]
type Array3x5[A, B, C, D, E any] = ArrayNx5[geom.Point3i, A, B, C, D, E]

func FillNx5[P geom.Point[P], A, B, C, D, E any](extent geom.Extent[P], v Tuple5[A, B, C, D, E]) *ArrayNx5[P, A, B, C, D, E] {
	g := newGrid(extent)
	return &ArrayNx5[P, A, B, C, D, E]{
		grid: g,
		c0:   fillSlice(g.volume, v.C0),
		c1:   fillSlice(g.volume, v.C1),
		c2:   fillSlice(g.volume, v.C2),
		c3:   fillSlice(g.volume, v.C3),
		c4:   fillSlice(g.volume, v.C4),
	}
}

func (a *ArrayNx5[P, A, B, C, D, E]) Array() Accessor[P, Tuple5[A, B, C, D, E]] { return a }

func (a *ArrayNx5[P, A, B, C, D, E]) Get(p P) Tuple5[A, B, C, D, E] {
	i := a.index(p)
	return Tuple5[A, B, C, D, E]{a.c0[i], a.c1[i], a.c2[i], a.c3[i], a.c4[i]}
}

func (a *ArrayNx5[P, A, B, C, D, E]) Set(p P, v Tuple5[A, B, C, D, E]) {
	i := a.index(p)
	a.c0[i] = v.C0
	a.c1[i] = v.C1
	a.c2[i] = v.C2
	a.c3[i] = v.C3
	a.c4[i] = v.C4
}

func (a *ArrayNx5[P, A, B, C, D, E]) FillExtent(sub geom.Extent[P], v Tuple5[A, B, C, D, E]) {
	a.checkSubset(sub)
	for p := range sub.Points() {
		i := a.index(p)
		a.c0[i] = v.C0
		a.c1[i] = v.C1
		a.c2[i] = v.C2
		a.c3[i] = v.C3
		a.c4[i] = v.C4
	}
}

func (a *ArrayNx5[P, A, B, C, D, E]) Clone() *ArrayNx5[P, A, B, C, D, E] {
	return &ArrayNx5[P, A, B, C, D, E]{
		grid: a.grid,
		c0:   append([]A(nil), a.c0...),
		c1:   append([]B(nil), a.c1...),
		c2:   append([]C(nil), a.c2...),
		c3:   append([]D(nil), a.c3...),
		c4:   append([]E(nil), a.c4...),
	}
}

func (a *ArrayNx5[P, A, B, C, D, E]) C0() *Array[P, A] { return &Array[P, A]{grid: a.grid, values: a.c0} }
func (a *ArrayNx5[P, A, B, C, D, E]) C1() *Array[P, B] { return &Array[P, B]{grid: a.grid, values: a.c1} }
func (a *ArrayNx5[P, A, B, C, D, E]) C2() *Array[P, C] { return &Array[P, C]{grid: a.grid, values: a.c2} }
func (a *ArrayNx5[P, A, B, C, D, E]) C3() *Array[P, D] { return &Array[P, D]{grid: a.grid, values: a.c3} }
func (a *ArrayNx5[P, A, B, C, D, E]) C4() *Array[P, E] { return &Array[P, E]{grid: a.grid, values: a.c4} }

// Tuple6 is the value type of a 6-channel array.
type Tuple6[A, B, C, D, E, F any] struct {
	C0 A
	C1 B
	C2 C
	C3 D
	C4 E
	C5 F
}

type ArrayNx6[P geom.Point[P], A, B, C, D, E, F any] struct {
	grid[P]
	c0 []A
	c1 []B
	c2 []C
	c3 []D
	c4 []E
	c5 []F
}

type Array2x6[A, B, C, D, E, F any] = ArrayNx6[geom.Point2i, A, B, C, D, E, F]
type Array3x6[A, B, C, D, E, F any] = ArrayNx6[geom.Point3i, A, B, C, D, E, F]

func FillNx6[P geom.Point[P], A, B, C, D, E, F any](extent geom.Extent[P], v Tuple6[A, B, C, D, E, F]) *ArrayNx6[P, A, B, C, D, E, F] {
	g := newGrid(extent)
	return &ArrayNx6[P, A, B, C, D, E, F]{
		grid: g,
		c0:   fillSlice(g.volume, v.C0),
		c1:   fillSlice(g.volume, v.C1),
		c2:   fillSlice(g.volume, v.C2),
		c3:   fillSlice(g.volume, v.C3),
		c4:   fillSlice(g.volume, v.C4),
		c5:   fillSlice(g.volume, v.C5),
	}
}

func (a *ArrayNx6[P, A, B, C, D, E, F]) Array() Accessor[P, Tuple6[A, B, C, D, E, F]] { return a }

func (a *ArrayNx6[P, A, B, C, D, E, F]) Get(p P) Tuple6[A, B, C, D, E, F] {
	i := a.index(p)
	return Tuple6[A, B, C, D, E, F]{a.c0[i], a.c1[i], a.c2[i], a.c3[i], a.c4[i], a.c5[i]}
}

func (a *ArrayNx6[P, A, B, C, D, E, F]) Set(p P, v Tuple6[A, B, C, D, E, F]) {
	i := a.index(p)
	a.c0[i] = v.C0
	a.c1[i] = v.C1
	a.c2[i] = v.C2
	a.c3[i] = v.C3
	a.c4[i] = v.C4
	a.c5[i] = v.C5
}

func (a *ArrayNx6[P, A, B, C, D, E, F]) FillExtent(sub geom.Extent[P], v Tuple6[A, B, C, D, E, F]) {
	a.checkSubset(sub)
	for p := range sub.Points() {
		i := a.index(p)
		a.c0[i] = v.C0
		a.c1[i] = v.C1
		a.c2[i] = v.C2
		a.c3[i] = v.C3
		a.c4[i] = v.C4
		a.c5[i] = v.C5
	}
}

func (a *ArrayNx6[P, A, B, C, D, E, F]) Clone() *ArrayNx6[P, A, B, C, D, E, F] {
	return &ArrayNx6[P, A, B, C, D, E, F]{
		grid: a.grid,
		c0:   append([]A(nil), a.c0...),
		c1:   append([]B(nil), a.c1...),
		c2:   append([]C(nil), a.c2...),
		c3:   append([]D(nil), a.c3...),
		c4:   append([]E(nil), a.c4...),
		c5:   append([]F(nil), a.c5...),
	}
}

func (a *ArrayNx6[P, A, B, C, D, E, F]) C0() *Array[P, A] { return &Array[P, A]{grid: a.grid, values: a.c0} }
func (a *ArrayNx6[P, A, B, C, D, E, F]) C1() *Array[P, B] { return &Array[P, B]{grid: a.grid, values: a.c1} }
func (a *ArrayNx6[P, A, B, C, D, E, F]) C2() *Array[P, C] { return &Array[P, C]{grid: a.grid, values: a.c2} }
func (a *ArrayNx6[P, A, B, C, D, E, F]) C3() *Array[P, D] { return &Array[P, D]{grid: a.grid, values: a.c3} }
func (a *ArrayNx6[P, A, B, C, D, E, F]) C4() *Array[P, E] { return &Array[P, E]{grid: a.grid, values: a.c4} }
func (a *ArrayNx6[P, A, B, C, D, E, F]) C5() *Array[P, F] { return &Array[P, F]{grid: a.grid, values: a.c5} }
