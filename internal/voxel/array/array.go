// Package array holds dense rectangular buffers over an integer extent.
//
// Every array owns exactly Volume(extent) values per channel laid out with
// axis 0 contiguous. Accesses outside the extent are contract violations and
// panic.
package array

import (
	"fmt"

	"voxelmap.ai/internal/geom"
)

// Accessor is the read/write surface shared by single and multi-channel arrays.
type Accessor[P geom.Point[P], T any] interface {
	Extent() geom.Extent[P]
	Get(p P) T
	Set(p P, v T)
	FillExtent(sub geom.Extent[P], v T)
}

type Array[P geom.Point[P], T any] struct {
	grid[P]
	values []T
}

type Array2x1[T any] = Array[geom.Point2i, T]
type Array3x1[T any] = Array[geom.Point3i, T]

func Fill[P geom.Point[P], T any](extent geom.Extent[P], v T) *Array[P, T] {
	g := newGrid(extent)
	values := make([]T, g.volume)
	for i := range values {
		values[i] = v
	}
	return &Array[P, T]{grid: g, values: values}
}

// FromValues wraps values, which must hold exactly Volume(extent) entries in
// row-major order. The slice is not copied.
func FromValues[P geom.Point[P], T any](extent geom.Extent[P], values []T) *Array[P, T] {
	g := newGrid(extent)
	if len(values) != g.volume {
		panic(fmt.Sprintf("array: %d values for %s (want %d)", len(values), extent, g.volume))
	}
	return &Array[P, T]{grid: g, values: values}
}

// Array lets a bare array act as a chunk.
func (a *Array[P, T]) Array() Accessor[P, T] { return a }

func (a *Array[P, T]) Get(p P) T { return a.values[a.index(p)] }

func (a *Array[P, T]) Set(p P, v T) { a.values[a.index(p)] = v }

// Ptr returns a pointer to the stored value for in-place edits.
func (a *Array[P, T]) Ptr(p P) *T { return &a.values[a.index(p)] }

func (a *Array[P, T]) FillExtent(sub geom.Extent[P], v T) {
	a.checkSubset(sub)
	for p := range sub.Points() {
		a.values[a.index(p)] = v
	}
}

// ForEach visits the points of sub ∩ extent in row-major order.
func (a *Array[P, T]) ForEach(sub geom.Extent[P], fn func(P, T)) {
	for p := range a.extent.Intersection(sub).Points() {
		fn(p, a.values[a.index(p)])
	}
}

// Values exposes the backing slice.
func (a *Array[P, T]) Values() []T { return a.values }

func (a *Array[P, T]) Clone() *Array[P, T] {
	return &Array[P, T]{grid: a.grid, values: append([]T(nil), a.values...)}
}

// CopyExtent copies sub from src; sub must lie in both arrays.
func (a *Array[P, T]) CopyExtent(src Accessor[P, T], sub geom.Extent[P]) {
	a.checkSubset(sub)
	if !src.Extent().ContainsExtent(sub) {
		panic(fmt.Sprintf("array: copy source %s does not contain %s", src.Extent(), sub))
	}
	for p := range sub.Points() {
		a.values[a.index(p)] = src.Get(p)
	}
}

// Translated returns a view of the same values moved to a new minimum.
func (a *Array[P, T]) Translated(newMin P) *Array[P, T] {
	return &Array[P, T]{grid: newGrid(geom.Extent[P]{Min: newMin, Shape: a.extent.Shape}), values: a.values}
}

type grid[P geom.Point[P]] struct {
	extent  geom.Extent[P]
	strides P
	volume  int
}

func newGrid[P geom.Point[P]](extent geom.Extent[P]) grid[P] {
	if extent.IsEmpty() {
		extent.Shape = geom.Zero[P]()
	}
	return grid[P]{extent: extent, strides: geom.Strides(extent.Shape), volume: extent.Volume()}
}

func (g *grid[P]) Extent() geom.Extent[P] { return g.extent }

func (g *grid[P]) index(p P) int {
	if !g.extent.Contains(p) {
		panic(fmt.Sprintf("array: point %s outside %s", p, g.extent))
	}
	return geom.LinearIndex(g.strides, p.Sub(g.extent.Min))
}

func (g *grid[P]) checkSubset(sub geom.Extent[P]) {
	if !g.extent.ContainsExtent(sub) {
		panic(fmt.Sprintf("array: %s is not inside %s", sub, g.extent))
	}
}
