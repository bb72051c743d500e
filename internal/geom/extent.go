package geom

import (
	"fmt"
	"iter"
)

// Extent is an axis-aligned box given by its minimum corner and shape.
// Any axis with shape <= 0 makes the extent empty.
type Extent[P Point[P]] struct {
	Min   P
	Shape P
}

func ExtentFromMinShape[P Point[P]](minimum, shape P) Extent[P] {
	return Extent[P]{Min: minimum, Shape: shape}
}

// ExtentFromMinMax builds the extent covering [minimum, maximum] inclusive.
func ExtentFromMinMax[P Point[P]](minimum, maximum P) Extent[P] {
	return Extent[P]{Min: minimum, Shape: maximum.Sub(minimum).Add(Ones[P]())}
}

func (e Extent[P]) String() string {
	return fmt.Sprintf("extent{min=%s shape=%s}", e.Min, e.Shape)
}

func (e Extent[P]) IsEmpty() bool { return !AllPositive(e.Shape) }

// Max is the inclusive maximum corner.
func (e Extent[P]) Max() P { return e.Min.Add(e.Shape).Sub(Ones[P]()) }

// End is the exclusive upper corner.
func (e Extent[P]) End() P { return e.Min.Add(e.Shape) }

func (e Extent[P]) Volume() int { return Volume(e.Shape) }

func (e Extent[P]) Contains(p P) bool {
	for i := 0; i < p.Dim(); i++ {
		a := p.At(i)
		lo := e.Min.At(i)
		if a < lo || a >= lo+e.Shape.At(i) {
			return false
		}
	}
	return true
}

func (e Extent[P]) ContainsExtent(o Extent[P]) bool {
	if o.IsEmpty() {
		return true
	}
	return e.Contains(o.Min) && e.Contains(o.Max())
}

// Intersection returns the overlap of both extents; the result may be empty.
func (e Extent[P]) Intersection(o Extent[P]) Extent[P] {
	lo := e.Min.Max(o.Min)
	hi := e.End().Min(o.End())
	return Extent[P]{Min: lo, Shape: hi.Sub(lo)}
}

func (e Extent[P]) Intersects(o Extent[P]) bool {
	return !e.Intersection(o).IsEmpty()
}

func (e Extent[P]) Translate(d P) Extent[P] {
	return Extent[P]{Min: e.Min.Add(d), Shape: e.Shape}
}

// Padded grows the extent by n on every side.
func (e Extent[P]) Padded(n int32) Extent[P] {
	return Extent[P]{Min: e.Min.Sub(Fill[P](n)), Shape: e.Shape.Add(Fill[P](2 * n))}
}

// Shr maps the extent to the coarser grid 2^n times smaller, keeping every
// cell that any point of e falls in.
func (e Extent[P]) Shr(n uint) Extent[P] {
	if e.IsEmpty() {
		return Extent[P]{Min: e.Min.Shr(n)}
	}
	return ExtentFromMinMax(e.Min.Shr(n), e.Max().Shr(n))
}

func (e Extent[P]) Shl(n uint) Extent[P] {
	return Extent[P]{Min: e.Min.Shl(n), Shape: e.Shape.Shl(n)}
}

// ClosestPoint returns the point of e nearest to p. e must not be empty.
func (e Extent[P]) ClosestPoint(p P) P {
	return p.Max(e.Min).Min(e.Max())
}

// Points yields every point of the extent in row-major order, axis 0 fastest.
func (e Extent[P]) Points() iter.Seq[P] {
	return func(yield func(P) bool) {
		if e.IsEmpty() {
			return
		}
		dim := e.Min.Dim()
		p := e.Min
		for {
			if !yield(p) {
				return
			}
			axis := 0
			for ; axis < dim; axis++ {
				next := p.At(axis) + 1
				if next < e.Min.At(axis)+e.Shape.At(axis) {
					p = p.With(axis, next)
					break
				}
				p = p.With(axis, e.Min.At(axis))
			}
			if axis == dim {
				return
			}
		}
	}
}

// Strides returns the linear stride of each axis for an array shaped like s,
// with axis 0 contiguous.
func Strides[P Point[P]](shape P) P {
	var s P
	acc := int32(1)
	for i := 0; i < shape.Dim(); i++ {
		s = s.With(i, acc)
		acc *= shape.At(i)
	}
	return s
}

// LinearIndex maps a local point (relative to the array's minimum) to its
// position in a row-major buffer.
func LinearIndex[P Point[P]](strides, local P) int {
	idx := 0
	for i := 0; i < local.Dim(); i++ {
		idx += int(strides.At(i)) * int(local.At(i))
	}
	return idx
}

func (e Extent[P]) ForEach(fn func(P)) {
	for p := range e.Points() {
		fn(p)
	}
}

// BoundingUnion is the smallest extent covering both; empty inputs are ignored.
func (e Extent[P]) BoundingUnion(o Extent[P]) Extent[P] {
	switch {
	case e.IsEmpty():
		return o
	case o.IsEmpty():
		return e
	}
	lo := e.Min.Min(o.Min)
	hi := e.End().Max(o.End())
	return Extent[P]{Min: lo, Shape: hi.Sub(lo)}
}

// IsAdjacent reports whether the extents share a face without overlapping.
func (e Extent[P]) IsAdjacent(o Extent[P]) bool {
	if e.IsEmpty() || o.IsEmpty() {
		return false
	}
	touching := 0
	for i := 0; i < e.Min.Dim(); i++ {
		lo, hi := e.Min.At(i), e.Min.At(i)+e.Shape.At(i)
		olo, ohi := o.Min.At(i), o.Min.At(i)+o.Shape.At(i)
		switch {
		case hi == olo || ohi == lo:
			touching++
		case hi < olo || ohi < lo:
			return false
		}
	}
	return touching == 1
}
