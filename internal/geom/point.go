package geom

import (
	"fmt"
	"math/bits"
)

// Point is implemented by the fixed-arity integer points (Point2i, Point3i).
// Generic code is written against this constraint so every dimension gets its
// own instantiation instead of switching on the axis count at runtime.
type Point[P any] interface {
	comparable
	fmt.Stringer

	Dim() int
	At(axis int) int32
	With(axis int, v int32) P

	Add(o P) P
	Sub(o P) P
	Mul(o P) P
	Min(o P) P
	Max(o P) P
	Scale(s int32) P

	// Shl and Shr shift every axis. Shr is arithmetic, so it is floor
	// division by 2^n (toward negative infinity).
	Shl(n uint) P
	Shr(n uint) P
	// ShlVec and ShrVec shift each axis by the matching axis of o.
	ShlVec(o P) P
	ShrVec(o P) P

	// Less orders by the last axis first; sorted order equals Extent
	// iteration order.
	Less(o P) bool
}

func Fill[P Point[P]](v int32) P {
	var p P
	for i := 0; i < p.Dim(); i++ {
		p = p.With(i, v)
	}
	return p
}

func Ones[P Point[P]]() P { return Fill[P](1) }

func Zero[P Point[P]]() P {
	var p P
	return p
}

// Volume is the product of all axes, or 0 if any axis is <= 0.
func Volume[P Point[P]](p P) int {
	v := 1
	for i := 0; i < p.Dim(); i++ {
		a := p.At(i)
		if a <= 0 {
			return 0
		}
		v *= int(a)
	}
	return v
}

func AllPositive[P Point[P]](p P) bool {
	for i := 0; i < p.Dim(); i++ {
		if p.At(i) <= 0 {
			return false
		}
	}
	return true
}

func IsPowerOfTwo(v int32) bool {
	return v > 0 && v&(v-1) == 0
}

func AllPowersOfTwo[P Point[P]](p P) bool {
	for i := 0; i < p.Dim(); i++ {
		if !IsPowerOfTwo(p.At(i)) {
			return false
		}
	}
	return true
}

// Log2 returns the per-axis base-2 logarithm. Every axis must be a power of two.
func Log2[P Point[P]](p P) P {
	var out P
	for i := 0; i < p.Dim(); i++ {
		a := p.At(i)
		if !IsPowerOfTwo(a) {
			panic(fmt.Sprintf("geom: axis %d of %s is not a power of two", i, p))
		}
		out = out.With(i, int32(bits.TrailingZeros32(uint32(a))))
	}
	return out
}

// MaxAxis returns the largest component.
func MaxAxis[P Point[P]](p P) int32 {
	m := p.At(0)
	for i := 1; i < p.Dim(); i++ {
		if a := p.At(i); a > m {
			m = a
		}
	}
	return m
}

func Compare[P Point[P]](a, b P) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

func lessAxes(dim int, at func(int) (int32, int32)) bool {
	for i := dim - 1; i >= 0; i-- {
		a, b := at(i)
		if a != b {
			return a < b
		}
	}
	return false
}

// Slice copies the axes out, for formats that cannot hold P directly.
func Slice[P Point[P]](p P) []int32 {
	out := make([]int32, p.Dim())
	for i := range out {
		out[i] = p.At(i)
	}
	return out
}

// FromSlice is the inverse of Slice; ok is false on an arity mismatch.
func FromSlice[P Point[P]](axes []int32) (P, bool) {
	var p P
	if len(axes) != p.Dim() {
		return p, false
	}
	for i, a := range axes {
		p = p.With(i, a)
	}
	return p, true
}
