package geom

import "fmt"

type Point2i [2]int32

func P2(x, y int32) Point2i { return Point2i{x, y} }

func (p Point2i) Dim() int              { return 2 }
func (p Point2i) At(axis int) int32     { return p[axis] }
func (p Point2i) X() int32              { return p[0] }
func (p Point2i) Y() int32              { return p[1] }
func (p Point2i) String() string        { return fmt.Sprintf("(%d,%d)", p[0], p[1]) }
func (p Point2i) Scale(s int32) Point2i { return Point2i{p[0] * s, p[1] * s} }

func (p Point2i) With(axis int, v int32) Point2i {
	p[axis] = v
	return p
}

func (p Point2i) Add(o Point2i) Point2i { return Point2i{p[0] + o[0], p[1] + o[1]} }
func (p Point2i) Sub(o Point2i) Point2i { return Point2i{p[0] - o[0], p[1] - o[1]} }
func (p Point2i) Mul(o Point2i) Point2i { return Point2i{p[0] * o[0], p[1] * o[1]} }
func (p Point2i) Min(o Point2i) Point2i { return Point2i{min(p[0], o[0]), min(p[1], o[1])} }
func (p Point2i) Max(o Point2i) Point2i { return Point2i{max(p[0], o[0]), max(p[1], o[1])} }

func (p Point2i) Shl(n uint) Point2i { return Point2i{p[0] << n, p[1] << n} }
func (p Point2i) Shr(n uint) Point2i { return Point2i{p[0] >> n, p[1] >> n} }

func (p Point2i) ShlVec(o Point2i) Point2i {
	return Point2i{p[0] << uint(o[0]), p[1] << uint(o[1])}
}

func (p Point2i) ShrVec(o Point2i) Point2i {
	return Point2i{p[0] >> uint(o[0]), p[1] >> uint(o[1])}
}

func (p Point2i) Less(o Point2i) bool {
	if p[1] != o[1] {
		return p[1] < o[1]
	}
	return p[0] < o[0]
}

type Extent2i = Extent[Point2i]
type Sphere2 = Sphere[Point2i]
