package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Point3i [3]int32

func P3(x, y, z int32) Point3i { return Point3i{x, y, z} }

func (p Point3i) Dim() int              { return 3 }
func (p Point3i) At(axis int) int32     { return p[axis] }
func (p Point3i) X() int32              { return p[0] }
func (p Point3i) Y() int32              { return p[1] }
func (p Point3i) Z() int32              { return p[2] }
func (p Point3i) String() string        { return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2]) }
func (p Point3i) Scale(s int32) Point3i { return Point3i{p[0] * s, p[1] * s, p[2] * s} }

func (p Point3i) With(axis int, v int32) Point3i {
	p[axis] = v
	return p
}

func (p Point3i) Add(o Point3i) Point3i { return Point3i{p[0] + o[0], p[1] + o[1], p[2] + o[2]} }
func (p Point3i) Sub(o Point3i) Point3i { return Point3i{p[0] - o[0], p[1] - o[1], p[2] - o[2]} }
func (p Point3i) Mul(o Point3i) Point3i { return Point3i{p[0] * o[0], p[1] * o[1], p[2] * o[2]} }

func (p Point3i) Min(o Point3i) Point3i {
	return Point3i{min(p[0], o[0]), min(p[1], o[1]), min(p[2], o[2])}
}

func (p Point3i) Max(o Point3i) Point3i {
	return Point3i{max(p[0], o[0]), max(p[1], o[1]), max(p[2], o[2])}
}

func (p Point3i) Shl(n uint) Point3i { return Point3i{p[0] << n, p[1] << n, p[2] << n} }
func (p Point3i) Shr(n uint) Point3i { return Point3i{p[0] >> n, p[1] >> n, p[2] >> n} }

func (p Point3i) ShlVec(o Point3i) Point3i {
	return Point3i{p[0] << uint(o[0]), p[1] << uint(o[1]), p[2] << uint(o[2])}
}

func (p Point3i) ShrVec(o Point3i) Point3i {
	return Point3i{p[0] >> uint(o[0]), p[1] >> uint(o[1]), p[2] >> uint(o[2])}
}

func (p Point3i) Less(o Point3i) bool {
	return lessAxes(3, func(i int) (int32, int32) { return p[i], o[i] })
}

// FromVec3 floors a float position (camera, entity) onto the voxel grid.
func FromVec3(v mgl32.Vec3) Point3i {
	return Point3i{
		int32(math.Floor(float64(v[0]))),
		int32(math.Floor(float64(v[1]))),
		int32(math.Floor(float64(v[2]))),
	}
}

// Vec3 returns the voxel's minimum corner as a float vector.
func (p Point3i) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])}
}

type Extent3i = Extent[Point3i]
type Sphere3 = Sphere[Point3i]
