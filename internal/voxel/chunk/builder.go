package chunk

import (
	"fmt"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/array"
)

// MaxRootLOD keeps LOD shifts inside int32 coordinates.
const MaxRootLOD = 24

type Config[P geom.Point[P], T any] struct {
	ChunkShape   P     `yaml:"chunk_shape" json:"chunk_shape"`
	AmbientValue T     `yaml:"ambient_value" json:"ambient_value"`
	RootLOD      uint8 `yaml:"root_lod" json:"root_lod"`
}

func (c Config[P, T]) NumLODs() int { return int(c.RootLOD) + 1 }

func (c Config[P, T]) Validate() error {
	if !geom.AllPowersOfTwo(c.ChunkShape) {
		return fmt.Errorf("chunk shape %s: every axis must be a power of two", c.ChunkShape)
	}
	if c.RootLOD > MaxRootLOD {
		return fmt.Errorf("root lod %d exceeds %d", c.RootLOD, MaxRootLOD)
	}
	return nil
}

// Builder holds the immutable map configuration. It is a small value and can
// build any number of independent maps.
type Builder[P geom.Point[P], T any, C Chunk[P, T]] struct {
	cfg      Config[P, T]
	shapeLog P
	ambient  AmbientFunc[P, T, C]
}

// NewBuilder panics if cfg is invalid; a bad chunk shape would silently break
// every coordinate shift.
func NewBuilder[P geom.Point[P], T any, C Chunk[P, T]](cfg Config[P, T], ambient AmbientFunc[P, T, C]) Builder[P, T, C] {
	if err := cfg.Validate(); err != nil {
		panic("chunk: " + err.Error())
	}
	if ambient == nil {
		panic("chunk: nil ambient constructor")
	}
	return Builder[P, T, C]{cfg: cfg, shapeLog: geom.Log2(cfg.ChunkShape), ambient: ambient}
}

func NewArrayBuilder[P geom.Point[P], T any](cfg Config[P, T]) Builder[P, T, *array.Array[P, T]] {
	return NewBuilder(cfg, NewArrayChunk[P, T])
}

func NewMetaBuilder[P geom.Point[P], T, M any](cfg Config[P, T]) Builder[P, T, *WithMeta[P, T, M]] {
	return NewBuilder(cfg, NewMetaChunk[P, T, M])
}

func NewArrayNx2Builder[P geom.Point[P], A, B any](cfg Config[P, array.Tuple2[A, B]]) Builder[P, array.Tuple2[A, B], *array.ArrayNx2[P, A, B]] {
	return NewBuilder(cfg, array.FillNx2[P, A, B])
}

func (b Builder[P, T, C]) Config() Config[P, T] { return b.cfg }
func (b Builder[P, T, C]) ChunkShape() P        { return b.cfg.ChunkShape }
func (b Builder[P, T, C]) AmbientValue() T      { return b.cfg.AmbientValue }
func (b Builder[P, T, C]) RootLOD() uint8       { return b.cfg.RootLOD }
func (b Builder[P, T, C]) NumLODs() int         { return b.cfg.NumLODs() }

func (b Builder[P, T, C]) NewAmbient(extent geom.Extent[P]) C {
	return b.ambient(extent, b.cfg.AmbientValue)
}

// BuildWithStorage calls factory once per LOD.
func (b Builder[P, T, C]) BuildWithStorage(factory func() Storage[P, C]) *Map[P, T, C] {
	lods := make([]Storage[P, C], b.NumLODs())
	for i := range lods {
		lods[i] = factory()
	}
	return &Map[P, T, C]{builder: b, lods: lods}
}

// BuildWithStorages binds backends that need per-LOD construction arguments.
func (b Builder[P, T, C]) BuildWithStorages(lods []Storage[P, C]) *Map[P, T, C] {
	if len(lods) != b.NumLODs() {
		panic(fmt.Sprintf("chunk: %d storages for %d lods", len(lods), b.NumLODs()))
	}
	return &Map[P, T, C]{builder: b, lods: append([]Storage[P, C](nil), lods...)}
}

func (b Builder[P, T, C]) BuildWithHashMapStorage() *Map[P, T, C] {
	return b.BuildWithStorage(func() Storage[P, C] { return NewHashMapStorage[P, C]() })
}
