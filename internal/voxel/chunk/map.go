package chunk

import (
	"fmt"

	"voxelmap.ai/internal/geom"
)

// Map is the chunk tree: one Storage per LOD plus the builder that made it.
//
// World points are LOD 0 voxel coordinates. A chunk at LOD l holds samples of
// the LOD l grid, where sample = world >> l. The core does not keep coarse
// LODs in sync with their children; callers that write at LOD 0 and also
// read coarser LODs must call Downsample or DownsampleAncestors.
//
// Map is not safe for concurrent use.
type Map[P geom.Point[P], T any, C Chunk[P, T]] struct {
	builder Builder[P, T, C]
	lods    []Storage[P, C]
}

func (m *Map[P, T, C]) Builder() Builder[P, T, C] { return m.builder }
func (m *Map[P, T, C]) RootLOD() uint8            { return m.builder.cfg.RootLOD }
func (m *Map[P, T, C]) ChunkShape() P             { return m.builder.cfg.ChunkShape }
func (m *Map[P, T, C]) AmbientValue() T           { return m.builder.cfg.AmbientValue }

func (m *Map[P, T, C]) Storage(lod uint8) Storage[P, C] {
	if int(lod) >= len(m.lods) {
		panic(fmt.Sprintf("chunk: lod %d beyond root lod %d", lod, m.RootLOD()))
	}
	return m.lods[lod]
}

// KeyForPoint maps a world point to the key of the chunk holding its LOD
// sample. Shifts floor toward negative infinity.
func (m *Map[P, T, C]) KeyForPoint(lod uint8, p P) Key[P] {
	m.checkLOD(lod)
	return Key[P]{Coord: p.Shr(uint(lod)).ShrVec(m.builder.shapeLog), LOD: lod}
}

// ChunkExtent is the key's extent in its own LOD's sample space.
func (m *Map[P, T, C]) ChunkExtent(key Key[P]) geom.Extent[P] {
	return geom.Extent[P]{Min: key.Coord.ShlVec(m.builder.shapeLog), Shape: m.builder.cfg.ChunkShape}
}

// WorldExtent is the key's extent in LOD 0 space.
func (m *Map[P, T, C]) WorldExtent(key Key[P]) geom.Extent[P] {
	return m.ChunkExtent(key).Shl(uint(key.LOD))
}

func (m *Map[P, T, C]) GetNode(key Key[P]) (*Node[C], bool) {
	return m.Storage(key.LOD).Get(key.Coord)
}

// GetChunk reports only resident chunks; placeholders count as vacant.
func (m *Map[P, T, C]) GetChunk(key Key[P]) (C, bool) {
	n, ok := m.GetNode(key)
	if !ok || !n.HasChunk {
		var zero C
		return zero, false
	}
	return n.Chunk, true
}

// Get reads the LOD sample of world point p, or the ambient value if its chunk
// is vacant.
func (m *Map[P, T, C]) Get(lod uint8, p P) T {
	key := m.KeyForPoint(lod, p)
	c, ok := m.GetChunk(key)
	if !ok {
		return m.builder.cfg.AmbientValue
	}
	return c.Array().Get(p.Shr(uint(lod)))
}

// Set writes the LOD sample of world point p, creating its chunk if needed.
func (m *Map[P, T, C]) Set(lod uint8, p P, v T) {
	c := m.getOrCreate(m.KeyForPoint(lod, p))
	c.Array().Set(p.Shr(uint(lod)), v)
}

// FillExtent writes v over every LOD sample touched by the world extent.
func (m *Map[P, T, C]) FillExtent(lod uint8, world geom.Extent[P], v T) {
	if world.IsEmpty() {
		return
	}
	samples := world.Shr(uint(lod))
	keys := geom.ExtentFromMinMax(
		samples.Min.ShrVec(m.builder.shapeLog),
		samples.Max().ShrVec(m.builder.shapeLog),
	)
	for coord := range keys.Points() {
		key := Key[P]{Coord: coord, LOD: lod}
		sub := m.ChunkExtent(key).Intersection(samples)
		m.getOrCreate(key).Array().FillExtent(sub, v)
	}
}

// GetOrCreate returns the resident chunk, materializing an ambient one if
// the key is vacant or a placeholder.
func (m *Map[P, T, C]) GetOrCreate(key Key[P]) C { return m.getOrCreate(key) }

func (m *Map[P, T, C]) getOrCreate(key Key[P]) C {
	s := m.Storage(key.LOD)
	if n, ok := s.GetMut(key.Coord); ok {
		if !n.HasChunk {
			n.Chunk = m.builder.NewAmbient(m.ChunkExtent(key))
			n.HasChunk = true
		}
		return n.Chunk
	}
	c := m.builder.NewAmbient(m.ChunkExtent(key))
	s.Insert(key.Coord, NewNode(c))
	return c
}

// InsertChunk stores c at key, keeping any clip state already recorded there
// except StateLoading, which it completes.
func (m *Map[P, T, C]) InsertChunk(key Key[P], c C) (C, bool) {
	s := m.Storage(key.LOD)
	if n, ok := s.GetMut(key.Coord); ok {
		prev, had := n.Chunk, n.HasChunk
		n.Chunk, n.HasChunk = c, true
		n.State &^= StateLoading
		return prev, had
	}
	s.Insert(key.Coord, NewNode(c))
	var zero C
	return zero, false
}

// CompleteLoad stores c only if key is still waiting for it. A key that was
// unloaded while its contents were generated drops the late result.
func (m *Map[P, T, C]) CompleteLoad(key Key[P], c C) bool {
	n, ok := m.Storage(key.LOD).GetMut(key.Coord)
	if !ok || !n.State.Has(StateLoading) {
		return false
	}
	n.Chunk, n.HasChunk = c, true
	n.State &^= StateLoading
	return true
}

func (m *Map[P, T, C]) RemoveChunk(key Key[P]) (C, bool) {
	n, ok := m.Storage(key.LOD).Remove(key.Coord)
	if !ok || !n.HasChunk {
		var zero C
		return zero, false
	}
	return n.Chunk, true
}

// State returns the clip state stored at key.
func (m *Map[P, T, C]) State(key Key[P]) (NodeState, bool) {
	n, ok := m.GetNode(key)
	if !ok {
		return 0, false
	}
	return n.State, true
}

func (m *Map[P, T, C]) HasChunk(key Key[P]) bool {
	n, ok := m.GetNode(key)
	return ok && n.HasChunk
}

// UpdateState sets and clears state bits at key. A vacant key gets a
// placeholder only when set includes Loading or Rendered; a placeholder left
// with neither bit is removed.
func (m *Map[P, T, C]) UpdateState(key Key[P], set, clear NodeState) {
	const live = StateLoading | StateRendered
	s := m.Storage(key.LOD)
	n, ok := s.GetMut(key.Coord)
	if !ok {
		if set&live != 0 {
			s.Insert(key.Coord, &Node[C]{State: set})
		}
		return
	}
	n.State = n.State&^clear | set
	if !n.HasChunk && n.State&live == 0 {
		s.Remove(key.Coord)
	}
}

// KeysWithState lists keys at lod whose state has any bit of mask, sorted.
func (m *Map[P, T, C]) KeysWithState(lod uint8, mask NodeState) []Key[P] {
	s := m.Storage(lod)
	var out []Key[P]
	for _, coord := range s.Keys() {
		if n, ok := s.Get(coord); ok && n.State&mask != 0 {
			out = append(out, Key[P]{Coord: coord, LOD: lod})
		}
	}
	return out
}

// VisitOccupied calls fn for every resident chunk at lod in key order.
func (m *Map[P, T, C]) VisitOccupied(lod uint8, fn func(Key[P], C)) {
	s := m.Storage(lod)
	for _, coord := range s.Keys() {
		if n, ok := s.Get(coord); ok && n.HasChunk {
			fn(Key[P]{Coord: coord, LOD: lod}, n.Chunk)
		}
	}
}

func (m *Map[P, T, C]) LoadedKeys(lod uint8) []Key[P] {
	var out []Key[P]
	m.VisitOccupied(lod, func(k Key[P], _ C) { out = append(out, k) })
	return out
}

// Len counts nodes across all LODs, placeholders included.
func (m *Map[P, T, C]) Len() int {
	n := 0
	for _, s := range m.lods {
		n += s.Len()
	}
	return n
}

func (m *Map[P, T, C]) checkLOD(lod uint8) {
	if lod > m.RootLOD() {
		panic(fmt.Sprintf("chunk: lod %d beyond root lod %d", lod, m.RootLOD()))
	}
}
