package chunk

import (
	"testing"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/array"
)

func newTestMap() *Map[geom.Point3i, int32, *array.Array[geom.Point3i, int32]] {
	b := NewArrayBuilder(Config[geom.Point3i, int32]{ChunkShape: geom.P3(16, 16, 16), RootLOD: 2})
	return b.BuildWithHashMapStorage()
}

func TestMap_ConcreteScenario(t *testing.T) {
	m := newTestMap()
	m.Set(0, geom.P3(20, 0, 0), 5)

	if k := m.KeyForPoint(0, geom.P3(20, 0, 0)); k != NewKey(0, geom.P3(1, 0, 0)) {
		t.Fatalf("key: %s", k)
	}
	if v := m.Get(0, geom.P3(20, 0, 0)); v != 5 {
		t.Fatalf("read back: %d", v)
	}
	if v := m.Get(0, geom.P3(21, 1, 1)); v != 0 {
		t.Fatalf("same chunk, unwritten: %d", v)
	}
	if v := m.Get(0, geom.P3(36, 0, 0)); v != 0 {
		t.Fatalf("vacant chunk: %d", v)
	}
	if m.HasChunk(NewKey(0, geom.P3(2, 0, 0))) {
		t.Fatalf("reading must not create chunks")
	}
	if m.Len() != 1 {
		t.Fatalf("len=%d", m.Len())
	}
}

func TestNewAmbient_AllAmbient(t *testing.T) {
	b := NewArrayBuilder(Config[geom.Point2i, float32]{ChunkShape: geom.P2(4, 8), AmbientValue: 1.5})
	ext := geom.ExtentFromMinShape(geom.P2(-4, 8), b.ChunkShape())
	c := b.NewAmbient(ext)
	for p := range ext.Points() {
		if v := c.Get(p); v != 1.5 {
			t.Fatalf("%s: %v", p, v)
		}
	}
}

func TestKeyForPoint_HalvesAcrossLODs(t *testing.T) {
	m := newTestMap()
	for _, p := range []geom.Point3i{{0, 0, 0}, {-1, -1, -1}, {20, -17, 300}, {-129, 64, -33}} {
		for lod := uint8(0); lod < m.RootLOD(); lod++ {
			k := m.KeyForPoint(lod, p)
			up := m.KeyForPoint(lod+1, p)
			if up != k.Parent() {
				t.Fatalf("p=%s lod=%d: %s parent %s, got %s", p, lod, k, k.Parent(), up)
			}
			for axis := 0; axis < 3; axis++ {
				if want := geom.FloorDiv(k.Coord.At(axis), 2); up.Coord.At(axis) != want {
					t.Fatalf("axis %d: %d want %d", axis, up.Coord.At(axis), want)
				}
			}
			if !m.WorldExtent(k).Contains(p) {
				t.Fatalf("world extent %s misses %s", m.WorldExtent(k), p)
			}
		}
	}
}

func TestHashMapStorage_OverwriteReturnsPrevious(t *testing.T) {
	s := NewHashMapStorage[geom.Point2i, string]()
	if _, had := s.Insert(geom.P2(1, 1), NewNode("a")); had {
		t.Fatalf("fresh insert reported a previous node")
	}
	prev, had := s.Insert(geom.P2(1, 1), NewNode("b"))
	if !had || prev.Chunk != "a" {
		t.Fatalf("prev=%+v had=%v", prev, had)
	}
	if n, _ := s.Get(geom.P2(1, 1)); n.Chunk != "b" || s.Len() != 1 {
		t.Fatalf("resident=%+v len=%d", n, s.Len())
	}
	s.Insert(geom.P2(0, 2), NewNode("c"))
	s.Insert(geom.P2(5, 1), NewNode("d"))
	keys := s.Keys()
	want := []geom.Point2i{{1, 1}, {5, 1}, {0, 2}}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys=%v want %v", keys, want)
		}
	}
	if _, ok := s.Remove(geom.P2(9, 9)); ok {
		t.Fatalf("removed a missing key")
	}
}

func TestBuildWithStorage_OneBackendPerLOD(t *testing.T) {
	calls := 0
	b := NewArrayBuilder(Config[geom.Point3i, int32]{ChunkShape: geom.P3(8, 8, 8), RootLOD: 3})
	m := b.BuildWithStorage(func() Storage[geom.Point3i, *array.Array[geom.Point3i, int32]] {
		calls++
		return NewHashMapStorage[geom.Point3i, *array.Array[geom.Point3i, int32]]()
	})
	if calls != 4 {
		t.Fatalf("factory called %d times", calls)
	}
	if m.Storage(0) == m.Storage(3) {
		t.Fatalf("backends must be independent")
	}
}

func TestNewBuilder_RejectsNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewArrayBuilder(Config[geom.Point3i, int32]{ChunkShape: geom.P3(16, 12, 16)})
}

func TestMap_LODBeyondRootPanics(t *testing.T) {
	m := newTestMap()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	m.Get(3, geom.P3(0, 0, 0))
}

func TestMetaChunk_MetaSurvivesWrites(t *testing.T) {
	type meta struct{ Edits int }
	b := NewMetaBuilder[geom.Point2i, uint8, meta](Config[geom.Point2i, uint8]{ChunkShape: geom.P2(4, 4)})
	m := b.BuildWithHashMapStorage()
	m.Set(0, geom.P2(1, 1), 3)
	c, ok := m.GetChunk(NewKey(0, geom.P2(0, 0)))
	if !ok || c.Meta.Edits != 0 {
		t.Fatalf("ambient meta must be zero: %+v", c)
	}
	c.Meta.Edits = 7
	m.Set(0, geom.P2(2, 2), 4)
	c, _ = m.GetChunk(NewKey(0, geom.P2(0, 0)))
	if c.Meta.Edits != 7 || m.Get(0, geom.P2(1, 1)) != 3 {
		t.Fatalf("meta or data lost: %+v", c)
	}
}

func TestMultiChannelBuilder(t *testing.T) {
	type pair = array.Tuple2[uint8, float32]
	b := NewArrayNx2Builder[geom.Point3i, uint8, float32](Config[geom.Point3i, pair]{
		ChunkShape:   geom.P3(4, 4, 4),
		AmbientValue: pair{C0: 1, C1: 0.5},
	})
	m := b.BuildWithHashMapStorage()
	m.Set(0, geom.P3(-1, 0, 0), pair{C0: 9, C1: -1})
	if got := m.Get(0, geom.P3(-1, 0, 0)); got.C0 != 9 || got.C1 != -1 {
		t.Fatalf("got %+v", got)
	}
	if got := m.Get(0, geom.P3(-2, 0, 0)); got != (pair{C0: 1, C1: 0.5}) {
		t.Fatalf("ambient: %+v", got)
	}
}

func TestFillExtent_SpansChunksAndLOD(t *testing.T) {
	m := newTestMap()
	m.FillExtent(0, geom.ExtentFromMinShape(geom.P3(-2, 0, 0), geom.P3(4, 1, 1)), 7)
	if len(m.LoadedKeys(0)) != 2 {
		t.Fatalf("loaded=%v", m.LoadedKeys(0))
	}
	for x := int32(-2); x < 2; x++ {
		if m.Get(0, geom.P3(x, 0, 0)) != 7 {
			t.Fatalf("x=%d not filled", x)
		}
	}
	if m.Get(0, geom.P3(2, 0, 0)) != 0 {
		t.Fatalf("fill leaked")
	}

	m.Set(1, geom.P3(40, 0, 0), 3)
	if k := m.KeyForPoint(1, geom.P3(40, 0, 0)); k != NewKey(1, geom.P3(1, 0, 0)) {
		t.Fatalf("lod1 key: %s", k)
	}
	if m.Get(1, geom.P3(41, 0, 0)) != 3 {
		t.Fatalf("world points 40 and 41 share one lod1 sample")
	}
}

func TestUpdateState_Placeholders(t *testing.T) {
	m := newTestMap()
	k := NewKey(1, geom.P3(0, 0, 0))
	m.UpdateState(k, StateUnloading, 0)
	if _, ok := m.State(k); ok {
		t.Fatalf("unloading alone must not create a placeholder")
	}
	m.UpdateState(k, StateRendered|StateLoading, 0)
	if st, _ := m.State(k); !st.Has(StateRendered | StateLoading) {
		t.Fatalf("state=%s", st)
	}
	if m.Get(1, geom.P3(0, 0, 0)) != 0 || m.HasChunk(k) {
		t.Fatalf("placeholder must read as ambient")
	}
	if !m.CompleteLoad(k, m.Builder().NewAmbient(m.ChunkExtent(k))) {
		t.Fatalf("complete load refused")
	}
	if st, _ := m.State(k); st != StateRendered {
		t.Fatalf("state after load=%s", st)
	}

	k2 := NewKey(0, geom.P3(5, 5, 5))
	m.UpdateState(k2, StateLoading, 0)
	m.UpdateState(k2, StateUnloading, StateLoading|StateRendered)
	if _, ok := m.GetNode(k2); ok {
		t.Fatalf("dead placeholder should be removed")
	}
	if m.CompleteLoad(k2, m.Builder().NewAmbient(m.ChunkExtent(k2))) {
		t.Fatalf("late load must be dropped")
	}
}

func TestDownsample_MeanOfChildren(t *testing.T) {
	b := NewArrayBuilder(Config[geom.Point2i, float32]{ChunkShape: geom.P2(4, 4), AmbientValue: 1, RootLOD: 2})
	m := b.BuildWithHashMapStorage()
	m.FillExtent(0, geom.ExtentFromMinShape(geom.P2(0, 0), geom.P2(4, 4)), -1)

	parent := NewKey(1, geom.P2(0, 0))
	if n := m.Downsample(parent, array.MeanSampler[float32]{}); n != 1 {
		t.Fatalf("resident children=%d", n)
	}
	if v := m.Get(1, geom.P2(0, 0)); v != -1 {
		t.Fatalf("filled child sample=%v", v)
	}
	if v := m.Get(1, geom.P2(4, 4)); v != 1 {
		t.Fatalf("vacant child sample=%v", v)
	}

	m.DownsampleAncestors(NewKey(0, geom.P2(0, 0)), array.MeanSampler[float32]{})
	if v := m.Get(2, geom.P2(0, 0)); v != -1 {
		t.Fatalf("root sample=%v", v)
	}
	if v := m.Get(2, geom.P2(8, 8)); v != 1 {
		t.Fatalf("root far sample=%v", v)
	}
}

func TestKey_ChildrenAndOrder(t *testing.T) {
	k := NewKey(2, geom.P2(-1, 3))
	kids := k.Children()
	if len(kids) != 4 || kids[0] != NewKey(1, geom.P2(-2, 6)) || kids[3] != NewKey(1, geom.P2(-1, 7)) {
		t.Fatalf("children=%v", kids)
	}
	for _, c := range kids {
		if c.Parent() != k {
			t.Fatalf("%s parent %s", c, c.Parent())
		}
	}
	if !NewKey(0, geom.P2(5, 0)).LODLess(NewKey(1, geom.P2(0, 0))) {
		t.Fatalf("LODLess must compare lod first")
	}
	if !NewKey(1, geom.P2(0, 0)).Less(NewKey(0, geom.P2(5, 0))) {
		t.Fatalf("Less must compare coord first")
	}
}
