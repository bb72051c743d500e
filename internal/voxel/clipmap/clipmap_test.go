package clipmap

import (
	"reflect"
	"slices"
	"testing"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/array"
	"voxelmap.ai/internal/voxel/chunk"
)

type testTree = chunk.Map[geom.Point2i, uint8, *array.Array[geom.Point2i, uint8]]

var (
	nowhere = geom.Sphere2{}
	f1      = geom.Sphere2{Center: geom.P2(8, 8), Radius: 64}
	f2      = geom.Sphere2{Center: geom.P2(56, 8), Radius: 64}
	detail  = Params{Detail: 1}
)

func newTree() *testTree {
	b := chunk.NewArrayBuilder(chunk.Config[geom.Point2i, uint8]{ChunkShape: geom.P2(16, 16), RootLOD: 2})
	return b.BuildWithHashMapStorage()
}

func key(lod uint8, x, y int32) chunk.Key[geom.Point2i] { return chunk.NewKey(lod, geom.P2(x, y)) }

func collect(events *[]Event[geom.Point2i]) func(Event[geom.Point2i]) {
	return func(e Event[geom.Point2i]) { *events = append(*events, e) }
}

func renderedKeys(tree *testTree) []chunk.Key[geom.Point2i] {
	var out []chunk.Key[geom.Point2i]
	for lod := uint8(0); lod <= tree.RootLOD(); lod++ {
		out = append(out, tree.KeysWithState(lod, chunk.StateRendered)...)
	}
	return out
}

// completeLoads finishes every waiting placeholder except skip, the way a
// generator would.
func completeLoads(tree *testTree, skip ...chunk.Key[geom.Point2i]) {
	for lod := uint8(0); lod <= tree.RootLOD(); lod++ {
		for _, k := range tree.KeysWithState(lod, chunk.StateLoading) {
			if slices.Contains(skip, k) {
				continue
			}
			tree.CompleteLoad(k, tree.Builder().NewAmbient(tree.ChunkExtent(k)))
		}
	}
}

// converge delivers events until a call comes in under budget, then loads
// everything and runs one more call so replaced chunks retire.
func converge(t *testing.T, tree *testTree, from, to geom.Sphere2, p Params) []Event[geom.Point2i] {
	t.Helper()
	var all []Event[geom.Point2i]
	for i := 0; i < 1000; i++ {
		n := Events(tree, from, to, p, collect(&all))
		completeLoads(tree)
		if n == 0 || p.Budget <= 0 || n < p.Budget {
			if n := Events(tree, from, to, p, collect(&all)); n != 0 {
				t.Fatalf("settled update emitted %d more events", n)
			}
			return all
		}
	}
	t.Fatalf("events did not converge")
	return nil
}

func assertRenderedIsActive(t *testing.T, tree *testTree, focus geom.Sphere2) {
	t.Helper()
	got := renderedKeys(tree)
	want := ActiveSet(tree, focus, detail.Detail)
	if !slices.Equal(got, want) {
		t.Fatalf("rendered %v\nwant %v", got, want)
	}
}

func TestActiveSet_NestedAndNonOverlapping(t *testing.T) {
	tree := newTree()
	active := ActiveSet(tree, f1, 1)
	if len(active) == 0 {
		t.Fatalf("empty active set")
	}
	set := keySet[geom.Point2i]{}
	for _, k := range active {
		set[k] = struct{}{}
	}
	for _, k := range active {
		for a := k; a.LOD < tree.RootLOD(); {
			a = a.Parent()
			if set.has(a) {
				t.Fatalf("%s and its ancestor %s are both active", k, a)
			}
		}
	}
	if !set.has(key(0, 0, 0)) {
		t.Fatalf("chunk under the focus must be at lod 0")
	}
	if !set.has(key(1, 2, 0)) || !set.has(key(1, -2, 0)) {
		t.Fatalf("mid-range chunks must be at lod 1: %v", active)
	}
	if len(ActiveSet(tree, nowhere, 1)) != 0 {
		t.Fatalf("zero radius must select nothing")
	}
}

func TestEvents_SameFocusIsEmpty(t *testing.T) {
	tree := newTree()
	if n := Events(tree, f1, f1, detail, nil); n != 0 {
		t.Fatalf("got %d events", n)
	}
}

func TestEvents_IdempotentSecondCall(t *testing.T) {
	tree := newTree()
	var first, second []Event[geom.Point2i]
	Events(tree, nowhere, f1, detail, collect(&first))
	if len(first) == 0 {
		t.Fatalf("no events loading from empty")
	}
	for _, e := range first {
		if e.Kind != KindLoad {
			t.Fatalf("unexpected %s from empty tree", e)
		}
	}
	Events(tree, nowhere, f1, detail, collect(&second))
	if len(second) != 0 {
		t.Fatalf("second call emitted %v", second)
	}
	assertRenderedIsActive(t, tree, f1)
	if n := RenderUpdates(tree, f1, detail, nil); n != 0 {
		t.Fatalf("render updates after convergence: %d", n)
	}
}

func TestEvents_OrderedByLODThenKey(t *testing.T) {
	tree := newTree()
	var events []Event[geom.Point2i]
	Events(tree, nowhere, f1, detail, collect(&events))
	if !slices.IsSortedFunc(events, func(a, b Event[geom.Point2i]) int { return compareKeys(a.Primary(), b.Primary()) }) {
		t.Fatalf("events out of order: %v", events)
	}
}

func TestEvents_TransitionKinds(t *testing.T) {
	tree := newTree()
	converge(t, tree, nowhere, f1, detail)
	events := converge(t, tree, f1, f2, detail)

	find := func(k chunk.Key[geom.Point2i]) Event[geom.Point2i] {
		for _, e := range events {
			if e.Key == k {
				return e
			}
		}
		t.Fatalf("no event for %s in %v", k, events)
		return Event[geom.Point2i]{}
	}
	if e := find(key(0, 4, 0)); e.Kind != KindSplit || e.Parent != key(1, 2, 0) {
		t.Fatalf("want split from lod1(2,0): %s", e)
	}
	e := find(key(1, -1, 0))
	wantChildren := []chunk.Key[geom.Point2i]{key(0, -2, 0), key(0, -1, 0), key(0, -2, 1), key(0, -1, 1)}
	if e.Kind != KindMerge || !slices.Equal(e.Children, wantChildren) {
		t.Fatalf("want merge of %v: %s %v", wantChildren, e, e.Children)
	}
	if e := find(key(1, -2, 0)); e.Kind != KindUnload {
		t.Fatalf("want unload: %s", e)
	}
	if e := find(key(1, 3, 0)); e.Kind != KindLoad {
		t.Fatalf("want load: %s", e)
	}

	assertRenderedIsActive(t, tree, f2)
	if st, _ := tree.State(key(1, 2, 0)); st.Has(chunk.StateRendered) {
		t.Fatalf("split parent still rendered: %s", st)
	}
	if st, _ := tree.State(key(0, -1, 0)); st.Has(chunk.StateRendered) {
		t.Fatalf("merged child still rendered: %s", st)
	}
}

func TestEvents_LargeJumpMatchesSmallSteps(t *testing.T) {
	dest := geom.Sphere2{Center: geom.P2(200, -40), Radius: 64}
	steps := []geom.Sphere2{
		{Center: geom.P2(60, -10), Radius: 64},
		{Center: geom.P2(130, -25), Radius: 64},
		dest,
	}

	jump := newTree()
	converge(t, jump, nowhere, f1, detail)
	converge(t, jump, f1, dest, detail)

	walk := newTree()
	converge(t, walk, nowhere, f1, detail)
	prev := f1
	for _, s := range steps {
		converge(t, walk, prev, s, detail)
		prev = s
	}

	assertRenderedIsActive(t, jump, dest)
	assertRenderedIsActive(t, walk, dest)
}

func TestEvents_BudgetDeliversEverythingOnce(t *testing.T) {
	whole := newTree()
	converge(t, whole, nowhere, f1, detail)
	want := converge(t, whole, f1, f2, detail)
	if len(want) <= 3 {
		t.Fatalf("scenario too small: %d events", len(want))
	}

	paced := newTree()
	converge(t, paced, nowhere, f1, detail)
	budget := Params{Detail: detail.Detail, Budget: 3}
	var got []Event[geom.Point2i]
	calls := 0
	for {
		n := Events(paced, f1, f2, budget, collect(&got))
		calls++
		if n > budget.Budget {
			t.Fatalf("call delivered %d > budget", n)
		}
		if n == 0 {
			break
		}
		if calls > 100 {
			t.Fatalf("no convergence")
		}
	}
	completeLoads(paced)
	if n := Events(paced, f1, f2, budget, collect(&got)); n != 0 {
		t.Fatalf("loaded tree emitted %d events", n)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("paced events differ\n got %v\nwant %v", got, want)
	}
	assertRenderedIsActive(t, paced, f2)
}

func TestRenderUpdates_ConvergesWithoutOldFocus(t *testing.T) {
	tree := newTree()
	for _, focus := range []geom.Sphere2{f1, f2} {
		for i := 0; RenderUpdates(tree, focus, Params{Detail: 1, Budget: 5}, nil) > 0; i++ {
			completeLoads(tree)
			if i > 100 {
				t.Fatalf("no convergence")
			}
		}
		completeLoads(tree)
		if n := RenderUpdates(tree, focus, Params{Detail: 1, Budget: 5}, nil); n != 0 {
			t.Fatalf("loaded tree emitted %d events", n)
		}
		assertRenderedIsActive(t, tree, focus)
	}
}

func TestEvents_ReplacedChunksWaitForLoads(t *testing.T) {
	tree := newTree()
	converge(t, tree, nowhere, f1, detail)
	Events(tree, f1, f2, detail, nil)

	parent, child := key(1, 2, 0), key(0, 4, 0)
	merged, mergedChild := key(1, -1, 0), key(0, -1, 0)
	rendered := func(k chunk.Key[geom.Point2i]) bool {
		st, _ := tree.State(k)
		return st.Has(chunk.StateRendered)
	}
	if st, _ := tree.State(child); !st.Has(chunk.StateLoading) {
		t.Fatalf("split child should be loading: %s", st)
	}
	if st, _ := tree.State(merged); !st.Has(chunk.StateLoading) {
		t.Fatalf("merged key should be loading: %s", st)
	}
	if !rendered(parent) || !tree.HasChunk(parent) {
		t.Fatalf("split parent retired before its children loaded")
	}
	if !rendered(mergedChild) || !tree.HasChunk(mergedChild) {
		t.Fatalf("merged child retired before the merged chunk loaded")
	}

	Events(tree, f2, f2, detail, nil)
	if !rendered(parent) || !rendered(mergedChild) {
		t.Fatalf("retired while replacements are still loading")
	}

	completeLoads(tree, child)
	Events(tree, f2, f2, detail, nil)
	if !rendered(parent) {
		t.Fatalf("split parent retired with %s still loading", child)
	}
	if rendered(mergedChild) {
		t.Fatalf("merged child outlived the merged load")
	}

	completeLoads(tree)
	Events(tree, f2, f2, detail, nil)
	if st, _ := tree.State(parent); st.Has(chunk.StateRendered) || !st.Has(chunk.StateUnloading) {
		t.Fatalf("split parent state after loads: %s", st)
	}
	assertRenderedIsActive(t, tree, f2)
}

func TestEvents_AbandonedFocusIsUnloaded(t *testing.T) {
	east := geom.Sphere2{Center: geom.P2(400, 8), Radius: 64}
	west := geom.Sphere2{Center: geom.P2(-400, 8), Radius: 64}
	tree := newTree()
	converge(t, tree, nowhere, f1, detail)

	eastKeys := ActiveSet(tree, east, detail.Detail)
	anyEast := func() bool {
		return slices.ContainsFunc(eastKeys, func(k chunk.Key[geom.Point2i]) bool {
			st, _ := tree.State(k)
			return st.Has(chunk.StateRendered)
		})
	}
	budget := Params{Detail: detail.Detail, Budget: 5}
	for i := 0; !anyEast(); i++ {
		if n := Events(tree, f1, east, budget, nil); n < budget.Budget || i > 100 {
			t.Fatalf("east update settled before any east chunk rendered")
		}
	}

	// The caller keeps f1 as its last settled focus and retargets.
	converge(t, tree, f1, west, budget)
	assertRenderedIsActive(t, tree, west)
	for _, k := range eastKeys {
		if st, ok := tree.State(k); ok && st.Has(chunk.StateRendered) {
			t.Fatalf("%s from the abandoned focus is still rendered", k)
		}
	}
}

func TestLoadingSlots_VacantOnlyAndBudgeted(t *testing.T) {
	tree := newTree()
	active := ActiveSet(tree, f1, 1)
	tree.Set(0, geom.P2(1, 1), 9)

	var keys []chunk.Key[geom.Point2i]
	for {
		n := LoadingSlots(tree, f1, Params{Detail: 1, Budget: 4}, func(k chunk.Key[geom.Point2i]) { keys = append(keys, k) })
		if n == 0 {
			break
		}
		if n > 4 {
			t.Fatalf("budget exceeded: %d", n)
		}
	}
	if len(keys) != len(active)-1 {
		t.Fatalf("slots=%d active=%d", len(keys), len(active))
	}
	if slices.Contains(keys, key(0, 0, 0)) {
		t.Fatalf("resident chunk reported as vacant")
	}
	for _, k := range keys {
		if st, _ := tree.State(k); st != chunk.StateLoading {
			t.Fatalf("%s state=%s", k, st)
		}
	}
}

func TestLoad_PlaceholderStaysAmbientUntilCompleted(t *testing.T) {
	tree := newTree()
	Events(tree, nowhere, f1, detail, nil)
	k := key(0, 0, 0)
	st, _ := tree.State(k)
	if !st.Has(chunk.StateRendered | chunk.StateLoading) {
		t.Fatalf("state=%s", st)
	}
	c := tree.Builder().NewAmbient(tree.ChunkExtent(k))
	c.Set(geom.P2(3, 3), 42)
	if !tree.CompleteLoad(k, c) {
		t.Fatalf("load not accepted")
	}
	if tree.Get(0, geom.P2(3, 3)) != 42 {
		t.Fatalf("completed chunk not readable")
	}
}

func TestKind_TextRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindLoad, KindUnload, KindSplit, KindMerge} {
		b, _ := k.MarshalText()
		var got Kind
		if err := got.UnmarshalText(b); err != nil || got != k {
			t.Fatalf("%s: got %s err %v", k, got, err)
		}
	}
}
