package clipmap

import (
	"slices"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/chunk"
)

// Events emits the transitions that take the tree from the clip set of from
// to the clip set of to. Candidates are the keys that enter or leave the
// active set, plus any rendered key outside the new active set; a candidate
// the tree already satisfies emits nothing. Events are delivered in (LOD,
// coordinate) order, at most params.Budget of them, and each delivered event
// is committed to the tree before the sink sees it.
//
// Undelivered events are not queued. Calling again with the same arguments
// recomputes them from the committed state, so a caller should keep passing
// the same from until a call delivers fewer than Budget events. Keys that
// entered the active set of a focus the caller abandoned before then are not
// candidates; RenderUpdates picks them up.
//
// Every call, including one with from == to, also retires keys whose
// replacements have finished loading.
//
// It returns the number of events delivered.
func Events[P geom.Point[P]](tree Tree[P], from, to geom.Sphere[P], params Params, sink func(Event[P])) int {
	pl := newPlanner(tree, to, params.Detail)
	if from == to {
		pl.retireReplaced()
		return 0
	}
	before := activeSet(tree, from, params.Detail)
	var events []Event[P]
	for k := range pl.active {
		if before.has(k) {
			continue
		}
		if e, ok := pl.enter(k); ok {
			events = append(events, e)
		}
	}
	leaving := keySet[P]{}
	for k := range before {
		if !pl.active.has(k) {
			leaving[k] = struct{}{}
		}
	}
	for k := range pl.rendered {
		if !pl.active.has(k) {
			leaving[k] = struct{}{}
		}
	}
	for k := range leaving {
		if e, ok := pl.leave(k); ok {
			events = append(events, e)
		}
	}
	return pl.deliver(events, params.Budget, sink)
}

// RenderUpdates is Events without a previous focus: every active key that is
// not rendered and every rendered key that is no longer needed is a
// candidate.
func RenderUpdates[P geom.Point[P]](tree Tree[P], focus geom.Sphere[P], params Params, sink func(Event[P])) int {
	pl := newPlanner(tree, focus, params.Detail)
	var events []Event[P]
	for k := range pl.active {
		if e, ok := pl.enter(k); ok {
			events = append(events, e)
		}
	}
	for k := range pl.rendered {
		if pl.active.has(k) {
			continue
		}
		if e, ok := pl.leave(k); ok {
			events = append(events, e)
		}
	}
	return pl.deliver(events, params.Budget, sink)
}

// LoadingSlots reports active keys that have no node at all, marking each
// delivered key as loading. It is used to prime an empty working set.
func LoadingSlots[P geom.Point[P]](tree Tree[P], focus geom.Sphere[P], params Params, sink func(chunk.Key[P])) int {
	n := 0
	for _, k := range ActiveSet(tree, focus, params.Detail) {
		if params.Budget > 0 && n >= params.Budget {
			break
		}
		if _, ok := tree.State(k); ok {
			continue
		}
		tree.UpdateState(k, chunk.StateLoading, 0)
		n++
		if sink != nil {
			sink(k)
		}
	}
	return n
}

type planner[P geom.Point[P]] struct {
	tree   Tree[P]
	root   uint8
	active keySet[P]
	// activeBelow maps a key to the active keys it strictly contains.
	activeBelow map[chunk.Key[P]][]chunk.Key[P]
	rendered    keySet[P]
	// renderedBelow maps a key to the rendered keys it strictly contains,
	// in (LOD, coordinate) order.
	renderedBelow map[chunk.Key[P]][]chunk.Key[P]
}

func newPlanner[P geom.Point[P]](tree Tree[P], focus geom.Sphere[P], detail float64) *planner[P] {
	pl := &planner[P]{
		tree:          tree,
		root:          tree.RootLOD(),
		active:        activeSet(tree, focus, detail),
		activeBelow:   map[chunk.Key[P]][]chunk.Key[P]{},
		rendered:      keySet[P]{},
		renderedBelow: map[chunk.Key[P]][]chunk.Key[P]{},
	}
	for k := range pl.active {
		for a := k; a.LOD < pl.root; {
			a = a.Parent()
			pl.activeBelow[a] = append(pl.activeBelow[a], k)
		}
	}
	for lod := uint8(0); lod <= pl.root; lod++ {
		for _, k := range tree.KeysWithState(lod, chunk.StateRendered) {
			pl.rendered[k] = struct{}{}
			for a := k; a.LOD < pl.root; {
				a = a.Parent()
				pl.renderedBelow[a] = append(pl.renderedBelow[a], k)
			}
		}
	}
	return pl
}

func (pl *planner[P]) enter(k chunk.Key[P]) (Event[P], bool) {
	if pl.rendered.has(k) {
		return Event[P]{}, false
	}
	if below := pl.renderedBelow[k]; len(below) > 0 {
		return Merge(k, slices.Clone(below)), true
	}
	for a := k; a.LOD < pl.root; {
		a = a.Parent()
		if pl.rendered.has(a) {
			return Split(k, a), true
		}
	}
	return Load(k), true
}

// leave unloads a rendered key only when nothing active overlaps it; an
// overlapping active key retires it through its own Merge or Split.
func (pl *planner[P]) leave(k chunk.Key[P]) (Event[P], bool) {
	if !pl.rendered.has(k) {
		return Event[P]{}, false
	}
	if len(pl.activeBelow[k]) > 0 {
		return Event[P]{}, false
	}
	for a := k; a.LOD < pl.root; {
		a = a.Parent()
		if pl.active.has(a) {
			return Event[P]{}, false
		}
	}
	return Unload(k), true
}

func (pl *planner[P]) deliver(events []Event[P], budget int, sink func(Event[P])) int {
	slices.SortFunc(events, func(a, b Event[P]) int { return compareKeys(a.Key, b.Key) })
	if budget > 0 && len(events) > budget {
		events = events[:budget]
	}
	for _, e := range events {
		pl.commit(e)
		if sink != nil {
			sink(e)
		}
	}
	pl.retireReplaced()
	return len(events)
}

func (pl *planner[P]) commit(e Event[P]) {
	switch e.Kind {
	case KindLoad, KindSplit, KindMerge:
		set := chunk.StateRendered
		loading := !pl.tree.HasChunk(e.Key)
		if loading {
			set |= chunk.StateLoading
		}
		pl.tree.UpdateState(e.Key, set, chunk.StateUnloading)
		// Merged children stay visible until the merged chunk arrives.
		if !loading {
			for _, c := range e.Children {
				pl.retire(c)
			}
		}
	case KindUnload:
		pl.retire(e.Key)
	}
}

func (pl *planner[P]) retire(k chunk.Key[P]) {
	pl.tree.UpdateState(k, chunk.StateUnloading, chunk.StateRendered|chunk.StateLoading)
}

// retireReplaced un-renders inactive keys whose replacement is ready: a split
// parent once every active key below it is, and a merged child once its
// active ancestor is. Until then the old chunk stays rendered and resident.
func (pl *planner[P]) retireReplaced() {
	for lod := uint8(0); lod <= pl.root; lod++ {
		for _, k := range pl.tree.KeysWithState(lod, chunk.StateRendered) {
			if pl.active.has(k) {
				continue
			}
			if below := pl.activeBelow[k]; len(below) > 0 {
				if !slices.ContainsFunc(below, func(d chunk.Key[P]) bool { return !pl.ready(d) }) {
					pl.retire(k)
				}
				continue
			}
			for a := k; a.LOD < pl.root; {
				a = a.Parent()
				if pl.active.has(a) {
					if pl.ready(a) {
						pl.retire(k)
					}
					break
				}
			}
		}
	}
}

// ready reports whether k is rendered and no longer waiting on generation.
// A vacant or failed load counts: its node reads as ambient.
func (pl *planner[P]) ready(k chunk.Key[P]) bool {
	st, ok := pl.tree.State(k)
	return ok && st.Has(chunk.StateRendered) && !st.Has(chunk.StateLoading)
}
