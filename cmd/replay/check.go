package main

import (
	"fmt"

	"voxelmap.ai/internal/geom"
	persistlog "voxelmap.ai/internal/persistence/log"
	"voxelmap.ai/internal/voxel/chunk"
	"voxelmap.ai/internal/voxel/clipmap"
)

type key = chunk.Key[geom.Point3i]

// report accumulates what the event log shows. A session is the run of
// entries from one server process; sequence numbers restart at 1.
type report struct {
	budget int

	Entries   uint64
	Sessions  int
	Frames    uint64
	MaxBatch  int
	ByKind    map[string]uint64
	ByLOD     map[uint8]uint64
	Problems  []string
	maxReport int

	seq       uint64
	frame     uint64
	batch     int
	last      key
	haveLast  bool
	frameKeys map[key]struct{}
}

func newReport(budget int) *report {
	return &report{
		budget:    budget,
		ByKind:    map[string]uint64{},
		ByLOD:     map[uint8]uint64{},
		maxReport: 20,
		frameKeys: map[key]struct{}{},
	}
}

func (r *report) problem(format string, args ...any) {
	if len(r.Problems) < r.maxReport {
		r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
	} else if len(r.Problems) == r.maxReport {
		r.Problems = append(r.Problems, "...")
	}
}

func toKey(k persistlog.KeyV1) (key, error) {
	p, ok := geom.FromSlice[geom.Point3i](k.Coord)
	if !ok {
		return key{}, fmt.Errorf("coord %v is not 3d", k.Coord)
	}
	return chunk.NewKey(k.LOD, p), nil
}

// add checks one entry against the delivery rules: one frame's events arrive
// in (LOD, coordinate) order without repeating a key, no frame exceeds the
// budget, and split/merge relatives are true ancestors/descendants.
func (r *report) add(e persistlog.EventEntry) {
	r.Entries++
	r.ByKind[e.Kind]++
	r.ByLOD[e.Key.LOD]++

	if e.Seq == 1 || r.Sessions == 0 {
		r.Sessions++
		r.endFrame()
		r.frame = e.Frame
		r.Frames++
	} else {
		if e.Seq != r.seq+1 {
			r.problem("seq %d follows %d", e.Seq, r.seq)
		}
		switch {
		case e.Frame < r.frame:
			r.problem("seq %d: frame %d after frame %d", e.Seq, e.Frame, r.frame)
		case e.Frame > r.frame:
			r.endFrame()
			r.frame = e.Frame
			r.Frames++
		}
	}
	r.seq = e.Seq

	var kind clipmap.Kind
	if err := kind.UnmarshalText([]byte(e.Kind)); err != nil {
		r.problem("seq %d: %v", e.Seq, err)
		return
	}
	k, err := toKey(e.Key)
	if err != nil {
		r.problem("seq %d: %v", e.Seq, err)
		return
	}

	r.batch++
	if r.budget > 0 && r.batch == r.budget+1 {
		r.problem("frame %d: more than %d events", e.Frame, r.budget)
	}
	if _, dup := r.frameKeys[k]; dup {
		r.problem("frame %d: %s delivered twice", e.Frame, k)
	}
	r.frameKeys[k] = struct{}{}
	if r.haveLast && !r.last.LODLess(k) {
		r.problem("frame %d: %s delivered after %s", e.Frame, k, r.last)
	}
	r.last, r.haveLast = k, true

	switch kind {
	case clipmap.KindSplit:
		if e.Parent == nil {
			r.problem("seq %d: split without parent", e.Seq)
			break
		}
		parent, err := toKey(*e.Parent)
		if err != nil || parent.LOD <= k.LOD || k.Ancestor(parent.LOD) != parent {
			r.problem("seq %d: %v does not cover %s", e.Seq, *e.Parent, k)
		}
	case clipmap.KindMerge:
		if len(e.Children) == 0 {
			r.problem("seq %d: merge without children", e.Seq)
		}
		for _, ck := range e.Children {
			c, err := toKey(ck)
			if err != nil || c.LOD >= k.LOD || c.Ancestor(k.LOD) != k {
				r.problem("seq %d: %v is not below %s", e.Seq, ck, k)
			}
		}
	}
}

func (r *report) endFrame() {
	r.MaxBatch = max(r.MaxBatch, r.batch)
	r.batch = 0
	r.haveLast = false
	clear(r.frameKeys)
}

func (r *report) finish() { r.endFrame() }
