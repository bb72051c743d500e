package main

import (
	"testing"

	"voxelmap.ai/internal/geom"
	persistlog "voxelmap.ai/internal/persistence/log"
	"voxelmap.ai/internal/voxel/chunk"
	"voxelmap.ai/internal/voxel/clipmap"
)

func entry(seq, frame uint64, e clipmap.Event[geom.Point3i]) persistlog.EventEntry {
	out := persistlog.EntryFrom(frame, e)
	out.Seq = seq
	return out
}

func TestReport_AcceptsOrderedFrames(t *testing.T) {
	r := newReport(2)
	r.add(entry(1, 1, clipmap.Load(chunk.NewKey(1, geom.P3(0, 0, 0)))))
	r.add(entry(2, 1, clipmap.Load(chunk.NewKey(1, geom.P3(1, 0, 0)))))
	r.add(entry(3, 5, clipmap.Split(chunk.NewKey(0, geom.P3(1, 1, 0)), chunk.NewKey(1, geom.P3(0, 0, 0)))))
	r.add(entry(4, 5, clipmap.Merge(chunk.NewKey(2, geom.P3(0, 0, 0)),
		[]chunk.Key[geom.Point3i]{chunk.NewKey(1, geom.P3(1, 0, 0))})))
	// A restarted server begins a new session.
	r.add(entry(1, 1, clipmap.Unload(chunk.NewKey(0, geom.P3(-3, 0, 0)))))
	r.finish()

	if len(r.Problems) != 0 {
		t.Fatalf("problems: %v", r.Problems)
	}
	if r.Entries != 5 || r.Sessions != 2 || r.Frames != 3 || r.MaxBatch != 2 {
		t.Fatalf("report=%+v", r)
	}
	if r.ByKind["load"] != 2 || r.ByLOD[0] != 2 {
		t.Fatalf("tallies kind=%v lod=%v", r.ByKind, r.ByLOD)
	}
}

func TestReport_FlagsViolations(t *testing.T) {
	cases := []struct {
		name    string
		entries []persistlog.EventEntry
	}{
		{"over budget", []persistlog.EventEntry{
			entry(1, 1, clipmap.Load(chunk.NewKey(0, geom.P3(0, 0, 0)))),
			entry(2, 1, clipmap.Load(chunk.NewKey(0, geom.P3(1, 0, 0)))),
			entry(3, 1, clipmap.Load(chunk.NewKey(0, geom.P3(2, 0, 0)))),
		}},
		{"out of order", []persistlog.EventEntry{
			entry(1, 1, clipmap.Load(chunk.NewKey(1, geom.P3(0, 0, 0)))),
			entry(2, 1, clipmap.Load(chunk.NewKey(0, geom.P3(0, 0, 0)))),
		}},
		{"seq gap", []persistlog.EventEntry{
			entry(1, 1, clipmap.Load(chunk.NewKey(0, geom.P3(0, 0, 0)))),
			entry(3, 2, clipmap.Load(chunk.NewKey(0, geom.P3(0, 0, 0)))),
		}},
		{"bad parent", []persistlog.EventEntry{
			entry(1, 1, clipmap.Split(chunk.NewKey(0, geom.P3(4, 0, 0)), chunk.NewKey(1, geom.P3(0, 0, 0)))),
		}},
		{"bad child", []persistlog.EventEntry{
			entry(1, 1, clipmap.Merge(chunk.NewKey(1, geom.P3(0, 0, 0)),
				[]chunk.Key[geom.Point3i]{chunk.NewKey(0, geom.P3(-1, 0, 0))})),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newReport(2)
			for _, e := range tc.entries {
				r.add(e)
			}
			r.finish()
			if len(r.Problems) == 0 {
				t.Fatalf("no problem reported")
			}
		})
	}
}

func TestCheckFiles_ReadsEventLog(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewEventLogger(dir)
	for i, x := range []int32{0, 1, 2} {
		e := clipmap.Load(chunk.NewKey(0, geom.P3(x, 0, 0)))
		if err := l.WriteEvent(persistlog.EntryFrom(uint64(i+1), e)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, err := persistlog.ListFiles(dir, "events")
	if err != nil || len(files) == 0 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	r, err := checkFiles(files, 1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if r.Entries != 3 || r.Frames != 3 || r.MaxBatch != 1 || len(r.Problems) != 0 {
		t.Fatalf("report=%+v", r)
	}
}
