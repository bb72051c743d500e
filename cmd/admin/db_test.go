package main

import (
	"path/filepath"
	"testing"
)

func TestDBSummary_SortsLODs(t *testing.T) {
	s := dbSummary("m.sqlite", " dim=3 chunk_exponent=4 num_lods=5\n", map[uint8]int{3: 1, 0: 10, 1: 4})
	if s.Total != 15 || len(s.LODs) != 3 {
		t.Fatalf("summary=%+v", s)
	}
	if s.LODs[0].LOD != 0 || s.LODs[2].LOD != 3 || s.LODs[1].Chunks != 4 {
		t.Fatalf("lods=%+v", s.LODs)
	}
	if s.Layout != "dim=3 chunk_exponent=4 num_lods=5" {
		t.Fatalf("layout=%q", s.Layout)
	}
}

func TestUnder(t *testing.T) {
	if got := under("/data", "events"); got != filepath.Join("/data", "events") {
		t.Fatalf("relative: %s", got)
	}
	if got := under("/data", "/var/ev"); got != "/var/ev" {
		t.Fatalf("absolute: %s", got)
	}
}
