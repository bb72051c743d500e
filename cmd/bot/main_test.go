package main

import (
	"io"
	"log"
	"testing"
)

func TestWalker_MovesAtSpeedOnGround(t *testing.T) {
	w := newWalker(7, 4)
	prev := w.pos
	for i := 0; i < 50; i++ {
		p := w.next()
		if p.Y() != 0 {
			t.Fatalf("left the ground: %v", p)
		}
		if d := p.Sub(prev).Len(); d < 3.99 || d > 4.01 {
			t.Fatalf("step %d moved %v", i, d)
		}
		prev = p
	}
	a, b := newWalker(3, 1), newWalker(3, 1)
	for i := 0; i < 10; i++ {
		if a.next() != b.next() {
			t.Fatalf("walk not deterministic for a seed")
		}
	}
}

func TestHandle_TalliesEvents(t *testing.T) {
	tally := map[string]int{}
	logger := log.New(io.Discard, "", 0)
	handle(logger, []byte(`{"type":"WELCOME","protocol_version":"1","chunk_shape":[16,16,16],"root_lod":4}`), tally)
	handle(logger, []byte(`{"type":"EVENT","seq":1,"frame":3,"kind":"split","key":{"lod":0,"coord":[1,2,3]}}`), tally)
	handle(logger, []byte(`{"type":"EVENT","seq":2,"frame":3,"kind":"split","key":{"lod":0,"coord":[1,2,4]}}`), tally)
	handle(logger, []byte(`not json`), tally)
	if len(tally) != 1 || tally["split"] != 2 {
		t.Fatalf("tally=%v", tally)
	}
}
