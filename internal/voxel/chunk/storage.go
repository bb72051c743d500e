package chunk

import (
	"slices"

	"voxelmap.ai/internal/geom"
)

type NodeState uint8

const (
	// StateLoading: a placeholder or chunk whose contents are being generated.
	StateLoading NodeState = 1 << iota
	// StateRendered: the key is part of the committed clip set.
	StateRendered
	// StateUnloading: no longer rendered; the chunk may be evicted.
	StateUnloading
)

func (s NodeState) Has(f NodeState) bool { return s&f == f }

func (s NodeState) String() string {
	out := ""
	for _, f := range []struct {
		bit  NodeState
		name string
	}{{StateLoading, "loading"}, {StateRendered, "rendered"}, {StateUnloading, "unloading"}} {
		if s&f.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += f.name
		}
	}
	if out == "" {
		return "idle"
	}
	return out
}

// Node is what a backend stores per key. A node without a chunk is a
// placeholder: it carries clip state and reads as ambient.
type Node[C any] struct {
	Chunk    C
	HasChunk bool
	State    NodeState
}

func NewNode[C any](c C) *Node[C] { return &Node[C]{Chunk: c, HasChunk: true} }

// Storage is one LOD's key-value backend. Nodes returned by Get must not be
// modified; use GetMut so backends can track writes.
type Storage[P geom.Point[P], C any] interface {
	Get(coord P) (*Node[C], bool)
	GetMut(coord P) (*Node[C], bool)
	// Insert returns the node it replaced, if any.
	Insert(coord P, n *Node[C]) (*Node[C], bool)
	Remove(coord P) (*Node[C], bool)
	Len() int
	// Keys are sorted by Point.Less.
	Keys() []P
}

// HashMapStorage is the default in-memory backend. It never evicts.
type HashMapStorage[P geom.Point[P], C any] struct {
	nodes map[P]*Node[C]
}

func NewHashMapStorage[P geom.Point[P], C any]() *HashMapStorage[P, C] {
	return &HashMapStorage[P, C]{nodes: map[P]*Node[C]{}}
}

func (s *HashMapStorage[P, C]) Get(coord P) (*Node[C], bool) {
	n, ok := s.nodes[coord]
	return n, ok
}

func (s *HashMapStorage[P, C]) GetMut(coord P) (*Node[C], bool) { return s.Get(coord) }

func (s *HashMapStorage[P, C]) Insert(coord P, n *Node[C]) (*Node[C], bool) {
	prev, ok := s.nodes[coord]
	s.nodes[coord] = n
	return prev, ok
}

func (s *HashMapStorage[P, C]) Remove(coord P) (*Node[C], bool) {
	prev, ok := s.nodes[coord]
	if ok {
		delete(s.nodes, coord)
	}
	return prev, ok
}

func (s *HashMapStorage[P, C]) Len() int { return len(s.nodes) }

func (s *HashMapStorage[P, C]) Keys() []P {
	keys := make([]P, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, geom.Compare[P])
	return keys
}
