package clipmap

import (
	"fmt"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/chunk"
)

type Kind uint8

const (
	// KindLoad: render Key; nothing covering it is rendered yet.
	KindLoad Kind = iota + 1
	// KindUnload: Key is no longer needed at any LOD.
	KindUnload
	// KindSplit: Key replaces part of the coarser, rendered Parent.
	KindSplit
	// KindMerge: Key replaces its finer, rendered Children.
	KindMerge
)

var kindNames = [...]string{KindLoad: "load", KindUnload: "unload", KindSplit: "split", KindMerge: "merge"}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name != "" && name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("clipmap: unknown event kind %q", b)
}

type Event[P geom.Point[P]] struct {
	Kind     Kind           `json:"kind"`
	Key      chunk.Key[P]   `json:"key"`
	Parent   chunk.Key[P]   `json:"parent"`
	Children []chunk.Key[P] `json:"children,omitempty"`
}

func Load[P geom.Point[P]](k chunk.Key[P]) Event[P]   { return Event[P]{Kind: KindLoad, Key: k} }
func Unload[P geom.Point[P]](k chunk.Key[P]) Event[P] { return Event[P]{Kind: KindUnload, Key: k} }

func Split[P geom.Point[P]](k, parent chunk.Key[P]) Event[P] {
	return Event[P]{Kind: KindSplit, Key: k, Parent: parent}
}

func Merge[P geom.Point[P]](k chunk.Key[P], children []chunk.Key[P]) Event[P] {
	return Event[P]{Kind: KindMerge, Key: k, Children: children}
}

// Primary is the key the event is ordered and deduplicated by.
func (e Event[P]) Primary() chunk.Key[P] { return e.Key }

func (e Event[P]) String() string {
	switch e.Kind {
	case KindSplit:
		return fmt.Sprintf("split %s from %s", e.Key, e.Parent)
	case KindMerge:
		return fmt.Sprintf("merge %s from %d children", e.Key, len(e.Children))
	default:
		return fmt.Sprintf("%s %s", e.Kind, e.Key)
	}
}
