package stream

import "github.com/go-gl/mathgl/mgl32"

// LodState is what the driver carries between frames: the focus the tree was
// last fully streamed for, and a frame counter for the update throttle.
type LodState struct {
	OldCenter    mgl32.Vec3
	FrameCounter uint64
	// Primed is false until one update has been delivered in full.
	Primed bool
	// Behind is set while the last update was cut short by the budget.
	Behind bool
}

// Due reports whether the current frame runs a level-of-detail update.
func (s LodState) Due(every int) bool {
	if every <= 1 {
		return true
	}
	return s.FrameCounter%uint64(every) == 0
}
