package ws

import (
	"voxelmap.ai/internal/persistence/log"
)

// Version is the event feed protocol version.
const Version = "1"

// Client -> Server. First message on the connection; may be re-sent to
// change the LOD filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MinLOD          uint8  `json:"min_lod,omitempty"`
	// MaxLOD of nil means every LOD up to the root.
	MaxLOD *uint8 `json:"max_lod,omitempty"`
}

// Client -> Server. Moves the camera the driver streams toward.
type FocusMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Pos             [3]float32 `json:"pos"`
}

// Server -> Client, once, after a valid SUBSCRIBE.
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ChunkShape      [3]int32 `json:"chunk_shape"`
	RootLOD         uint8    `json:"root_lod"`
	ClipRadius      float64  `json:"clip_radius"`
}

// Server -> Client, for every delivered clipmap event that passes the filter.
type EventMsg struct {
	Type string `json:"type"`
	log.EventEntry
}

type envelope struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}
