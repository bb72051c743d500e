// Package tuning loads the map and streaming configuration.
package tuning

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/chunk"
	"voxelmap.ai/internal/voxel/clipmap"
)

//go:embed map.schema.json
var schemaJSON string

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type MapTuning struct {
	ChunkExponent           int     `yaml:"chunk_exponent"`
	NumLODs                 int     `yaml:"num_lods"`
	ClipRadius              float64 `yaml:"clip_radius"`
	DetectEnterLOD          int     `yaml:"detect_enter_lod"`
	Detail                  float64 `yaml:"detail"`
	ChunksProcessedPerFrame int     `yaml:"chunks_processed_per_frame"`
	LODEveryFrames          int     `yaml:"lod_every_frames"`
	LODUpdatesPerSecond     float64 `yaml:"lod_updates_per_second"`

	WorldChunksExtent ExtentConfig  `yaml:"world_chunks_extent"`
	Storage           StorageConfig `yaml:"storage"`
	Noise             NoiseConfig   `yaml:"noise"`
	Workers           int           `yaml:"workers"`
	EventLogDir       string        `yaml:"event_log_dir,omitempty"`
	SnapshotPath      string        `yaml:"snapshot_path,omitempty"`
}

// ExtentConfig is an extent in LOD 0 chunk units.
type ExtentConfig struct {
	Min   [3]int32 `yaml:"min"`
	Shape [3]int32 `yaml:"shape"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

type NoiseConfig struct {
	Freq    float64 `yaml:"freq"`
	Scale   float64 `yaml:"scale"`
	Seed    int64   `yaml:"seed"`
	Octaves int     `yaml:"octaves"`
}

func Load(path string) (MapTuning, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	name := filepath.Base(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := validateSchema(raw); err != nil {
		return cfg, fmt.Errorf("%s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", name, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

func defaults() MapTuning {
	return MapTuning{
		ChunkExponent:           4,
		NumLODs:                 5,
		ClipRadius:              500,
		DetectEnterLOD:          2,
		Detail:                  6,
		ChunksProcessedPerFrame: 16,
		LODEveryFrames:          10,
		LODUpdatesPerSecond:     6,
		WorldChunksExtent: ExtentConfig{
			Min:   [3]int32{-50, -2, -50},
			Shape: [3]int32{100, 4, 100},
		},
		Storage: StorageConfig{Backend: BackendMemory},
		Noise:   NoiseConfig{Freq: 0.15, Scale: 20, Seed: 1, Octaves: 5},
	}
}

// validateSchema checks the raw document before it is decoded, so unknown
// keys are reported instead of silently ignored.
func validateSchema(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	// yaml ints and maps are not JSON values; round-trip through encoding/json.
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	schema, err := jsonschema.CompileString("map.schema.json", schemaJSON)
	if err != nil {
		return err
	}
	return schema.Validate(v)
}

func (c *MapTuning) Normalize() {
	if c == nil {
		return
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if c.LODEveryFrames <= 0 {
		c.LODEveryFrames = 1
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ChunksProcessedPerFrame < 0 {
		c.ChunksProcessedPerFrame = 0
	}
}

func (c MapTuning) Validate() error {
	if c.ChunkExponent < 1 || c.ChunkExponent > 8 {
		return fmt.Errorf("chunk_exponent must be in [1,8]")
	}
	if c.NumLODs < 1 || c.NumLODs > chunk.MaxRootLOD+1 {
		return fmt.Errorf("num_lods must be in [1,%d]", chunk.MaxRootLOD+1)
	}
	if c.ClipRadius <= 0 {
		return fmt.Errorf("clip_radius must be > 0")
	}
	if c.DetectEnterLOD < 0 || c.DetectEnterLOD >= c.NumLODs {
		return fmt.Errorf("detect_enter_lod must be in [0, num_lods)")
	}
	if c.Detail <= 0 {
		return fmt.Errorf("detail must be > 0")
	}
	if c.LODUpdatesPerSecond < 0 {
		return fmt.Errorf("lod_updates_per_second must be >= 0")
	}
	for i, s := range c.WorldChunksExtent.Shape {
		if s <= 0 {
			return fmt.Errorf("world_chunks_extent.shape[%d] must be > 0", i)
		}
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Noise.Octaves < 1 {
		return fmt.Errorf("noise.octaves must be >= 1")
	}
	if c.Noise.Freq <= 0 {
		return fmt.Errorf("noise.freq must be > 0")
	}
	return nil
}

func (c MapTuning) ChunkShape() geom.Point3i {
	return geom.Fill[geom.Point3i](int32(1) << c.ChunkExponent)
}

func (c MapTuning) RootLOD() uint8 { return uint8(c.NumLODs - 1) }

// WorldExtent is the generated region in LOD 0 voxel units.
func (c MapTuning) WorldExtent() geom.Extent3i {
	chunks := geom.ExtentFromMinShape(geom.Point3i(c.WorldChunksExtent.Min), geom.Point3i(c.WorldChunksExtent.Shape))
	return chunks.Shl(uint(c.ChunkExponent))
}

func (c MapTuning) Params() clipmap.Params {
	return clipmap.Params{Detail: c.Detail, Budget: c.ChunksProcessedPerFrame}
}

// Layout identifies payload-compatible stores.
func (c MapTuning) Layout() string {
	return fmt.Sprintf("dim=3 chunk_exponent=%d num_lods=%d", c.ChunkExponent, c.NumLODs)
}
