package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/persistence/snapshot"
	"voxelmap.ai/internal/persistence/sqlitestore"
	"voxelmap.ai/internal/terrain"
	"voxelmap.ai/internal/tuning"
	"voxelmap.ai/internal/voxel/array"
	"voxelmap.ai/internal/voxel/chunk"
	"voxelmap.ai/internal/voxel/codec"
)

type voxelChunk = *array.Array[geom.Point3i, terrain.Voxel]
type voxelMap = chunk.Map[geom.Point3i, terrain.Voxel, voxelChunk]

var nodeCodec = codec.NodeCodec[geom.Point3i, voxelChunk]{
	Chunks: codec.ArrayCodec[geom.Point3i, terrain.Voxel]{Values: codec.Float32Codec[terrain.Voxel]{}},
}

func newBuilder(cfg tuning.MapTuning) chunk.Builder[geom.Point3i, terrain.Voxel, voxelChunk] {
	return chunk.NewArrayBuilder(chunk.Config[geom.Point3i, terrain.Voxel]{
		ChunkShape:   cfg.ChunkShape(),
		AmbientValue: terrain.Empty,
		RootLOD:      cfg.RootLOD(),
	})
}

// mapStorage is the map plus whatever its backend needs at shutdown.
type mapStorage struct {
	m     *voxelMap
	close func(ctx context.Context) error
}

func openStorage(cfg tuning.MapTuning, dataDir string, logger *log.Logger) (*mapStorage, error) {
	b := newBuilder(cfg)
	switch cfg.Storage.Backend {
	case tuning.BackendMemory:
		return &mapStorage{m: b.BuildWithHashMapStorage(), close: func(context.Context) error { return nil }}, nil
	case tuning.BackendSQLite:
		path := resolve(dataDir, cfg.Storage.Path)
		db, err := sqlitestore.Open(path, logger)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureLayout(cfg.Layout()); err != nil {
			_ = db.Close()
			return nil, err
		}
		// ChunkExtent depends only on the builder config.
		extents := b.BuildWithHashMapStorage()
		var stores []*sqlitestore.Store[geom.Point3i, voxelChunk]
		var lods []chunk.Storage[geom.Point3i, voxelChunk]
		for lod := 0; lod < b.NumLODs(); lod++ {
			s, err := sqlitestore.NewStore(db, uint8(lod), extents.ChunkExtent, nodeCodec)
			if err != nil {
				_ = db.Close()
				return nil, err
			}
			stores = append(stores, s)
			lods = append(lods, s)
		}
		counts, err := db.Count(context.Background())
		if err == nil {
			logger.Printf("sqlite backend %s: persisted chunks per lod %v", path, counts)
		}
		return &mapStorage{
			m: b.BuildWithStorages(lods),
			close: func(ctx context.Context) error {
				var errs []error
				for _, s := range stores {
					errs = append(errs, s.Flush(ctx))
				}
				errs = append(errs, db.Close())
				return errors.Join(errs...)
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func restoreSnapshot(m *voxelMap, path string, logger *log.Logger) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	if err := snapshot.Restore(m, snap, nodeCodec); err != nil {
		return err
	}
	logger.Printf("restored %d chunks from %s", len(snap.Chunks), filepath.Base(path))
	return nil
}

func writeSnapshot(m *voxelMap, path string) (int, error) {
	snap, err := snapshot.Export(m, nodeCodec)
	if err != nil {
		return 0, err
	}
	return len(snap.Chunks), snapshot.WriteSnapshot(path, snap)
}
