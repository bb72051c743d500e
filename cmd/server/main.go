package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxelmap.ai/internal/geom"
	persistlog "voxelmap.ai/internal/persistence/log"
	"voxelmap.ai/internal/stream"
	"voxelmap.ai/internal/terrain"
	"voxelmap.ai/internal/transport/ws"
	"voxelmap.ai/internal/tuning"
	"voxelmap.ai/internal/voxel/clipmap"
)

// status is what the frame loop publishes for the HTTP handlers.
type status struct {
	Frame     uint64       `json:"frame"`
	Camera    [3]float32   `json:"camera"`
	Resident  int          `json:"resident"`
	Pending   int          `json:"pending"`
	Clients   int          `json:"clients"`
	Stats     stream.Stats `json:"stats"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type snapshotResult struct {
	Path   string `json:"path"`
	Chunks int    `json:"chunks"`
	err    error
}

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configPath = flag.String("config", "./configs/map.yaml", "map tuning path (empty for defaults)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		snapPath   = flag.String("snapshot", "", "snapshot to restore and write on exit (default: snapshot_path from config)")
		frameMS    = flag.Int("frame_ms", 16, "frame interval in milliseconds")
		prime      = flag.Bool("prime", true, "queue generation around the start position before the first update")
		orbitR     = flag.Float64("orbit", 256, "radius of the scripted camera path used until a client sends FOCUS (0 to hold at origin)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := tuning.Load(*configPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	logger.Printf("map: chunk_shape=%s num_lods=%d clip_radius=%.0f detail=%.2f budget=%d backend=%s",
		cfg.ChunkShape(), cfg.NumLODs, cfg.ClipRadius, cfg.Detail, cfg.ChunksProcessedPerFrame, cfg.Storage.Backend)

	store, err := openStorage(cfg, *dataDir, logger)
	if err != nil {
		logger.Fatalf("open storage: %v", err)
	}

	snapshotPath := strings.TrimSpace(*snapPath)
	if snapshotPath == "" && cfg.SnapshotPath != "" {
		snapshotPath = resolve(*dataDir, cfg.SnapshotPath)
	}
	// The sqlite backend already persists its chunks; it only snapshots on
	// request.
	snapshotOnExit := snapshotPath != "" && cfg.Storage.Backend == tuning.BackendMemory
	if snapshotOnExit {
		if err := restoreSnapshot(store.m, snapshotPath, logger); err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
	}

	gen := terrain.Generator{Noise: terrain.NoiseParams{
		Freq:    cfg.Noise.Freq,
		Scale:   cfg.Noise.Scale,
		Seed:    cfg.Noise.Seed,
		Octaves: cfg.Noise.Octaves,
	}}
	world := cfg.WorldExtent()
	generate := func(ctx context.Context, key stream.Key, extent geom.Extent3i) (voxelChunk, bool, error) {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if !world.Intersects(store.m.WorldExtent(key)) {
			return nil, false, nil
		}
		return gen.Chunk(extent, key.LOD)
	}

	driver := stream.New(store.m, stream.Config{
		Params:           cfg.Params(),
		ClipRadius:       cfg.ClipRadius,
		DetectEnterLOD:   uint8(cfg.DetectEnterLOD),
		EveryFrames:      cfg.LODEveryFrames,
		UpdatesPerSecond: cfg.LODUpdatesPerSecond,
		Workers:          cfg.Workers,
		KeepUnloaded:     cfg.Storage.Backend == tuning.BackendSQLite,
	}, generate, log.New(os.Stdout, "[stream] ", log.LstdFlags|log.Lmicroseconds))

	hub := ws.NewHub(ws.WelcomeMsg{
		ChunkShape: [3]int32(cfg.ChunkShape()),
		RootLOD:    cfg.RootLOD(),
		ClipRadius: cfg.ClipRadius,
	}, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds))
	driver.OnEvent(hub.Publish)

	var events *persistlog.EventLogger
	if cfg.EventLogDir != "" {
		events = persistlog.NewEventLogger(resolve(*dataDir, cfg.EventLogDir))
		driver.OnEvent(func(frame uint64, e clipmap.Event[geom.Point3i]) {
			if err := events.WriteEvent(persistlog.EntryFrom(frame, e)); err != nil {
				logger.Printf("event log: %v", err)
			}
		})
	}

	ctx, cancel := signalContext()
	defer cancel()

	var current atomic.Pointer[status]
	snapReqs := make(chan chan snapshotResult)
	current.Store(&status{UpdatedAt: time.Now()})

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ticker := time.NewTicker(time.Duration(max(*frameMS, 1)) * time.Millisecond)
		defer ticker.Stop()
		flushEvery := time.NewTicker(time.Second)
		defer flushEvery.Stop()

		if *prime {
			n := driver.Prime(camera(hub, 0, *orbitR))
			logger.Printf("primed %d loading slots", n)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case reply := <-snapReqs:
				n, err := writeSnapshot(store.m, snapshotPath)
				if err == nil {
					logger.Printf("wrote %d chunks to %s", n, snapshotPath)
				}
				reply <- snapshotResult{Path: snapshotPath, Chunks: n, err: err}
			case <-flushEvery.C:
				if events != nil {
					if err := events.Flush(); err != nil {
						logger.Printf("event log flush: %v", err)
					}
				}
			case <-ticker.C:
				frame := driver.State().FrameCounter + 1
				cam := camera(hub, frame, *orbitR)
				driver.Frame(ctx, cam)
				current.Store(&status{
					Frame:     driver.State().FrameCounter,
					Camera:    [3]float32(cam),
					Resident:  store.m.Len(),
					Pending:   driver.Pending(),
					Clients:   hub.Clients(),
					Stats:     driver.Stats(),
					UpdatedAt: time.Now(),
				})
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		writeMetrics(rw, current.Load())
	})
	mux.HandleFunc("/admin/v1/state", ws.StatusHandler(func() any { return current.Load() }))
	mux.HandleFunc("/admin/v1/snapshot", ws.ActionHandler(func(rctx context.Context) (any, error) {
		if snapshotPath == "" {
			return nil, errors.New("no snapshot path configured")
		}
		// The map belongs to the frame loop; the write happens there.
		reply := make(chan snapshotResult, 1)
		select {
		case snapReqs <- reply:
		case <-rctx.Done():
			return nil, rctx.Err()
		case <-loopDone:
			return nil, errors.New("frame loop stopped")
		}
		res := <-reply
		return res, res.err
	}))
	if envBool("VM_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (VM_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/events", hub.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	<-loopDone
	driver.Close()
	if events != nil {
		if err := events.Close(); err != nil {
			logger.Printf("event log close: %v", err)
		}
	}
	if snapshotOnExit {
		n, err := writeSnapshot(store.m, snapshotPath)
		if err != nil {
			logger.Printf("snapshot write: %v", err)
		} else {
			logger.Printf("wrote %d chunks to %s", n, snapshotPath)
		}
	}
	ctx3, cancel3 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel3()
	if err := store.close(ctx3); err != nil {
		logger.Printf("close storage: %v", err)
	}
}

// camera follows the last FOCUS from a client, or a slow circle otherwise.
func camera(hub *ws.Hub, frame uint64, radius float64) mgl32.Vec3 {
	if cam, ok := hub.Camera(); ok {
		return cam
	}
	if radius <= 0 {
		return mgl32.Vec3{}
	}
	t := float64(frame) * 0.002
	return mgl32.Vec3{float32(radius * math.Cos(t)), 0, float32(radius * math.Sin(t))}
}

// resolve places relative config paths under the data directory.
func resolve(dataDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func writeMetrics(rw http.ResponseWriter, st *status) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP voxelmap_frame Frames run by the stream driver.\n")
	fmt.Fprintf(rw, "# TYPE voxelmap_frame counter\n")
	fmt.Fprintf(rw, "voxelmap_frame %d\n", st.Frame)

	fmt.Fprintf(rw, "# HELP voxelmap_lod_updates Frames that ran a clipmap update.\n")
	fmt.Fprintf(rw, "# TYPE voxelmap_lod_updates counter\n")
	fmt.Fprintf(rw, "voxelmap_lod_updates %d\n", st.Stats.Updates)

	fmt.Fprintf(rw, "# HELP voxelmap_events Delivered clipmap events by kind.\n")
	fmt.Fprintf(rw, "# TYPE voxelmap_events counter\n")
	for _, k := range []clipmap.Kind{clipmap.KindLoad, clipmap.KindUnload, clipmap.KindSplit, clipmap.KindMerge} {
		fmt.Fprintf(rw, "voxelmap_events{kind=%q} %d\n", k.String(), st.Stats.Events[k])
	}

	fmt.Fprintf(rw, "# HELP voxelmap_jobs Generation job outcomes.\n")
	fmt.Fprintf(rw, "# TYPE voxelmap_jobs counter\n")
	fmt.Fprintf(rw, "voxelmap_jobs{outcome=%q} %d\n", "queued", st.Stats.Jobs)
	fmt.Fprintf(rw, "voxelmap_jobs{outcome=%q} %d\n", "completed", st.Stats.Completed)
	fmt.Fprintf(rw, "voxelmap_jobs{outcome=%q} %d\n", "vacant", st.Stats.Vacant)
	fmt.Fprintf(rw, "voxelmap_jobs{outcome=%q} %d\n", "skipped", st.Stats.Skipped)
	fmt.Fprintf(rw, "voxelmap_jobs{outcome=%q} %d\n", "dropped", st.Stats.Dropped)
	fmt.Fprintf(rw, "voxelmap_jobs{outcome=%q} %d\n", "failed", st.Stats.Failed)

	fmt.Fprintf(rw, "# HELP voxelmap_resident_nodes Nodes held across all LODs, placeholders included.\n")
	fmt.Fprintf(rw, "# TYPE voxelmap_resident_nodes gauge\n")
	fmt.Fprintf(rw, "voxelmap_resident_nodes %d\n", st.Resident)

	fmt.Fprintf(rw, "# HELP voxelmap_pending_jobs Generation jobs not yet applied.\n")
	fmt.Fprintf(rw, "# TYPE voxelmap_pending_jobs gauge\n")
	fmt.Fprintf(rw, "voxelmap_pending_jobs %d\n", st.Pending)

	fmt.Fprintf(rw, "# HELP voxelmap_clients Connected event feed clients.\n")
	fmt.Fprintf(rw, "# TYPE voxelmap_clients gauge\n")
	fmt.Fprintf(rw, "voxelmap_clients %d\n", st.Clients)
}
