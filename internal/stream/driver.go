// Package stream drives the clipmap from a moving camera: it throttles
// updates, turns delivered events into generation jobs, and applies finished
// chunks back into the map from a single goroutine.
package stream

import (
	"context"
	"log"
	"maps"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/time/rate"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/chunk"
	"voxelmap.ai/internal/voxel/clipmap"
)

type Config struct {
	Params     clipmap.Params
	ClipRadius float64
	// DetectEnterLOD snaps the focus to the center of its chunk at this LOD,
	// so camera motion inside one chunk produces no events.
	DetectEnterLOD uint8
	EveryFrames    int
	// UpdatesPerSecond caps updates in wall-clock time; 0 disables the cap.
	UpdatesPerSecond float64
	Workers          int
	QueueSize        int
	// KeepUnloaded leaves unloaded chunks resident (uncached state) instead
	// of removing them, for backends that persist what they hold.
	KeepUnloaded bool
}

// Listener observes every delivered event with the frame it was delivered in.
type Listener func(frame uint64, e clipmap.Event[geom.Point3i])

type Stats struct {
	Frames    uint64
	Updates   uint64
	Events    map[clipmap.Kind]uint64
	Jobs      uint64
	Completed uint64
	Vacant    uint64
	Skipped   uint64
	Dropped   uint64
	Failed    uint64
	Removed   uint64
}

// Driver is not safe for concurrent use; one goroutine calls Frame, Prime
// and Sync, and it is the only writer of the map.
type Driver[T any, C chunk.Chunk[geom.Point3i, T]] struct {
	m       *chunk.Map[geom.Point3i, T, C]
	cfg     Config
	pool    *Pool[C]
	limiter *rate.Limiter
	logger  *log.Logger

	listeners []Listener
	state     LodState
	inflight  map[Key]struct{}
	backlog   []Job
	stats     Stats
}

func New[T any, C chunk.Chunk[geom.Point3i, T]](m *chunk.Map[geom.Point3i, T, C], cfg Config, gen GenerateFunc[C], logger *log.Logger) *Driver[T, C] {
	if logger == nil {
		logger = log.New(os.Stdout, "[stream] ", log.LstdFlags|log.Lmicroseconds)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.DetectEnterLOD > m.RootLOD() {
		cfg.DetectEnterLOD = m.RootLOD()
	}
	d := &Driver[T, C]{
		m:        m,
		cfg:      cfg,
		pool:     NewPool(cfg.Workers, cfg.QueueSize, gen),
		logger:   logger,
		inflight: map[Key]struct{}{},
		stats:    Stats{Events: map[clipmap.Kind]uint64{}},
	}
	if cfg.UpdatesPerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.UpdatesPerSecond), 1)
	}
	return d
}

func (d *Driver[T, C]) OnEvent(l Listener) { d.listeners = append(d.listeners, l) }

func (d *Driver[T, C]) State() LodState { return d.state }

func (d *Driver[T, C]) Pending() int { return len(d.inflight) }

func (d *Driver[T, C]) Stats() Stats {
	s := d.stats
	s.Events = maps.Clone(d.stats.Events)
	return s
}

// Focus is the clip sphere for a camera position.
func (d *Driver[T, C]) Focus(camera mgl32.Vec3) geom.Sphere3 {
	k := d.m.KeyForPoint(d.cfg.DetectEnterLOD, geom.FromVec3(camera))
	ext := d.m.WorldExtent(k)
	return geom.Sphere3{Center: ext.Min.Add(ext.Shape.Shr(1)), Radius: d.cfg.ClipRadius}
}

// Frame applies finished jobs and, when the throttle allows, runs one
// clipmap update toward camera. It returns the number of delivered events.
func (d *Driver[T, C]) Frame(ctx context.Context, camera mgl32.Vec3) int {
	d.drain()
	d.state.FrameCounter++
	d.stats.Frames++
	if !d.state.Due(d.cfg.EveryFrames) {
		return 0
	}
	if d.limiter != nil && !d.limiter.Allow() {
		return 0
	}
	if ctx.Err() != nil {
		return 0
	}

	to := d.Focus(camera)
	var n int
	if d.state.Behind {
		// The tree holds part of some other focus's update; diff against
		// what is rendered until one update completes.
		n = clipmap.RenderUpdates(d.m, to, d.cfg.Params, d.handle)
	} else {
		// An empty sphere has no active keys, so the first update loads
		// everything.
		from := geom.Sphere3{Center: to.Center}
		if d.state.Primed {
			from = d.Focus(d.state.OldCenter)
		}
		n = clipmap.Events(d.m, from, to, d.cfg.Params, d.handle)
	}
	d.state.Behind = d.cfg.Params.Budget > 0 && n >= d.cfg.Params.Budget
	if !d.state.Behind {
		d.state.OldCenter = camera
		d.state.Primed = true
	}
	d.stats.Updates++
	d.sweep()
	d.flush()
	return n
}

// Prime queues generation for vacant active keys around camera without
// rendering them.
func (d *Driver[T, C]) Prime(camera mgl32.Vec3) int {
	n := clipmap.LoadingSlots(d.m, d.Focus(camera), d.cfg.Params, d.enqueue)
	d.flush()
	return n
}

// Sync blocks until every queued job has been applied.
func (d *Driver[T, C]) Sync(ctx context.Context) error {
	for len(d.inflight) > 0 {
		d.flush()
		if len(d.inflight) == 0 {
			break
		}
		select {
		case r := <-d.pool.Results():
			d.apply(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (d *Driver[T, C]) Close() { d.pool.Shutdown() }

func (d *Driver[T, C]) handle(e clipmap.Event[geom.Point3i]) {
	d.stats.Events[e.Kind]++
	for _, l := range d.listeners {
		l(d.state.FrameCounter, e)
	}
	if e.Kind != clipmap.KindUnload && !d.m.HasChunk(e.Key) {
		d.enqueue(e.Key)
	}
}

func (d *Driver[T, C]) enqueue(k Key) {
	if _, ok := d.inflight[k]; ok {
		return
	}
	d.inflight[k] = struct{}{}
	d.backlog = append(d.backlog, Job{Key: k, Extent: d.m.ChunkExtent(k)})
	d.stats.Jobs++
}

// flush hands backlog to the pool in order, skipping keys that stopped
// loading while they waited.
func (d *Driver[T, C]) flush() {
	i := 0
	for ; i < len(d.backlog); i++ {
		job := d.backlog[i]
		if st, _ := d.m.State(job.Key); !st.Has(chunk.StateLoading) {
			delete(d.inflight, job.Key)
			d.stats.Skipped++
			continue
		}
		if !d.pool.Submit(job) {
			break
		}
	}
	d.backlog = append(d.backlog[:0], d.backlog[i:]...)
}

func (d *Driver[T, C]) drain() {
	for {
		select {
		case r := <-d.pool.Results():
			d.apply(r)
		default:
			return
		}
	}
}

func (d *Driver[T, C]) apply(r Result[C]) {
	delete(d.inflight, r.Key)
	switch {
	case r.Err != nil:
		d.logger.Printf("generate %s: %v", r.Key, r.Err)
		d.stats.Failed++
		d.m.UpdateState(r.Key, 0, chunk.StateLoading)
	case !r.OK:
		d.stats.Vacant++
		d.m.UpdateState(r.Key, 0, chunk.StateLoading)
	case d.m.CompleteLoad(r.Key, r.Chunk):
		d.stats.Completed++
	default:
		d.stats.Dropped++
	}
}

// sweep evicts retired nodes. A retired node carries only StateUnloading;
// nodes that were rendered again have had it cleared by the commit.
func (d *Driver[T, C]) sweep() {
	for lod := uint8(0); lod <= d.m.RootLOD(); lod++ {
		for _, k := range d.m.KeysWithState(lod, chunk.StateUnloading) {
			st, _ := d.m.State(k)
			if st&(chunk.StateLoading|chunk.StateRendered) != 0 {
				continue
			}
			if d.cfg.KeepUnloaded {
				d.m.UpdateState(k, 0, chunk.StateUnloading)
				continue
			}
			d.m.RemoveChunk(k)
			d.stats.Removed++
		}
	}
}
