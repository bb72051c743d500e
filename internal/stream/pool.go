package stream

import (
	"context"
	"sync"

	"voxelmap.ai/internal/geom"
	"voxelmap.ai/internal/voxel/chunk"
)

type Key = chunk.Key[geom.Point3i]

// GenerateFunc produces the contents of one chunk. ok is false when the slot
// should stay vacant.
type GenerateFunc[C any] func(ctx context.Context, key Key, extent geom.Extent3i) (c C, ok bool, err error)

type Job struct {
	Key    Key
	Extent geom.Extent3i
}

type Result[C any] struct {
	Key   Key
	Chunk C
	OK    bool
	Err   error
}

// Pool runs generation jobs on a fixed set of goroutines. Results are not
// applied here; the owner drains Results and writes them into the map.
type Pool[C any] struct {
	jobs    chan Job
	results chan Result[C]
	gen     GenerateFunc[C]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool[C any](workers, queueSize int, gen GenerateFunc[C]) *Pool[C] {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool[C]{
		jobs:    make(chan Job, queueSize),
		results: make(chan Result[C], queueSize),
		gen:     gen,
		ctx:     ctx,
		cancel:  cancel,
	}
	for range workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues job without blocking; false means the queue is full.
func (p *Pool[C]) Submit(job Job) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

func (p *Pool[C]) Results() <-chan Result[C] { return p.results }

func (p *Pool[C]) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			c, ok, err := p.gen(p.ctx, job.Key, job.Extent)
			select {
			case p.results <- Result[C]{Key: job.Key, Chunk: c, OK: ok, Err: err}:
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// Shutdown stops the workers; queued jobs and unread results are discarded.
func (p *Pool[C]) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
