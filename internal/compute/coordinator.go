// Package compute runs surface rasterization off the interactive path.
//
// A Coordinator keeps at most one job live. A new request cancels the
// running job and bumps the generation counter; results whose generation no
// longer matches are dropped under the coordinator lock, so a superseded job
// never replaces the published image even if it finishes later.
package compute

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"knnviz/internal/geom"
	"knnviz/internal/surface"
)

// DefaultDebounce is the quiet period used by Schedule.
const DefaultDebounce = 250 * time.Millisecond

// State of the coordinator's job slot.
type State int

const (
	Idle State = iota
	Running
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Job is an immutable snapshot of everything a rasterization needs.
type Job struct {
	ID     string
	Points []geom.LabeledPoint
	Params surface.Params
}

// NewJob copies points and the color map so later mutations by the caller
// are never observed by the running job.
func NewJob(points []geom.LabeledPoint, p surface.Params) Job {
	p.Colors = p.Colors.Clone()
	return Job{
		ID:     uuid.NewString(),
		Points: slices.Clone(points),
		Params: p,
	}
}

// RenderFunc produces the image for a job. It should return promptly once
// ctx is cancelled.
type RenderFunc func(ctx context.Context, job Job) (*surface.Image, error)

// Event is published on every state transition of a job.
type Event struct {
	Kind       State // Running, Completed, Cancelled or Failed
	Generation uint64
	JobID      string
	Err        error
}

// Options configures a Coordinator. Zero values select defaults.
type Options struct {
	Debounce    time.Duration
	Workers     int        // rasterizer workers for the default RenderFunc
	Render      RenderFunc // nil uses surface.RasterizeContext
	Logger      *slog.Logger
	EventBuffer int // capacity of the Events channel; 0 uses 64
}

type runningJob struct {
	gen    uint64
	id     string
	cancel context.CancelFunc
}

// Coordinator owns the single job slot and the published image.
//
// Thread Safety: all methods are safe for concurrent use.
type Coordinator struct {
	render   RenderFunc
	logger   *slog.Logger
	debounce *Debouncer

	mu       sync.Mutex
	state    State
	last     State
	gen      uint64
	epoch    uint64 // bumped by Request, Cancel and Discard; invalidates scheduled jobs
	running  *runningJob
	image    *surface.Image
	imageGen uint64
	closed   bool
	events   chan Event
}

// New returns an idle Coordinator.
func New(opts Options) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	render := opts.Render
	if render == nil {
		workers := opts.Workers
		render = func(ctx context.Context, job Job) (*surface.Image, error) {
			return surface.RasterizeContext(ctx, job.Points, job.Params, workers)
		}
	}
	return &Coordinator{
		render:   render,
		logger:   logger.With("component", "compute_coordinator"),
		debounce: NewDebouncer(opts.Debounce),
		events:   make(chan Event, opts.EventBuffer),
	}
}

// Request cancels any running job and any pending scheduled request, then
// starts job in a new goroutine. It returns the job's generation, or 0 after
// Close.
func (c *Coordinator) Request(job Job) uint64 {
	c.debounce.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.startLocked(job)
}

// requestScheduled starts a debounced job unless a Request, Cancel or
// Discard happened after it was scheduled.
func (c *Coordinator) requestScheduled(job Job, epoch uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		c.logger.Debug("dropping outdated scheduled job", "job_id", job.ID)
		return 0
	}
	return c.startLocked(job)
}

func (c *Coordinator) startLocked(job Job) uint64 {
	if c.closed {
		return 0
	}
	c.cancelRunningLocked()

	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.running = &runningJob{gen: gen, id: job.ID, cancel: cancel}
	c.state = Running
	surfaceJobsInflight.Set(1)
	c.emitLocked(Event{Kind: Running, Generation: gen, JobID: job.ID})
	c.logger.Debug("surface job started",
		"job_id", job.ID,
		"generation", gen,
		"points", len(job.Points),
		"k", job.Params.K,
		"stride", job.Params.Stride,
		"width", job.Params.Width,
		"height", job.Params.Height)

	go c.run(ctx, gen, job)
	return gen
}

// Schedule issues Request(job) once no further Schedule call arrived for the
// debounce period. Each call replaces the pending job.
func (c *Coordinator) Schedule(job Job) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	if c.debounce.Trigger(func() { c.requestScheduled(job, epoch) }) {
		surfaceRequestsCoalesced.Inc()
	}
}

// Cancel drops the pending scheduled request and the running job. The
// published image is kept.
func (c *Coordinator) Cancel() {
	c.debounce.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.cancelRunningLocked()
}

// Discard cancels like Cancel and also clears the published image.
func (c *Coordinator) Discard() {
	c.debounce.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.cancelRunningLocked()
	c.image = nil
	c.imageGen = 0
}

// Surface returns the most recently completed image.
func (c *Coordinator) Surface() (*surface.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image, c.image != nil
}

// Generation returns the generation of the published image, 0 if none.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imageGen
}

// Busy reports whether a job is running.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Running
}

// Pending reports whether a scheduled request is waiting for its quiet period.
func (c *Coordinator) Pending() bool {
	return c.debounce.Pending()
}

// State returns Idle or Running.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastOutcome returns the terminal state of the most recently finished job,
// or Idle if none finished yet.
func (c *Coordinator) LastOutcome() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Events delivers job transitions. Sends never block; when the buffer is
// full the event is dropped. The channel is closed by Close.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Close stops the debouncer, cancels work and closes the Events channel.
func (c *Coordinator) Close() {
	c.debounce.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancelRunningLocked()
	c.closed = true
	close(c.events)
}

func (c *Coordinator) run(ctx context.Context, gen uint64, job Job) {
	start := time.Now()
	img, err := c.safeRender(ctx, job)
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running == nil || c.running.gen != gen {
		c.logger.Debug("dropping superseded surface", "job_id", job.ID, "generation", gen)
		return
	}
	c.running.cancel()
	c.running = nil
	surfaceJobsInflight.Set(0)

	if err != nil {
		c.finishLocked(Event{Kind: Failed, Generation: gen, JobID: job.ID, Err: err})
		c.logger.Error("surface job failed",
			"job_id", job.ID,
			"generation", gen,
			"duration", elapsed,
			"error", err)
		return
	}

	c.image = img
	c.imageGen = gen
	surfaceRenderDuration.Observe(elapsed.Seconds())
	c.finishLocked(Event{Kind: Completed, Generation: gen, JobID: job.ID})
	c.logger.Info("surface job completed",
		"job_id", job.ID,
		"generation", gen,
		"duration", elapsed)
}

// safeRender converts a render panic into an error.
func (c *Coordinator) safeRender(ctx context.Context, job Job) (img *surface.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("render panic: %v", r)
		}
	}()
	return c.render(ctx, job)
}

func (c *Coordinator) cancelRunningLocked() {
	if c.running == nil {
		return
	}
	r := c.running
	c.running = nil
	r.cancel()
	surfaceJobsInflight.Set(0)
	c.finishLocked(Event{Kind: Cancelled, Generation: r.gen, JobID: r.id})
	c.logger.Debug("surface job cancelled", "job_id", r.id, "generation", r.gen)
}

// finishLocked records a terminal transition and returns the slot to Idle.
func (c *Coordinator) finishLocked(ev Event) {
	c.last = ev.Kind
	c.state = Idle
	surfaceJobsTotal.WithLabelValues(ev.Kind.String()).Inc()
	c.emitLocked(ev)
}

func (c *Coordinator) emitLocked(ev Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event buffer full, dropping event", "kind", ev.Kind.String(), "generation", ev.Generation)
	}
}
