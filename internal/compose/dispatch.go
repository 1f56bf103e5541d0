package compose

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Slot is one output of one image: the preview or the projector.
type Slot struct {
	Image string
	Kind  Kind
}

// Tracker remembers the newest revision requested per slot so results that
// were overtaken can be dropped on arrival.
type Tracker struct {
	mu     sync.Mutex
	latest map[Slot]uint64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{latest: make(map[Slot]uint64)}
}

// Request records that rev is wanted for s. Older revisions never replace a
// newer request.
func (t *Tracker) Request(s Slot, rev uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.latest[s]; !ok || rev >= cur {
		t.latest[s] = rev
	}
}

// Current reports whether a result at rev is still wanted for s.
func (t *Tracker) Current(s Slot, rev uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.latest[s]
	return ok && rev >= cur
}

// Forget drops every slot of an image.
func (t *Tracker) Forget(imageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for s := range t.latest {
		if s.Image == imageID {
			delete(t.latest, s)
		}
	}
}

// Job is a composite to compute off the control thread.
type Job struct {
	Slot     Slot
	Revision uint64
	Run      func() Result
}

// Output is a finished job.
type Output struct {
	Slot   Slot
	Result Result
}

// Dispatcher runs composite jobs on a fixed pool of workers. Only the newest
// unstarted job per slot is kept; jobs already running finish and their
// result is dropped if it has been overtaken. Nothing is cancelled.
type Dispatcher struct {
	workers int
	tracker *Tracker
	log     *slog.Logger

	mu      sync.Mutex
	pending map[Slot]Job
	order   []Slot
	wake    chan struct{}

	results chan Output
}

// NewDispatcher creates a dispatcher with n workers.
func NewDispatcher(n int, tracker *Tracker, logger *slog.Logger) *Dispatcher {
	if n <= 0 {
		n = 2
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		workers: n,
		tracker: tracker,
		log:     logger,
		pending: make(map[Slot]Job),
		wake:    make(chan struct{}, 1),
		results: make(chan Output, n),
	}
}

// Tracker returns the revision tracker shared with the consumer.
func (d *Dispatcher) Tracker() *Tracker { return d.tracker }

// Results delivers finished, still current composites. It is closed when
// Run returns.
func (d *Dispatcher) Results() <-chan Output { return d.results }

// Submit queues a job without blocking. A queued job for the same slot is
// replaced.
func (d *Dispatcher) Submit(job Job) {
	d.tracker.Request(job.Slot, job.Revision)
	d.mu.Lock()
	if _, ok := d.pending[job.Slot]; !ok {
		d.order = append(d.order, job.Slot)
	}
	d.pending[job.Slot] = job
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) next() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.order) > 0 {
		s := d.order[0]
		d.order = d.order[1:]
		if job, ok := d.pending[s]; ok {
			delete(d.pending, s)
			return job, true
		}
	}
	return Job{}, false
}

// Run starts the workers and blocks until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			d.work(ctx)
			return nil
		})
	}
	err := g.Wait()
	close(d.results)
	return err
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		job, ok := d.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
				continue
			}
		}
		// More work may be queued behind this job; keep the others awake.
		select {
		case d.wake <- struct{}{}:
		default:
		}
		res := job.Run()
		// A cached raster may have been composed at an older revision with
		// the same inputs; it stands for the revision that was asked for.
		res.Revision = job.Revision
		if !d.tracker.Current(job.Slot, job.Revision) {
			d.log.Debug("dropping stale composite", "image", job.Slot.Image, "kind", job.Slot.Kind, "revision", job.Revision)
			continue
		}
		select {
		case d.results <- Output{Slot: job.Slot, Result: res}:
		case <-ctx.Done():
			return
		}
	}
}
