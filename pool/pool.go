package pool

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is the uniform unit of work accepted by the pool: a zero-argument
// closure with exactly one outcome. All call arguments are captured into
// the closure before submission, so expensive values can be moved in
// once instead of copied through the queue.
//
// Type parameters:
//   - R: The result type produced by the task
type Task[R any] func(ctx context.Context) (R, error)

// Pool lifecycle states.
const (
	stateRunning int32 = iota
	stateDraining
	stateStopped
)

// ShutdownMode selects how Shutdown treats queued-but-unstarted tasks.
type ShutdownMode int

const (
	// Graceful closes the queue to new work but lets every
	// already-queued task run to completion before workers stop.
	Graceful ShutdownMode = iota

	// Immediate closes the queue and additionally discards tasks that no
	// worker has started yet, rejecting their futures with ErrCancelled.
	// Tasks already running still run to completion.
	Immediate
)

func (m ShutdownMode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	default:
		return "graceful"
	}
}

// Pool is a fixed-size worker pool. Workers are spawned once at
// construction and their number never changes; heterogeneous tasks are
// submitted as type-erased closures via the package-level Submit
// function and executed in FIFO order.
//
// Example:
//
//	p, err := pool.New(4, pool.WithQueueCapacity(128))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown(pool.Graceful, 10*time.Second)
//
//	future, err := pool.Submit(p, func(ctx context.Context) (int, error) {
//	    return compute(), nil
//	})
type Pool struct {
	conf   *config
	queue  *taskQueue
	logger *zap.Logger

	workerCount int
	state       atomic.Int32
	taskIDs     atomic.Int64
	running     atomic.Int32

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64

	cancel context.CancelFunc
	done   chan struct{} // Closed when all workers have finished
}

// taskUnit is the type-erased shape every submitted task is boxed into
// before it reaches the queue. run executes the task and resolves its
// future; cancel rejects the future without running anything. The queue
// owns a unit from enqueue until exactly one worker (or the shutdown
// drain) claims it.
type taskUnit struct {
	id     int64
	run    func(ctx context.Context)
	cancel func()
}

// New creates a pool with exactly workerCount workers, each immediately
// entering its dequeue loop against a shared task queue. workerCount
// must be at least 1.
func New(workerCount int, opts ...Option) (*Pool, error) {
	if workerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", workerCount)
	}

	cfg := newConfig(opts...)
	ctx, cancel := context.WithCancel(cfg.baseCtx)

	p := &Pool{
		conf:        cfg,
		queue:       newTaskQueue(cfg.queueCapacity),
		logger:      cfg.logger,
		workerCount: workerCount,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	if m := cfg.metrics; m != nil {
		m.ActiveWorkers.Set(float64(workerCount))
	}

	var g errgroup.Group
	for i := 0; i < workerCount; i++ {
		i := i
		g.Go(func() error {
			return p.runWorker(ctx, int64(i))
		})
	}

	go func() {
		_ = g.Wait()
		// Workers can exit without Shutdown ever being called, when the
		// base context is cancelled. Close the pool to new submissions
		// and reject whatever queued, so no accepted future is left
		// pending forever.
		if p.state.CompareAndSwap(stateRunning, stateDraining) {
			p.queue.Close()
			p.discardPending()
			p.state.Store(stateStopped)
			p.logger.Info("workers stopped, pool closed to new submissions")
			if m := cfg.metrics; m != nil {
				m.ActiveWorkers.Set(0)
				m.QueueDepth.Set(0)
			}
		}
		p.cancel()
		close(p.done)
	}()

	p.logger.Debug("pool started",
		zap.Int("workers", workerCount),
		zap.Int("queue_capacity", cfg.queueCapacity))

	return p, nil
}

// Submit boxes fn together with a fresh future into a task unit,
// enqueues it, and returns the future immediately; the caller decides
// whether and when to wait. Once shutdown has begun Submit fails with
// ErrPoolClosed and no future is created.
//
// On a pool with a bounded queue, Submit blocks while the queue is full
// until a worker frees a slot (backpressure) rather than dropping work.
//
// Submit is a package-level function because Go methods cannot carry
// their own type parameters; one pool can therefore accept tasks of any
// result type.
func Submit[R any](p *Pool, fn Task[R]) (*Future[R], error) {
	if fn == nil {
		return nil, fmt.Errorf("task must not be nil")
	}

	if p.state.Load() != stateRunning {
		return nil, ErrPoolClosed
	}

	f := newFuture[R]()
	id := p.taskIDs.Add(1)

	unit := &taskUnit{
		id: id,
		run: func(ctx context.Context) {
			value, err := runTask(ctx, p, id, fn)
			if err != nil {
				f.reject(err)
				return
			}
			f.resolve(value)
		},
		cancel: func() {
			f.reject(ErrCancelled)
		},
	}

	if err := p.queue.Enqueue(unit); err != nil {
		// The queue closed between the state check and the enqueue.
		return nil, ErrPoolClosed
	}

	p.submitted.Add(1)
	if m := p.conf.metrics; m != nil {
		m.TasksSubmitted.Inc()
		m.QueueDepth.Set(float64(p.queue.Len()))
	}

	return f, nil
}

// Shutdown stops the pool and blocks until all workers have exited.
// Graceful mode drains the queue first; Immediate mode discards
// not-yet-started tasks, rejecting their futures with ErrCancelled.
// Either way a task already running on a worker runs to completion.
//
// timeout bounds the wait for workers (0 = wait forever); on timeout
// ErrShutdownTimeout is returned and the workers keep draining in the
// background. Only the first Shutdown call proceeds; later calls return
// ErrPoolClosed.
func (p *Pool) Shutdown(mode ShutdownMode, timeout time.Duration) error {
	if !p.state.CompareAndSwap(stateRunning, stateDraining) {
		return ErrPoolClosed
	}

	p.logger.Info("pool shutting down",
		zap.String("mode", mode.String()),
		zap.Int("queued", p.queue.Len()))

	p.queue.Close()

	if mode == Immediate {
		p.discardPending()
	}

	if err := waitUntil(p.done, timeout); err != nil {
		return err
	}

	// Catch submissions that raced the close: their units are in the
	// queue but every worker has already exited.
	p.discardPending()

	p.state.Store(stateStopped)

	p.logger.Info("pool stopped",
		zap.Int64("completed", p.completed.Load()),
		zap.Int64("failed", p.failed.Load()),
		zap.Int64("cancelled", p.cancelled.Load()))
	if m := p.conf.metrics; m != nil {
		m.ActiveWorkers.Set(0)
		m.QueueDepth.Set(0)
	}

	return nil
}

// discardPending drains the queue without executing anything, rejecting
// each claimed unit's future with ErrCancelled. Claiming through the
// queue guarantees a unit is either run by a worker or cancelled here,
// never both.
func (p *Pool) discardPending() {
	for {
		unit, ok := p.queue.TryDequeue()
		if !ok {
			return
		}
		unit.cancel()
		p.cancelled.Add(1)
		if m := p.conf.metrics; m != nil {
			m.TasksCancelled.Inc()
		}
	}
}

// Stats is a point-in-time snapshot of the pool's counters.
type Stats struct {
	Submitted  int64
	Completed  int64
	Failed     int64
	Cancelled  int64
	QueueDepth int
	Workers    int
	Running    int
}

// Stats returns a snapshot of the pool's counters. The values are read
// atomically but not as one transaction, so they may be mutually stale
// under load.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
		Cancelled:  p.cancelled.Load(),
		QueueDepth: p.queue.Len(),
		Workers:    p.workerCount,
		Running:    int(p.running.Load()),
	}
}

// waitUntil blocks until either the done channel is closed or the timeout
// is reached. It is used during shutdown to wait for workers to finish.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	select {
	case <-d:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
