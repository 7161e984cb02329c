package pool

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/utkarsh5026/taskpool/internal/algorithms"
	"go.uber.org/zap"
)

// runWorker is the loop each worker goroutine executes: dequeue, run,
// repeat. The loop ends only when the queue is closed and drained, or
// the pool's base context is cancelled; never because a task failed.
func (p *Pool) runWorker(ctx context.Context, id int64) error {
	log := p.logger.With(zap.Int64("worker", id))
	log.Debug("worker started")

	for {
		unit, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				log.Debug("worker stopped, queue drained")
				return nil
			}
			log.Debug("worker stopped", zap.Error(err))
			return err
		}

		p.running.Add(1)
		unit.run(ctx)
		p.running.Add(-1)
	}
}

// runTask is the full execution pipeline for one claimed task: rate
// limiting, hooks, panic-recovered retrying invocation, and counter
// updates. Generic so the task's typed closure never has to be widened
// to any before it runs.
func runTask[R any](ctx context.Context, p *Pool, id int64, fn Task[R]) (R, error) {
	cfg := p.conf

	if cfg.rateLimiter != nil {
		if err := cfg.rateLimiter.Wait(ctx); err != nil {
			var zero R
			// Rate limiter's error doesn't wrap context errors, so check context explicitly
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			return zero, err
		}
	}

	if cfg.onTaskStart != nil {
		cfg.onTaskStart(id)
	}

	start := time.Now()
	result, err := runWithRecovery(ctx, p, id, fn)
	elapsed := time.Since(start)

	if cfg.onTaskEnd != nil {
		cfg.onTaskEnd(id, err)
	}

	if err != nil {
		p.failed.Add(1)
	} else {
		p.completed.Add(1)
	}

	if m := cfg.metrics; m != nil {
		m.TaskLatency.Observe(elapsed.Seconds())
		if err != nil {
			m.TasksFailed.Inc()
		} else {
			m.TasksCompleted.Inc()
		}
		m.QueueDepth.Set(float64(p.queue.Len()))
	}

	return result, err
}

// runWithRecovery executes a task with panic recovery and retry logic.
// A panic is converted into a *PanicError so it reaches only the task's
// own future; the worker goroutine is never terminated by it.
func runWithRecovery[R any](ctx context.Context, p *Pool, id int64, fn Task[R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			stack := make([]byte, n)
			copy(stack, buf[:n])

			p.logger.Error("task panicked",
				zap.Int64("task", id),
				zap.Any("panic", r),
				zap.ByteString("stack", stack))

			err = &PanicError{Value: r, Stack: stack}
		}
	}()

	return runWithRetry(ctx, p, id, fn)
}

// runWithRetry executes fn, retrying up to the configured maxAttempts on
// error. Delays between attempts come from the configured backoff
// strategy; the onRetry hook fires before every retry (i.e., on every
// failure except the last). Context cancellation aborts early.
func runWithRetry[R any](ctx context.Context, p *Pool, id int64, fn Task[R]) (R, error) {
	var result R
	var err error
	cfg := p.conf
	maxAttempts := max(cfg.maxAttempts, 1)

	var backoff algorithms.BackoffStrategy
	if maxAttempts > 1 {
		backoff = cfg.newTaskBackoff()
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if attempt > 0 && backoff != nil {
			delay := backoff.NextDelay(attempt-1, err)
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return result, ctx.Err()
				}
			}
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}

		if cfg.onRetry != nil && attempt < maxAttempts-1 {
			cfg.onRetry(id, attempt+1, err)
		}
	}

	return result, err
}
