// Package pool provides a fixed-size worker pool for concurrent task
// processing with per-task result futures.
//
// The primary type is Pool, a set of workers spawned once at
// construction which execute submitted tasks in FIFO order. Each
// submission returns a Future[R] that resolves exactly once with the
// task's result or error. The pool supports bounded queues with
// blocking backpressure, panic recovery, retry logic with pluggable
// backoff strategies, rate limiting, lifecycle hooks, structured
// logging, and prometheus metrics via functional options.
//
// # Basic Usage
//
//	p, err := pool.New(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown(pool.Graceful, 10*time.Second)
//
//	future, err := pool.Submit(p, func(ctx context.Context) (int, error) {
//	    return compute(), nil
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := future.Wait()
//
// # Heterogeneous Tasks
//
// Submit is a package-level generic function, so a single pool can run
// tasks of any result type side by side:
//
//	nums, _ := pool.Submit(p, func(ctx context.Context) (int, error) { return 42, nil })
//	text, _ := pool.Submit(p, func(ctx context.Context) (string, error) { return "hi", nil })
//
// # Waiting on Results
//
// A future can be consumed multiple ways, all safe from any number of
// goroutines:
//
//   - Wait: Blocks until the task finishes
//   - WaitContext: Blocks until the task finishes or the context ends
//   - TryWait: Polls, or waits up to a timeout
//   - Done: Exposes a channel for select statements
//
// # Shutdown
//
// Shutdown stops the pool in one of two modes:
//
//   - Graceful: queued tasks all run to completion before workers stop
//   - Immediate: queued tasks are discarded and their futures rejected
//     with ErrCancelled; tasks already running still finish
//
// After Shutdown begins, Submit returns ErrPoolClosed.
//
// # Retry Logic
//
// Tasks can be automatically retried with configurable backoff:
//
//	p, err := pool.New(4,
//	    pool.WithRetryPolicy(3, 100*time.Millisecond), // 3 attempts, 100ms initial delay
//	    pool.WithBackoff(pool.BackoffJittered, 2*time.Second, 0.2),
//	)
//
// # Rate Limiting
//
// Control throughput to prevent overwhelming external services:
//
//	p, err := pool.New(10,
//	    pool.WithRateLimit(5.0, 10), // 5 tasks/sec, burst of 10
//	)
//
// # Configuration Options
//
//   - WithQueueCapacity(n): Bound the queue; full queue blocks Submit (default: unbounded)
//   - WithRetryPolicy(maxAttempts, initialDelay): Enable retry (default: single attempt)
//   - WithBackoff(type, maxDelay, jitterFactor): Select the retry backoff algorithm
//   - WithRateLimit(tasksPerSecond, burst): Enable rate limiting
//   - WithLogger(logger): Attach a zap logger (default: no-op)
//   - WithMetrics(m): Attach prometheus instrumentation
//   - WithContext(ctx): Base context passed to every task
//   - WithOnTaskStart / WithOnTaskEnd / WithOnRetry: Lifecycle hooks
//
// # Error Handling
//
// A task's error reaches only that task's future; one failing task never
// affects the others or the pool. Panic recovery is built-in, converting
// panics to *PanicError values with stack traces so worker goroutines
// never crash.
//
// The package is designed to be small and idiomatic for Go 1.18+ (generics).
package pool
