package pool

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	futurePending int32 = iota
	futureResolving
	futureReady
)

// Future is the one-shot handle connecting a submitted task to its
// eventual outcome. It is created by Submit, written exactly once by the
// worker that executes the task, and may be read any number of times by
// any number of goroutines: every reader observes the identical outcome.
//
// Type parameters:
//   - R: The result type produced by the task
//
// Example:
//
//	future, err := pool.Submit(p, fetchUser)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Option 1: Block until the result is ready
//	user, err := future.Wait()
//
//	// Option 2: Bounded wait, retry later on timeout
//	user, err, ok := future.TryWait(5 * time.Second)
//
//	// Option 3: Select integration
//	select {
//	case <-future.Done():
//	    user, err := future.Wait()
//	case <-ctx.Done():
//	}
type Future[R any] struct {
	state atomic.Int32
	value R
	err   error
	done  chan struct{}
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

// complete transitions the future from pending to ready exactly once.
// Resolution is a broadcast: closing done wakes every blocked waiter.
// A second call indicates a broken worker invariant and panics with
// ErrAlreadyResolved.
func (f *Future[R]) complete(value R, err error) {
	if !f.state.CompareAndSwap(futurePending, futureResolving) {
		panic(ErrAlreadyResolved)
	}
	f.value = value
	f.err = err
	f.state.Store(futureReady)
	close(f.done)
}

func (f *Future[R]) resolve(value R) {
	f.complete(value, nil)
}

func (f *Future[R]) reject(err error) {
	var zero R
	f.complete(zero, err)
}

// Wait blocks until the future is resolved and returns the terminal
// outcome. The outcome is not consumed: Wait may be called repeatedly
// and concurrently, and always returns the same value and error.
func (f *Future[R]) Wait() (R, error) {
	<-f.done
	return f.value, f.err
}

// WaitContext behaves like Wait but gives up when ctx is cancelled,
// returning the context's error. The future itself is not affected.
func (f *Future[R]) WaitContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryWait waits up to timeout for the future to resolve. On success it
// returns the outcome and true. On timeout it returns false without
// altering the future, so a later Wait or TryWait can still succeed.
// A timeout of zero polls without blocking.
func (f *Future[R]) TryWait(timeout time.Duration) (R, error, bool) {
	var zero R

	if timeout <= 0 {
		select {
		case <-f.done:
			return f.value, f.err, true
		default:
			return zero, nil, false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err, true
	case <-timer.C:
		return zero, nil, false
	}
}

// Done returns a channel that is closed when the future resolves.
// Useful for combining a future with other channels in a select.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// IsReady reports whether the future has resolved, without blocking.
func (f *Future[R]) IsReady() bool {
	return f.state.Load() == futureReady
}
