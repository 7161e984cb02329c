package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueClosed is returned by the task queue when an enqueue is
	// attempted after Close. Submit surfaces this condition as ErrPoolClosed.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrPoolClosed is returned by Submit once shutdown has begun.
	// No task is created and no future is returned in that case.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrCancelled is the terminal error of futures whose tasks were
	// discarded by an Immediate shutdown before any worker started them.
	ErrCancelled = errors.New("task cancelled before execution")

	// ErrShutdownTimeout is returned by Shutdown when workers did not
	// finish within the given timeout.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")

	// ErrAlreadyResolved is the panic value raised when a future is
	// resolved a second time. This is a broken worker invariant, not a
	// recoverable condition, so it is asserted rather than returned.
	ErrAlreadyResolved = errors.New("future already resolved")
)

// PanicError is the error a future is rejected with when its task panics.
// The panic is caught at the worker boundary; it never terminates the
// worker and never affects any other task.
type PanicError struct {
	// Value is the value the task panicked with.
	Value any

	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}
