package pool

import (
	"context"
	"runtime"
	"sync/atomic"
)

const (
	// Cache line size for padding to prevent false sharing
	cacheLinePadding = 128
	// Default ring capacity for unbounded queues (large enough for most use cases)
	defaultInitialCapacity = 65536
	// Maximum spin attempts before yielding
	maxSpinAttempts = 10
)

// queueSlot represents a single slot in the ring buffer
type queueSlot struct {
	// Sequence number for synchronization
	sequence uint64
	// The claimed unit of work
	unit *taskUnit
	// Padding to prevent false sharing between slots
	_ [cacheLinePadding - 16]byte
}

// taskQueue is a lock-free multi-producer multi-consumer FIFO queue of
// task units. It is the only structure shared between submitters and
// workers; every mutation goes through Enqueue/Dequeue.
//
// Closing the queue stops further enqueues but never discards entries:
// consumers keep dequeuing until the queue is both closed and empty,
// which is the worker loop's exit signal.
type taskQueue struct {
	ring []queueSlot
	// Capacity mask (capacity - 1) for fast modulo
	mask uint64

	// Head and tail positions with padding to prevent false sharing
	_    [cacheLinePadding]byte
	head uint64
	_    [cacheLinePadding - 8]byte
	tail uint64
	_    [cacheLinePadding - 8]byte

	// Closed flag
	closed atomic.Bool

	// Notification channel for data (BUFFERED, NEVER CLOSED)
	notifyC chan struct{}

	// Notification channel for freed slots (BUFFERED, NEVER CLOSED);
	// blocked producers on a bounded queue wait here for backpressure relief
	spaceC chan struct{}

	// Notification channel for shutdown (UNBUFFERED, CLOSED ON SHUTDOWN)
	closeC chan struct{}

	// Configuration
	bounded  bool
	capacity int
}

// newTaskQueue creates a queue with the given capacity. A capacity of 0
// creates an unbounded queue backed by a large fixed ring.
func newTaskQueue(capacity int) *taskQueue {
	bounded := capacity > 0
	if capacity <= 0 {
		capacity = defaultInitialCapacity
	}

	capacity = nextPowerOfTwo(capacity)
	ring := make([]queueSlot, capacity)

	for i := range ring {
		ring[i].sequence = uint64(i) // #nosec G115 -- i is loop index within valid ring bounds
	}

	return &taskQueue{
		ring:     ring,
		mask:     uint64(capacity - 1), // #nosec G115 -- capacity is validated positive, no overflow possible
		bounded:  bounded,
		capacity: capacity,
		notifyC:  make(chan struct{}, 1),
		spaceC:   make(chan struct{}, 1),
		closeC:   make(chan struct{}),
	}
}

// Enqueue appends a unit in FIFO order and wakes one blocked consumer.
// Returns ErrQueueClosed once the queue has been closed. On a bounded
// queue that is full, Enqueue blocks the producer until a consumer
// frees a slot or the queue closes (backpressure, never dropping work).
func (q *taskQueue) Enqueue(u *taskUnit) error {
	spinCount := 0

	for {
		if q.closed.Load() {
			return ErrQueueClosed
		}

		_, tail, slot, diff := q.load(false)
		if diff == 0 {
			if atomic.CompareAndSwapUint64(&q.tail, tail, tail+1) {
				slot.unit = u
				atomic.StoreUint64(&slot.sequence, tail+1)
				select {
				case q.notifyC <- struct{}{}:
				default:
				}
				return nil
			}
			continue
		}

		if diff < 0 && q.bounded {
			select {
			case <-q.spaceC:
			case <-q.closeC:
				return ErrQueueClosed
			}
			continue
		}

		spinCount++
		if spinCount > maxSpinAttempts {
			runtime.Gosched()
			spinCount = 0
		}
	}
}

// Dequeue removes and returns the oldest unit, blocking while the queue
// is empty. Once the queue is both closed and empty it returns
// ErrQueueClosed; already-enqueued units are always drained first.
func (q *taskQueue) Dequeue(ctx context.Context) (*taskUnit, error) {
	spinCount := 0

	for {
		if q.drained() {
			return nil, ErrQueueClosed
		}

		head, _, slot, diff := q.load(true)
		if diff == 0 {
			if u, ok := q.claim(head, slot); ok {
				return u, nil
			}
			continue
		}

		spinCount++
		if spinCount < maxSpinAttempts {
			runtime.Gosched()
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.closeC:
			// Closed but possibly not yet empty: race other consumers
			// for whatever is left instead of re-entering the slow path.
			for {
				if u, ok := q.TryDequeue(); ok {
					return u, nil
				}
				if q.drained() {
					return nil, ErrQueueClosed
				}
				runtime.Gosched()
			}
		case <-q.notifyC:
			spinCount = 0
		}
	}
}

// TryDequeue attempts to dequeue a unit without blocking.
// Returns (unit, true) on success, (nil, false) if the queue is empty.
func (q *taskQueue) TryDequeue() (*taskUnit, bool) {
	if q.drained() {
		return nil, false
	}

	head, _, slot, diff := q.load(true)
	if diff == 0 {
		return q.claim(head, slot)
	}

	return nil, false
}

// claim transfers ownership of the slot's unit to exactly one consumer.
func (q *taskQueue) claim(head uint64, slot *queueSlot) (*taskUnit, bool) {
	if atomic.CompareAndSwapUint64(&q.head, head, head+1) {
		u := slot.unit
		slot.unit = nil
		// Release the slot to producers
		// if head is N, next sequence should be N + capacity
		atomic.StoreUint64(&slot.sequence, head+q.mask+1)
		select {
		case q.spaceC <- struct{}{}:
		default:
		}
		return u, true
	}
	return nil, false
}

// drained reports whether the queue is closed and empty
func (q *taskQueue) drained() bool {
	if q.closed.Load() {
		head := atomic.LoadUint64(&q.head)
		tail := atomic.LoadUint64(&q.tail)
		if head >= tail {
			return true
		}
	}
	return false
}

// load atomically loads head and tail positions and the corresponding slot
// Also computes the difference between slot sequence and expected sequence
func (q *taskQueue) load(ishead bool) (head uint64, tail uint64, slot *queueSlot, diff int64) {
	head = atomic.LoadUint64(&q.head)
	tail = atomic.LoadUint64(&q.tail)

	pos := tail
	if ishead {
		pos = head
	}

	index := pos & q.mask
	slot = &q.ring[index]
	seq := atomic.LoadUint64(&slot.sequence)

	if ishead {
		diff = int64(seq) - int64(head+1) // #nosec G115 -- intentional conversion for sequence comparison
	} else {
		diff = int64(seq) - int64(tail) // #nosec G115 -- intentional conversion for sequence comparison
	}

	return
}

// Len returns the approximate number of units in the queue
// This is an approximation due to concurrent operations
func (q *taskQueue) Len() int {
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)

	if tail > head {
		return int(tail - head) // #nosec G115 -- safe conversion, tail > head guarantees result fits in int
	}
	return 0
}

// Cap returns the capacity of the queue
func (q *taskQueue) Cap() int {
	return q.capacity
}

// IsBounded returns whether the queue is bounded
func (q *taskQueue) IsBounded() bool {
	return q.bounded
}

// Close marks the queue as closed. No new units can be enqueued after
// Close, but already-enqueued units remain dequeueable.
func (q *taskQueue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.closeC)
	}
}

// IsClosed returns whether the queue is closed
func (q *taskQueue) IsClosed() bool {
	return q.closed.Load()
}

// nextPowerOfTwo returns the next power of 2 >= n
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	if n&(n-1) == 0 {
		return n
	}

	power := 1
	for power < n {
		power *= 2
	}
	return power
}
