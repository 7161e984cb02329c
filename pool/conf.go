package pool

import (
	"context"
	"time"

	"github.com/utkarsh5026/taskpool/internal/algorithms"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BackoffType selects the retry backoff algorithm. See WithBackoff.
type BackoffType = algorithms.BackoffType

const (
	// BackoffExponential uses simple exponential backoff (default).
	BackoffExponential = algorithms.BackoffExponential
	// BackoffJittered adds random jitter to prevent thundering herd.
	BackoffJittered = algorithms.BackoffJittered
	// BackoffDecorrelated uses AWS-style decorrelated jitter.
	BackoffDecorrelated = algorithms.BackoffDecorrelated
)

// Option is a functional option for configuring the pool.
type Option func(*config)

type config struct {
	queueCapacity int
	maxAttempts   int
	initialDelay  time.Duration

	backoffType         BackoffType
	backoffInitialDelay time.Duration
	backoffMaxDelay     time.Duration
	backoffJitterFactor float64
	retryPolicySet      bool

	rateLimiter *rate.Limiter
	logger      *zap.Logger
	metrics     *Metrics
	baseCtx     context.Context

	onTaskStart func(id int64)
	onTaskEnd   func(id int64, err error)
	onRetry     func(id int64, attempt int, err error)
}

// newTaskBackoff builds a fresh backoff strategy for one task's retry
// loop. Stateful strategies (decorrelated jitter tracks the previous
// delay) must not be shared across tasks, or concurrent retries would
// interleave each other's delay sequences.
func (cfg *config) newTaskBackoff() algorithms.BackoffStrategy {
	return algorithms.NewBackoffStrategy(
		cfg.backoffType,
		cfg.backoffInitialDelay,
		cfg.backoffMaxDelay,
		cfg.backoffJitterFactor,
	)
}

// newConfig applies the options over the defaults and normalizes the
// retry/backoff settings.
func newConfig(opts ...Option) *config {
	cfg := &config{
		queueCapacity:       0, // Unbounded unless WithQueueCapacity is given
		maxAttempts:         1,
		backoffType:         BackoffExponential,
		backoffInitialDelay: 100 * time.Millisecond,
		backoffMaxDelay:     5 * time.Second,
		backoffJitterFactor: 0.1, // Default 10% jitter for jittered backoff
		logger:              zap.NewNop(),
		baseCtx:             context.Background(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.retryPolicySet {
		cfg.backoffInitialDelay = cfg.initialDelay
	}

	return cfg
}

// WithQueueCapacity bounds the task queue to the given size. A full
// queue blocks submitters until a worker frees a slot (backpressure).
// If not specified, the queue is unbounded.
func WithQueueCapacity(capacity int) Option {
	return func(cfg *config) {
		if capacity > 0 {
			cfg.queueCapacity = capacity
		}
	}
}

// WithRetryPolicy sets a retry policy for task execution.
// maxAttempts specifies the maximum number of attempts for each task.
// initialDelay specifies the delay before the first retry; subsequent
// retries use the configured backoff strategy (exponential by default).
// If not specified, no retries are performed.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *config) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}

		if initialDelay > 0 {
			cfg.initialDelay = initialDelay
			cfg.retryPolicySet = true
		}
	}
}

// WithBackoff selects the backoff algorithm used between retry attempts.
// maxDelay caps every computed delay; jitterFactor (0.0 to 1.0) only
// applies to the jittered algorithm.
//
// Example:
//
//	WithRetryPolicy(5, 50*time.Millisecond),
//	WithBackoff(pool.BackoffJittered, 2*time.Second, 0.2)
func WithBackoff(backoffType BackoffType, maxDelay time.Duration, jitterFactor float64) Option {
	return func(cfg *config) {
		cfg.backoffType = backoffType
		if maxDelay > 0 {
			cfg.backoffMaxDelay = maxDelay
		}
		if jitterFactor > 0 {
			cfg.backoffJitterFactor = jitterFactor
		}
	}
}

// WithRateLimit sets a rate limiter for controlling task throughput.
// tasksPerSecond specifies the maximum number of tasks to execute per second.
// burst specifies the maximum number of tasks that can be executed in a burst.
// This is useful for preventing overwhelming external services or APIs.
// If not specified, no rate limiting is applied.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithLogger attaches a structured logger to the pool. The pool logs
// worker lifecycle at Debug, shutdown progress at Info, and task panics
// at Error. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMetrics attaches prometheus instrumentation to the pool.
// See NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = m
	}
}

// WithContext sets the base context passed to every task closure.
// Tasks that want cooperative cancellation should watch this context;
// the pool never interrupts a task that is already running. Cancelling
// the base context stops the workers: queued tasks are rejected with
// ErrCancelled and Submit starts failing with ErrPoolClosed, as if
// Shutdown had been called. Defaults to context.Background().
func WithContext(ctx context.Context) Option {
	return func(cfg *config) {
		if ctx != nil {
			cfg.baseCtx = ctx
		}
	}
}

// WithOnTaskStart registers a hook called just before a task executes,
// with the task's id (can be used for logging/tracing).
func WithOnTaskStart(hook func(id int64)) Option {
	return func(cfg *config) {
		cfg.onTaskStart = hook
	}
}

// WithOnTaskEnd registers a hook called after a task finishes, with the
// task's id and its error (nil on success).
func WithOnTaskEnd(hook func(id int64, err error)) Option {
	return func(cfg *config) {
		cfg.onTaskEnd = hook
	}
}

// WithOnRetry registers a hook called before each retry attempt, with
// the task's id, the upcoming attempt number (1-indexed), and the error
// that caused the retry.
func WithOnRetry(hook func(id int64, attempt int, err error)) Option {
	return func(cfg *config) {
		cfg.onRetry = hook
	}
}
