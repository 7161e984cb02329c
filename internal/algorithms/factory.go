package algorithms

import "time"

// BackoffType selects which delay strategy NewBackoffStrategy builds.
type BackoffType int

const (
	// BackoffExponential doubles the delay on every attempt.
	BackoffExponential BackoffType = iota
	// BackoffJittered is exponential with randomization around the curve.
	BackoffJittered
	// BackoffDecorrelated derives each delay from the previous one
	// (AWS decorrelated jitter).
	BackoffDecorrelated
)

// NewBackoffStrategy builds the strategy for the given type. An unknown
// type falls back to plain exponential. jitterFactor is only consulted
// by the jittered strategy.
func NewBackoffStrategy(t BackoffType, initialDelay, maxDelay time.Duration, jitterFactor float64) BackoffStrategy {
	switch t {
	case BackoffJittered:
		return newJitteredBackoff(initialDelay, maxDelay, jitterFactor)
	case BackoffDecorrelated:
		return newDecorrelatedJitterBackoff(initialDelay, maxDelay)
	default:
		return newExponentialBackoff(initialDelay, maxDelay)
	}
}
