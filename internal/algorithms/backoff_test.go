package algorithms

import (
	"sync"
	"testing"
	"time"
)

func TestExponentialBackoff_NextDelay(t *testing.T) {
	tests := []struct {
		name          string
		initialDelay  time.Duration
		maxDelay      time.Duration
		attemptNumber int
		want          time.Duration
	}{
		{
			name:          "first attempt",
			initialDelay:  100 * time.Millisecond,
			maxDelay:      10 * time.Second,
			attemptNumber: 0,
			want:          100 * time.Millisecond,
		},
		{
			name:          "second attempt doubles",
			initialDelay:  100 * time.Millisecond,
			maxDelay:      10 * time.Second,
			attemptNumber: 1,
			want:          200 * time.Millisecond,
		},
		{
			name:          "fifth attempt",
			initialDelay:  100 * time.Millisecond,
			maxDelay:      10 * time.Second,
			attemptNumber: 4,
			want:          1600 * time.Millisecond,
		},
		{
			name:          "negative attempt returns zero",
			initialDelay:  100 * time.Millisecond,
			maxDelay:      10 * time.Second,
			attemptNumber: -1,
			want:          0,
		},
		{
			name:          "respects max delay",
			initialDelay:  1 * time.Second,
			maxDelay:      5 * time.Second,
			attemptNumber: 10,
			want:          5 * time.Second,
		},
		{
			name:          "shift boundary returns max delay",
			initialDelay:  1 * time.Millisecond,
			maxDelay:      1 * time.Hour,
			attemptNumber: maxShiftAttempts,
			want:          1 * time.Hour,
		},
		{
			name:          "overflow protection",
			initialDelay:  1 * time.Hour,
			maxDelay:      24 * time.Hour,
			attemptNumber: 50,
			want:          24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eb := newExponentialBackoff(tt.initialDelay, tt.maxDelay)
			if got := eb.NextDelay(tt.attemptNumber, nil); got != tt.want {
				t.Errorf("NextDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJitteredBackoff_NextDelay(t *testing.T) {
	tests := []struct {
		name          string
		jitterFactor  float64
		attemptNumber int
		wantMin       time.Duration
		wantMax       time.Duration
	}{
		{
			name:          "first attempt with jitter",
			jitterFactor:  0.1,
			attemptNumber: 0,
			wantMin:       90 * time.Millisecond,
			wantMax:       110 * time.Millisecond,
		},
		{
			name:          "second attempt with jitter",
			jitterFactor:  0.1,
			attemptNumber: 1,
			wantMin:       180 * time.Millisecond,
			wantMax:       220 * time.Millisecond,
		},
		{
			name:          "zero jitter factor is deterministic",
			jitterFactor:  0.0,
			attemptNumber: 0,
			wantMin:       100 * time.Millisecond,
			wantMax:       100 * time.Millisecond,
		},
		{
			name:          "negative attempt returns zero",
			jitterFactor:  0.1,
			attemptNumber: -1,
			wantMin:       0,
			wantMax:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jb := newJitteredBackoff(100*time.Millisecond, 10*time.Second, tt.jitterFactor)
			delay := jb.NextDelay(tt.attemptNumber, nil)

			if delay < tt.wantMin || delay > tt.wantMax {
				t.Errorf("NextDelay() = %v, want between %v and %v", delay, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestJitteredBackoff_ClampsJitterFactor(t *testing.T) {
	for _, factor := range []float64{-0.5, 1.5} {
		jb := newJitteredBackoff(100*time.Millisecond, 10*time.Second, factor)
		delay := jb.NextDelay(0, nil)
		if delay < 0 || delay > 10*time.Second {
			t.Errorf("factor %v: NextDelay() = %v, want between 0 and max", factor, delay)
		}
	}
}

func TestDecorrelatedJitterBackoff_NextDelay(t *testing.T) {
	initialDelay := 100 * time.Millisecond
	maxDelay := 10 * time.Second
	djb := newDecorrelatedJitterBackoff(initialDelay, maxDelay)

	if got := djb.NextDelay(0, nil); got != initialDelay {
		t.Errorf("first delay = %v, want %v", got, initialDelay)
	}

	// Second attempt lands between initial and 3x the previous delay
	second := djb.NextDelay(1, nil)
	if second < initialDelay || second > 3*initialDelay {
		t.Errorf("second delay = %v, want between %v and %v", second, initialDelay, 3*initialDelay)
	}

	// Later attempts stay within bounds regardless of growth
	for i := 2; i < 20; i++ {
		delay := djb.NextDelay(i, nil)
		if delay < initialDelay || delay > maxDelay {
			t.Errorf("attempt %d: delay = %v, out of [%v, %v]", i, delay, initialDelay, maxDelay)
		}
	}
}

func TestDecorrelatedJitterBackoff_SmallMaxDelay(t *testing.T) {
	// maxDelay below initialDelay degenerates to the initial delay
	djb := newDecorrelatedJitterBackoff(time.Second, 500*time.Millisecond)
	djb.NextDelay(0, nil)
	if got := djb.NextDelay(1, nil); got != time.Second {
		t.Errorf("NextDelay() = %v, want %v", got, time.Second)
	}
}

func TestDecorrelatedJitterBackoff_Reset(t *testing.T) {
	initialDelay := 100 * time.Millisecond
	djb := newDecorrelatedJitterBackoff(initialDelay, 10*time.Second)

	djb.NextDelay(0, nil)
	djb.NextDelay(1, nil)
	djb.NextDelay(2, nil)
	djb.Reset()

	if got := djb.NextDelay(0, nil); got != initialDelay {
		t.Errorf("After Reset(), NextDelay(0) = %v, want %v", got, initialDelay)
	}
}

func TestBackoff_ThreadSafety(t *testing.T) {
	strategies := []BackoffStrategy{
		newJitteredBackoff(10*time.Millisecond, time.Second, 0.2),
		newDecorrelatedJitterBackoff(10*time.Millisecond, time.Second),
	}

	for _, s := range strategies {
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(attempt int) {
				defer wg.Done()
				s.NextDelay(attempt%10, nil)
			}(i)
		}
		wg.Wait()
	}
	// Race conditions surface under the -race flag
}

func TestNewBackoffStrategy(t *testing.T) {
	tests := []struct {
		name        string
		backoffType BackoffType
	}{
		{"exponential", BackoffExponential},
		{"jittered", BackoffJittered},
		{"decorrelated", BackoffDecorrelated},
		{"unknown defaults to exponential", BackoffType(99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewBackoffStrategy(tt.backoffType, 10*time.Millisecond, time.Second, 0.1)
			if s == nil {
				t.Fatal("expected a strategy, got nil")
			}
			if delay := s.NextDelay(0, nil); delay < 0 || delay > time.Second {
				t.Errorf("NextDelay(0) = %v, want between 0 and %v", delay, time.Second)
			}
		})
	}
}

func BenchmarkExponentialBackoff(b *testing.B) {
	eb := newExponentialBackoff(100*time.Millisecond, 10*time.Second)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		eb.NextDelay(i%10, nil)
	}
}

func BenchmarkJitteredBackoff(b *testing.B) {
	jb := newJitteredBackoff(100*time.Millisecond, 10*time.Second, 0.1)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		jb.NextDelay(i%10, nil)
	}
}
