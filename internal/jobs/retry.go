package jobs

import (
	"math/rand"
	"time"
)

// maxRetryDelay caps exponential backoff regardless of base/attempt.
const maxRetryDelay = 3600 * time.Second

// RetryManager is pure logic with no state of its own; its methods take
// exactly the inputs they need.
type RetryManager struct{}

// ShouldRetry reports whether exec is eligible for another attempt: it must
// still have budget left, and if a retryAfter was previously set, that time
// must have passed.
func (RetryManager) ShouldRetry(exec *execution, meta Metadata, now time.Time) bool {
	if exec.attempt >= meta.MaxRetries+1 {
		return false
	}
	if exec.retryAfter != nil && now.Before(*exec.retryAfter) {
		return false
	}
	return true
}

// Delay computes min(base*2^(attempt-1), max) with ±20% jitter applied,
// matching the original's backoff formula.
func (RetryManager) Delay(attempt int, base time.Duration, max time.Duration) time.Duration {
	if max <= 0 {
		max = maxRetryDelay
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}

	jitterFrac := 0.2 * (rand.Float64()*2 - 1) // ±20%
	jittered := time.Duration(float64(delay) * (1 + jitterFrac))
	if jittered < 0 {
		jittered = 0
	}
	return jittered
}
