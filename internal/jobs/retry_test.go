package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryManagerDelayCapsAtMax(t *testing.T) {
	var rm RetryManager
	delay := rm.Delay(10, time.Second, 5*time.Second)
	assert.LessOrEqual(t, delay, 6*time.Second) // capped value plus jitter headroom
}

func TestRetryManagerDelayDoublesPerAttempt(t *testing.T) {
	var rm RetryManager
	for attempt := 1; attempt <= 4; attempt++ {
		delay := rm.Delay(attempt, time.Second, time.Hour)
		expected := time.Duration(1<<(attempt-1)) * time.Second
		lower := float64(expected) * 0.79
		upper := float64(expected) * 1.21
		assert.GreaterOrEqual(t, float64(delay), lower)
		assert.LessOrEqual(t, float64(delay), upper)
	}
}

func TestRetryManagerShouldRetryRespectsMaxAttempts(t *testing.T) {
	var rm RetryManager
	meta := Metadata{MaxRetries: 2}
	exec := &execution{attempt: 3}
	assert.False(t, rm.ShouldRetry(exec, meta, time.Now()))

	exec.attempt = 2
	assert.True(t, rm.ShouldRetry(exec, meta, time.Now()))
}

func TestRetryManagerShouldRetryRespectsRetryAfter(t *testing.T) {
	var rm RetryManager
	meta := Metadata{MaxRetries: 5}
	future := time.Now().Add(time.Minute)
	exec := &execution{attempt: 1, retryAfter: &future}
	assert.False(t, rm.ShouldRetry(exec, meta, time.Now()))
	assert.True(t, rm.ShouldRetry(exec, meta, future.Add(time.Second)))
}
