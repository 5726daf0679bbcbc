package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorRecordsCompletionAndFailure(t *testing.T) {
	c := NewMetricsCollector(0, nil)
	jobType := TypeOf("sample")

	c.RecordStart(jobType)
	c.RecordCompletion(jobType, 2*time.Second)

	m, ok := c.GetMetrics(jobType)
	require.True(t, ok)
	assert.Equal(t, int64(1), m.Total)
	assert.Equal(t, int64(1), m.Successful)
	assert.Equal(t, 0, m.CurrentRunning)
	assert.Equal(t, 2.0, m.AvgSeconds())

	c.RecordStart(jobType)
	c.RecordFailure(jobType, errors.New("boom"), time.Second)
	m, _ = c.GetMetrics(jobType)
	assert.Equal(t, int64(2), m.Total)
	assert.Equal(t, int64(1), m.Failed)
}

func TestMetricsCollectorEventRingTrimsOnOverflow(t *testing.T) {
	c := NewMetricsCollector(10, nil)
	jobType := TypeOf("sample")
	for i := 0; i < 15; i++ {
		c.AddEvent(Event{JobType: jobType, EventType: EventStarted, Timestamp: time.Now()})
	}
	events := c.GetRecentEvents(nil, 0)
	assert.LessOrEqual(t, len(events), 10)
	assert.Greater(t, len(events), 0)
}

func TestMetricsCollectorGetRecentEventsFiltersByType(t *testing.T) {
	c := NewMetricsCollector(0, nil)
	email := TypeOf("email_metrics_test")
	webhook := TypeOf("webhook_metrics_test")
	c.AddEvent(Event{JobType: email, EventType: EventStarted, Timestamp: time.Now()})
	c.AddEvent(Event{JobType: webhook, EventType: EventStarted, Timestamp: time.Now()})

	events := c.GetRecentEvents(&email, 10)
	require.Len(t, events, 1)
	assert.Equal(t, email, events[0].JobType)
}
