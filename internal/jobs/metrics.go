package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// EventType classifies an ExecutionEvent.
type EventType string

const (
	EventStarted    EventType = "started"
	EventCompleted  EventType = "completed"
	EventFailed     EventType = "failed"
	EventRetried    EventType = "retried"
	EventDeadLetter EventType = "dead_letter"
)

// Event is an append-only record in MetricsCollector's bounded ring.
type Event struct {
	ExecutionID uuid.UUID
	JobType     Type
	EventType   EventType
	Timestamp   time.Time
	Duration    time.Duration
	Error       string
	Attempt     int
}

// Metrics are rolling, monotonic counters for one JobType (currentRunning
// aside, which tracks live concurrency).
type Metrics struct {
	Total       int64
	Successful  int64
	Failed      int64
	Retried     int64
	DeadLetter  int64

	TotalSeconds float64
	MinSeconds   float64
	MaxSeconds   float64

	CurrentRunning       int
	MaxConcurrentReached int

	LastExecution *time.Time
	LastSuccess   *time.Time
	LastFailure   *time.Time
}

// AvgSeconds returns TotalSeconds/Total, or 0 if no completions were
// recorded yet.
func (m Metrics) AvgSeconds() float64 {
	if m.Total == 0 {
		return 0
	}
	return m.TotalSeconds / float64(m.Total)
}

type typeMetrics struct {
	mu sync.Mutex
	m  Metrics
}

// MetricsCollector tracks per-JobType rolling counters and a bounded event
// ring, and mirrors the counters into real Prometheus collectors. The event
// ring is kept in memory only and is not exported to Prometheus.
type MetricsCollector struct {
	mu      sync.RWMutex
	perType map[Type]*typeMetrics

	eventsMu  sync.Mutex
	events    []Event
	maxEvents int

	promTotal      *prometheus.CounterVec
	promDuration   *prometheus.HistogramVec
	promRunning    *prometheus.GaugeVec
	promDeadLetter *prometheus.CounterVec
}

// NewMetricsCollector builds a collector bounding its event ring at
// maxEvents (spec suggests 10 000) and registering its Prometheus vectors
// against reg. reg may be nil in tests, in which case Prometheus wiring is
// skipped.
func NewMetricsCollector(maxEvents int, reg prometheus.Registerer) *MetricsCollector {
	if maxEvents <= 0 {
		maxEvents = 10000
	}
	c := &MetricsCollector{
		perType:   make(map[Type]*typeMetrics),
		maxEvents: maxEvents,

		promTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobengine_job_events_total",
			Help: "Total job lifecycle events by type and outcome.",
		}, []string{"job_type", "outcome"}),
		promDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobengine_job_duration_seconds",
			Help:    "Job execution duration in seconds by type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_type"}),
		promRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobengine_job_running",
			Help: "Currently running executions by job type.",
		}, []string{"job_type"}),
		promDeadLetter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobengine_job_dead_letter_total",
			Help: "Total executions promoted to the dead-letter queue by type.",
		}, []string{"job_type"}),
	}
	if reg != nil {
		reg.MustRegister(c.promTotal, c.promDuration, c.promRunning, c.promDeadLetter)
	}
	return c
}

func (c *MetricsCollector) entry(jobType Type) *typeMetrics {
	c.mu.RLock()
	tm, ok := c.perType[jobType]
	c.mu.RUnlock()
	if ok {
		return tm
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if tm, ok := c.perType[jobType]; ok {
		return tm
	}
	tm = &typeMetrics{}
	c.perType[jobType] = tm
	return tm
}

// RecordStart marks one more execution of jobType as currently running.
func (c *MetricsCollector) RecordStart(jobType Type) {
	tm := c.entry(jobType)
	tm.mu.Lock()
	tm.m.CurrentRunning++
	if tm.m.CurrentRunning > tm.m.MaxConcurrentReached {
		tm.m.MaxConcurrentReached = tm.m.CurrentRunning
	}
	now := time.Now()
	tm.m.LastExecution = &now
	tm.mu.Unlock()
	c.promRunning.WithLabelValues(jobType.String()).Inc()
}

// RecordCompletion records a successful execution of the given duration.
func (c *MetricsCollector) RecordCompletion(jobType Type, duration time.Duration) {
	tm := c.entry(jobType)
	seconds := duration.Seconds()
	tm.mu.Lock()
	tm.m.Total++
	tm.m.Successful++
	tm.m.CurrentRunning--
	if tm.m.CurrentRunning < 0 {
		tm.m.CurrentRunning = 0
	}
	c.updateTiming(&tm.m, seconds)
	now := time.Now()
	tm.m.LastSuccess = &now
	tm.mu.Unlock()

	c.promTotal.WithLabelValues(jobType.String(), "completed").Inc()
	c.promDuration.WithLabelValues(jobType.String()).Observe(seconds)
	c.promRunning.WithLabelValues(jobType.String()).Dec()
}

// RecordFailure records a failed attempt (retried or terminal — callers
// distinguish via RecordRetry/RecordDeadLetter for the counters that care).
func (c *MetricsCollector) RecordFailure(jobType Type, err error, duration time.Duration) {
	tm := c.entry(jobType)
	seconds := duration.Seconds()
	tm.mu.Lock()
	tm.m.Total++
	tm.m.Failed++
	tm.m.CurrentRunning--
	if tm.m.CurrentRunning < 0 {
		tm.m.CurrentRunning = 0
	}
	c.updateTiming(&tm.m, seconds)
	now := time.Now()
	tm.m.LastFailure = &now
	tm.mu.Unlock()

	c.promTotal.WithLabelValues(jobType.String(), "failed").Inc()
	c.promDuration.WithLabelValues(jobType.String()).Observe(seconds)
	c.promRunning.WithLabelValues(jobType.String()).Dec()
}

// RecordRetry increments the retried counter without touching
// currentRunning (the execution is still conceptually in flight, just
// re-enqueued).
func (c *MetricsCollector) RecordRetry(jobType Type) {
	tm := c.entry(jobType)
	tm.mu.Lock()
	tm.m.Retried++
	tm.mu.Unlock()
	c.promTotal.WithLabelValues(jobType.String(), "retried").Inc()
}

// RecordDeadLetter increments the dead-letter counter.
func (c *MetricsCollector) RecordDeadLetter(jobType Type) {
	tm := c.entry(jobType)
	tm.mu.Lock()
	tm.m.DeadLetter++
	tm.mu.Unlock()
	c.promDeadLetter.WithLabelValues(jobType.String()).Inc()
}

func (c *MetricsCollector) updateTiming(m *Metrics, seconds float64) {
	m.TotalSeconds += seconds
	if m.MinSeconds == 0 || seconds < m.MinSeconds {
		m.MinSeconds = seconds
	}
	if seconds > m.MaxSeconds {
		m.MaxSeconds = seconds
	}
}

// GetMetrics returns a snapshot for jobType, or zero-value Metrics with ok
// false if nothing has been recorded yet.
func (c *MetricsCollector) GetMetrics(jobType Type) (Metrics, bool) {
	c.mu.RLock()
	tm, ok := c.perType[jobType]
	c.mu.RUnlock()
	if !ok {
		return Metrics{}, false
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.m, true
}

// GetSystemMetrics returns a snapshot for every JobType with recorded
// activity.
func (c *MetricsCollector) GetSystemMetrics() map[Type]Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Type]Metrics, len(c.perType))
	for t, tm := range c.perType {
		tm.mu.Lock()
		out[t] = tm.m
		tm.mu.Unlock()
	}
	return out
}

// AddEvent appends evt to the ring, trimming the oldest 20% when the ring
// overflows maxEvents. Protected by a single lock; no event is ever dropped
// mid-append.
func (c *MetricsCollector) AddEvent(evt Event) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	c.events = append(c.events, evt)
	if len(c.events) > c.maxEvents {
		trim := c.maxEvents / 5
		if trim < 1 {
			trim = 1
		}
		c.events = append([]Event(nil), c.events[trim:]...)
	}
}

// GetRecentEvents returns up to limit most-recent events, optionally
// filtered to one JobType.
func (c *MetricsCollector) GetRecentEvents(jobType *Type, limit int) []Event {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()

	var filtered []Event
	for i := len(c.events) - 1; i >= 0; i-- {
		e := c.events[i]
		if jobType != nil && e.JobType != *jobType {
			continue
		}
		filtered = append(filtered, e)
		if limit > 0 && len(filtered) >= limit {
			break
		}
	}
	return filtered
}
