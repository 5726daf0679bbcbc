package jobs

import "time"

// Priority is the dispatch band a job runs in. Higher values preempt lower
// ones at dequeue time.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// priorityBands lists every band from highest to lowest, the dequeue order
// getNextJob walks.
var priorityBands = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityNormal, PriorityLow}

// SourceMode tells the Scheduler how to produce a tick's work item.
type SourceMode int

const (
	// SourceModeTimer synthesizes a fresh message on every tick.
	SourceModeTimer SourceMode = iota
	// SourceModeStore only enqueues when the store already holds an
	// unprocessed message of the job's type.
	SourceModeStore
)

// Capabilities declares which side-effecting collaborators a job needs.
// Registry.ValidateDependencies checks these against what the Engine was
// constructed with.
type Capabilities struct {
	RequiresWhatsApp bool
	RequiresAI       bool
	RequiresWebhook  bool
	RequiresDatabase bool
}

// Metadata is the immutable, declarative descriptor for one JobType.
// Registered at startup; never mutated after Registry.Freeze.
type Metadata struct {
	Type        Type
	DisplayName string
	Version     string

	Enabled         bool
	IntervalSeconds int
	SourceMode      SourceMode

	Priority          Priority
	MaxRetries        int
	RetryDelaySeconds int
	TimeoutSeconds    int // 0 means no timeout
	MaxConcurrent     int
	BatchSize         int

	Capabilities Capabilities
	Dependencies []string

	DeadLetterEnabled bool
	PreserveOrder     bool
	Idempotent        bool

	ConfigOverrides map[string]interface{}
}

// RetryDelay returns the configured base retry delay as a time.Duration.
func (m Metadata) RetryDelay() time.Duration {
	return time.Duration(m.RetryDelaySeconds) * time.Second
}

// Timeout returns the configured handler timeout, or 0 if none is set.
func (m Metadata) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Interval returns the scheduler tick interval.
func (m Metadata) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}
