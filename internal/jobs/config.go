package jobs

import "time"

// Config holds the tunables the Engine needs beyond what's registered in
// Metadata: worker pool size, deduplication policy, and event-ring sizing.
// Mirrors jobs.ConfigResolver's per-type overrides but at the
// engine-construction level.
type Config struct {
	WorkerCount int

	DeduplicationEnabled            bool
	AggressiveDeduplicationEnabled  bool
	StackingPreventionEnabled       bool
	MonitoringJobTypes              []string

	MaxEvents          int
	DeadLetterCapacity int
}

// DefaultConfig returns conservative defaults (5 workers, 10 000-entry
// event ring and DLQ).
func DefaultConfig() Config {
	return Config{
		WorkerCount:        5,
		MaxEvents:          10000,
		DeadLetterCapacity: 10000,
	}
}

func (c Config) dedupConfig() dedupConfig {
	set := make(map[string]struct{}, len(c.MonitoringJobTypes))
	for _, t := range c.MonitoringJobTypes {
		set[t] = struct{}{}
	}
	return dedupConfig{
		enabled:            c.DeduplicationEnabled,
		aggressive:         c.AggressiveDeduplicationEnabled,
		stackingPrevention: c.StackingPreventionEnabled,
		monitoringJobTypes: set,
	}
}

// staticResolver is a ConfigResolver with no per-type overrides; every
// lookup falls back to the Metadata value it's given. Engines built without
// a config-backed resolver use this so Scheduler still has something to
// call.
type staticResolver struct{}

func (staticResolver) Enabled(_ Type, fallback bool) bool { return fallback }
func (staticResolver) Interval(_ Type, fallback time.Duration) time.Duration { return fallback }
