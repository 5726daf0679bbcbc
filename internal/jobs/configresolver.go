package jobs

import (
	"strings"
	"time"

	"github.com/pytake/pytake-go/internal/config"
)

// ConfigResolverFromAppConfig adapts *config.Config into a ConfigResolver.
// It reads no per-type settings: Enabled and Interval always return the
// fallback, i.e. the value Metadata already carries. The monitoring-type
// list (JOBS_MONITORING_TYPES) reaches the Engine through
// AppConfigToJobsConfig, not through this resolver.
type ConfigResolverFromAppConfig struct {
	cfg *config.Config
}

// NewConfigResolver wraps cfg as a ConfigResolver.
func NewConfigResolver(cfg *config.Config) ConfigResolverFromAppConfig {
	return ConfigResolverFromAppConfig{cfg: cfg}
}

func (r ConfigResolverFromAppConfig) Enabled(_ Type, fallback bool) bool {
	return fallback
}

func (r ConfigResolverFromAppConfig) Interval(_ Type, fallback time.Duration) time.Duration {
	return fallback
}

// AppConfigToJobsConfig converts the application-wide Jobs section into the
// jobs.Config the Engine is constructed with.
func AppConfigToJobsConfig(cfg *config.Config) Config {
	return Config{
		WorkerCount:                    cfg.Jobs.WorkerCount,
		DeduplicationEnabled:           cfg.Jobs.DeduplicationEnabled,
		AggressiveDeduplicationEnabled: cfg.Jobs.AggressiveDeduplicationEnabled,
		StackingPreventionEnabled:      cfg.Jobs.StackingPreventionEnabled,
		MonitoringJobTypes:             trimmedNonEmpty(cfg.Jobs.MonitoringTypes),
		MaxEvents:                      cfg.Jobs.MaxEvents,
		DeadLetterCapacity:             cfg.Jobs.MaxEvents,
	}
}

func trimmedNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
