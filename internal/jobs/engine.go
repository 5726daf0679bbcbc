package jobs

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pytake/pytake-go/internal/logger"
)

// JobDetails is the getJobDetails(type) control-surface response.
type JobDetails struct {
	Metadata       Metadata
	Metrics        Metrics
	RunningCount   int
	PendingCount   int
	RecentEvents   []Event
}

// Engine is the explicit aggregate wiring every job-engine collaborator
// together. It is constructed once at program start by cmd/jobengine and
// passed by reference; nothing here is package-level mutable state.
type Engine struct {
	log      *logger.Logger
	registry *Registry
	queue    *priorityQueue
	executor *Executor
	scheduler *Scheduler
	metrics  *MetricsCollector
	dlq      *DeadLetterQueue
	perf     *PerformanceMonitor
	store    Store
}

// NewEngine builds every collaborator and wires them together. resolver
// may be nil, in which case Metadata's own Enabled/Interval are used as-is.
func NewEngine(log *logger.Logger, store Store, resolvedCapabilities map[string]bool, cfg Config, resolver ConfigResolver, reg prometheus.Registerer) *Engine {
	registry := NewRegistry(log, resolvedCapabilities)
	queue := newPriorityQueue(registry, cfg.dedupConfig())
	metrics := NewMetricsCollector(cfg.MaxEvents, reg)
	dlq := NewDeadLetterQueue(cfg.DeadLetterCapacity)
	executor := NewExecutor(log, queue, registry, metrics, dlq, store, cfg.WorkerCount)

	if resolver == nil {
		resolver = staticResolver{}
	}
	scheduler := NewScheduler(log, registry, queue, store, resolver)

	return &Engine{
		log:       log,
		registry:  registry,
		queue:     queue,
		executor:  executor,
		scheduler: scheduler,
		metrics:   metrics,
		dlq:       dlq,
		perf:      NewPerformanceMonitor(DefaultPerformanceThresholds()),
		store:     store,
	}
}

// RegisterJob adds jobType's descriptor to the registry. Call from an
// explicit init hook per handler package, then Freeze once every hook has
// run — this preserves auto-discovery ergonomics without relying on import
// side effects.
func (e *Engine) RegisterJob(metadata Metadata, factory HandlerFactory) error {
	return e.registry.Register(metadata, factory)
}

// Freeze closes job registration. Call after every RegisterJob call site
// has run, before Start.
func (e *Engine) Freeze() []string {
	e.registry.Freeze()
	return e.registry.ValidateDependencies()
}

// Start enqueues any pending store-backed work, then starts the executor
// and scheduler.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.executor.EnqueuePendingJobs(ctx); err != nil {
		return err
	}
	e.executor.Start(ctx)
	return e.scheduler.Start(ctx)
}

// Stop shuts down the scheduler and executor, in that order so no new work
// is admitted while workers drain.
func (e *Engine) Stop() {
	e.scheduler.Stop()
	e.executor.Stop()
}

// TriggerJob synthesizes and enqueues one message for jobType now.
func (e *Engine) TriggerJob(ctx context.Context, jobType Type) error {
	return e.executor.TriggerJob(ctx, jobType)
}

// GetExecutorStats returns the control surface's executor snapshot.
func (e *Engine) GetExecutorStats() Stats {
	return e.executor.GetStats()
}

// GetJobMetrics returns the metrics for one JobType, or every type's
// metrics if jobType is nil.
func (e *Engine) GetJobMetrics(jobType *Type) map[Type]Metrics {
	if jobType == nil {
		return e.metrics.GetSystemMetrics()
	}
	if m, ok := e.metrics.GetMetrics(*jobType); ok {
		return map[Type]Metrics{*jobType: m}
	}
	return map[Type]Metrics{}
}

// GetSystemHealth derives overall health from the registry's enabled jobs
// and the metrics collector's current snapshot.
func (e *Engine) GetSystemHealth() HealthStatus {
	return DeriveHealth(e.registry.ListEnabled(), e.metrics.GetSystemMetrics(), time.Now())
}

// GetPerformanceAlerts evaluates the PerformanceMonitor's thresholds
// against the current metrics snapshot.
func (e *Engine) GetPerformanceAlerts() []PerformanceAlert {
	return e.perf.Evaluate(e.metrics.GetSystemMetrics())
}

// GetJobDetails returns metadata, metrics and live queue depth for one
// JobType.
func (e *Engine) GetJobDetails(jobType Type) (JobDetails, bool) {
	meta, ok := e.registry.GetMetadata(jobType)
	if !ok {
		return JobDetails{}, false
	}
	metrics, _ := e.metrics.GetMetrics(jobType)
	return JobDetails{
		Metadata:     *meta,
		Metrics:      metrics,
		RunningCount: e.queue.runningCount(jobType),
		PendingCount: e.queue.pendingCount(jobType),
		RecentEvents: e.metrics.GetRecentEvents(&jobType, 50),
	}, true
}

// DeadLetterEntries returns a snapshot of every quarantined execution.
func (e *Engine) DeadLetterEntries() []DeadLetterEntry {
	return e.dlq.List()
}

// Registry exposes the underlying Registry for callers (e.g. handler
// packages' init-time registration) that need direct access beyond
// RegisterJob/Freeze.
func (e *Engine) Registry() *Registry { return e.registry }

// DeadLetterQueueRef exposes the Engine's own DeadLetterQueue so handlers
// registered against it (e.g. a cleanup job reporting DLQ depth) observe
// the same instance the Executor quarantines into.
func (e *Engine) DeadLetterQueueRef() *DeadLetterQueue { return e.dlq }
