package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pytake/pytake-go/internal/logger"
)

// CompletionCallback is invoked once per attempt's terminal outcome
// (completed or dead-lettered), mirroring the source's
// jobCompletionCallback hook without resorting to a package-level global.
type CompletionCallback func(jobType Type, id uuid.UUID, success bool)

// Executor owns N worker loops and the aggregated start/stop lifecycle.
// There is no package-level mutable state; every Executor is an explicit
// value owned by an Engine.
type Executor struct {
	log     *logger.Logger
	queue   *priorityQueue
	registry *Registry
	metrics *MetricsCollector
	dlq     *DeadLetterQueue
	store   Store
	retry   RetryManager

	onComplete CompletionCallback

	workerCount int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewExecutor wires the collaborators an Executor needs. workerCount
// defaults to 5 if non-positive.
func NewExecutor(log *logger.Logger, queue *priorityQueue, registry *Registry, metrics *MetricsCollector, dlq *DeadLetterQueue, store Store, workerCount int) *Executor {
	if workerCount <= 0 {
		workerCount = 5
	}
	return &Executor{
		log:         log,
		queue:       queue,
		registry:    registry,
		metrics:     metrics,
		dlq:         dlq,
		store:       store,
		workerCount: workerCount,
	}
}

// OnComplete registers the completion callback invoked after every
// terminal outcome.
func (e *Executor) OnComplete(cb CompletionCallback) { e.onComplete = cb }

// Start launches the worker pool. Idempotent: calling Start twice while
// already running is a no-op.
func (e *Executor) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true

	for i := 0; i < e.workerCount; i++ {
		e.wg.Add(1)
		go e.workerLoop(workerCtx, i)
	}
	e.log.Info("executor started", "worker_count", e.workerCount)
}

// Stop cancels every worker loop and awaits their termination: outstanding
// executions run to completion (or their own timeout) before the worker
// goroutine returns.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	e.log.Info("executor_stopped")
}

// IsRunning reports whether the worker pool is currently active.
func (e *Executor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Executor) workerLoop(ctx context.Context, workerID int) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		exec := e.queue.getNextJob()
		if exec == nil {
			sleepOrDone(ctx, 500*time.Millisecond)
			continue
		}

		if exec.retryAfter != nil && time.Now().Before(*exec.retryAfter) {
			e.queue.enqueue(exec.message, e.priorityOf(exec.jobType))
			sleepOrDone(ctx, 100*time.Millisecond)
			continue
		}

		if !e.queue.acquireSlot(exec.jobType, exec.id) {
			e.queue.enqueue(exec.message, e.priorityOf(exec.jobType))
			sleepOrDone(ctx, 500*time.Millisecond)
			continue
		}

		e.runOne(context.WithoutCancel(ctx), exec)
		e.queue.releaseSlot(exec.jobType, exec.id)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (e *Executor) priorityOf(jobType Type) Priority {
	if meta, ok := e.registry.GetMetadata(jobType); ok {
		return meta.Priority
	}
	return PriorityNormal
}

// runOne runs one attempt's lifecycle: validate, execute under timeout, and
// route the outcome through success, retry or dead-letter.
func (e *Executor) runOne(ctx context.Context, exec *execution) {
	meta, ok := e.registry.GetMetadata(exec.jobType)
	handler, handlerOK := e.registry.GetHandler(exec.jobType)
	if !ok || !handlerOK {
		e.deadLetterUnregistered(exec)
		return
	}

	jc := Context{
		JobType:    exec.jobType,
		Message:    exec.message,
		Attempt:    exec.attempt - 1,
		MaxRetries: meta.MaxRetries,
		Config:     meta.ConfigOverrides,
	}

	now := time.Now()
	exec.status = StatusRunning
	exec.startedAt = &now
	e.metrics.RecordStart(exec.jobType)
	e.metrics.AddEvent(Event{ExecutionID: exec.id, JobType: exec.jobType, EventType: EventStarted, Timestamp: now, Attempt: exec.attempt})

	results, err := e.attempt(ctx, handler, jc, *meta)

	duration := time.Since(now)
	if err == nil {
		e.succeed(ctx, exec, results, duration)
	} else {
		e.fail(ctx, exec, handler, jc, *meta, err, duration)
	}

	handler.PostExecutionCleanup(ctx, jc, results)
}

func (e *Executor) attempt(ctx context.Context, handler Handler, jc Context, meta Metadata) (results []Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	ok, verr := handler.Validate(ctx, jc)
	if verr != nil {
		return nil, verr
	}
	if !ok {
		return []Result{{Success: false, Message: "Validation failed"}}, nil
	}

	execCtx := ctx
	if timeout := meta.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		results, err = handler.Execute(execCtx, jc)
	}()

	select {
	case <-done:
		return results, err
	case <-execCtx.Done():
		<-done
		if err == nil {
			err = Transient(fmt.Errorf("job exceeded timeout: %w", execCtx.Err()))
		}
		return results, err
	}
}

func (e *Executor) succeed(ctx context.Context, exec *execution, results []Result, duration time.Duration) {
	now := time.Now()
	exec.status = StatusCompleted
	exec.completedAt = &now
	exec.results = results

	e.metrics.RecordCompletion(exec.jobType, duration)
	e.metrics.AddEvent(Event{ExecutionID: exec.id, JobType: exec.jobType, EventType: EventCompleted, Timestamp: now, Duration: duration, Attempt: exec.attempt})

	if e.store != nil {
		processed := true
		if uerr := e.store.Update(ctx, exec.id, StoreUpdate{IsProcessed: &processed, Result: resultPayload(results)}); uerr != nil {
			e.log.Error("failed to mark message processed", "job_type", exec.jobType.String(), "id", exec.id, "error", uerr)
		}
	}

	if e.onComplete != nil {
		e.onComplete(exec.jobType, exec.id, true)
	}
	e.queue.forgetExecution(exec.id)
}

func (e *Executor) fail(ctx context.Context, exec *execution, handler Handler, jc Context, meta Metadata, attemptErr error, duration time.Duration) {
	now := time.Now()
	e.metrics.RecordFailure(exec.jobType, attemptErr, duration)
	e.metrics.AddEvent(Event{ExecutionID: exec.id, JobType: exec.jobType, EventType: EventFailed, Timestamp: now, Duration: duration, Error: attemptErr.Error(), Attempt: exec.attempt})

	exec.status = StatusFailed
	exec.lastError = attemptErr

	if recovered := handler.HandleError(attemptErr, jc); recovered != nil {
		e.succeed(ctx, exec, recovered, duration)
		return
	}

	shouldRetry := handler.ShouldRetry(attemptErr, jc) && e.retry.ShouldRetry(exec, meta, now)
	if shouldRetry {
		delay := e.retry.Delay(exec.attempt, meta.RetryDelay(), maxRetryDelay)
		retryAt := now.Add(delay)
		exec.status = StatusRetrying
		exec.retryAfter = &retryAt
		exec.attempt++

		e.metrics.RecordRetry(exec.jobType)
		e.metrics.AddEvent(Event{ExecutionID: exec.id, JobType: exec.jobType, EventType: EventRetried, Timestamp: now, Attempt: exec.attempt})

		e.queue.enqueue(exec.message, meta.Priority)
		return
	}

	e.deadLetter(ctx, exec, attemptErr)
}

func (e *Executor) deadLetter(ctx context.Context, exec *execution, cause error) {
	now := time.Now()
	exec.status = StatusDeadLetter
	exec.completedAt = &now

	e.metrics.RecordDeadLetter(exec.jobType)
	e.metrics.AddEvent(Event{ExecutionID: exec.id, JobType: exec.jobType, EventType: EventDeadLetter, Timestamp: now, Attempt: exec.attempt, Error: cause.Error()})

	e.dlq.Add(DeadLetterEntry{
		ID:      exec.id,
		JobType: exec.jobType,
		Attempt: exec.attempt,
		Error:   cause.Error(),
		Message: exec.message,
		Results: exec.results,
		DeadAt:  now,
	})

	if e.store != nil {
		processed := true
		result := map[string]interface{}{"success": false, "error": cause.Error()}
		if uerr := e.store.Update(ctx, exec.id, StoreUpdate{IsProcessed: &processed, Result: result}); uerr != nil {
			e.log.Error("failed to mark dead-lettered message processed", "job_type", exec.jobType.String(), "id", exec.id, "error", uerr)
		}
	}

	if e.onComplete != nil {
		e.onComplete(exec.jobType, exec.id, false)
	}
	e.queue.forgetExecution(exec.id)
}

// deadLetterUnregistered handles the configuration/registration error kind:
// permanent failure, immediate DLQ, never retried.
func (e *Executor) deadLetterUnregistered(exec *execution) {
	e.log.Error("job type unregistered at run time, moving to dead-letter", "job_type", exec.jobType.String(), "id", exec.id)
	e.metrics.RecordDeadLetter(exec.jobType)
	e.dlq.Add(DeadLetterEntry{
		ID:      exec.id,
		JobType: exec.jobType,
		Attempt: exec.attempt,
		Error:   "job type unregistered or handler missing",
		Message: exec.message,
		DeadAt:  time.Now(),
	})
	if e.store != nil {
		processed := true
		result := map[string]interface{}{"success": false, "error": "job type unregistered"}
		_ = e.store.Update(context.Background(), exec.id, StoreUpdate{IsProcessed: &processed, Result: result})
	}
	if e.onComplete != nil {
		e.onComplete(exec.jobType, exec.id, false)
	}
	e.queue.forgetExecution(exec.id)
}

func resultPayload(results []Result) map[string]interface{} {
	if len(results) == 0 {
		return map[string]interface{}{"success": true, "count": 0}
	}
	success := true
	messages := make([]string, 0, len(results))
	for _, r := range results {
		success = success && r.Success
		messages = append(messages, r.Message)
	}
	return map[string]interface{}{"success": success, "messages": messages, "count": len(results)}
}

// Stats is the getExecutorStats() control-surface response.
type Stats struct {
	Running         bool
	WorkerCount     int
	DeadLetterCount int
	ActiveJobs      int
	PendingJobs     int
	TotalActive     int
	TotalPending    int
}

// GetStats reports the executor's current lifecycle and queue depth.
func (e *Executor) GetStats() Stats {
	active, pending := e.queue.totals()
	return Stats{
		Running:         e.IsRunning(),
		WorkerCount:     e.workerCount,
		DeadLetterCount: e.dlq.Count(),
		ActiveJobs:      active,
		PendingJobs:     pending,
		TotalActive:     active,
		TotalPending:    pending,
	}
}

// EnqueuePendingJobs reads the store for unprocessed messages of every
// enabled registered type and enqueues each at its type's priority.
func (e *Executor) EnqueuePendingJobs(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	for _, meta := range e.registry.ListEnabled() {
		notProcessed := false
		msgs, err := e.store.List(ctx, StoreFilter{Type: meta.Type.String(), IsProcessed: &notProcessed})
		if err != nil {
			return fmt.Errorf("list pending messages for %s: %w", meta.Type.String(), err)
		}
		for _, msg := range msgs {
			e.queue.enqueue(msg, meta.Priority)
		}
	}
	return nil
}

// TriggerJob synthesizes and enqueues one message for jobType right now.
func (e *Executor) TriggerJob(ctx context.Context, jobType Type) error {
	meta, ok := e.registry.GetMetadata(jobType)
	if !ok {
		return fmt.Errorf("jobs: trigger requested for unregistered type %q", jobType.String())
	}
	msg := synthesizeMessage(jobType)
	_ = ctx
	e.queue.enqueue(msg, meta.Priority)
	return nil
}
