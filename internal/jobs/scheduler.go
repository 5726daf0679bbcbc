package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/pytake/pytake-go/internal/logger"
)

// ConfigResolver provides runtime-effective enabled/interval lookups per
// JobType, falling back to the registered Metadata when no override
// exists.
type ConfigResolver interface {
	Enabled(t Type, fallback bool) bool
	Interval(t Type, fallback time.Duration) time.Duration
}

// misfireGrace bounds how late a tick may proceed. It is measured from the
// moment tick starts running, not from the entry's scheduled time, so a tick
// that starts late is not dropped by this check. Missed ticks are never
// caught up: cron runs an overdue entry once and schedules the next run from
// the current time.
const misfireGrace = 60 * time.Second

// Scheduler periodically synthesizes QueueMessages for every enabled
// registered job and submits them into the same priorityQueue the Executor
// drains.
type Scheduler struct {
	log      *logger.Logger
	registry *Registry
	queue    *priorityQueue
	store    Store
	config   ConfigResolver

	cron *cron.Cron

	mu       sync.Mutex
	running  bool
	inflight map[Type]bool
	entries  map[Type]cron.EntryID
}

// NewScheduler builds a Scheduler over registry's enabled jobs, wired to
// queue for dispatch and store for store-mode sourcing.
func NewScheduler(log *logger.Logger, registry *Registry, queue *priorityQueue, store Store, config ConfigResolver) *Scheduler {
	return &Scheduler{
		log:      log,
		registry: registry,
		queue:    queue,
		store:    store,
		config:   config,
		cron:     cron.New(cron.WithSeconds()),
		inflight: make(map[Type]bool),
		entries:  make(map[Type]cron.EntryID),
	}
}

// Start adds every enabled registered job to the cron scheduler and begins
// ticking. Safe to call once; calling again while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	for _, meta := range s.registry.ListEnabled() {
		meta := meta
		interval := meta.Interval()
		if s.config != nil {
			interval = s.config.Interval(meta.Type, interval)
		}
		spec := intervalCronSpec(interval)
		id, err := s.cron.AddFunc(spec, func() { s.tick(ctx, meta) })
		if err != nil {
			return fmt.Errorf("scheduler: add job %q: %w", meta.Type.String(), err)
		}
		s.entries[meta.Type] = id
	}

	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", "job_count", len(s.entries))
	return nil
}

// Stop halts the cron scheduler and waits for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.log.Info("scheduler stopped")
}

// tick fires one job at one scheduled moment: at most one in-flight
// instance per entry, overdue ticks coalesce, and store-mode jobs only
// enqueue when the store already holds unprocessed work.
func (s *Scheduler) tick(ctx context.Context, meta Metadata) {
	fireTime := time.Now()

	s.mu.Lock()
	if s.inflight[meta.Type] {
		s.mu.Unlock()
		return // previous tick for this entry hasn't finished; coalesce
	}
	s.inflight[meta.Type] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight[meta.Type] = false
		s.mu.Unlock()
	}()

	enabled := meta.Enabled
	interval := meta.Interval()
	if s.config != nil {
		enabled = s.config.Enabled(meta.Type, meta.Enabled)
		interval = s.config.Interval(meta.Type, meta.Interval())
	}
	if !enabled {
		return
	}
	_ = interval // interval changes take effect on the next Start; see DESIGN.md

	if time.Since(fireTime) > misfireGrace {
		return
	}

	if meta.SourceMode == SourceModeStore {
		s.tickStoreMode(ctx, meta)
		return
	}

	msg := synthesizeMessage(meta.Type)
	s.queue.enqueue(msg, meta.Priority)
}

func (s *Scheduler) tickStoreMode(ctx context.Context, meta Metadata) {
	if s.store == nil {
		return
	}
	notProcessed := false
	msgs, err := s.store.List(ctx, StoreFilter{Type: meta.Type.String(), IsProcessed: &notProcessed})
	if err != nil {
		s.log.Error("scheduler: failed to list store-mode messages", "job_type", meta.Type.String(), "error", err)
		return
	}
	if len(msgs) == 0 {
		return // nothing pending, skip this tick
	}
	for _, msg := range msgs {
		s.queue.enqueue(msg, meta.Priority)
	}
}

// synthesizeMessage builds the {scheduled_execution: true, triggered_at:
// now} payload used for timer-mode ticks and for manually triggered runs.
func synthesizeMessage(jobType Type) Message {
	now := time.Now()
	return Message{
		ID:   uuid.New(),
		Type: jobType.String(),
		Payload: map[string]interface{}{
			"scheduled_execution": true,
			"triggered_at":        now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// intervalCronSpec turns a plain interval into a seconds-precision cron
// expression accepted by cron.WithSeconds().
func intervalCronSpec(interval time.Duration) string {
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	return fmt.Sprintf("@every %ds", seconds)
}
