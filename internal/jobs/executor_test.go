package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pytake/pytake-go/internal/logger"
)

// stubHandler lets each test supply just the Execute behavior it cares
// about, inheriting BaseHandler's default Validate/ShouldRetry/HandleError.
type stubHandler struct {
	BaseHandler
	execute func(ctx context.Context, jc Context) ([]Result, error)
}

func (h *stubHandler) Execute(ctx context.Context, jc Context) ([]Result, error) {
	return h.execute(ctx, jc)
}

type fakeStore struct {
	mu      sync.Mutex
	updates map[uuid.UUID]StoreUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{updates: make(map[uuid.UUID]StoreUpdate)}
}

func (s *fakeStore) List(context.Context, StoreFilter) ([]Message, error) { return nil, nil }

func (s *fakeStore) Update(_ context.Context, id uuid.UUID, update StoreUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[id] = update
	return nil
}

func (s *fakeStore) Create(context.Context, Message) error { return nil }

func (s *fakeStore) get(id uuid.UUID) (StoreUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.updates[id]
	return u, ok
}

func newTestExecutor(t *testing.T, workerCount int, reg *Registry, dedup dedupConfig) (*Executor, *priorityQueue, *MetricsCollector, *DeadLetterQueue, *fakeStore) {
	t.Helper()
	log := logger.New("error")
	queue := newPriorityQueue(reg, dedup)
	metrics := NewMetricsCollector(0, nil)
	dlq := NewDeadLetterQueue(100)
	store := newFakeStore()
	exec := NewExecutor(log, queue, reg, metrics, dlq, store, workerCount)
	return exec, queue, metrics, dlq, store
}

func TestExecutorBasicRunSucceeds(t *testing.T) {
	log := logger.New("error")
	reg := NewRegistry(log, map[string]bool{})
	jobType := TypeOf("exec_basic")
	require.NoError(t, reg.Register(Metadata{Type: jobType, MaxRetries: 0, MaxConcurrent: 2, Priority: PriorityNormal}, func() Handler {
		return &stubHandler{execute: func(context.Context, Context) ([]Result, error) {
			return []Result{{Success: true, Message: "ok"}}, nil
		}}
	}))
	reg.Freeze()

	exec, queue, metrics, _, store := newTestExecutor(t, 2, reg, dedupConfig{})
	msgID := uuid.New()
	queue.enqueue(Message{ID: msgID, Type: "exec_basic"}, PriorityNormal)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec.Start(ctx)
	defer exec.Stop()

	require.Eventually(t, func() bool {
		u, ok := store.get(msgID)
		return ok && u.IsProcessed != nil && *u.IsProcessed
	}, 2*time.Second, 10*time.Millisecond)

	m, ok := metrics.GetMetrics(jobType)
	require.True(t, ok)
	assert.Equal(t, int64(1), m.Successful)
}

func TestExecutorRetryThenSucceeds(t *testing.T) {
	log := logger.New("error")
	reg := NewRegistry(log, map[string]bool{})
	jobType := TypeOf("exec_retry")
	var attempts int32
	require.NoError(t, reg.Register(Metadata{Type: jobType, MaxRetries: 2, RetryDelaySeconds: 0, MaxConcurrent: 1, Priority: PriorityNormal}, func() Handler {
		return &stubHandler{execute: func(context.Context, Context) ([]Result, error) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return nil, Transient(errors.New("temporary"))
			}
			return []Result{{Success: true}}, nil
		}}
	}))
	reg.Freeze()

	exec, queue, _, dlq, store := newTestExecutor(t, 1, reg, dedupConfig{})
	msgID := uuid.New()
	queue.enqueue(Message{ID: msgID, Type: "exec_retry"}, PriorityNormal)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec.Start(ctx)
	defer exec.Stop()

	require.Eventually(t, func() bool {
		u, ok := store.get(msgID)
		return ok && u.IsProcessed != nil && *u.IsProcessed
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Equal(t, 0, dlq.Count())
}

func TestExecutorDeadLettersPermanentFailure(t *testing.T) {
	log := logger.New("error")
	reg := NewRegistry(log, map[string]bool{})
	jobType := TypeOf("exec_dlq")
	require.NoError(t, reg.Register(Metadata{Type: jobType, MaxRetries: 0, MaxConcurrent: 1, Priority: PriorityNormal}, func() Handler {
		return &stubHandler{execute: func(context.Context, Context) ([]Result, error) {
			return nil, errors.New("permanent failure")
		}}
	}))
	reg.Freeze()

	exec, queue, _, dlq, _ := newTestExecutor(t, 1, reg, dedupConfig{})
	msgID := uuid.New()
	queue.enqueue(Message{ID: msgID, Type: "exec_dlq"}, PriorityNormal)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec.Start(ctx)
	defer exec.Stop()

	require.Eventually(t, func() bool {
		return dlq.Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	entries := dlq.List()
	require.Len(t, entries, 1)
	assert.Equal(t, msgID, entries[0].ID)
}

func TestExecutorConcurrencyCapEnforced(t *testing.T) {
	log := logger.New("error")
	reg := NewRegistry(log, map[string]bool{})
	jobType := TypeOf("exec_cap")
	var current, maxObserved int32
	require.NoError(t, reg.Register(Metadata{Type: jobType, MaxRetries: 0, MaxConcurrent: 1, Priority: PriorityNormal}, func() Handler {
		return &stubHandler{execute: func(context.Context, Context) ([]Result, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&maxObserved)
				if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return []Result{{Success: true}}, nil
		}}
	}))
	reg.Freeze()

	// Four workers race against a type capped at 1 concurrent execution.
	exec, queue, metrics, _, _ := newTestExecutor(t, 4, reg, dedupConfig{})
	for i := 0; i < 4; i++ {
		queue.enqueue(Message{ID: uuid.New(), Type: "exec_cap"}, PriorityNormal)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec.Start(ctx)
	defer exec.Stop()

	require.Eventually(t, func() bool {
		m, _ := metrics.GetMetrics(jobType)
		return m.Successful == 4
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxObserved))
}

func TestExecutorPriorityPreemptionEndToEnd(t *testing.T) {
	log := logger.New("error")
	reg := NewRegistry(log, map[string]bool{})
	jobType := TypeOf("exec_priority")
	var mu sync.Mutex
	var order []string
	require.NoError(t, reg.Register(Metadata{Type: jobType, MaxRetries: 0, MaxConcurrent: 1, Priority: PriorityNormal}, func() Handler {
		return &stubHandler{execute: func(_ context.Context, jc Context) ([]Result, error) {
			mu.Lock()
			order = append(order, jc.Message.Payload["label"].(string))
			mu.Unlock()
			return []Result{{Success: true}}, nil
		}}
	}))
	reg.Freeze()

	exec, queue, _, _, _ := newTestExecutor(t, 1, reg, dedupConfig{})
	queue.enqueue(Message{ID: uuid.New(), Type: "exec_priority", Payload: map[string]interface{}{"label": "low"}}, PriorityLow)
	queue.enqueue(Message{ID: uuid.New(), Type: "exec_priority", Payload: map[string]interface{}{"label": "critical"}}, PriorityCritical)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec.Start(ctx)
	defer exec.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 2)
	assert.Equal(t, "critical", order[0])
	assert.Equal(t, "low", order[1])
}

func TestExecutorDedupUnderAggressiveModeEndToEnd(t *testing.T) {
	log := logger.New("error")
	reg := NewRegistry(log, map[string]bool{})
	jobType := TypeOf("conversation_health_monitor")
	var runs int32
	require.NoError(t, reg.Register(Metadata{Type: jobType, MaxRetries: 0, MaxConcurrent: 1, Priority: PriorityMedium}, func() Handler {
		return &stubHandler{execute: func(context.Context, Context) ([]Result, error) {
			atomic.AddInt32(&runs, 1)
			time.Sleep(100 * time.Millisecond)
			return []Result{{Success: true}}, nil
		}}
	}))
	reg.Freeze()

	dedup := dedupConfig{
		enabled:    true,
		aggressive: true,
		monitoringJobTypes: map[string]struct{}{
			"conversation_health_monitor": {},
		},
	}
	exec, queue, _, _, _ := newTestExecutor(t, 2, reg, dedup)
	queue.enqueue(Message{ID: uuid.New(), Type: "conversation_health_monitor"}, PriorityMedium)
	queue.enqueue(Message{ID: uuid.New(), Type: "conversation_health_monitor"}, PriorityMedium) // dropped at enqueue time

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec.Start(ctx)
	defer exec.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}
