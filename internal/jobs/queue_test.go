package jobs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, meta Metadata) *Registry {
	t.Helper()
	reg := NewRegistry(nil, map[string]bool{})
	require.NoError(t, reg.Register(meta, func() Handler { return BaseHandler{} }))
	reg.Freeze()
	return reg
}

func TestPriorityQueueDequeuesHighestBandFirst(t *testing.T) {
	reg := newTestRegistry(t, Metadata{Type: TypeOf("sample"), MaxConcurrent: 5, MaxRetries: 1})
	q := newPriorityQueue(reg, dedupConfig{})

	lowID := uuid.New()
	criticalID := uuid.New()
	normalID := uuid.New()
	q.enqueue(Message{ID: lowID, Type: "sample"}, PriorityLow)
	q.enqueue(Message{ID: criticalID, Type: "sample"}, PriorityCritical)
	q.enqueue(Message{ID: normalID, Type: "sample"}, PriorityNormal)

	first := q.getNextJob()
	require.NotNil(t, first)
	assert.Equal(t, criticalID, first.id)
}

func TestPriorityQueueFIFOWithinBand(t *testing.T) {
	reg := newTestRegistry(t, Metadata{Type: TypeOf("sample"), MaxConcurrent: 5, MaxRetries: 1})
	q := newPriorityQueue(reg, dedupConfig{})

	first := Message{ID: uuid.New(), Type: "sample"}
	second := Message{ID: uuid.New(), Type: "sample"}
	q.enqueue(first, PriorityNormal)
	q.enqueue(second, PriorityNormal)

	got1 := q.getNextJob()
	got2 := q.getNextJob()
	require.NotNil(t, got1)
	require.NotNil(t, got2)
	assert.Equal(t, first.ID, got1.id)
	assert.Equal(t, second.ID, got2.id)
}

func TestPriorityQueueAggressiveDedupOnMonitoringType(t *testing.T) {
	reg := newTestRegistry(t, Metadata{Type: TypeOf("conversation_health_monitor"), MaxConcurrent: 1, MaxRetries: 1})
	dedup := dedupConfig{
		enabled:    true,
		aggressive: true,
		monitoringJobTypes: map[string]struct{}{
			"conversation_health_monitor": {},
		},
	}
	q := newPriorityQueue(reg, dedup)

	first := Message{ID: uuid.New(), Type: "conversation_health_monitor"}
	second := Message{ID: uuid.New(), Type: "conversation_health_monitor"}
	q.enqueue(first, PriorityMedium)
	q.enqueue(second, PriorityMedium) // should be silently dropped by enqueue-time dedup

	got := q.getNextJob()
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.id)

	// nothing else was admitted
	assert.Nil(t, q.getNextJob())
}

func TestPriorityQueueNoDedupForNonMonitoringType(t *testing.T) {
	reg := newTestRegistry(t, Metadata{Type: TypeOf("email"), MaxConcurrent: 5, MaxRetries: 1})
	dedup := dedupConfig{enabled: true, aggressive: true, monitoringJobTypes: map[string]struct{}{}}
	q := newPriorityQueue(reg, dedup)

	q.enqueue(Message{ID: uuid.New(), Type: "email"}, PriorityNormal)
	q.enqueue(Message{ID: uuid.New(), Type: "email"}, PriorityNormal)

	assert.NotNil(t, q.getNextJob())
	assert.NotNil(t, q.getNextJob())
}

func TestPriorityQueueAcquireSlotRespectsMaxConcurrent(t *testing.T) {
	reg := newTestRegistry(t, Metadata{Type: TypeOf("limited"), MaxConcurrent: 1, MaxRetries: 1})
	q := newPriorityQueue(reg, dedupConfig{})

	id1 := uuid.New()
	id2 := uuid.New()
	q.enqueue(Message{ID: id1, Type: "limited"}, PriorityNormal)
	q.enqueue(Message{ID: id2, Type: "limited"}, PriorityNormal)

	jobType := TypeOf("limited")
	assert.True(t, q.acquireSlot(jobType, id1))
	assert.False(t, q.acquireSlot(jobType, id2)) // at capacity, bounded wait times out

	q.releaseSlot(jobType, id1)
	assert.True(t, q.acquireSlot(jobType, id2))
}

func TestPriorityQueueReleaseSlotIdempotent(t *testing.T) {
	reg := newTestRegistry(t, Metadata{Type: TypeOf("idempotent"), MaxConcurrent: 2, MaxRetries: 1})
	q := newPriorityQueue(reg, dedupConfig{})
	id := uuid.New()
	q.enqueue(Message{ID: id, Type: "idempotent"}, PriorityNormal)

	jobType := TypeOf("idempotent")
	require.True(t, q.acquireSlot(jobType, id))
	q.releaseSlot(jobType, id)
	q.releaseSlot(jobType, id) // must not panic or double-release the semaphore
	assert.Equal(t, 0, q.runningCount(jobType))
}
