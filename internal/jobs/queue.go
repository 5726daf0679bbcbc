package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// typeState holds everything the PriorityQueue mutates under a single
// JobType's lock: the active/pending id sets and the semaphore gating
// concurrent execution. No global queue lock guards these; cross-type
// operations only ever touch the band slice plus, on a match, the selected
// item's typeState.
type typeState struct {
	mu        sync.Mutex
	active    map[uuid.UUID]struct{}
	pending   map[uuid.UUID]struct{}
	sem       chan struct{}
	maxConcur int
}

func newTypeState(maxConcurrent int) *typeState {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &typeState{
		active:    make(map[uuid.UUID]struct{}),
		pending:   make(map[uuid.UUID]struct{}),
		sem:       make(chan struct{}, maxConcurrent),
		maxConcur: maxConcurrent,
	}
}

// dedupConfig carries the three flags plus monitoring-type set that make
// up the deduplication policy.
type dedupConfig struct {
	enabled             bool
	aggressive          bool
	stackingPrevention  bool
	monitoringJobTypes  map[string]struct{}
}

func (d dedupConfig) isMonitoring(t Type) bool {
	_, ok := d.monitoringJobTypes[t.String()]
	return ok
}

// priorityQueue is the composite queue owning the entire hot path: five
// FIFO bands, an executions table keyed by message id, and per-type
// state (active/pending sets + semaphore). The bands have no size limit;
// enqueue always appends.
type priorityQueue struct {
	registry *Registry
	dedup    dedupConfig

	bandsMu sync.Mutex
	bands   map[Priority][]uuid.UUID

	execMu sync.RWMutex
	execs  map[uuid.UUID]*execution

	typesMu sync.Mutex
	types   map[Type]*typeState
}

func newPriorityQueue(registry *Registry, dedup dedupConfig) *priorityQueue {
	bands := make(map[Priority][]uuid.UUID, len(priorityBands))
	for _, p := range priorityBands {
		bands[p] = nil
	}
	return &priorityQueue{
		registry: registry,
		dedup:    dedup,
		bands:    bands,
		execs:    make(map[uuid.UUID]*execution),
		types:    make(map[Type]*typeState),
	}
}

func (q *priorityQueue) stateFor(t Type, maxConcurrent int) *typeState {
	q.typesMu.Lock()
	defer q.typesMu.Unlock()
	st, ok := q.types[t]
	if !ok {
		st = newTypeState(maxConcurrent)
		q.types[t] = st
	}
	return st
}

// enqueue resolves msg's JobType, applies the enqueue-time dedup check, and
// on acceptance builds a PENDING execution and pushes it onto priority's
// band. A message whose execution is still tracked (a retry or a deferred
// dispatch) keeps its attempt count and retryAfter. Returns msg.ID unchanged
// whether or not it was actually enqueued.
func (q *priorityQueue) enqueue(msg Message, priority Priority) uuid.UUID {
	jobType := TypeOf(msg.Type)
	meta, _ := q.registry.GetMetadata(jobType)
	maxConcurrent := 1
	maxRetries := 0
	if meta != nil {
		maxConcurrent = meta.MaxConcurrent
		maxRetries = meta.MaxRetries
	}
	st := q.stateFor(jobType, maxConcurrent)

	if q.shouldDeduplicate(jobType, st) {
		return msg.ID
	}

	exec := newExecution(jobType, msg, maxRetries+1)

	q.execMu.Lock()
	if prev, ok := q.execs[msg.ID]; ok {
		exec.attempt = prev.attempt
		exec.retryAfter = prev.retryAfter
	}
	q.execs[msg.ID] = exec
	q.execMu.Unlock()

	st.mu.Lock()
	st.pending[msg.ID] = struct{}{}
	st.mu.Unlock()

	q.bandsMu.Lock()
	q.bands[priority] = append(q.bands[priority], msg.ID)
	q.bandsMu.Unlock()

	return msg.ID
}

// shouldDeduplicate implements the enqueue-time half of the deduplication
// policy.
func (q *priorityQueue) shouldDeduplicate(jobType Type, st *typeState) bool {
	if !q.dedup.enabled {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if q.dedup.aggressive && q.dedup.isMonitoring(jobType) && (len(st.active) > 0 || len(st.pending) > 0) {
		return true
	}
	return false
}

// finalExecutionCheck implements the dequeue-time half: even if an item made
// it onto the band, a duplicate instance may have started running since.
func (q *priorityQueue) finalExecutionCheck(exec *execution, st *typeState) bool {
	if !q.dedup.stackingPrevention {
		return true
	}
	if !q.dedup.isMonitoring(exec.jobType) {
		return true
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.active) > 0 {
		return false
	}
	return true
}

// getNextJob iterates bands CRITICAL->LOW and pops the first FIFO item that
// survives finalExecutionCheck. Returns nil if every band is empty or every
// candidate was rejected.
func (q *priorityQueue) getNextJob() *execution {
	for _, band := range priorityBands {
		for {
			id, ok := q.popBand(band)
			if !ok {
				break // band exhausted, move to the next priority
			}

			q.execMu.RLock()
			exec := q.execs[id]
			q.execMu.RUnlock()
			if exec == nil {
				continue
			}

			st := q.stateFor(exec.jobType, exec.maxAttempts)
			if !q.finalExecutionCheck(exec, st) {
				q.discardPending(exec.id, st)
				continue
			}

			st.mu.Lock()
			delete(st.pending, exec.id)
			st.mu.Unlock()
			return exec
		}
	}
	return nil
}

func (q *priorityQueue) popBand(p Priority) (uuid.UUID, bool) {
	q.bandsMu.Lock()
	defer q.bandsMu.Unlock()
	ids := q.bands[p]
	if len(ids) == 0 {
		return uuid.Nil, false
	}
	id := ids[0]
	q.bands[p] = ids[1:]
	return id, true
}

func (q *priorityQueue) discardPending(id uuid.UUID, st *typeState) {
	st.mu.Lock()
	delete(st.pending, id)
	st.mu.Unlock()
	q.execMu.Lock()
	delete(q.execs, id)
	q.execMu.Unlock()
}

// acquireSlot makes a bounded (~100ms) attempt to acquire jobType's
// semaphore. On success id is recorded in activeIds. The caller must
// re-enqueue exec.message at metadata.priority on failure, without bumping
// its attempt count.
func (q *priorityQueue) acquireSlot(jobType Type, id uuid.UUID) bool {
	st := q.stateForExisting(jobType)
	if st == nil {
		return false
	}
	select {
	case st.sem <- struct{}{}:
		st.mu.Lock()
		st.active[id] = struct{}{}
		st.mu.Unlock()
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func (q *priorityQueue) stateForExisting(jobType Type) *typeState {
	q.typesMu.Lock()
	defer q.typesMu.Unlock()
	return q.types[jobType]
}

// releaseSlot releases jobType's semaphore and erases id from both sets.
// Idempotent: calling it for an id not currently held is a no-op.
func (q *priorityQueue) releaseSlot(jobType Type, id uuid.UUID) {
	st := q.stateForExisting(jobType)
	if st == nil {
		return
	}
	st.mu.Lock()
	_, wasActive := st.active[id]
	delete(st.active, id)
	delete(st.pending, id)
	st.mu.Unlock()
	if wasActive {
		<-st.sem
	}
}

// runningCount returns the number of ids currently held in jobType's active
// set — the value invariant 1 and MetricsCollector.currentRunning must agree
// on.
func (q *priorityQueue) runningCount(jobType Type) int {
	st := q.stateForExisting(jobType)
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.active)
}

// pendingCount returns the number of ids currently queued (not yet
// dispatched) for jobType.
func (q *priorityQueue) pendingCount(jobType Type) int {
	st := q.stateForExisting(jobType)
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.pending)
}

// updateExecution mutates fields on the in-memory execution by id. Returns
// false if no such execution is tracked.
func (q *priorityQueue) updateExecution(id uuid.UUID, fn func(*execution)) bool {
	q.execMu.Lock()
	defer q.execMu.Unlock()
	exec, ok := q.execs[id]
	if !ok {
		return false
	}
	fn(exec)
	return true
}

func (q *priorityQueue) getExecution(id uuid.UUID) (*execution, bool) {
	q.execMu.RLock()
	defer q.execMu.RUnlock()
	exec, ok := q.execs[id]
	return exec, ok
}

func (q *priorityQueue) forgetExecution(id uuid.UUID) {
	q.execMu.Lock()
	delete(q.execs, id)
	q.execMu.Unlock()
}

// totals returns the aggregate active/pending counts across every known
// JobType, for the control surface's getExecutorStats.
func (q *priorityQueue) totals() (active, pending int) {
	q.typesMu.Lock()
	states := make([]*typeState, 0, len(q.types))
	for _, st := range q.types {
		states = append(states, st)
	}
	q.typesMu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		active += len(st.active)
		pending += len(st.pending)
		st.mu.Unlock()
	}
	return active, pending
}
