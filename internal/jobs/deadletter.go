package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DeadLetterEntry is a quarantined execution retained for operator
// inspection via the control surface.
type DeadLetterEntry struct {
	ID        uuid.UUID
	JobType   Type
	Attempt   int
	Error     string
	Message   Message
	Results   []Result
	DeadAt    time.Time
}

// DeadLetterQueue is a bounded in-memory map, oldest evicted on overflow.
// Persisting the DLQ across restarts is out of scope; the external store
// remains the durable record.
type DeadLetterQueue struct {
	mu       sync.Mutex
	capacity int
	order    []uuid.UUID
	entries  map[uuid.UUID]DeadLetterEntry
}

// NewDeadLetterQueue builds a DLQ bounded at capacity entries.
func NewDeadLetterQueue(capacity int) *DeadLetterQueue {
	if capacity <= 0 {
		capacity = 10000
	}
	return &DeadLetterQueue{
		capacity: capacity,
		entries:  make(map[uuid.UUID]DeadLetterEntry),
	}
}

// Add quarantines entry, evicting the oldest one if the DLQ is at capacity.
func (d *DeadLetterQueue) Add(entry DeadLetterEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.entries[entry.ID]; !exists {
		if len(d.order) >= d.capacity {
			oldest := d.order[0]
			d.order = d.order[1:]
			delete(d.entries, oldest)
		}
		d.order = append(d.order, entry.ID)
	}
	d.entries[entry.ID] = entry
}

// List returns a snapshot of every entry currently quarantined.
func (d *DeadLetterQueue) List() []DeadLetterEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DeadLetterEntry, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.entries[id])
	}
	return out
}

// Remove drops id from the DLQ, e.g. after an operator-initiated redrive.
func (d *DeadLetterQueue) Remove(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[id]; !ok {
		return
	}
	delete(d.entries, id)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of quarantined entries.
func (d *DeadLetterQueue) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
