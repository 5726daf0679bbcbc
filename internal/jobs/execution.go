package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Status is a JobExecution's position in the lifecycle graph. The only
// legal transitions are RUNNING->COMPLETED|FAILED, FAILED->RETRYING|
// DEAD_LETTER, RETRYING->PENDING (via re-enqueue).
type Status string

const (
	StatusPending    Status = "pending"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRetrying   Status = "retrying"
	StatusDeadLetter Status = "dead_letter"
)

// execution is the runtime shadow of a Message while the engine owns it.
// Package-private: callers observe it only through Executor/Queue stats.
type execution struct {
	id      uuid.UUID
	jobType Type
	message Message

	status      Status
	attempt     int // 1-based: first attempt is 1
	maxAttempts int

	startedAt   *time.Time
	completedAt *time.Time
	retryAfter  *time.Time

	lastError error
	results   []Result
}

func newExecution(jobType Type, msg Message, maxAttempts int) *execution {
	return &execution{
		id:          msg.ID,
		jobType:     jobType,
		message:     msg,
		status:      StatusPending,
		attempt:     1,
		maxAttempts: maxAttempts,
	}
}
