package handlers

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pytake/pytake-go/internal/database/models"
	"github.com/pytake/pytake-go/internal/jobs"
)

// CleanupPayload configures a retention sweep, trimmed to the one target
// this job engine actually owns: processed queue messages.
type CleanupPayload struct {
	OlderThan string `json:"older_than"` // e.g. "7d", "24h"
	BatchSize int    `json:"batch_size"`
	DryRun    bool   `json:"dry_run"`
}

// CleanupHandler deletes processed queue_messages rows past their
// retention window; it has only this gorm-backed table to sweep.
type CleanupHandler struct {
	jobs.BaseHandler
	db            *gorm.DB
	dlq           *jobs.DeadLetterQueue
	defaultMaxAge time.Duration
}

// NewCleanupHandler returns a factory suitable for jobs.RegisterJob.
// defaultMaxAge is used when the triggering payload omits older_than; zero
// defaults to 30 days.
func NewCleanupHandler(db *gorm.DB, dlq *jobs.DeadLetterQueue, defaultMaxAge time.Duration) jobs.HandlerFactory {
	if defaultMaxAge <= 0 {
		defaultMaxAge = 30 * 24 * time.Hour
	}
	return func() jobs.Handler {
		return &CleanupHandler{db: db, dlq: dlq, defaultMaxAge: defaultMaxAge}
	}
}

func (h *CleanupHandler) Execute(ctx context.Context, jc jobs.Context) ([]jobs.Result, error) {
	payload, err := decodeCleanupPayload(jc.Message.Payload)
	if err != nil {
		return nil, err
	}

	maxAge := h.defaultMaxAge
	if payload.OlderThan != "" {
		d, err := parseRetention(payload.OlderThan)
		if err != nil {
			return nil, fmt.Errorf("cleanup: invalid older_than: %w", err)
		}
		maxAge = d
	}
	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	cutoff := time.Now().Add(-maxAge)

	var deleted int64
	if payload.DryRun {
		if err := h.db.WithContext(ctx).Model(&models.QueueMessage{}).
			Where("is_processed = ? AND updated_at < ?", true, cutoff).
			Count(&deleted).Error; err != nil {
			return nil, jobs.Transient(fmt.Errorf("cleanup: count: %w", err))
		}
	} else {
		tx := h.db.WithContext(ctx).
			Where("is_processed = ? AND updated_at < ?", true, cutoff).
			Limit(batchSize).
			Delete(&models.QueueMessage{})
		if tx.Error != nil {
			return nil, jobs.Transient(fmt.Errorf("cleanup: delete: %w", tx.Error))
		}
		deleted = tx.RowsAffected
	}

	return []jobs.Result{{
		Success: true,
		Message: "cleanup completed",
		Data: map[string]interface{}{
			"completed_at":  time.Now(),
			"cutoff":        cutoff,
			"deleted_count": deleted,
			"dead_letters":  h.dlq.Count(),
			"dry_run":       payload.DryRun,
		},
	}}, nil
}

func decodeCleanupPayload(raw map[string]interface{}) (CleanupPayload, error) {
	var p CleanupPayload
	if err := decodeInto(raw, &p); err != nil {
		return p, fmt.Errorf("cleanup: invalid payload: %w", err)
	}
	return p, nil
}

// parseRetention parses "Nd" in addition to every unit time.ParseDuration
// already accepts, e.g. "7d" or "30d".
func parseRetention(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if s[len(s)-1] == 'd' {
		hours, err := time.ParseDuration(s[:len(s)-1] + "h")
		if err != nil {
			return 0, err
		}
		return hours * 24, nil
	}
	return time.ParseDuration(s)
}
