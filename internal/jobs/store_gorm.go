package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pytake/pytake-go/internal/database/models"
)

// GormStore implements Store over internal/database/models.QueueMessage,
// persisting through the same gorm.DB connection every other service in
// this module uses.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db as a jobs.Store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// List returns messages matching filter, ordered oldest-first so FIFO
// producers aren't starved by newer submissions.
func (s *GormStore) List(ctx context.Context, filter StoreFilter) ([]Message, error) {
	q := s.db.WithContext(ctx).Model(&models.QueueMessage{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.IsProcessed != nil {
		q = q.Where("is_processed = ?", *filter.IsProcessed)
	}

	var rows []models.QueueMessage
	if err := q.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("jobs: list queue messages: %w", err)
	}

	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromModel(r))
	}
	return out, nil
}

// Update applies update's non-nil fields to the message identified by id.
func (s *GormStore) Update(ctx context.Context, id uuid.UUID, update StoreUpdate) error {
	fields := map[string]interface{}{}
	if update.IsProcessed != nil {
		fields["is_processed"] = *update.IsProcessed
	}
	if update.Result != nil {
		fields["result"] = models.JSON(update.Result)
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&models.QueueMessage{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("jobs: update queue message %s: %w", id, err)
	}
	return nil
}

// Create inserts msg as a new row, used by handlers that enqueue follow-up
// work.
func (s *GormStore) Create(ctx context.Context, msg Message) error {
	row := toModel(msg)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("jobs: create queue message: %w", err)
	}
	return nil
}

func fromModel(r models.QueueMessage) Message {
	return Message{
		ID:             r.ID,
		Type:           r.Type,
		Payload:        map[string]interface{}(r.Payload),
		ConversationID: r.ConversationID,
		TenantID:       r.TenantID,
		IsProcessed:    r.IsProcessed,
		Result:         map[string]interface{}(r.Result),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toModel(m Message) models.QueueMessage {
	row := models.QueueMessage{
		Type:           m.Type,
		Payload:        models.JSON(m.Payload),
		ConversationID: m.ConversationID,
		TenantID:       m.TenantID,
		IsProcessed:    m.IsProcessed,
		Result:         models.JSON(m.Result),
	}
	if m.ID != uuid.Nil {
		row.ID = m.ID
	}
	return row
}
