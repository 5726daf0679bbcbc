package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueMessage is the durable record backing jobs.Store: producers create
// rows here, the job engine lists unprocessed ones by type, and marks them
// processed with a result once a handler has run.
type QueueMessage struct {
	BaseModel
	Type           string     `gorm:"type:varchar(100);not null;index" json:"type"`
	Payload        JSON       `gorm:"type:jsonb" json:"payload"`
	ConversationID *uuid.UUID `gorm:"type:uuid;index" json:"conversation_id,omitempty"`
	TenantID       *uuid.UUID `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	IsProcessed    bool       `gorm:"not null;default:false;index" json:"is_processed"`
	Result         JSON       `gorm:"type:jsonb" json:"result,omitempty"`
}

// TableName sets the table name.
func (QueueMessage) TableName() string {
	return "queue_messages"
}

// BeforeCreate assigns a UUID and initializes JSON columns, matching the
// other models' gorm hooks.
func (q *QueueMessage) BeforeCreate(tx *gorm.DB) error {
	if q.Payload == nil {
		q.Payload = JSON{}
	}
	return q.BaseModel.BeforeCreate(tx)
}
