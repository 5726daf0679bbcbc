package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is the durable record of a pending unit of work, owned by the
// external store. The engine treats Payload and Result as opaque.
type Message struct {
	ID      uuid.UUID
	Type    string
	Payload map[string]interface{}

	// Correlation fields some handlers key off of; the engine never reads
	// them.
	ConversationID *uuid.UUID
	TenantID       *uuid.UUID

	IsProcessed bool
	Result      map[string]interface{}

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoreFilter narrows Store.List to messages of one type and processed
// state.
type StoreFilter struct {
	Type        string
	IsProcessed *bool
}

// StoreUpdate carries the fields Executor.runOne writes back after an
// attempt. Nil fields are left untouched.
type StoreUpdate struct {
	IsProcessed *bool
	Result      map[string]interface{}
}

// Store is the consumed QueueMessageStore collaborator. List may be
// eventually consistent; Update/Create assume strong read-your-writes for a
// single message id.
type Store interface {
	List(ctx context.Context, filter StoreFilter) ([]Message, error)
	Update(ctx context.Context, id uuid.UUID, update StoreUpdate) error
	Create(ctx context.Context, msg Message) error
}
