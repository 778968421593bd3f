package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/enums"
)

// IdempotencyRecord reserves an operation slot for a (key, scope) pair. The
// unique index is the race arbiter: the first insert wins, everyone else
// reads the winner's outcome.
type IdempotencyRecord struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Key         string                  `gorm:"column:key;not null;uniqueIndex:idx_idempotency_key_scope"`
	Scope       string                  `gorm:"column:scope;not null;uniqueIndex:idx_idempotency_key_scope"`
	Status      enums.IdempotencyStatus `gorm:"column:status;type:text;not null;default:'reserved'"`
	Response    json.RawMessage         `gorm:"column:response;type:jsonb"`
	FailReason  *string                 `gorm:"column:fail_reason"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt *time.Time              `gorm:"column:completed_at"`
}
