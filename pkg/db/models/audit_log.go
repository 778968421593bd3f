package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/enums"
)

// AuditLog records privileged or money-affecting actions. Append-only.
type AuditLog struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ActorRole enums.ActorRole `gorm:"column:actor_role;type:text;not null"`
	ActorID   *uuid.UUID      `gorm:"column:actor_id;type:uuid"`
	Action    string          `gorm:"column:action;not null"`
	Metadata  json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
