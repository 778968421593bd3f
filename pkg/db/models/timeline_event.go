package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/enums"
)

// TimelineEvent is an append-only entry in an order's history.
type TimelineEvent struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Event     enums.TimelineEvent `gorm:"column:event;type:text;not null"`
	ActorRole enums.ActorRole     `gorm:"column:actor_role;type:text;not null"`
	ActorID   *uuid.UUID          `gorm:"column:actor_id;type:uuid"`
	Metadata  json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
