package timeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
)

// Service records append-only order timeline events and audit log entries.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordOrderEvent(ctx context.Context, orderID uuid.UUID, event enums.TimelineEvent, actorRole enums.ActorRole, actorID *uuid.UUID, metadata json.RawMessage) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.TimelineEvent, error)
	LogAudit(ctx context.Context, actorRole enums.ActorRole, actorID *uuid.UUID, action string, metadata json.RawMessage) error
}

type service struct {
	db *gorm.DB
}

// NewService binds the recorder to the provided database handle.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("timeline db handle required")
	}
	return &service{db: db}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{db: tx}
}

func (s *service) RecordOrderEvent(ctx context.Context, orderID uuid.UUID, event enums.TimelineEvent, actorRole enums.ActorRole, actorID *uuid.UUID, metadata json.RawMessage) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if event == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "timeline event is required")
	}
	entry := &models.TimelineEvent{
		ID:        uuid.New(),
		OrderID:   orderID,
		Event:     event,
		ActorRole: actorRole,
		ActorID:   actorID,
		Metadata:  metadata,
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.TimelineEvent, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var events []models.TimelineEvent
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *service) LogAudit(ctx context.Context, actorRole enums.ActorRole, actorID *uuid.UUID, action string, metadata json.RawMessage) error {
	if action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit action is required")
	}
	entry := &models.AuditLog{
		ID:        uuid.New(),
		ActorRole: actorRole,
		ActorID:   actorID,
		Action:    action,
		Metadata:  metadata,
	}
	return s.db.WithContext(ctx).Create(entry).Error
}
