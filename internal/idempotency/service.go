package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
)

// A reservation older than this that never completed is considered abandoned
// and may be taken over.
const staleReservationAge = 10 * time.Minute

// RetentionAge is how long finished records are kept before the sweep
// deletes them.
const RetentionAge = 24 * time.Hour

// Outcome tells the caller what to do after Reserve.
type Outcome int

const (
	// OutcomeProceed means this caller owns the reservation and must run
	// the operation.
	OutcomeProceed Outcome = iota
	// OutcomeCompleted means a previous call finished; the stored response
	// must be returned verbatim.
	OutcomeCompleted
	// OutcomeInFlight means another caller holds a fresh reservation.
	OutcomeInFlight
)

// Reservation is the result of a Reserve call.
type Reservation struct {
	Outcome  Outcome
	Response json.RawMessage
}

// Service coordinates exactly-once request execution through persisted
// (key, scope) records. The unique index arbitrates races: losers read the
// winner's record instead of re-running the operation.
type Service interface {
	Reserve(ctx context.Context, key, scope string) (*Reservation, error)
	Complete(ctx context.Context, key, scope string, response json.RawMessage) error
	Fail(ctx context.Context, key, scope, reason string) error
	Clear(ctx context.Context, key, scope string) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService wires the coordinator against the shared database.
func NewService(db *gorm.DB, now func() time.Time) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("idempotency db handle required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{db: db, now: now}, nil
}

func validateKeyScope(key, scope string) error {
	if strings.TrimSpace(key) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if strings.TrimSpace(scope) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency scope is required")
	}
	return nil
}

func (s *service) Reserve(ctx context.Context, key, scope string) (*Reservation, error) {
	if err := validateKeyScope(key, scope); err != nil {
		return nil, err
	}

	record := &models.IdempotencyRecord{
		ID:     uuid.New(),
		Key:    key,
		Scope:  scope,
		Status: enums.IdempotencyStatusReserved,
	}
	err := s.db.WithContext(ctx).Create(record).Error
	if err == nil {
		return &Reservation{Outcome: OutcomeProceed}, nil
	}

	// Insert lost the race or the record already existed; read the winner.
	var existing models.IdempotencyRecord
	if lookupErr := s.db.WithContext(ctx).
		Where("key = ? AND scope = ?", key, scope).
		First(&existing).Error; lookupErr != nil {
		return nil, fmt.Errorf("reserving idempotency slot: %w", err)
	}

	switch existing.Status {
	case enums.IdempotencyStatusCompleted:
		return &Reservation{Outcome: OutcomeCompleted, Response: existing.Response}, nil
	case enums.IdempotencyStatusFailed:
		if took, terr := s.takeOver(ctx, key, scope, enums.IdempotencyStatusFailed, time.Time{}); terr != nil {
			return nil, terr
		} else if took {
			return &Reservation{Outcome: OutcomeProceed}, nil
		}
		return &Reservation{Outcome: OutcomeInFlight}, nil
	default:
		cutoff := s.now().Add(-staleReservationAge)
		if existing.UpdatedAt.Before(cutoff) {
			if took, terr := s.takeOver(ctx, key, scope, enums.IdempotencyStatusReserved, cutoff); terr != nil {
				return nil, terr
			} else if took {
				return &Reservation{Outcome: OutcomeProceed}, nil
			}
		}
		return &Reservation{Outcome: OutcomeInFlight}, nil
	}
}

// takeOver atomically re-reserves a failed or stale record. The conditional
// update guarantees only one caller wins.
func (s *service) takeOver(ctx context.Context, key, scope string, fromStatus enums.IdempotencyStatus, staleBefore time.Time) (bool, error) {
	query := s.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("key = ? AND scope = ? AND status = ?", key, scope, fromStatus)
	if !staleBefore.IsZero() {
		query = query.Where("updated_at < ?", staleBefore)
	}
	result := query.Updates(map[string]any{
		"status":      enums.IdempotencyStatusReserved,
		"fail_reason": nil,
		"updated_at":  s.now(),
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *service) Complete(ctx context.Context, key, scope string, response json.RawMessage) error {
	if err := validateKeyScope(key, scope); err != nil {
		return err
	}
	now := s.now()
	result := s.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("key = ? AND scope = ? AND status = ?", key, scope, enums.IdempotencyStatusReserved).
		Updates(map[string]any{
			"status":       enums.IdempotencyStatusCompleted,
			"response":     response,
			"completed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no reserved idempotency record to complete")
	}
	return nil
}

func (s *service) Fail(ctx context.Context, key, scope, reason string) error {
	if err := validateKeyScope(key, scope); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("key = ? AND scope = ? AND status = ?", key, scope, enums.IdempotencyStatusReserved).
		Updates(map[string]any{
			"status":      enums.IdempotencyStatusFailed,
			"fail_reason": reason,
			"updated_at":  s.now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no reserved idempotency record to fail")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, key, scope string) error {
	if err := validateKeyScope(key, scope); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("key = ? AND scope = ? AND status = ?", key, scope, enums.IdempotencyStatusReserved).
		Delete(&models.IdempotencyRecord{}).Error
}

func (s *service) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.IdempotencyRecord{})
	return result.RowsAffected, result.Error
}
