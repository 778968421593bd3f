package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
)

// Repository persists payout requests and their provider correlation ids.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.PayoutRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	FindByPayoutID(ctx context.Context, payoutID string) (*models.PayoutRequest, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	UpdateWhereStatus(ctx context.Context, id uuid.UUID, from []string, fields map[string]any) (bool, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayoutRequest, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.PayoutRequest) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return fmt.Errorf("creating payout request: %w", err)
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var request models.PayoutRequest
	err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading payout request: %w", err)
	}
	return &request, nil
}

func (r *repository) FindByPayoutID(ctx context.Context, payoutID string) (*models.PayoutRequest, error) {
	var request models.PayoutRequest
	err := r.db.WithContext(ctx).First(&request, "payout_id = ?", payoutID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading payout request: %w", err)
	}
	return &request, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if err := r.db.WithContext(ctx).Model(&models.PayoutRequest{}).
		Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("updating payout request: %w", err)
	}
	return nil
}

// UpdateWhereStatus flips the request only when its current status is one of
// from; the RowsAffected count tells the caller whether it won.
func (r *repository) UpdateWhereStatus(ctx context.Context, id uuid.UUID, from []string, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PayoutRequest{}).
		Where("id = ? AND status IN ?", id, from).Updates(fields)
	if result.Error != nil {
		return false, fmt.Errorf("updating payout request status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.PayoutRequest, error) {
	var requests []models.PayoutRequest
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("listing payout requests: %w", err)
	}
	return requests, nil
}
