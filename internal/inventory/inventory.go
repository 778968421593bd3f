package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
)

// Service moves product stock between available and reserved. Every
// operation is a single conditional UPDATE; a zero row count means the guard
// failed, never that the row was clamped.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Reserve(ctx context.Context, productID uuid.UUID, qty int) error
	Release(ctx context.Context, productID uuid.UUID, qty int) error
	CommitDeliveryRelease(ctx context.Context, productID uuid.UUID, qty int) error
}

type service struct {
	db *gorm.DB
}

// NewService binds the stock manager to the provided database handle.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("inventory db handle required")
	}
	return &service{db: db}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{db: tx}
}

func validateQty(productID uuid.UUID, qty int) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

// Reserve moves qty units from available stock into the reserved pool.
func (s *service) Reserve(ctx context.Context, productID uuid.UUID, qty int) error {
	if err := validateQty(productID, qty); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]any{
			"stock":          gorm.Expr("stock - ?", qty),
			"reserved_stock": gorm.Expr("reserved_stock + ?", qty),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{"product_id": productID, "qty": qty})
	}
	return nil
}

// Release returns qty reserved units to available stock (cancellation, RTO,
// payment timeout).
func (s *service) Release(ctx context.Context, productID uuid.UUID, qty int) error {
	if err := validateQty(productID, qty); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND reserved_stock >= ?", productID, qty).
		Updates(map[string]any{
			"stock":          gorm.Expr("stock + ?", qty),
			"reserved_stock": gorm.Expr("reserved_stock - ?", qty),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeCorruptState,
			fmt.Sprintf("reserved stock underflow releasing %d units of product %s", qty, productID))
	}
	return nil
}

// CommitDeliveryRelease burns qty reserved units on delivery: the goods left
// the warehouse, so only the reserved pool shrinks.
func (s *service) CommitDeliveryRelease(ctx context.Context, productID uuid.UUID, qty int) error {
	if err := validateQty(productID, qty); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND reserved_stock >= ?", productID, qty).
		Update("reserved_stock", gorm.Expr("reserved_stock - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeCorruptState,
			fmt.Sprintf("reserved stock underflow committing %d units of product %s", qty, productID))
	}
	return nil
}
