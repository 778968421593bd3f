package products

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
)

// Repository exposes product and offer reads for order creation. Stock
// mutation lives in the inventory service, not here.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a products repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a product by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindOffer loads an offer by its UUID.
func (r *Repository) FindOffer(ctx context.Context, id uuid.UUID) (*models.SellerOffer, error) {
	var offer models.SellerOffer
	if err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// OfferApplies reports whether the offer is active, belongs to the given
// seller and product, and is inside its time window.
func OfferApplies(offer *models.SellerOffer, sellerID, productID uuid.UUID, now time.Time) bool {
	if offer == nil || !offer.Active {
		return false
	}
	if offer.SellerID != sellerID || offer.ProductID != productID {
		return false
	}
	if offer.StartsAt != nil && now.Before(*offer.StartsAt) {
		return false
	}
	if offer.EndsAt != nil && now.After(*offer.EndsAt) {
		return false
	}
	return true
}

// IncrementOfferUsage bumps the offer's used counter after a successful
// order creation.
func (r *Repository) IncrementOfferUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerOffer{}).
		Where("id = ?", id).
		Update("used_count", gorm.Expr("used_count + 1")).Error
}
