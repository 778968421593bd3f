package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	"github.com/brandcart/brandcart-backend/pkg/types"
)

// Repository exposes user persistence operations for both buyer and seller
// sides of an account.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
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

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateTrust persists the recomputed trust snapshot alongside the tier
// outputs it determined. The write goes through the model struct: map-style
// updates skip the json serializer on the trust column.
func (r *Repository) UpdateTrust(ctx context.Context, id uuid.UUID, trust types.TrustSnapshot, tier enums.SellerTier, commissionPct float64, settlementHours int) error {
	return r.db.WithContext(ctx).
		Model(&models.User{ID: id}).
		Select("trust", "tier", "commission_pct", "settlement_hours").
		Updates(&models.User{
			Trust:           trust,
			Tier:            tier,
			CommissionPct:   commissionPct,
			SettlementHours: settlementHours,
		}).Error
}

// FreezeSeller flips a verified seller to frozen. The status guard makes the
// call idempotent.
func (r *Repository) FreezeSeller(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND seller_status = ?", id, enums.SellerStatusVerified).
		Updates(map[string]any{
			"seller_status": enums.SellerStatusFrozen,
			"frozen_reason": reason,
			"frozen_at":     at,
		})
	return result.RowsAffected > 0, result.Error
}

// UpdateBuyerRisk overwrites the buyer risk block. Struct-based for the same
// serializer reason as UpdateTrust.
func (r *Repository) UpdateBuyerRisk(ctx context.Context, id uuid.UUID, risk types.BuyerRisk) error {
	return r.db.WithContext(ctx).
		Model(&models.User{ID: id}).
		Select("buyer_risk").
		Updates(&models.User{BuyerRisk: risk}).Error
}

// DeactivateProbation clears an expired probation window.
func (r *Repository) DeactivateProbation(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("probation", nil).Error
}

// ListExpiredProbations returns sellers whose probation window has passed.
func (r *Repository) ListExpiredProbations(ctx context.Context, now time.Time, limit int) ([]models.User, error) {
	var sellers []models.User
	query := r.db.WithContext(ctx).
		Where("probation IS NOT NULL").
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sellers).Error; err != nil {
		return nil, err
	}
	// Probation lives in a JSON column, so the expiry filter happens here.
	expired := sellers[:0]
	for _, seller := range sellers {
		p := seller.Probation
		if p == nil || !p.Active {
			continue
		}
		if p.EndsAt != nil && p.EndsAt.Before(now) {
			expired = append(expired, seller)
		}
	}
	return expired, nil
}
