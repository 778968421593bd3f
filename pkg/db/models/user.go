package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/enums"
	"github.com/brandcart/brandcart-backend/pkg/types"
)

// User holds both buyer and seller state. Seller-only columns are zero for
// buyers and vice versa.
type User struct {
	ID    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Role  string    `gorm:"column:role;not null;default:'buyer'"`
	Name  string    `gorm:"column:name"`
	Email string    `gorm:"column:email;uniqueIndex"`
	Phone string    `gorm:"column:phone"`

	SellerStatus     enums.SellerStatus      `gorm:"column:seller_status;type:text;not null;default:'pending'"`
	FrozenReason     *string                 `gorm:"column:frozen_reason"`
	FrozenAt         *time.Time              `gorm:"column:frozen_at"`
	Tier             enums.SellerTier        `gorm:"column:tier;type:text;not null;default:'standard'"`
	CommissionPct    float64                 `gorm:"column:commission_pct;not null;default:8"`
	SettlementHours  int                     `gorm:"column:settlement_hours;not null;default:72"`
	Trust            types.TrustSnapshot     `gorm:"column:trust;type:jsonb;serializer:json"`
	Probation        *types.Probation        `gorm:"column:probation;type:jsonb;serializer:json"`
	CODEnabled       bool                    `gorm:"column:cod_enabled;not null;default:true"`
	ServiceableAreas []types.ServiceableArea `gorm:"column:serviceable_areas;type:jsonb;serializer:json"`
	OrdersToday      int                     `gorm:"column:orders_today;not null;default:0"`
	CODOrdersToday   int                     `gorm:"column:cod_orders_today;not null;default:0"`

	BuyerRisk types.BuyerRisk `gorm:"column:buyer_risk;type:jsonb;serializer:json"`
	Addresses []types.Address `gorm:"column:addresses;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
