package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerOffer is a time-boxed price override for a seller's product.
type SellerOffer struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SellerID   uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID  uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	PricePaise int64      `gorm:"column:price_paise;not null"`
	Active     bool       `gorm:"column:active;not null;default:true"`
	StartsAt   *time.Time `gorm:"column:starts_at"`
	EndsAt     *time.Time `gorm:"column:ends_at"`
	UsedCount  int        `gorm:"column:used_count;not null;default:0"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
