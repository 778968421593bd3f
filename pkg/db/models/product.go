package models

import (
	"time"

	"github.com/google/uuid"
)

// Product tracks sellable inventory. Stock and reserved stock only move
// through conditional updates so they can never go negative.
type Product struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID      uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Title         string    `gorm:"column:title;not null"`
	Description   string    `gorm:"column:description"`
	PricePaise    int64     `gorm:"column:price_paise;not null"`
	Stock         int       `gorm:"column:stock;not null;default:0"`
	ReservedStock int       `gorm:"column:reserved_stock;not null;default:0"`
	Active        bool      `gorm:"column:active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
