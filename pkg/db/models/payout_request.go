package models

import (
	"time"

	"github.com/google/uuid"
)

// PayoutRequest correlates a seller payout with the bank provider's objects.
type PayoutRequest struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID      uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	AmountPaise   int64     `gorm:"column:amount_paise;not null"`
	Status        string    `gorm:"column:status;not null;default:'initiated'"`
	Emergency     bool      `gorm:"column:emergency;not null;default:false"`
	ContactID     *string   `gorm:"column:contact_id"`
	FundAccountID *string   `gorm:"column:fund_account_id"`
	PayoutID      *string   `gorm:"column:payout_id"`
	PayoutStatus  *string   `gorm:"column:payout_status"`
	FailureReason *string   `gorm:"column:failure_reason"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
