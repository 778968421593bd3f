package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/enums"
)

// WalletLedgerEntry records an immutable money movement on a seller wallet.
// Rows are append-only; corrections are offsetting appends.
type WalletLedgerEntry struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	SellerID    uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	OrderID     *uuid.UUID           `gorm:"column:order_id;type:uuid;index"`
	Type        enums.LedgerEntryType `gorm:"column:type;type:text;not null"`
	CreditPaise int64                `gorm:"column:credit_paise;not null;default:0"`
	DebitPaise  int64                `gorm:"column:debit_paise;not null;default:0"`
	Reason      string               `gorm:"column:reason"`
	Metadata    json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
