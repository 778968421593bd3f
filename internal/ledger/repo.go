package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
)

// Repository manages persistence for wallet ledger entries. There is no
// update or delete surface: the ledger is append-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.WalletLedgerEntry) error
	ListBySellerID(ctx context.Context, sellerID uuid.UUID) ([]models.WalletLedgerEntry, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.WalletLedgerEntry, error)
	SumBySeller(ctx context.Context, sellerID uuid.UUID) (creditPaise, debitPaise int64, err error)
	SumBySellerAndTypes(ctx context.Context, sellerID uuid.UUID, types []enums.LedgerEntryType) (creditPaise, debitPaise int64, err error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.WalletLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListBySellerID(ctx context.Context, sellerID uuid.UUID) ([]models.WalletLedgerEntry, error) {
	var entries []models.WalletLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.WalletLedgerEntry, error) {
	var entries []models.WalletLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

type ledgerSums struct {
	CreditPaise int64
	DebitPaise  int64
}

func (r *repository) SumBySeller(ctx context.Context, sellerID uuid.UUID) (int64, int64, error) {
	var sums ledgerSums
	err := r.db.WithContext(ctx).
		Model(&models.WalletLedgerEntry{}).
		Select("COALESCE(SUM(credit_paise),0) AS credit_paise, COALESCE(SUM(debit_paise),0) AS debit_paise").
		Where("seller_id = ?", sellerID).
		Scan(&sums).Error
	if err != nil {
		return 0, 0, err
	}
	return sums.CreditPaise, sums.DebitPaise, nil
}

func (r *repository) SumBySellerAndTypes(ctx context.Context, sellerID uuid.UUID, types []enums.LedgerEntryType) (int64, int64, error) {
	var sums ledgerSums
	err := r.db.WithContext(ctx).
		Model(&models.WalletLedgerEntry{}).
		Select("COALESCE(SUM(credit_paise),0) AS credit_paise, COALESCE(SUM(debit_paise),0) AS debit_paise").
		Where("seller_id = ? AND type IN ?", sellerID, types).
		Scan(&sums).Error
	if err != nil {
		return 0, 0, err
	}
	return sums.CreditPaise, sums.DebitPaise, nil
}
