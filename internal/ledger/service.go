package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
)

// Service appends wallet ledger entries and derives balances from them.
// Entries are never updated or deleted; corrections are offsetting appends.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Append(ctx context.Context, input AppendInput) (*models.WalletLedgerEntry, error)
	Balance(ctx context.Context, sellerID uuid.UUID) (int64, error)
	ReserveBalance(ctx context.Context, sellerID uuid.UUID) (int64, error)
	HasEntry(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (bool, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletLedgerEntry, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.WalletLedgerEntry, error)
}

type service struct {
	repo Repository
}

// AppendInput captures the immutable data a ledger entry requires. Exactly
// one of CreditPaise/DebitPaise must be positive.
type AppendInput struct {
	SellerID    uuid.UUID             `json:"seller_id"`
	OrderID     *uuid.UUID            `json:"order_id,omitempty"`
	Type        enums.LedgerEntryType `json:"type"`
	CreditPaise int64                 `json:"credit_paise"`
	DebitPaise  int64                 `json:"debit_paise"`
	Reason      string                `json:"reason"`
	Metadata    json.RawMessage       `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Append(ctx context.Context, input AppendInput) (*models.WalletLedgerEntry, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("invalid ledger entry type %q", input.Type))
	}
	if input.CreditPaise < 0 || input.DebitPaise < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger amounts must be non-negative")
	}
	if input.CreditPaise == 0 && input.DebitPaise == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger entry must move money")
	}
	if input.CreditPaise > 0 && input.DebitPaise > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger entry cannot both credit and debit")
	}

	entry := &models.WalletLedgerEntry{
		ID:          uuid.New(),
		SellerID:    input.SellerID,
		OrderID:     input.OrderID,
		Type:        input.Type,
		CreditPaise: input.CreditPaise,
		DebitPaise:  input.DebitPaise,
		Reason:      input.Reason,
		Metadata:    input.Metadata,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Balance is the seller's wallet balance: total credits minus total debits
// across all entry types.
func (s *service) Balance(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	if sellerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	credit, debit, err := s.repo.SumBySeller(ctx, sellerID)
	if err != nil {
		return 0, err
	}
	return credit - debit, nil
}

// ReserveBalance is the amount currently held back: reserve holds minus
// reserve releases, clamped at zero.
func (s *service) ReserveBalance(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	if sellerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	_, held, err := s.repo.SumBySellerAndTypes(ctx, sellerID, []enums.LedgerEntryType{enums.LedgerEntryReserveHold})
	if err != nil {
		return 0, err
	}
	released, _, err := s.repo.SumBySellerAndTypes(ctx, sellerID, []enums.LedgerEntryType{enums.LedgerEntryReserveRelease})
	if err != nil {
		return 0, err
	}
	balance := held - released
	if balance < 0 {
		return 0, nil
	}
	return balance, nil
}

func (s *service) HasEntry(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !entryType.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("invalid ledger entry type %q", entryType))
	}
	entries, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.Type == entryType {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletLedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.WalletLedgerEntry, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.repo.ListBySellerID(ctx, sellerID)
}
