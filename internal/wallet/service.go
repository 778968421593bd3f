package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/internal/ledger"
	"github.com/brandcart/brandcart-backend/internal/timeline"
	"github.com/brandcart/brandcart-backend/internal/users"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/payouts"
)

// Payout request statuses mirror the provider lifecycle plus our own
// bookkeeping states.
const (
	PayoutStatusInitiated  = "initiated"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
	PayoutStatusReversed   = "reversed"
)

const listPayoutsLimit = 50

// PayoutProvider is the bank-transfer side of the wallet. Satisfied by
// payouts.Client.
type PayoutProvider interface {
	CreateContact(ctx context.Context, params payouts.ContactParams) (*payouts.Contact, error)
	CreateFundAccount(ctx context.Context, params payouts.FundAccountParams) (*payouts.FundAccount, error)
	CreatePayout(ctx context.Context, params payouts.PayoutParams) (*payouts.Payout, error)
}

// TxRunner opens a database transaction around fn.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Summary is the seller-facing wallet read.
type Summary struct {
	SellerID           uuid.UUID `json:"seller_id"`
	BalancePaise       int64     `json:"balance_paise"`
	ReserveHeldPaise   int64     `json:"reserve_held_paise"`
	AvailablePaise     int64     `json:"available_paise"`
	PendingPayoutCount int       `json:"pending_payout_count"`
}

// EmergencyPayoutInput asks for an immediate transfer of held funds.
type EmergencyPayoutInput struct {
	SellerID    uuid.UUID           `json:"seller_id" validate:"required"`
	AmountPaise int64               `json:"amount_paise" validate:"required,gt=0"`
	Bank        payouts.BankAccount `json:"bank"`
}

// Service exposes wallet reads and the emergency payout flow.
type Service interface {
	Summary(ctx context.Context, sellerID uuid.UUID) (*Summary, error)
	Entries(ctx context.Context, sellerID uuid.UUID) ([]models.WalletLedgerEntry, error)
	EmergencyPayout(ctx context.Context, input EmergencyPayoutInput) (*models.PayoutRequest, error)
	ApplyPayoutStatus(ctx context.Context, payoutID, status, failureReason string) error
	ListPayouts(ctx context.Context, sellerID uuid.UUID) ([]models.PayoutRequest, error)
}

// Deps wires the service's collaborators.
type Deps struct {
	Tx       TxRunner
	Repo     Repository
	Users    *users.Repository
	Ledger   ledger.Service
	Timeline timeline.Service
	Provider PayoutProvider
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	Deps
}

// NewService validates dependencies and returns the wallet service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("wallet tx runner required")
	case deps.Repo == nil:
		return nil, fmt.Errorf("wallet repository required")
	case deps.Users == nil:
		return nil, fmt.Errorf("wallet users repository required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("wallet ledger service required")
	case deps.Timeline == nil:
		return nil, fmt.Errorf("wallet timeline service required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("wallet logger required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{Deps: deps}, nil
}

func (s *service) Summary(ctx context.Context, sellerID uuid.UUID) (*Summary, error) {
	balance, err := s.Ledger.Balance(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	reserve, err := s.Ledger.ReserveBalance(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	pending, err := s.Repo.ListBySeller(ctx, sellerID, listPayoutsLimit)
	if err != nil {
		return nil, err
	}
	pendingCount := 0
	for _, request := range pending {
		if request.Status == PayoutStatusInitiated || request.Status == PayoutStatusProcessing {
			pendingCount++
		}
	}
	available := balance
	if available < 0 {
		available = 0
	}
	return &Summary{
		SellerID:           sellerID,
		BalancePaise:       balance,
		ReserveHeldPaise:   reserve,
		AvailablePaise:     available,
		PendingPayoutCount: pendingCount,
	}, nil
}

func (s *service) Entries(ctx context.Context, sellerID uuid.UUID) ([]models.WalletLedgerEntry, error) {
	return s.Ledger.ListBySeller(ctx, sellerID)
}

func (s *service) ListPayouts(ctx context.Context, sellerID uuid.UUID) ([]models.PayoutRequest, error) {
	return s.Repo.ListBySeller(ctx, sellerID, listPayoutsLimit)
}

// EmergencyPayout moves available balance to the seller's bank ahead of the
// regular payout schedule. The ledger debit and the provider correlation ids
// land in one transaction; a provider failure marks the request failed and
// leaves the ledger untouched.
func (s *service) EmergencyPayout(ctx context.Context, input EmergencyPayoutInput) (*models.PayoutRequest, error) {
	if s.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payout provider not configured")
	}
	if input.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}

	seller, err := s.Users.FindByID(ctx, input.SellerID)
	if err != nil {
		return nil, err
	}
	if seller.SellerStatus == enums.SellerStatusFrozen {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller account is frozen")
	}
	if seller.SellerStatus != enums.SellerStatusVerified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller is not verified")
	}

	balance, err := s.Ledger.Balance(ctx, input.SellerID)
	if err != nil {
		return nil, err
	}
	if input.AmountPaise > balance {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount exceeds available balance").
			WithDetails(map[string]any{"balance_paise": balance})
	}

	request := &models.PayoutRequest{
		ID:          uuid.New(),
		SellerID:    input.SellerID,
		AmountPaise: input.AmountPaise,
		Status:      PayoutStatusInitiated,
		Emergency:   true,
	}
	if err := s.Repo.Create(ctx, request); err != nil {
		return nil, err
	}

	contact, err := s.Provider.CreateContact(ctx, payouts.ContactParams{
		Name:        seller.Name,
		Email:       seller.Email,
		Contact:     seller.Phone,
		ReferenceID: seller.ID.String(),
	})
	if err != nil {
		return nil, s.failRequest(ctx, request, err)
	}
	fundAccount, err := s.Provider.CreateFundAccount(ctx, payouts.FundAccountParams{
		ContactID:   contact.ID,
		AccountType: "bank_account",
		BankAccount: input.Bank,
	})
	if err != nil {
		return nil, s.failRequest(ctx, request, err)
	}
	payout, err := s.Provider.CreatePayout(ctx, payouts.PayoutParams{
		FundAccountID: fundAccount.ID,
		AmountPaise:   input.AmountPaise,
		ReferenceID:   request.ID.String(),
	})
	if err != nil {
		return nil, s.failRequest(ctx, request, err)
	}

	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		flipped, err := s.Repo.WithTx(tx).UpdateWhereStatus(ctx, request.ID,
			[]string{PayoutStatusInitiated}, map[string]any{
				"status":          PayoutStatusProcessing,
				"contact_id":      contact.ID,
				"fund_account_id": fundAccount.ID,
				"payout_id":       payout.ID,
				"payout_status":   payout.Status,
			})
		if err != nil {
			return err
		}
		if !flipped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout request already progressed")
		}
		_, err = s.Ledger.WithTx(tx).Append(ctx, ledger.AppendInput{
			SellerID:   input.SellerID,
			Type:       enums.LedgerEntryEmergencyPayoutRelease,
			DebitPaise: input.AmountPaise,
			Reason:     "emergency_payout",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if auditErr := s.Deps.Timeline.LogAudit(ctx, enums.ActorRoleSeller, &seller.ID,
		"EMERGENCY_PAYOUT_INITIATED", nil); auditErr != nil {
		s.Logger.Error(s.Logger.WithSellerID(ctx, seller.ID.String()),
			"recording payout audit failed", auditErr)
	}

	return s.Repo.FindByID(ctx, request.ID)
}

// ApplyPayoutStatus folds a provider webhook into the request. A failed or
// reversed payout gets an offsetting credit so the seller's balance is made
// whole; the conditional status flip keeps replayed webhooks from crediting
// twice.
func (s *service) ApplyPayoutStatus(ctx context.Context, payoutID, status, failureReason string) error {
	request, err := s.Repo.FindByPayoutID(ctx, payoutID)
	if err != nil {
		return err
	}

	switch status {
	case "processed":
		_, err := s.Repo.UpdateWhereStatus(ctx, request.ID,
			[]string{PayoutStatusInitiated, PayoutStatusProcessing}, map[string]any{
				"status":        PayoutStatusCompleted,
				"payout_status": status,
			})
		return err
	case "failed", "reversed", "rejected", "cancelled":
		target := PayoutStatusFailed
		if status == "reversed" {
			target = PayoutStatusReversed
		}
		return s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
			fields := map[string]any{
				"status":        target,
				"payout_status": status,
			}
			if failureReason != "" {
				fields["failure_reason"] = failureReason
			}
			flipped, err := s.Repo.WithTx(tx).UpdateWhereStatus(ctx, request.ID,
				[]string{PayoutStatusInitiated, PayoutStatusProcessing, PayoutStatusCompleted}, fields)
			if err != nil {
				return err
			}
			if !flipped {
				return nil
			}
			_, err = s.Ledger.WithTx(tx).Append(ctx, ledger.AppendInput{
				SellerID:    request.SellerID,
				Type:        enums.LedgerEntryEmergencyPayoutRelease,
				CreditPaise: request.AmountPaise,
				Reason:      "payout_" + status + "_reversal",
			})
			return err
		})
	default:
		_, err := s.Repo.UpdateWhereStatus(ctx, request.ID,
			[]string{PayoutStatusInitiated, PayoutStatusProcessing}, map[string]any{
				"payout_status": status,
			})
		return err
	}
}

func (s *service) failRequest(ctx context.Context, request *models.PayoutRequest, cause error) error {
	fields := map[string]any{
		"status":         PayoutStatusFailed,
		"failure_reason": cause.Error(),
	}
	if err := s.Repo.UpdateFields(ctx, request.ID, fields); err != nil {
		s.Logger.Error(ctx, "marking payout request failed", err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "payout provider call failed")
}
