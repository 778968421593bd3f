package orders

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/internal/idempotency"
	"github.com/brandcart/brandcart-backend/internal/ledger"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
)

const scopeCODRTO = "cod_rto"

// CODReturnToOrigin handles a COD order the buyer refused at the doorstep.
// The order moves to rto, the buyer eats the penalty via the seller's ledger
// (penalty debit plus optional commission lock), reserved stock goes back,
// and repeat offenders lose COD.
func (s *service) CODReturnToOrigin(ctx context.Context, input RTOInput) error {
	order, err := s.Repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.PaymentMethod != enums.PaymentMethodCOD {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "rto applies to cod orders only")
	}
	if order.Status == enums.OrderStatusRTO {
		return nil
	}
	if err := guardTransition(order.Status, enums.OrderStatusRTO); err != nil {
		return err
	}

	reservation, err := s.Idempotency.Reserve(ctx, order.ID.String(), scopeCODRTO)
	if err != nil {
		return err
	}
	switch reservation.Outcome {
	case idempotency.OutcomeCompleted:
		return nil
	case idempotency.OutcomeInFlight:
		return pkgerrors.New(pkgerrors.CodeConflict, "rto already in progress")
	}

	if err := s.applyRTO(ctx, order, input.Reason); err != nil {
		if clearErr := s.Idempotency.Clear(ctx, order.ID.String(), scopeCODRTO); clearErr != nil {
			s.Logger.Error(ctx, "clearing rto idempotency reservation failed", clearErr)
		}
		return err
	}
	if err := s.Idempotency.Complete(ctx, order.ID.String(), scopeCODRTO, json.RawMessage(`{"status":"rto"}`)); err != nil {
		s.Logger.Error(ctx, "completing rto idempotency record failed", err)
	}

	s.afterRTO(ctx, order, input.Reason)
	return nil
}

// applyRTO moves the order and posts the penalty entries atomically.
func (s *service) applyRTO(ctx context.Context, order *models.Order, reason string) error {
	now := s.Now()
	penalty := s.Cfg.CODRTOPenaltyPaise

	return s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.Repo.WithTx(tx).UpdateWhereStatus(ctx, order.ID,
			[]enums.OrderStatus{
				enums.OrderStatusCreated,
				enums.OrderStatusShipped,
				enums.OrderStatusOutForDelivery,
				enums.OrderStatusDeliveryOTPPending,
			},
			map[string]any{
				"status":            enums.OrderStatusRTO,
				"rto_reason":        reason,
				"rto_penalty_paise": penalty,
				"rto_at":            now,
			})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already left a pre-delivery state")
		}

		txLedger := s.Ledger.WithTx(tx)
		if penalty > 0 {
			if _, err := txLedger.Append(ctx, ledger.AppendInput{
				SellerID:   order.SellerID,
				OrderID:    &order.ID,
				Type:       enums.LedgerEntryCODRTOPenalty,
				DebitPaise: penalty,
				Reason:     "cod order returned to origin",
			}); err != nil {
				return err
			}
		}
		if s.Cfg.RTOCommissionLock && order.CommissionPaise > 0 {
			if _, err := txLedger.Append(ctx, ledger.AppendInput{
				SellerID:   order.SellerID,
				OrderID:    &order.ID,
				Type:       enums.LedgerEntryCommissionLock,
				DebitPaise: order.CommissionPaise,
				Reason:     "commission locked on rto",
			}); err != nil {
				return err
			}
		}

		return s.Inventory.WithTx(tx).Release(ctx, order.ProductID, order.Qty)
	})
}

// afterRTO applies the best-effort side effects once the rto is committed.
func (s *service) afterRTO(ctx context.Context, order *models.Order, reason string) {
	ctx = s.Logger.WithOrderID(ctx, order.ID.String())

	buyer, err := s.Users.FindByID(ctx, order.BuyerID)
	if err != nil {
		s.Logger.Error(ctx, "loading buyer for rto counters failed", err)
	} else {
		now := s.Now()
		buyer.BuyerRisk.CODRTOCount++
		buyer.BuyerRisk.LastCODRTOAt = &now
		if buyer.BuyerRisk.CODRTOCount >= s.Cfg.CODRTOMaxAllowed {
			buyer.BuyerRisk.CODDisabled = true
		}
		if err := s.Users.UpdateBuyerRisk(ctx, buyer.ID, buyer.BuyerRisk); err != nil {
			s.Logger.Error(ctx, "updating buyer rto counters failed", err)
		}
	}

	if err := s.Trust.ApplyEvent(ctx, order.SellerID, enums.TrustEventCODRTO); err != nil {
		s.Logger.Error(ctx, "applying rto trust event failed", err)
	}

	s.recordTimeline(ctx, order.ID, enums.TimelineOrderRTO, enums.ActorRoleSystem, nil, map[string]any{
		"reason":        reason,
		"penalty_paise": s.Cfg.CODRTOPenaltyPaise,
	})
}
