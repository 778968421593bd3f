package orders

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/internal/idempotency"
	"github.com/brandcart/brandcart-backend/internal/ledger"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
)

const scopeSystemRefund = "system_refund"

// RequestReturn opens a return on a delivered order within the return window.
// An order carries at most one return.
func (s *service) RequestReturn(ctx context.Context, input RequestReturnInput) (*models.Order, error) {
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason is required")
	}

	order, err := s.Repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}

	buyer, err := s.Users.FindByID(ctx, input.BuyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "buyer not found")
	}
	if err := s.Guard.CheckBuyerForReturn(buyer); err != nil {
		return nil, err
	}

	if order.DeliveredAt == nil ||
		(order.Status != enums.OrderStatusDelivered && order.Status != enums.OrderStatusSettled) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned")
	}
	if err := guardReturnTransition(order.ReturnStatus, enums.ReturnStatusRequested); err != nil {
		return nil, err
	}

	now := s.Now()
	if now.Sub(*order.DeliveredAt) > s.Cfg.ReturnWindow {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return window has closed")
	}

	deadline := now.Add(s.Cfg.SellerActionWindow)
	opened, err := s.Repo.UpdateWhereReturnStatus(ctx, order.ID, enums.ReturnStatusNone, map[string]any{
		"return_status":          enums.ReturnStatusRequested,
		"return_reason":          input.Reason,
		"return_requested_at":    now,
		"seller_action_deadline": deadline,
	})
	if err != nil {
		return nil, err
	}
	if !opened {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a return already exists for this order")
	}

	buyer.BuyerRisk.ReturnCount++
	buyer.BuyerRisk.LastReturnAt = &now
	if err := s.Users.UpdateBuyerRisk(ctx, buyer.ID, buyer.BuyerRisk); err != nil {
		s.Logger.Error(ctx, "updating buyer return counter failed", err)
	}

	s.auditReturn(ctx, enums.ActorRoleBuyer, &input.BuyerID, "RETURN_REQUESTED", order.ID, input.Reason)
	s.recordTimeline(ctx, order.ID, enums.TimelineReturnRequested, enums.ActorRoleBuyer, &input.BuyerID, map[string]any{
		"reason": input.Reason,
	})
	return s.Repo.FindByID(ctx, order.ID)
}

// SellerReturnAction records the seller's accept or reject decision. The
// conditional update guarantees it lands at most once.
func (s *service) SellerReturnAction(ctx context.Context, input SellerReturnActionInput) (*models.Order, error) {
	order, err := s.Repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.SellerID != input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
	}

	target := enums.ReturnStatusRejected
	action := enums.SellerReturnActionRejected
	event := enums.TimelineReturnRejectedBySeller
	trustEvent := enums.TrustEventReturnRejected
	if input.Accept {
		target = enums.ReturnStatusApproved
		action = enums.SellerReturnActionApproved
		event = enums.TimelineReturnApprovedBySeller
		trustEvent = enums.TrustEventReturnApproved
	} else if input.RejectReason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reject reason is required")
	}

	if err := guardReturnTransition(order.ReturnStatus, target); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"return_status":        target,
		"seller_return_action": action,
	}
	if !input.Accept {
		fields["return_reject_reason"] = input.RejectReason
	}
	decided, err := s.Repo.UpdateWhereReturnStatus(ctx, order.ID, enums.ReturnStatusRequested, fields)
	if err != nil {
		return nil, err
	}
	if !decided {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "return was already decided")
	}

	if err := s.Trust.ApplyEvent(ctx, order.SellerID, trustEvent); err != nil {
		s.Logger.Error(ctx, "applying return decision trust event failed", err)
	}
	s.recordTimeline(ctx, order.ID, event, enums.ActorRoleSeller, &input.SellerID, nil)
	return s.Repo.FindByID(ctx, order.ID)
}

// SchedulePickup marks the reverse pickup as booked. Already-scheduled and
// already-picked-up orders are no-ops.
func (s *service) SchedulePickup(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.ReturnStatus != enums.ReturnStatusApproved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup requires an approved return")
	}
	if order.PickupStatus != enums.PickupStatusNone {
		return nil
	}

	scheduled, err := s.Repo.UpdateWherePickupStatus(ctx, orderID, enums.PickupStatusNone, map[string]any{
		"pickup_status":       enums.PickupStatusScheduled,
		"pickup_scheduled_at": s.Now(),
	})
	if err != nil {
		return err
	}
	if scheduled {
		s.auditReturn(ctx, enums.ActorRoleSystem, nil, "RETURN_PICKUP_SCHEDULED", orderID, "")
		s.recordTimeline(ctx, orderID, enums.TimelineReturnPickupScheduled, enums.ActorRoleSystem, nil, nil)
	}
	return nil
}

// CompletePickup records the courier collecting the returned item.
func (s *service) CompletePickup(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.ReturnStatus != enums.ReturnStatusApproved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup requires an approved return")
	}
	if order.PickupStatus == enums.PickupStatusPickedUp {
		return nil
	}

	completed, err := s.Repo.UpdateWherePickupStatus(ctx, orderID, enums.PickupStatusScheduled, map[string]any{
		"pickup_status": enums.PickupStatusPickedUp,
		"picked_up_at":  s.Now(),
	})
	if err != nil {
		return err
	}
	if !completed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup has not been scheduled")
	}
	s.auditReturn(ctx, enums.ActorRoleSystem, nil, "RETURN_PICKUP_COMPLETED", orderID, "")
	s.recordTimeline(ctx, orderID, enums.TimelineReturnPickupCompleted, enums.ActorRoleSystem, nil, nil)
	return nil
}

// SystemRefund debits the seller's payout for an approved return and, when a
// reserve is still held, releases it in the same transaction. Safe to re-run.
func (s *service) SystemRefund(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.ReturnStatus != enums.ReturnStatusApproved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "refund requires an approved return")
	}
	if order.RefundStatus == enums.RefundStatusCompleted {
		return nil
	}

	reservation, err := s.Idempotency.Reserve(ctx, order.ID.String(), scopeSystemRefund)
	if err != nil {
		return err
	}
	switch reservation.Outcome {
	case idempotency.OutcomeCompleted:
		return nil
	case idempotency.OutcomeInFlight:
		return pkgerrors.New(pkgerrors.CodeConflict, "refund already in progress")
	}

	if err := s.applyRefund(ctx, order); err != nil {
		if clearErr := s.Idempotency.Clear(ctx, order.ID.String(), scopeSystemRefund); clearErr != nil {
			s.Logger.Error(ctx, "clearing refund idempotency reservation failed", clearErr)
		}
		return err
	}
	if err := s.Idempotency.Complete(ctx, order.ID.String(), scopeSystemRefund, json.RawMessage(`{"refund":"completed"}`)); err != nil {
		s.Logger.Error(ctx, "completing refund idempotency record failed", err)
	}

	s.afterRefund(ctx, order)
	return nil
}

func (s *service) applyRefund(ctx context.Context, order *models.Order) error {
	now := s.Now()
	amount := order.SellerPayoutPaise

	return s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.Repo.WithTx(tx)
		refunded, err := txRepo.MarkRefunded(ctx, order.ID, amount, now)
		if err != nil {
			return err
		}
		if !refunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund already recorded")
		}

		txLedger := s.Ledger.WithTx(tx)
		if _, err := txLedger.Append(ctx, ledger.AppendInput{
			SellerID:   order.SellerID,
			OrderID:    &order.ID,
			Type:       enums.LedgerEntryReturnRefund,
			DebitPaise: amount,
			Reason:     "refund for approved return",
		}); err != nil {
			return err
		}

		// A reserve still held against a refunded order goes back to the
		// seller's available balance.
		if !order.ReserveReleased && order.ReservePaise > 0 {
			if _, err := txLedger.Append(ctx, ledger.AppendInput{
				SellerID:    order.SellerID,
				OrderID:     &order.ID,
				Type:        enums.LedgerEntryReserveRelease,
				CreditPaise: order.ReservePaise,
				Reason:      "reserve released with refund",
			}); err != nil {
				return err
			}
			if _, err := txRepo.MarkReserveReleased(ctx, order.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) afterRefund(ctx context.Context, order *models.Order) {
	ctx = s.Logger.WithOrderID(ctx, order.ID.String())

	if err := s.Trust.ApplyEvent(ctx, order.SellerID, enums.TrustEventReturnApproved); err != nil {
		s.Logger.Error(ctx, "applying refund trust event failed", err)
	}
	reason := ""
	if order.ReturnReason != nil {
		reason = *order.ReturnReason
	}
	if enums.SellerFaultReturnReasons[reason] {
		if err := s.Trust.ApplyEvent(ctx, order.SellerID, enums.TrustEventSellerFaultReturn); err != nil {
			s.Logger.Error(ctx, "applying seller fault trust event failed", err)
		}
	}

	s.auditReturn(ctx, enums.ActorRoleSystem, nil, "RETURN_REFUND_COMPLETED", order.ID, reason)
	s.recordTimeline(ctx, order.ID, enums.TimelineRefundCompleted, enums.ActorRoleSystem, nil, map[string]any{
		"refund_paise": order.SellerPayoutPaise,
	})
}

// AutoRejectReturn closes a requested return the seller ignored past the
// deadline. False means the return was decided before this ran.
func (s *service) AutoRejectReturn(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.ReturnStatus != enums.ReturnStatusRequested {
		return false, nil
	}
	if order.SellerActionDeadline == nil || s.Now().Before(*order.SellerActionDeadline) {
		return false, nil
	}

	rejected, err := s.Repo.UpdateWhereReturnStatus(ctx, orderID, enums.ReturnStatusRequested, map[string]any{
		"return_status":        enums.ReturnStatusRejected,
		"seller_return_action": enums.SellerReturnActionAutoRejected,
		"return_reject_reason": "seller did not respond before the deadline",
	})
	if err != nil {
		return false, err
	}
	if !rejected {
		return false, nil
	}

	s.recordTimeline(ctx, orderID, enums.TimelineReturnAutoRejected, enums.ActorRoleSystem, nil, nil)
	return true, nil
}

func (s *service) auditReturn(ctx context.Context, role enums.ActorRole, actorID *uuid.UUID, action string, orderID uuid.UUID, reason string) {
	meta := map[string]any{"order_id": orderID}
	if reason != "" {
		meta["reason"] = reason
	}
	raw, _ := json.Marshal(meta)
	if err := s.Deps.Timeline.LogAudit(ctx, role, actorID, action, raw); err != nil {
		s.Logger.Error(ctx, "writing audit log failed", err)
	}
}
