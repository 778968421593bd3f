package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/otp"
)

// MarkShipped moves a created order to shipped, recording courier details.
func (s *service) MarkShipped(ctx context.Context, input MarkShippedInput) (*models.Order, error) {
	order, err := s.Repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.SellerID != input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
	}
	if input.TrackingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking id is required")
	}
	if err := guardTransition(order.Status, enums.OrderStatusShipped); err != nil {
		return nil, err
	}
	if order.PaymentMethod == enums.PaymentMethodOnline && order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "online order is not paid yet")
	}

	now := s.Now()
	moved, err := s.Repo.UpdateWhereStatus(ctx, order.ID,
		[]enums.OrderStatus{enums.OrderStatusCreated},
		map[string]any{
			"status":       enums.OrderStatusShipped,
			"tracking_id":  input.TrackingID,
			"courier_name": input.CourierName,
			"shipped_at":   now,
		})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already left created state")
	}

	s.recordTimeline(ctx, order.ID, enums.TimelineOrderShipped, enums.ActorRoleSeller, &input.SellerID, map[string]any{
		"tracking_id": input.TrackingID,
		"courier":     input.CourierName,
	})
	return s.Repo.FindByID(ctx, order.ID)
}

// MarkOutForDelivery records the courier's out-for-delivery scan.
func (s *service) MarkOutForDelivery(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.Status == enums.OrderStatusOutForDelivery {
		return nil
	}
	if err := guardTransition(order.Status, enums.OrderStatusOutForDelivery); err != nil {
		return err
	}
	moved, err := s.Repo.UpdateWhereStatus(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusShipped},
		map[string]any{"status": enums.OrderStatusOutForDelivery})
	if err != nil {
		return err
	}
	if moved {
		s.recordTimeline(ctx, orderID, enums.TimelineOrderOutForDelivery, enums.ActorRoleSystem, nil, nil)
	}
	return nil
}

// GenerateDeliveryOTP creates the delivery confirmation code. Only the
// sha256 hash is persisted; the plain code goes to the courier channel.
func (s *service) GenerateDeliveryOTP(ctx context.Context, orderID uuid.UUID) (string, error) {
	order, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.DeliveryOTPHash != nil {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "delivery otp already generated")
	}
	if err := guardTransition(order.Status, enums.OrderStatusDeliveryOTPPending); err != nil {
		return "", err
	}

	code, err := otp.Generate()
	if err != nil {
		return "", fmt.Errorf("generating delivery otp: %w", err)
	}
	hash := otp.Hash(code)
	now := s.Now()

	moved, err := s.Repo.UpdateWhereStatus(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusShipped, enums.OrderStatusOutForDelivery},
		map[string]any{
			"status":            enums.OrderStatusDeliveryOTPPending,
			"delivery_otp_hash": hash,
			"otp_generated_at":  now,
		})
	if err != nil {
		return "", err
	}
	if !moved {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed during otp generation")
	}

	s.recordTimeline(ctx, orderID, enums.TimelineDeliveryOTPGenerated, enums.ActorRoleSystem, nil, nil)
	return code, nil
}

// ConfirmDelivery verifies the buyer's OTP and completes the delivery leg:
// reserved stock is burned, the order becomes delivered, OTP material is
// cleared and the seller earns a trust bump.
func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error) {
	order, err := s.Repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}
	if order.Status == enums.OrderStatusDelivered || order.Status == enums.OrderStatusSettled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already delivered")
	}
	if err := guardTransition(order.Status, enums.OrderStatusDelivered); err != nil {
		return nil, err
	}
	if order.PaymentMethod == enums.PaymentMethodOnline && order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "online order is not paid")
	}
	if order.DeliveryOTPHash == nil || order.OTPGeneratedAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no delivery otp issued")
	}

	now := s.Now()
	if now.Sub(*order.OTPGeneratedAt) > s.Cfg.DeliveryOTPExpiry {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery otp expired")
	}
	if !otp.Verify(input.OTP, *order.DeliveryOTPHash) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery otp does not match")
	}

	// Stock burn and status flip commit or roll back together.
	if err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.Repo.WithTx(tx).UpdateWhereStatus(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusDeliveryOTPPending},
			map[string]any{
				"status":            enums.OrderStatusDelivered,
				"delivered_at":      now,
				"delivery_otp_hash": nil,
				"otp_generated_at":  nil,
			})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order state changed during delivery confirmation")
		}
		return s.Inventory.WithTx(tx).CommitDeliveryRelease(ctx, order.ProductID, order.Qty)
	}); err != nil {
		return nil, err
	}

	s.recordTimeline(ctx, order.ID, enums.TimelineOrderDelivered, enums.ActorRoleBuyer, &input.BuyerID, nil)
	if err := s.Trust.ApplyEvent(ctx, order.SellerID, enums.TrustEventOrderDelivered); err != nil {
		s.Logger.Error(ctx, "applying delivery trust event failed", err)
	}
	return s.Repo.FindByID(ctx, order.ID)
}

// MarkPaidFromGateway verifies the checkout signature and marks the online
// order paid. Replays are no-ops thanks to the conditional update.
func (s *service) MarkPaidFromGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) error {
	if s.Gateway == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "online payments are not configured")
	}
	if !s.Gateway.VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, signature) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "payment signature verification failed")
	}
	return s.markPaid(ctx, gatewayOrderID, gatewayPaymentID)
}

// MarkPaidFromWebhook marks an online order paid on the strength of an
// already-verified provider webhook.
func (s *service) MarkPaidFromWebhook(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error {
	return s.markPaid(ctx, gatewayOrderID, gatewayPaymentID)
}

func (s *service) markPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error {
	order, err := s.Repo.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found for gateway order")
	}
	if order.PaymentMethod != enums.PaymentMethodOnline {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "not an online order")
	}

	marked, err := s.Repo.MarkPaid(ctx, order.ID, gatewayPaymentID, s.Now())
	if err != nil {
		return err
	}
	if marked {
		s.recordTimeline(ctx, order.ID, enums.TimelineOrderPaymentCaptured, enums.ActorRoleSystem, nil, map[string]any{
			"gateway_payment_id": gatewayPaymentID,
		})
	}
	return nil
}

// CancelExpiredOnlineOrder cancels an online order whose payment window
// lapsed and returns its reserved stock. False means someone moved the order
// first.
func (s *service) CancelExpiredOnlineOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.PaymentMethod != enums.PaymentMethodOnline || order.PaymentStatus != enums.PaymentStatusPending {
		return false, nil
	}

	// Flip and release share a transaction: a failed release leaves the order
	// in created, where the expiry sweep can find it again.
	now := s.Now()
	var moved bool
	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		moved, txErr = s.Repo.WithTx(tx).UpdateWhereStatus(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusCreated},
			map[string]any{
				"status":        enums.OrderStatusCancelled,
				"cancel_reason": "ONLINE_PAYMENT_TIMEOUT",
				"cancelled_at":  now,
			})
		if txErr != nil || !moved {
			return txErr
		}
		return s.Inventory.WithTx(tx).Release(ctx, order.ProductID, order.Qty)
	})
	if err != nil {
		return false, err
	}
	if !moved {
		return false, nil
	}

	s.recordTimeline(ctx, order.ID, enums.TimelineOrderPaymentTimeout, enums.ActorRoleSystem, nil, nil)
	return true, nil
}
