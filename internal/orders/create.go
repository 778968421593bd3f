package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/internal/idempotency"
	"github.com/brandcart/brandcart-backend/internal/products"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/razorpay"
	"github.com/brandcart/brandcart-backend/pkg/types"
)

const scopeCreateOrder = "create_order"

// Create places an order: rate limit, idempotency reservation, risk gating,
// pricing, stock reservation, then the insert. Any failure after the stock
// reservation rolls the reservation back and clears the idempotency slot.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderResponse, error) {
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}

	buyer, err := s.Users.FindByID(ctx, input.BuyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "buyer not found")
	}

	limit := s.Guard.CreateRateLimit(buyer)
	allowed, _, err := s.Limiter.FixedWindowAllow(ctx, scopeCreateOrder+":"+buyer.ID.String(), limit, s.Cfg.CreateRateWindow)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many order attempts")
	}

	reservation, err := s.Idempotency.Reserve(ctx, input.IdempotencyKey, scopeCreateOrder)
	if err != nil {
		return nil, err
	}
	switch reservation.Outcome {
	case idempotency.OutcomeCompleted:
		var replay OrderResponse
		if err := json.Unmarshal(reservation.Response, &replay); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeCorruptState, err, "stored idempotent response unreadable")
		}
		return &replay, nil
	case idempotency.OutcomeInFlight:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order creation already in progress")
	}

	response, err := s.createReserved(ctx, input, buyer)
	if err != nil {
		if clearErr := s.Idempotency.Clear(ctx, input.IdempotencyKey, scopeCreateOrder); clearErr != nil {
			s.Logger.Error(ctx, "clearing idempotency reservation failed", clearErr)
		}
		return nil, err
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("encoding order response: %w", err)
	}
	if err := s.completeCreate(ctx, input.IdempotencyKey, payload); err != nil {
		return nil, err
	}
	return response, nil
}

// completeCreate stores the response against the idempotency record. The
// order is already committed at this point, so a reservation left behind
// would re-run the whole creation once it goes stale; the failure must reach
// the caller rather than being swallowed.
func (s *service) completeCreate(ctx context.Context, key string, payload json.RawMessage) error {
	err := s.Idempotency.Complete(ctx, key, scopeCreateOrder, payload)
	if err == nil {
		return nil
	}
	s.Logger.Error(ctx, "completing idempotency record failed, retrying", err)
	if err := s.Idempotency.Complete(ctx, key, scopeCreateOrder, payload); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order was created but could not be recorded as complete")
	}
	return nil
}

// createReserved runs everything that happens while this caller owns the
// idempotency slot.
func (s *service) createReserved(ctx context.Context, input CreateOrderInput, buyer *models.User) (*OrderResponse, error) {
	now := s.Now()

	product, err := s.Products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	seller, err := s.Users.FindByID(ctx, product.SellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "seller not found")
	}

	unitPrice := product.PricePaise
	var offer *models.SellerOffer
	if input.OfferID != nil {
		offer, err = s.Products.FindOffer(ctx, *input.OfferID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "offer not found")
		}
		if !products.OfferApplies(offer, seller.ID, product.ID, now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer does not apply to this order")
		}
		unitPrice = offer.PricePaise
	}

	address, err := resolveAddress(buyer, input.AddressID)
	if err != nil {
		return nil, err
	}
	if err := checkServiceability(seller, address.Pincode); err != nil {
		return nil, err
	}

	subtotal := unitPrice * int64(input.Qty)
	commission := commissionFor(subtotal, seller.CommissionPct)
	fee := s.Cfg.PlatformFeePaise
	payout := subtotal - commission - fee
	if payout <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order value does not cover commission and fees")
	}

	if err := s.Guard.CheckBuyerForOrder(buyer, input.PaymentMethod); err != nil {
		return nil, err
	}
	if err := s.Guard.CheckSellerForOrder(ctx, seller, subtotal, input.PaymentMethod); err != nil {
		return nil, err
	}

	if err := s.Inventory.Reserve(ctx, product.ID, input.Qty); err != nil {
		return nil, err
	}

	order, err := s.insertOrder(ctx, input, buyer, seller, product, offer, unitPrice, subtotal, commission, fee, payout, now)
	if err != nil {
		if releaseErr := s.Inventory.Release(ctx, product.ID, input.Qty); releaseErr != nil {
			s.Logger.Error(ctx, "rolling back stock reservation failed", releaseErr)
		}
		return nil, err
	}

	s.afterCreate(ctx, order, buyer, seller, offer)
	return newOrderResponse(order), nil
}

func (s *service) insertOrder(ctx context.Context, input CreateOrderInput, buyer, seller *models.User, product *models.Product, offer *models.SellerOffer, unitPrice, subtotal, commission, fee, payout int64, now time.Time) (*models.Order, error) {
	order := &models.Order{
		ID:                uuid.New(),
		OrderNumber:       newOrderNumber(now),
		BuyerID:           buyer.ID,
		SellerID:          seller.ID,
		ProductID:         product.ID,
		Qty:               input.Qty,
		UnitPricePaise:    unitPrice,
		SubtotalPaise:     subtotal,
		CommissionPct:     seller.CommissionPct,
		CommissionPaise:   commission,
		PlatformFeePaise:  fee,
		SellerPayoutPaise: payout,
		Status:            enums.OrderStatusCreated,
		PaymentMethod:     input.PaymentMethod,
	}
	if offer != nil {
		order.OfferID = &offer.ID
	}

	switch input.PaymentMethod {
	case enums.PaymentMethodOnline:
		if s.Gateway == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "online payments are not configured")
		}
		gatewayOrder, err := s.Gateway.CreateOrder(ctx, razorpay.OrderParams{
			AmountPaise: subtotal,
			Receipt:     order.OrderNumber,
			Notes:       map[string]string{"order_id": order.ID.String()},
		})
		if err != nil {
			return nil, err
		}
		order.GatewayOrderID = &gatewayOrder.ID
		order.PaymentStatus = enums.PaymentStatusPending
	default:
		order.PaymentStatus = enums.PaymentStatusCODPending
	}

	if err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.WithTx(tx).Create(ctx, order)
	}); err != nil {
		return nil, err
	}
	return order, nil
}

// afterCreate applies the best-effort side effects: counters, offer usage,
// buyer risk stats, seller trust stats, timeline. None of these may fail the
// already-committed order.
func (s *service) afterCreate(ctx context.Context, order *models.Order, buyer, seller *models.User, offer *models.SellerOffer) {
	ctx = s.Logger.WithOrderID(ctx, order.ID.String())

	if err := s.Counters.IncrOrdersToday(ctx, seller.ID); err != nil {
		s.Logger.Error(ctx, "incrementing seller order counter failed", err)
	}
	if order.PaymentMethod == enums.PaymentMethodCOD {
		if err := s.Counters.IncrCODOrdersToday(ctx, seller.ID); err != nil {
			s.Logger.Error(ctx, "incrementing seller cod counter failed", err)
		}
	}

	if offer != nil {
		if err := s.Products.IncrementOfferUsage(ctx, offer.ID); err != nil {
			s.Logger.Error(ctx, "incrementing offer usage failed", err)
		}
	}

	now := s.Now()
	buyer.BuyerRisk.OrdersCount++
	buyer.BuyerRisk.LastOrderAt = &now
	if err := s.Users.UpdateBuyerRisk(ctx, buyer.ID, buyer.BuyerRisk); err != nil {
		s.Logger.Error(ctx, "updating buyer risk counters failed", err)
	}

	seller.Trust.Stats.TotalOrders++
	if _, err := s.Trust.Recompute(ctx, seller); err != nil {
		s.Logger.Error(ctx, "recomputing seller trust failed", err)
	}

	s.recordTimeline(ctx, order.ID, enums.TimelineOrderCreated, enums.ActorRoleBuyer, &buyer.ID, map[string]any{
		"payment_method": order.PaymentMethod,
		"subtotal_paise": order.SubtotalPaise,
	})
}

func resolveAddress(buyer *models.User, addressID string) (*types.Address, error) {
	for i := range buyer.Addresses {
		if buyer.Addresses[i].ID == addressID {
			return &buyer.Addresses[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address not found")
}

func checkServiceability(seller *models.User, pincode string) error {
	if len(seller.ServiceableAreas) == 0 {
		return nil
	}
	for _, area := range seller.ServiceableAreas {
		if area.Pincode == pincode && area.DeliveryEnabled {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "seller does not deliver to this pincode")
}
