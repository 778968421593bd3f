package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
)

// CreateOrderInput is the request to place an order.
type CreateOrderInput struct {
	IdempotencyKey string              `json:"idempotency_key" validate:"required"`
	BuyerID        uuid.UUID           `json:"buyer_id" validate:"required"`
	ProductID      uuid.UUID           `json:"product_id" validate:"required"`
	OfferID        *uuid.UUID          `json:"offer_id,omitempty"`
	Qty            int                 `json:"qty" validate:"required,gt=0"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method" validate:"required"`
	AddressID      string              `json:"address_id" validate:"required"`
}

// OrderResponse is the stored-and-replayed creation response.
type OrderResponse struct {
	OrderID           uuid.UUID           `json:"order_id"`
	OrderNumber       string              `json:"order_number"`
	Status            enums.OrderStatus   `json:"status"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	PaymentStatus     enums.PaymentStatus `json:"payment_status"`
	GatewayOrderID    *string             `json:"gateway_order_id,omitempty"`
	SubtotalPaise     int64               `json:"subtotal_paise"`
	CommissionPaise   int64               `json:"commission_paise"`
	PlatformFeePaise  int64               `json:"platform_fee_paise"`
	SellerPayoutPaise int64               `json:"seller_payout_paise"`
	CreatedAt         time.Time           `json:"created_at"`
}

// MarkShippedInput records courier handoff details.
type MarkShippedInput struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	SellerID    uuid.UUID `json:"seller_id" validate:"required"`
	TrackingID  string    `json:"tracking_id" validate:"required"`
	CourierName string    `json:"courier_name"`
}

// ConfirmDeliveryInput carries the buyer's delivery OTP.
type ConfirmDeliveryInput struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	BuyerID uuid.UUID `json:"buyer_id" validate:"required"`
	OTP     string    `json:"otp" validate:"required,len=6"`
}

// RTOInput marks a COD order as returned to origin.
type RTOInput struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Reason  string    `json:"reason"`
}

// RequestReturnInput opens a return on a delivered order.
type RequestReturnInput struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	BuyerID uuid.UUID `json:"buyer_id" validate:"required"`
	Reason  string    `json:"reason" validate:"required"`
}

// SellerReturnActionInput is the seller's accept/reject decision.
type SellerReturnActionInput struct {
	OrderID      uuid.UUID `json:"order_id" validate:"required"`
	SellerID     uuid.UUID `json:"seller_id" validate:"required"`
	Accept       bool      `json:"accept"`
	RejectReason string    `json:"reject_reason"`
}

func newOrderResponse(order *models.Order) *OrderResponse {
	return &OrderResponse{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     order.PaymentStatus,
		GatewayOrderID:    order.GatewayOrderID,
		SubtotalPaise:     order.SubtotalPaise,
		CommissionPaise:   order.CommissionPaise,
		PlatformFeePaise:  order.PlatformFeePaise,
		SellerPayoutPaise: order.SellerPayoutPaise,
		CreatedAt:         order.CreatedAt,
	}
}
