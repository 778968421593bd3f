package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/pkg/enums"
)

// Order is the marketplace order aggregate: pricing, payment, delivery,
// settlement and return state all live on the single row so lifecycle
// transitions can be guarded with conditional updates.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string    `gorm:"column:order_number;uniqueIndex;not null"`
	BuyerID     uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID    uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	OfferID     *uuid.UUID `gorm:"column:offer_id;type:uuid"`
	Qty         int       `gorm:"column:qty;not null"`

	UnitPricePaise   int64   `gorm:"column:unit_price_paise;not null"`
	SubtotalPaise    int64   `gorm:"column:subtotal_paise;not null"`
	CommissionPct    float64 `gorm:"column:commission_pct;not null"`
	CommissionPaise  int64   `gorm:"column:commission_paise;not null"`
	PlatformFeePaise int64   `gorm:"column:platform_fee_paise;not null"`
	SellerPayoutPaise int64  `gorm:"column:seller_payout_paise;not null"`
	ReservePct       float64 `gorm:"column:reserve_pct;not null;default:0"`
	ReservePaise     int64   `gorm:"column:reserve_paise;not null;default:0"`

	Status           enums.OrderStatus      `gorm:"column:status;type:text;not null;default:'created';index"`
	PaymentMethod    enums.PaymentMethod    `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus    enums.PaymentStatus    `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	SettlementStatus enums.SettlementStatus `gorm:"column:settlement_status;type:text;not null;default:'pending'"`

	GatewayOrderID   *string    `gorm:"column:gateway_order_id"`
	GatewayPaymentID *string    `gorm:"column:gateway_payment_id"`
	PaidAt           *time.Time `gorm:"column:paid_at"`

	TrackingID  *string    `gorm:"column:tracking_id"`
	CourierName *string    `gorm:"column:courier_name"`
	ShippedAt   *time.Time `gorm:"column:shipped_at"`

	DeliveryOTPHash *string    `gorm:"column:delivery_otp_hash"`
	OTPGeneratedAt  *time.Time `gorm:"column:otp_generated_at"`
	DeliveredAt     *time.Time `gorm:"column:delivered_at"`

	SettledAt       *time.Time `gorm:"column:settled_at"`
	ReserveReleased bool       `gorm:"column:reserve_released;not null;default:false"`
	ReserveReleasedAt *time.Time `gorm:"column:reserve_released_at"`

	ReturnStatus         enums.ReturnStatus       `gorm:"column:return_status;type:text;not null;default:''"`
	ReturnReason         *string                  `gorm:"column:return_reason"`
	ReturnRequestedAt    *time.Time               `gorm:"column:return_requested_at"`
	SellerActionDeadline *time.Time               `gorm:"column:seller_action_deadline"`
	SellerReturnAction   enums.SellerReturnAction `gorm:"column:seller_return_action;type:text;not null;default:''"`
	ReturnRejectReason   *string                  `gorm:"column:return_reject_reason"`
	PickupStatus         enums.PickupStatus       `gorm:"column:pickup_status;type:text;not null;default:''"`
	PickupScheduledAt    *time.Time               `gorm:"column:pickup_scheduled_at"`
	PickedUpAt           *time.Time               `gorm:"column:picked_up_at"`
	RefundStatus         enums.RefundStatus       `gorm:"column:refund_status;type:text;not null;default:''"`
	RefundPaise          int64                    `gorm:"column:refund_paise;not null;default:0"`
	RefundedAt           *time.Time               `gorm:"column:refunded_at"`

	RTOReason       *string    `gorm:"column:rto_reason"`
	RTOPenaltyPaise int64      `gorm:"column:rto_penalty_paise;not null;default:0"`
	RTOAt           *time.Time `gorm:"column:rto_at"`

	CancelReason *string    `gorm:"column:cancel_reason"`
	CancelledAt  *time.Time `gorm:"column:cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
