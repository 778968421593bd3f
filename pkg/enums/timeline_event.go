package enums

// TimelineEvent names an append-only order timeline entry.
type TimelineEvent string

const (
	TimelineOrderCreated           TimelineEvent = "ORDER_CREATED"
	TimelineOrderShipped           TimelineEvent = "ORDER_SHIPPED"
	TimelineOrderOutForDelivery    TimelineEvent = "ORDER_OUT_FOR_DELIVERY"
	TimelineDeliveryOTPGenerated   TimelineEvent = "DELIVERY_OTP_GENERATED"
	TimelineOrderDelivered         TimelineEvent = "ORDER_DELIVERED"
	TimelineOrderRTO               TimelineEvent = "ORDER_RTO"
	TimelineOrderSettled           TimelineEvent = "ORDER_SETTLED"
	TimelineOrderPaymentTimeout    TimelineEvent = "ORDER_PAYMENT_TIMEOUT"
	TimelineOrderPaymentCaptured   TimelineEvent = "ORDER_PAYMENT_CAPTURED"
	TimelineReturnRequested        TimelineEvent = "RETURN_REQUESTED"
	TimelineReturnApprovedBySeller TimelineEvent = "RETURN_APPROVED_BY_SELLER"
	TimelineReturnRejectedBySeller TimelineEvent = "RETURN_REJECTED_BY_SELLER"
	TimelineReturnAutoRejected     TimelineEvent = "RETURN_AUTO_REJECTED"
	TimelineReturnPickupScheduled  TimelineEvent = "RETURN_PICKUP_SCHEDULED"
	TimelineReturnPickupCompleted  TimelineEvent = "RETURN_PICKUP_COMPLETED"
	TimelineRefundCompleted        TimelineEvent = "REFUND_COMPLETED"
	TimelineReserveReleased        TimelineEvent = "RESERVE_RELEASED"
)

// ActorRole identifies who performed an action on an order.
type ActorRole string

const (
	ActorRoleBuyer  ActorRole = "buyer"
	ActorRoleSeller ActorRole = "seller"
	ActorRoleSystem ActorRole = "system"
	ActorRoleAdmin  ActorRole = "admin"
)
