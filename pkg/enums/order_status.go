package enums

import "fmt"

// OrderStatus is the top-level lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated            OrderStatus = "created"
	OrderStatusShipped            OrderStatus = "shipped"
	OrderStatusOutForDelivery     OrderStatus = "out_for_delivery"
	OrderStatusDeliveryOTPPending OrderStatus = "delivery_otp_pending"
	OrderStatusDelivered          OrderStatus = "delivered"
	OrderStatusSettled            OrderStatus = "settled"
	OrderStatusRTO                OrderStatus = "rto"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDeliveryOTPPending,
	OrderStatusDelivered,
	OrderStatusSettled,
	OrderStatusRTO,
	OrderStatusCancelled,
}

// IsValid reports whether the value matches the canonical order status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further lifecycle transition is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusSettled, OrderStatusRTO, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
