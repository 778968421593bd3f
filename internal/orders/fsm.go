package orders

import (
	"fmt"

	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
)

// orderTransitions declares the legal order status graph. Anything not
// listed is a state conflict.
var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusCreated: {
		enums.OrderStatusShipped,
		enums.OrderStatusRTO,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDeliveryOTPPending,
		enums.OrderStatusRTO,
	},
	enums.OrderStatusOutForDelivery: {
		enums.OrderStatusDeliveryOTPPending,
		enums.OrderStatusRTO,
	},
	enums.OrderStatusDeliveryOTPPending: {
		enums.OrderStatusDelivered,
		enums.OrderStatusRTO,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusSettled,
	},
}

// returnTransitions declares the legal return status graph. The empty status
// means no return exists yet.
var returnTransitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusNone: {
		enums.ReturnStatusRequested,
	},
	enums.ReturnStatusRequested: {
		enums.ReturnStatusApproved,
		enums.ReturnStatusRejected,
	},
}

// CanTransition reports whether an order may move between the two statuses.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionReturn reports whether a return may move between statuses.
func CanTransitionReturn(from, to enums.ReturnStatus) bool {
	for _, allowed := range returnTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func guardTransition(from, to enums.OrderStatus) error {
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", from, to))
	}
	return nil
}

func guardReturnTransition(from, to enums.ReturnStatus) error {
	if !CanTransitionReturn(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move return from %q to %q", from, to))
	}
	return nil
}
