package enums

// ReturnStatus is the state of an order's return sub-aggregate.
type ReturnStatus string

const (
	ReturnStatusNone      ReturnStatus = ""
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
)

// SellerReturnAction is the decision a seller takes on a return request.
type SellerReturnAction string

const (
	SellerReturnActionApproved     SellerReturnAction = "approved"
	SellerReturnActionRejected     SellerReturnAction = "rejected"
	SellerReturnActionAutoRejected SellerReturnAction = "auto_rejected"
)

// PickupStatus tracks the reverse-logistics leg of an approved return.
type PickupStatus string

const (
	PickupStatusNone      PickupStatus = ""
	PickupStatusScheduled PickupStatus = "scheduled"
	PickupStatusPickedUp  PickupStatus = "picked_up"
)

// RefundStatus tracks refund completion for an approved return.
type RefundStatus string

const (
	RefundStatusNone      RefundStatus = ""
	RefundStatusCompleted RefundStatus = "completed"
)

// SellerFaultReturnReasons are return reasons attributed to the seller.
// A refund for one of these carries an extra trust penalty.
var SellerFaultReturnReasons = map[string]bool{
	"damaged":      true,
	"wrong_item":   true,
	"missing_item": true,
	"defective":    true,
}
