package enums

// TrustEvent names a lifecycle outcome that nudges a seller's trust score.
type TrustEvent string

const (
	TrustEventOrderDelivered         TrustEvent = "ORDER_DELIVERED"
	TrustEventOrderCancelledBySeller TrustEvent = "ORDER_CANCELLED_BY_SELLER"
	TrustEventOrderCancelledByBuyer  TrustEvent = "ORDER_CANCELLED_BY_BUYER"
	TrustEventOrderRefunded          TrustEvent = "ORDER_REFUNDED"
	TrustEventReview5Star            TrustEvent = "REVIEW_5_STAR"
	TrustEventReview4Star            TrustEvent = "REVIEW_4_STAR"
	TrustEventReview3Star            TrustEvent = "REVIEW_3_STAR"
	TrustEventReview2Star            TrustEvent = "REVIEW_2_STAR"
	TrustEventReview1Star            TrustEvent = "REVIEW_1_STAR"
	TrustEventReturnApproved         TrustEvent = "RETURN_APPROVED"
	TrustEventReturnRejected         TrustEvent = "RETURN_REJECTED"
	TrustEventSellerFaultReturn      TrustEvent = "SELLER_FAULT_RETURN"
	TrustEventCODRTO                 TrustEvent = "COD_RTO"
)
