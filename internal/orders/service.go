package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/internal/idempotency"
	"github.com/brandcart/brandcart-backend/internal/inventory"
	"github.com/brandcart/brandcart-backend/internal/ledger"
	"github.com/brandcart/brandcart-backend/internal/products"
	"github.com/brandcart/brandcart-backend/internal/risk"
	"github.com/brandcart/brandcart-backend/internal/timeline"
	"github.com/brandcart/brandcart-backend/internal/trust"
	"github.com/brandcart/brandcart-backend/internal/users"
	"github.com/brandcart/brandcart-backend/pkg/config"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/razorpay"
)

// TxRunner opens a database transaction around fn.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentGateway creates provider-side orders for online payments.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error)
	VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

// RateLimiter applies the per-buyer creation rate limit.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// OrderCounters tracks per-seller daily order volume.
type OrderCounters interface {
	IncrOrdersToday(ctx context.Context, sellerID uuid.UUID) error
	IncrCODOrdersToday(ctx context.Context, sellerID uuid.UUID) error
}

// Service is the order lifecycle state machine.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderResponse, error)
	MarkShipped(ctx context.Context, input MarkShippedInput) (*models.Order, error)
	MarkOutForDelivery(ctx context.Context, orderID uuid.UUID) error
	GenerateDeliveryOTP(ctx context.Context, orderID uuid.UUID) (string, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error)
	CODReturnToOrigin(ctx context.Context, input RTOInput) error
	CancelExpiredOnlineOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkPaidFromGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) error
	MarkPaidFromWebhook(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error

	RequestReturn(ctx context.Context, input RequestReturnInput) (*models.Order, error)
	SellerReturnAction(ctx context.Context, input SellerReturnActionInput) (*models.Order, error)
	SchedulePickup(ctx context.Context, orderID uuid.UUID) error
	CompletePickup(ctx context.Context, orderID uuid.UUID) error
	SystemRefund(ctx context.Context, orderID uuid.UUID) error
	AutoRejectReturn(ctx context.Context, orderID uuid.UUID) (bool, error)

	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Timeline(ctx context.Context, orderID uuid.UUID) ([]models.TimelineEvent, error)
}

// Deps wires the service's collaborators.
type Deps struct {
	Tx          TxRunner
	Repo        Repository
	Users       *users.Repository
	Products    *products.Repository
	Inventory   inventory.Service
	Ledger      ledger.Service
	Idempotency idempotency.Service
	Trust       trust.Service
	Guard       *risk.Guard
	Timeline    timeline.Service
	Gateway     PaymentGateway
	Limiter     RateLimiter
	Counters    OrderCounters
	Cfg         config.OrdersConfig
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	Deps
}

// NewService validates dependencies and returns the order service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("orders tx runner required")
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Users == nil:
		return nil, fmt.Errorf("orders users repository required")
	case deps.Products == nil:
		return nil, fmt.Errorf("orders products repository required")
	case deps.Inventory == nil:
		return nil, fmt.Errorf("orders inventory service required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("orders ledger service required")
	case deps.Idempotency == nil:
		return nil, fmt.Errorf("orders idempotency service required")
	case deps.Trust == nil:
		return nil, fmt.Errorf("orders trust service required")
	case deps.Guard == nil:
		return nil, fmt.Errorf("orders risk guard required")
	case deps.Timeline == nil:
		return nil, fmt.Errorf("orders timeline service required")
	case deps.Limiter == nil:
		return nil, fmt.Errorf("orders rate limiter required")
	case deps.Counters == nil:
		return nil, fmt.Errorf("orders counters required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("orders logger required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{Deps: deps}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.Repo.FindByID(ctx, orderID)
}

func (s *service) Timeline(ctx context.Context, orderID uuid.UUID) ([]models.TimelineEvent, error) {
	return s.Deps.Timeline.ListByOrder(ctx, orderID)
}

// commissionFor rounds half away from zero on the seller's percent rate.
func commissionFor(subtotalPaise int64, pct float64) int64 {
	return int64(math.Round(float64(subtotalPaise) * pct / 100))
}

// recordTimeline logs and swallows timeline failures in system paths so an
// audit hiccup never blocks money movement.
func (s *service) recordTimeline(ctx context.Context, orderID uuid.UUID, event enums.TimelineEvent, role enums.ActorRole, actorID *uuid.UUID, metadata map[string]any) {
	var raw json.RawMessage
	if metadata != nil {
		raw, _ = json.Marshal(metadata)
	}
	if err := s.Deps.Timeline.RecordOrderEvent(ctx, orderID, event, role, actorID, raw); err != nil {
		ctx = s.Logger.WithOrderID(ctx, orderID.String())
		s.Logger.Error(ctx, "recording timeline event failed", err)
	}
}

func newOrderNumber(now time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("BC-%s-%s", now.UTC().Format("20060102"), suffix)
}
