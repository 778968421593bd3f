package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/internal/ledger"
	"github.com/brandcart/brandcart-backend/internal/orders"
	"github.com/brandcart/brandcart-backend/internal/trust"
	"github.com/brandcart/brandcart-backend/internal/users"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/metrics"
)

const settlementBatchSize = 200

// txRunner opens a database transaction around fn.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TimelineWriter appends order timeline events. Satisfied by the timeline
// service.
type TimelineWriter interface {
	RecordOrderEvent(ctx context.Context, orderID uuid.UUID, event enums.TimelineEvent, actorRole enums.ActorRole, actorID *uuid.UUID, metadata json.RawMessage) error
}

// SettlementJobParams configure the settlement reconciler.
type SettlementJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Orders   orders.Repository
	Users    *users.Repository
	Ledger   ledger.Service
	Timeline TimelineWriter
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	Now      func() time.Time
}

// NewSettlementJob builds the job that credits sellers for delivered orders
// once their tier's settlement window has elapsed.
func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Timeline == nil {
		return nil, fmt.Errorf("timeline writer required")
	}
	if params.Interval <= 0 {
		params.Interval = 30 * time.Minute
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &settlementJob{
		logg:     params.Logger,
		db:       params.DB,
		orders:   params.Orders,
		users:    params.Users,
		ledger:   params.Ledger,
		timeline: params.Timeline,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      params.Now,
	}, nil
}

type settlementJob struct {
	logg     *logger.Logger
	db       txRunner
	orders   orders.Repository
	users    *users.Repository
	ledger   ledger.Service
	timeline TimelineWriter
	metrics  *metrics.JobMetrics
	interval time.Duration
	now      func() time.Time
}

func (j *settlementJob) Name() string            { return "settlement" }
func (j *settlementJob) Interval() time.Duration { return j.interval }

func (j *settlementJob) Run(ctx context.Context) error {
	candidates, err := j.orders.ListForSettlement(ctx, settlementBatchSize)
	if err != nil {
		return fmt.Errorf("listing settlement candidates: %w", err)
	}

	var errs []error
	settled := 0
	for i := range candidates {
		order := &candidates[i]
		done, err := j.settleOrder(ctx, order)
		if err != nil {
			orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(orderCtx, "settling order failed", err)
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if done {
			settled++
		}
	}

	j.metrics.AddProcessed(j.Name(), settled)
	logCtx := j.logg.WithField(ctx, "settled", settled)
	j.logg.Info(logCtx, "settlement run complete")
	return multierr.Combine(errs...)
}

// settleOrder posts the settlement ledger entries and flips the order in one
// transaction. False means the order was not ripe or someone settled it first.
func (j *settlementJob) settleOrder(ctx context.Context, order *models.Order) (bool, error) {
	seller, err := j.users.FindByID(ctx, order.SellerID)
	if err != nil {
		return false, fmt.Errorf("loading seller: %w", err)
	}
	if seller.SellerStatus == enums.SellerStatusFrozen {
		return false, nil
	}
	if order.DeliveredAt == nil {
		return false, nil
	}

	now := j.now()
	settleAfter := order.DeliveredAt.Add(time.Duration(seller.SettlementHours) * time.Hour)
	if now.Before(settleAfter) {
		return false, nil
	}

	reservePct := trust.TierFor(seller.Tier).ReservePct
	reserve := int64(math.Round(float64(order.SubtotalPaise) * reservePct / 100))

	flipped := false
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		fields := map[string]any{
			"status":            enums.OrderStatusSettled,
			"settlement_status": enums.SettlementStatusSettled,
			"settled_at":        now,
			"reserve_pct":       reservePct,
			"reserve_paise":     reserve,
		}
		if order.PaymentMethod == enums.PaymentMethodCOD {
			fields["payment_status"] = enums.PaymentStatusSettled
		}
		moved, err := j.orders.WithTx(tx).UpdateWhereStatus(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusDelivered}, fields)
		if err != nil {
			return err
		}
		if !moved {
			// Another run settled it between the list and now.
			return nil
		}
		flipped = true

		txLedger := j.ledger.WithTx(tx)
		entries := []ledger.AppendInput{
			{
				SellerID:    order.SellerID,
				OrderID:     &order.ID,
				Type:        enums.LedgerEntrySaleCredit,
				CreditPaise: order.SubtotalPaise,
				Reason:      "sale settled",
			},
			{
				SellerID:   order.SellerID,
				OrderID:    &order.ID,
				Type:       enums.LedgerEntryCommissionDebit,
				DebitPaise: order.CommissionPaise,
				Reason:     "marketplace commission",
			},
			{
				SellerID:   order.SellerID,
				OrderID:    &order.ID,
				Type:       enums.LedgerEntryPlatformFeeDebit,
				DebitPaise: order.PlatformFeePaise,
				Reason:     "platform fee",
			},
		}
		if reserve > 0 {
			entries = append(entries, ledger.AppendInput{
				SellerID:   order.SellerID,
				OrderID:    &order.ID,
				Type:       enums.LedgerEntryReserveHold,
				DebitPaise: reserve,
				Reason:     "rolling reserve hold",
			})
		}
		for _, entry := range entries {
			if entry.DebitPaise == 0 && entry.CreditPaise == 0 {
				continue
			}
			if _, err := txLedger.Append(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if !flipped {
		return false, nil
	}

	if err := j.timeline.RecordOrderEvent(ctx, order.ID, enums.TimelineOrderSettled, enums.ActorRoleSystem, nil, nil); err != nil {
		j.logg.Error(j.logg.WithOrderID(ctx, order.ID.String()), "recording settlement timeline failed", err)
	}
	return true, nil
}
