package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/brandcart/brandcart-backend/internal/ledger"
	"github.com/brandcart/brandcart-backend/internal/orders"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/metrics"
)

const reserveReleaseBatchSize = 200

// ReserveReleaseJobParams configure the reserve release reconciler.
type ReserveReleaseJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Orders     orders.Repository
	Ledger     ledger.Service
	Timeline   TimelineWriter
	Metrics    *metrics.JobMetrics
	Interval   time.Duration
	HoldPeriod time.Duration
	Now        func() time.Time
}

// NewReserveReleaseJob builds the job that returns held reserves to sellers
// once the hold period passes without an approved return.
func NewReserveReleaseJob(params ReserveReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Timeline == nil {
		return nil, fmt.Errorf("timeline writer required")
	}
	if params.Interval <= 0 {
		params.Interval = time.Hour
	}
	if params.HoldPeriod <= 0 {
		params.HoldPeriod = 7 * 24 * time.Hour
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &reserveReleaseJob{
		logg:       params.Logger,
		db:         params.DB,
		orders:     params.Orders,
		ledger:     params.Ledger,
		timeline:   params.Timeline,
		metrics:    params.Metrics,
		interval:   params.Interval,
		holdPeriod: params.HoldPeriod,
		now:        params.Now,
	}, nil
}

type reserveReleaseJob struct {
	logg       *logger.Logger
	db         txRunner
	orders     orders.Repository
	ledger     ledger.Service
	timeline   TimelineWriter
	metrics    *metrics.JobMetrics
	interval   time.Duration
	holdPeriod time.Duration
	now        func() time.Time
}

func (j *reserveReleaseJob) Name() string            { return "reserve-release" }
func (j *reserveReleaseJob) Interval() time.Duration { return j.interval }

func (j *reserveReleaseJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.holdPeriod)
	candidates, err := j.orders.ListForReserveRelease(ctx, cutoff, reserveReleaseBatchSize)
	if err != nil {
		return fmt.Errorf("listing reserve release candidates: %w", err)
	}

	var errs []error
	released := 0
	for i := range candidates {
		order := &candidates[i]
		done, err := j.releaseReserve(ctx, order)
		if err != nil {
			orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(orderCtx, "releasing reserve failed", err)
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if done {
			released++
		}
	}

	j.metrics.AddProcessed(j.Name(), released)
	j.logg.Info(j.logg.WithField(ctx, "released", released), "reserve release run complete")
	return multierr.Combine(errs...)
}

func (j *reserveReleaseJob) releaseReserve(ctx context.Context, order *models.Order) (bool, error) {
	now := j.now()
	flipped := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := j.orders.WithTx(tx).MarkReserveReleased(ctx, order.ID, now)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		flipped = true
		_, err = j.ledger.WithTx(tx).Append(ctx, ledger.AppendInput{
			SellerID:    order.SellerID,
			OrderID:     &order.ID,
			Type:        enums.LedgerEntryReserveRelease,
			CreditPaise: order.ReservePaise,
			Reason:      "reserve hold period elapsed",
		})
		return err
	})
	if err != nil || !flipped {
		return false, err
	}

	if err := j.timeline.RecordOrderEvent(ctx, order.ID, enums.TimelineReserveReleased, enums.ActorRoleSystem, nil, nil); err != nil {
		j.logg.Error(j.logg.WithOrderID(ctx, order.ID.String()), "recording reserve release timeline failed", err)
	}
	return true, nil
}
