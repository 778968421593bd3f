package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/brandcart/brandcart-backend/internal/orders"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/metrics"
)

const orderExpiryBatchSize = 100

// OrderExpiryJobParams configure the online payment expiry reconciler.
type OrderExpiryJobParams struct {
	Logger         *logger.Logger
	Orders         orders.Repository
	Service        orders.Service
	Metrics        *metrics.JobMetrics
	Interval       time.Duration
	PaymentTimeout time.Duration
	Now            func() time.Time
}

// NewOrderExpiryJob builds the job that cancels online orders whose payment
// window lapsed and puts the reserved stock back.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Interval <= 0 {
		params.Interval = 5 * time.Minute
	}
	if params.PaymentTimeout <= 0 {
		params.PaymentTimeout = 15 * time.Minute
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &orderExpiryJob{
		logg:           params.Logger,
		orders:         params.Orders,
		service:        params.Service,
		metrics:        params.Metrics,
		interval:       params.Interval,
		paymentTimeout: params.PaymentTimeout,
		now:            params.Now,
	}, nil
}

type orderExpiryJob struct {
	logg           *logger.Logger
	orders         orders.Repository
	service        orders.Service
	metrics        *metrics.JobMetrics
	interval       time.Duration
	paymentTimeout time.Duration
	now            func() time.Time
}

func (j *orderExpiryJob) Name() string            { return "order-expiry" }
func (j *orderExpiryJob) Interval() time.Duration { return j.interval }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.paymentTimeout)
	candidates, err := j.orders.ListExpiredOnlinePayments(ctx, cutoff, orderExpiryBatchSize)
	if err != nil {
		return fmt.Errorf("listing expired online orders: %w", err)
	}

	var errs []error
	cancelled := 0
	for _, order := range candidates {
		done, err := j.service.CancelExpiredOnlineOrder(ctx, order.ID)
		if err != nil {
			orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(orderCtx, "cancelling expired order failed", err)
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if done {
			cancelled++
		}
	}

	j.metrics.AddProcessed(j.Name(), cancelled)
	j.logg.Info(j.logg.WithField(ctx, "cancelled", cancelled), "order expiry run complete")
	return multierr.Combine(errs...)
}
