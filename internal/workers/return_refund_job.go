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

const returnRefundBatchSize = 100

// ReturnRefundJobParams configure the refund reconciler.
type ReturnRefundJobParams struct {
	Logger   *logger.Logger
	Orders   orders.Repository
	Service  orders.Service
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// NewReturnRefundJob builds the job that refunds approved returns the
// request path has not settled yet.
func NewReturnRefundJob(params ReturnRefundJobParams) (Job, error) {
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
		params.Interval = 15 * time.Minute
	}
	return &returnRefundJob{
		logg:     params.Logger,
		orders:   params.Orders,
		service:  params.Service,
		metrics:  params.Metrics,
		interval: params.Interval,
	}, nil
}

type returnRefundJob struct {
	logg     *logger.Logger
	orders   orders.Repository
	service  orders.Service
	metrics  *metrics.JobMetrics
	interval time.Duration
}

func (j *returnRefundJob) Name() string            { return "return-refund" }
func (j *returnRefundJob) Interval() time.Duration { return j.interval }

func (j *returnRefundJob) Run(ctx context.Context) error {
	candidates, err := j.orders.ListApprovedRefundPending(ctx, returnRefundBatchSize)
	if err != nil {
		return fmt.Errorf("listing refund candidates: %w", err)
	}

	var errs []error
	refunded := 0
	for _, order := range candidates {
		if err := j.service.SystemRefund(ctx, order.ID); err != nil {
			orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(orderCtx, "refunding return failed", err)
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		refunded++
	}

	j.metrics.AddProcessed(j.Name(), refunded)
	j.logg.Info(j.logg.WithField(ctx, "refunded", refunded), "return refund run complete")
	return multierr.Combine(errs...)
}
