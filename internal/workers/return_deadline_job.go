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

const returnDeadlineBatchSize = 100

// ReturnDeadlineJobParams configure the return deadline reconciler.
type ReturnDeadlineJobParams struct {
	Logger   *logger.Logger
	Orders   orders.Repository
	Service  orders.Service
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	Now      func() time.Time
}

// NewReturnDeadlineJob builds the job that auto-rejects returns sellers
// ignored past their action deadline.
func NewReturnDeadlineJob(params ReturnDeadlineJobParams) (Job, error) {
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
		params.Interval = 10 * time.Minute
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &returnDeadlineJob{
		logg:     params.Logger,
		orders:   params.Orders,
		service:  params.Service,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      params.Now,
	}, nil
}

type returnDeadlineJob struct {
	logg     *logger.Logger
	orders   orders.Repository
	service  orders.Service
	metrics  *metrics.JobMetrics
	interval time.Duration
	now      func() time.Time
}

func (j *returnDeadlineJob) Name() string            { return "return-deadline" }
func (j *returnDeadlineJob) Interval() time.Duration { return j.interval }

func (j *returnDeadlineJob) Run(ctx context.Context) error {
	candidates, err := j.orders.ListReturnDeadlinePassed(ctx, j.now(), returnDeadlineBatchSize)
	if err != nil {
		return fmt.Errorf("listing overdue returns: %w", err)
	}

	var errs []error
	rejected := 0
	for _, order := range candidates {
		done, err := j.service.AutoRejectReturn(ctx, order.ID)
		if err != nil {
			orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(orderCtx, "auto-rejecting return failed", err)
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if done {
			rejected++
		}
	}

	j.metrics.AddProcessed(j.Name(), rejected)
	j.logg.Info(j.logg.WithField(ctx, "rejected", rejected), "return deadline run complete")
	return multierr.Combine(errs...)
}
