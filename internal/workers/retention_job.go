package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/brandcart/brandcart-backend/internal/idempotency"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/metrics"
)

// RetentionJobParams configure the idempotency retention reconciler.
type RetentionJobParams struct {
	Logger   *logger.Logger
	Store    idempotency.Service
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	MaxAge   time.Duration
	Now      func() time.Time
}

// NewRetentionJob builds the job that purges idempotency records past their
// retention window.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("idempotency service required")
	}
	if params.Interval <= 0 {
		params.Interval = time.Hour
	}
	if params.MaxAge <= 0 {
		params.MaxAge = idempotency.RetentionAge
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &retentionJob{
		logg:     params.Logger,
		store:    params.Store,
		metrics:  params.Metrics,
		interval: params.Interval,
		maxAge:   params.MaxAge,
		now:      params.Now,
	}, nil
}

type retentionJob struct {
	logg     *logger.Logger
	store    idempotency.Service
	metrics  *metrics.JobMetrics
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

func (j *retentionJob) Name() string            { return "idempotency-retention" }
func (j *retentionJob) Interval() time.Duration { return j.interval }

func (j *retentionJob) Run(ctx context.Context) error {
	purged, err := j.store.PurgeOlderThan(ctx, j.now().Add(-j.maxAge))
	if err != nil {
		return fmt.Errorf("purging idempotency records: %w", err)
	}
	j.metrics.AddProcessed(j.Name(), int(purged))
	j.logg.Info(j.logg.WithField(ctx, "purged", purged), "idempotency retention run complete")
	return nil
}
