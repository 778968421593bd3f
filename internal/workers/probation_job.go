package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/brandcart/brandcart-backend/internal/users"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/metrics"
)

const probationBatchSize = 100

// ProbationJobParams configure the probation expiry reconciler.
type ProbationJobParams struct {
	Logger   *logger.Logger
	Users    *users.Repository
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	Now      func() time.Time
}

// NewProbationJob builds the job that lifts seller probations whose window
// has passed.
func NewProbationJob(params ProbationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Interval <= 0 {
		params.Interval = time.Hour
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &probationJob{
		logg:     params.Logger,
		users:    params.Users,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      params.Now,
	}, nil
}

type probationJob struct {
	logg     *logger.Logger
	users    *users.Repository
	metrics  *metrics.JobMetrics
	interval time.Duration
	now      func() time.Time
}

func (j *probationJob) Name() string            { return "probation" }
func (j *probationJob) Interval() time.Duration { return j.interval }

func (j *probationJob) Run(ctx context.Context) error {
	expired, err := j.users.ListExpiredProbations(ctx, j.now(), probationBatchSize)
	if err != nil {
		return fmt.Errorf("listing expired probations: %w", err)
	}

	var errs []error
	lifted := 0
	for _, seller := range expired {
		if err := j.users.DeactivateProbation(ctx, seller.ID); err != nil {
			sellerCtx := j.logg.WithSellerID(ctx, seller.ID.String())
			j.logg.Error(sellerCtx, "deactivating probation failed", err)
			errs = append(errs, fmt.Errorf("seller %s: %w", seller.ID, err))
			continue
		}
		lifted++
	}

	j.metrics.AddProcessed(j.Name(), lifted)
	j.logg.Info(j.logg.WithField(ctx, "lifted", lifted), "probation run complete")
	return multierr.Combine(errs...)
}
