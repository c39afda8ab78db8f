package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// ExpirySweepJobName names the subscription expiry sweep
const ExpirySweepJobName = "subscription_expiry_sweep"

// ExpirySweeper moves every lapsed tenant to expired
type ExpirySweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// ExpirySweepJob persists the expired status of tenants nobody visited since
// their subscription lapsed. The request gate does the same per tenant, so
// the sweep only keeps stored statuses and reports current.
type ExpirySweepJob struct {
	sweeper ExpirySweeper
	logger  *zap.Logger
}

// NewExpirySweepJob creates the sweep job
func NewExpirySweepJob(sweeper ExpirySweeper, logger *zap.Logger) *ExpirySweepJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweepJob{sweeper: sweeper, logger: logger}
}

// Name implements Job
func (j *ExpirySweepJob) Name() string {
	return ExpirySweepJobName
}

// Run implements Job
func (j *ExpirySweepJob) Run(ctx context.Context) error {
	n, err := j.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	j.logger.Debug("Expiry sweep finished", zap.Int64("expired", n))
	return nil
}
