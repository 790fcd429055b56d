package cron

import (
	"context"
	"fmt"

	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

type lockSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// NewLockSweepJob builds the job that flips stale active price locks to
// expired. Reads never depend on the sweep; this keeps the table tidy.
func NewLockSweepJob(logg *logger.Logger, sweeper lockSweeper) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("lock sweeper required")
	}
	return &lockSweepJob{logg: logg, sweeper: sweeper}, nil
}

type lockSweepJob struct {
	logg    *logger.Logger
	sweeper lockSweeper
}

func (j *lockSweepJob) Name() string { return "price-lock-sweep" }

func (j *lockSweepJob) Run(ctx context.Context) error {
	swept, err := j.sweeper.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep expired locks: %w", err)
	}
	if swept > 0 {
		j.logg.Info(j.logg.WithField(ctx, "swept", swept), "stale price locks expired")
	}
	return nil
}
