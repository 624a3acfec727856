package alert

import (
	"context"
	"fmt"
	"time"
)

// DailyResult is the outcome of one daily job run
type DailyResult struct {
	Sweep *SweepResult `json:"sweep"`
	Alert *BatchResult `json:"alert"`
}

// DailyJob runs the sweeper and then the alert dispatcher
type DailyJob struct {
	sweeper    *Sweeper
	dispatcher *Dispatcher
	timeout    time.Duration
	logger     Logger
}

// NewDailyJob creates the daily job. A zero timeout means no bound beyond ctx.
func NewDailyJob(sweeper *Sweeper, dispatcher *Dispatcher, timeout time.Duration, logger Logger) *DailyJob {
	if logger == nil {
		logger = nopLogger{}
	}
	return &DailyJob{
		sweeper:    sweeper,
		dispatcher: dispatcher,
		timeout:    timeout,
		logger:     logger,
	}
}

// Run executes one pass. A sweep failure does not prevent the alert scan.
func (j *DailyJob) Run(ctx context.Context) (*DailyResult, error) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	started := time.Now()
	result := &DailyResult{}

	sweep, sweepErr := j.sweeper.Run(ctx)
	if sweepErr != nil {
		j.logger.Error("Lifecycle sweep failed", "error", sweepErr)
	}
	result.Sweep = sweep

	batch, err := j.dispatcher.Run(ctx)
	if err != nil {
		return result, fmt.Errorf("deadline alert failed: %w", err)
	}
	result.Alert = batch

	j.logger.Info("Daily job finished", "duration", time.Since(started).String())

	if sweepErr != nil {
		return result, fmt.Errorf("lifecycle sweep failed: %w", sweepErr)
	}
	return result, nil
}
