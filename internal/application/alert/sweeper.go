package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/application/workflow"
	"github.com/sefapa/sgpd/internal/domain/deadline"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
	"github.com/sefapa/sgpd/pkg/tracing"
)

// SweepResult summarises one sweeper run
type SweepResult struct {
	Opened        int          `json:"opened"`
	MarkedOverdue int          `json:"marked_overdue"`
	Failed        []FailedSend `json:"failed"`
}

// Sweeper fires the time-triggered transitions: accountability opens the day after return,
// and becomes overdue once the window has closed
type Sweeper struct {
	requests port.TravelRequestRepository
	engine   workflow.Engine
	policy   deadline.Policy
	now      func() time.Time
	logger   Logger
}

// NewSweeper creates a new lifecycle sweeper
func NewSweeper(requests port.TravelRequestRepository, engine workflow.Engine, policy deadline.Policy, now func() time.Time, logger Logger) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Sweeper{
		requests: requests,
		engine:   engine,
		policy:   policy,
		now:      now,
		logger:   logger,
	}
}

// Run opens accountability first so a request returned long ago can be marked overdue in the same pass
func (s *Sweeper) Run(ctx context.Context) (result *SweepResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "alert.Sweep", nil)
	defer func() { tracing.EndSpan(span, err) }()

	today := deadline.Date(s.now())
	result = &SweepResult{Failed: []FailedSend{}}

	toOpen, err := s.requests.ListByStatusReturnedBefore(ctx, domainwf.StateApproved.String(), today)
	if err != nil {
		return nil, fmt.Errorf("failed to select approved requests: %w", err)
	}
	for _, req := range toOpen {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := s.engine.OpenAccountability(ctx, req.ID); err != nil {
			s.fail(result, req.ID, "open accountability", err)
			continue
		}
		result.Opened++
	}

	// overdue once more than WindowDays have passed since return
	overdueBefore := today.AddDate(0, 0, -s.policy.WindowDays)
	toFlag, err := s.requests.ListByStatusReturnedBefore(ctx, domainwf.StateAwaitingAccountability.String(), overdueBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to select open accountabilities: %w", err)
	}
	for _, req := range toFlag {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := s.engine.MarkOverdue(ctx, req.ID); err != nil {
			s.fail(result, req.ID, "mark overdue", err)
			continue
		}
		result.MarkedOverdue++
	}

	s.logger.Info("Lifecycle sweep finished",
		"opened", result.Opened,
		"marked_overdue", result.MarkedOverdue,
		"failed", len(result.Failed))

	return result, nil
}

func (s *Sweeper) fail(result *SweepResult, requestID, step string, err error) {
	// another writer got there first; nothing left to do for this request
	if errors.Is(err, domainwf.ErrConcurrentModification) {
		s.logger.Info("Sweep skipped request changed concurrently", "request_id", requestID, "step", step)
		return
	}
	result.Failed = append(result.Failed, FailedSend{RequestID: requestID, Error: err.Error()})
	s.logger.Error("Sweep step failed", "request_id", requestID, "step", step, "error", err)
}
