package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// WorkflowLogService is the append-only approval log of a request.
// It has no update or delete operation.
type WorkflowLogService interface {
	// Record appends one entry. Runs inside the caller's transaction when ctx carries one.
	Record(ctx context.Context, entry *entity.WorkflowEntry) error

	// History returns the entries of a request oldest first
	History(ctx context.Context, requestID string) ([]*entity.WorkflowEntry, error)

	// CheckReapproval refuses an approval by the actor who already approved from currentStatus
	CheckReapproval(ctx context.Context, requestID, actorID string, currentStatus domainwf.State) error
}

type workflowLogServiceImpl struct {
	entryRepo port.WorkflowEntryRepository
	logger    Logger
}

// NewWorkflowLogService creates a new WorkflowLogService
func NewWorkflowLogService(entryRepo port.WorkflowEntryRepository, logger Logger) WorkflowLogService {
	return &workflowLogServiceImpl{
		entryRepo: entryRepo,
		logger:    logger,
	}
}

func (s *workflowLogServiceImpl) Record(ctx context.Context, entry *entity.WorkflowEntry) error {
	if entry.RequestID == "" || entry.ActorID == "" || entry.Action == "" {
		return fmt.Errorf("%w: workflow entry needs request, actor and action", domainwf.ErrValidation)
	}
	if domainwf.Trigger(entry.Action).RequiresComment() && strings.TrimSpace(entry.Comment) == "" {
		return fmt.Errorf("%w: %s requires a comment", domainwf.ErrValidation, entry.Action)
	}

	if err := s.entryRepo.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to record workflow entry", "request_id", entry.RequestID, "action", entry.Action, "error", err)
		return err
	}

	s.logger.Info("Workflow entry recorded",
		"request_id", entry.RequestID,
		"action", entry.Action,
		"from", entry.FromStatus,
		"to", entry.ToStatus,
		"actor_id", entry.ActorID)
	return nil
}

func (s *workflowLogServiceImpl) History(ctx context.Context, requestID string) ([]*entity.WorkflowEntry, error) {
	entries, err := s.entryRepo.ListByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}

func (s *workflowLogServiceImpl) CheckReapproval(ctx context.Context, requestID, actorID string, currentStatus domainwf.State) error {
	latest, err := s.entryRepo.Latest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to load latest workflow entry: %w", err)
	}
	if latest == nil {
		return nil
	}

	if latest.Action == domainwf.TriggerApprove.String() &&
		latest.ActorID == actorID &&
		latest.FromStatus == currentStatus.String() {
		return fmt.Errorf("%w: %s already approved this request at %s", domainwf.ErrAuthorization, actorID, currentStatus)
	}

	return nil
}
