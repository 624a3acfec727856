// Package accountability stores the proof documents of a finished trip and closes the request.
package accountability

import (
	"context"
	"fmt"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/application/workflow"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// Logger is the logging surface used here
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Upload is one file sent with the accountability
type Upload struct {
	Name    string
	Content []byte
}

// Submission is the requester's proof package
type Submission struct {
	RequestID string
	ActorID   string
	Checklist entity.AccountabilityChecklist
	Files     []Upload
}

// Receipt is returned once the request is COMPLETED
type Receipt struct {
	Transition *workflow.TransitionResult `json:"transition"`
	Documents  []string                   `json:"documents"`
}

// Service saves uploads and fires COMPLETE_ACCOUNTABILITY with the stored file count
type Service struct {
	engine   workflow.Engine
	requests port.TravelRequestRepository
	store    port.DocumentStore
	logger   Logger
}

// NewService creates a new accountability service
func NewService(engine workflow.Engine, requests port.TravelRequestRepository, store port.DocumentStore, logger Logger) *Service {
	return &Service{
		engine:   engine,
		requests: requests,
		store:    store,
		logger: logger,
	}
}

// Submit stores the files, then completes the accountability. Only the requester may
// upload, and only while accountability is open. When the transition is refused the
// stored files are removed again.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	req, err := s.requests.GetByID(ctx, sub.RequestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", domainwf.ErrNotFound, sub.RequestID)
	}
	if req.RequesterID != sub.ActorID {
		return nil, fmt.Errorf("%w: only the requester submits the accountability", domainwf.ErrAuthorization)
	}

	state := domainwf.State(req.Status)
	if state != domainwf.StateAwaitingAccountability && state != domainwf.StateOverdue {
		return nil, fmt.Errorf("%w: cannot fire %s from %s", domainwf.ErrInvalidTransition, domainwf.TriggerCompleteAccountability, state)
	}

	stored := make([]string, 0, len(sub.Files))
	for _, f := range sub.Files {
		if len(f.Content) == 0 {
			continue
		}
		path, err := s.store.Save(ctx, sub.RequestID, f.Name, f.Content)
		if err != nil {
			s.cleanup(ctx, sub.RequestID, stored)
			return nil, fmt.Errorf("store %s: %w", f.Name, err)
		}
		stored = append(stored, path)
	}

	result, err := s.engine.CompleteAccountability(ctx, workflow.Completion{
		RequestID:       sub.RequestID,
		ActorID:         sub.ActorID,
		Checklist:       sub.Checklist,
		AttachmentCount: len(stored),
	})
	if err != nil {
		s.cleanup(ctx, sub.RequestID, stored)
		return nil, err
	}

	s.logger.Info("Accountability documents stored", "request_id", sub.RequestID, "documents", len(stored))
	return &Receipt{Transition: result, Documents: stored}, nil
}

func (s *Service) cleanup(ctx context.Context, requestID string, paths []string) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range paths {
		if err := s.store.Delete(ctx, p); err != nil {
			s.logger.Error("Failed to remove orphaned document", "request_id", requestID, "path", p, "error", err)
		}
	}
}
