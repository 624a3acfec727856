package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// ConferenceDisclaimer closes every conference analysis
const ConferenceDisclaimer = "Esta análise é assistiva. A decisão final de homologação é humana."

// ErrConferenceUnavailable is returned when no assistant is configured
var ErrConferenceUnavailable = errors.New("conference assistant is not configured")

// ConferenceRequest asks for an assisted check of a trip report. PDF wins over Text when both are set.
type ConferenceRequest struct {
	RequestID string
	ActorID   string
	PDF       []byte
	Text      string
}

// ConferenceService is the DAD conference assistant. Its output is advisory and never changes status.
type ConferenceService interface {
	Review(ctx context.Context, in ConferenceRequest) (*port.ConferenceResult, error)
}

type conferenceServiceImpl struct {
	requestRepo port.TravelRequestRepository
	profileRepo port.ProfileRepository
	extractor   port.ReportTextExtractor
	assistant   port.ConferenceAssistant
	logger      Logger
}

// NewConferenceService creates a new ConferenceService
func NewConferenceService(
	requestRepo port.TravelRequestRepository,
	profileRepo port.ProfileRepository,
	extractor port.ReportTextExtractor,
	assistant port.ConferenceAssistant,
	logger Logger,
) ConferenceService {
	return &conferenceServiceImpl{
		requestRepo: requestRepo,
		profileRepo: profileRepo,
		extractor:   extractor,
		assistant:   assistant,
		logger:      logger,
	}
}

func (s *conferenceServiceImpl) Review(ctx context.Context, in ConferenceRequest) (*port.ConferenceResult, error) {
	if s.assistant == nil {
		return nil, ErrConferenceUnavailable
	}

	actor, err := s.profileRepo.GetByID(ctx, in.ActorID)
	if err != nil {
		return nil, fmt.Errorf("get actor: %w", err)
	}
	if actor == nil || actor.Role != entity.RoleDAD {
		return nil, fmt.Errorf("%w: conference is reserved to %s", domainwf.ErrAuthorization, entity.RoleDAD)
	}

	req, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, fmt.Errorf("get travel request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: travel request %s", domainwf.ErrNotFound, in.RequestID)
	}
	switch domainwf.State(req.Status) {
	case domainwf.StateAwaitingAccountability, domainwf.StateOverdue, domainwf.StateCompleted:
	default:
		return nil, fmt.Errorf("%w: request %s is %s, no trip report to check", domainwf.ErrInvalidState, req.ID, req.Status)
	}

	text := in.Text
	if len(in.PDF) > 0 {
		if s.extractor == nil {
			return nil, fmt.Errorf("report text extractor is not configured")
		}
		text, err = s.extractor.ExtractText(ctx, in.PDF)
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable trip report: %v", domainwf.ErrValidation, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: trip report text is empty", domainwf.ErrValidation)
	}

	result, err := s.assistant.Analyze(ctx, port.ConferenceInput{
		RequestID:     req.ID,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		ReportText:    text,
	})
	if err != nil {
		s.logger.Error("Conference analysis failed", "request_id", req.ID, "error", err)
		return nil, fmt.Errorf("conference analysis: %w", err)
	}

	result.Analysis = WithDisclaimer(result.Analysis)
	s.logger.Info("Conference analysis completed", "request_id", req.ID, "actor_id", in.ActorID, "model", result.Model)
	return result, nil
}

// WithDisclaimer makes sure the analysis ends with ConferenceDisclaimer
func WithDisclaimer(analysis string) string {
	trimmed := strings.TrimSpace(analysis)
	if strings.HasSuffix(trimmed, ConferenceDisclaimer) {
		return trimmed
	}
	if trimmed == "" {
		return ConferenceDisclaimer
	}
	return trimmed + "\n\n" + ConferenceDisclaimer
}
