package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/deadline"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TravelRequestInput carries the requester-editable fields of a request
type TravelRequestInput struct {
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureDate  time.Time `json:"departure_date"`
	ReturnDate     time.Time `json:"return_date"`
	Justification  string    `json:"justification"`
	TransportType  string    `json:"transport_type"`
	Itinerary      string    `json:"itinerary"`
	FundingSource  string    `json:"funding_source"`
	EstimatedValue float64   `json:"estimated_value"`
}

// TravelRequestService manages travel requests outside the status lifecycle
type TravelRequestService interface {
	// Create stores a new request in DRAFT for the requester
	Create(ctx context.Context, requesterID string, in TravelRequestInput) (*entity.TravelRequest, error)

	// Get returns a request or ErrNotFound
	Get(ctx context.Context, id string) (*entity.TravelRequest, error)

	// UpdateDraft lets the requester edit the request while it is still a draft
	UpdateDraft(ctx context.Context, actorID, id string, in TravelRequestInput) (*entity.TravelRequest, error)

	List(ctx context.Context, filter entity.TravelRequestFilter) ([]*entity.TravelRequest, error)

	// Deadline evaluates the accountability deadline of an approved request
	Deadline(ctx context.Context, id string) (*deadline.Status, error)
}

type travelRequestServiceImpl struct {
	requestRepo port.TravelRequestRepository
	profileRepo port.ProfileRepository
	policy      deadline.Policy
	now         func() time.Time
	logger      Logger
}

// NewTravelRequestService creates a new TravelRequestService
func NewTravelRequestService(
	requestRepo port.TravelRequestRepository,
	profileRepo port.ProfileRepository,
	policy deadline.Policy,
	now func() time.Time,
	logger Logger,
) TravelRequestService {
	if now == nil {
		now = time.Now
	}
	return &travelRequestServiceImpl{
		requestRepo: requestRepo,
		profileRepo: profileRepo,
		policy:      policy,
		now:         now,
		logger:      logger,
	}
}

func (s *travelRequestServiceImpl) Create(ctx context.Context, requesterID string, in TravelRequestInput) (*entity.TravelRequest, error) {
	profile, err := s.profileRepo.GetByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("get requester: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: unknown requester %s", domainwf.ErrAuthorization, requesterID)
	}

	req := &entity.TravelRequest{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		Status:      domainwf.StateDraft.String(),
	}
	applyInput(req, in)
	if err := validateDraft(req); err != nil {
		return nil, err
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create travel request", "requester_id", requesterID, "error", err)
		return nil, fmt.Errorf("create travel request: %w", err)
	}

	s.logger.Info("Travel request created", "id", req.ID, "requester_id", requesterID, "destination", req.Destination)
	return req, nil
}

func (s *travelRequestServiceImpl) Get(ctx context.Context, id string) (*entity.TravelRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get travel request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: travel request %s", domainwf.ErrNotFound, id)
	}
	return req, nil
}

func (s *travelRequestServiceImpl) UpdateDraft(ctx context.Context, actorID, id string, in TravelRequestInput) (*entity.TravelRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != actorID {
		return nil, fmt.Errorf("%w: only the requester may edit request %s", domainwf.ErrAuthorization, id)
	}
	if req.Status != domainwf.StateDraft.String() {
		return nil, fmt.Errorf("%w: request %s is %s, only drafts are editable", domainwf.ErrInvalidTransition, id, req.Status)
	}

	applyInput(req, in)
	if err := validateDraft(req); err != nil {
		return nil, err
	}

	// zero rows here means the draft was submitted meanwhile
	if err := s.requestRepo.UpdateDraft(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Travel request draft updated", "id", id)
	return req, nil
}

func (s *travelRequestServiceImpl) List(ctx context.Context, filter entity.TravelRequestFilter) ([]*entity.TravelRequest, error) {
	if filter.Status != "" && !domainwf.State(filter.Status).IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domainwf.ErrValidation, filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.requestRepo.List(ctx, filter)
}

func (s *travelRequestServiceImpl) Deadline(ctx context.Context, id string) (*deadline.Status, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domainwf.State(req.Status).IsPostApproval() {
		return nil, fmt.Errorf("%w: request %s has no accountability deadline while %s", domainwf.ErrValidation, id, req.Status)
	}

	status := s.policy.Evaluate(req.ReturnDate, s.now())
	return &status, nil
}

func applyInput(req *entity.TravelRequest, in TravelRequestInput) {
	req.Origin = strings.TrimSpace(in.Origin)
	req.Destination = strings.TrimSpace(in.Destination)
	req.DepartureDate = in.DepartureDate
	req.ReturnDate = in.ReturnDate
	req.Justification = strings.TrimSpace(in.Justification)
	req.TransportType = strings.TrimSpace(in.TransportType)
	req.Itinerary = strings.TrimSpace(in.Itinerary)
	req.FundingSource = strings.ToUpper(strings.TrimSpace(in.FundingSource))
	req.EstimatedValue = in.EstimatedValue
}

// validateDraft checks what can be checked on an incomplete draft; completeness is enforced on submit
func validateDraft(req *entity.TravelRequest) error {
	var problems []string
	if !req.DatesInOrder() {
		problems = append(problems, "return_date before departure_date")
	}
	if req.FundingSource != "" && !entity.IsValidFundingSource(req.FundingSource) {
		problems = append(problems, fmt.Sprintf("unknown funding_source %q", req.FundingSource))
	}
	if req.EstimatedValue < 0 {
		problems = append(problems, "negative estimated_value")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domainwf.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
