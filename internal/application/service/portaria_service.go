package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

// DefaultPortariaTemplate is used when system_settings has no portaria_template
const DefaultPortariaTemplate = "O Secretário de Estado da Fazenda, no uso de suas atribuições... resolve AUTORIZAR o deslocamento do servidor [Nome], matrícula [ID], para [Destino], no período de [Data Início] a [Data Fim], com ônus para [Fonte de Recurso]."

// Portaria placeholders
const (
	PlaceholderName          = "[Nome]"
	PlaceholderID            = "[ID]"
	PlaceholderDestination   = "[Destino]"
	PlaceholderStartDate     = "[Data Início]"
	PlaceholderEndDate       = "[Data Fim]"
	PlaceholderFundingSource = "[Fonte de Recurso]"
)

const brDateLayout = "02/01/2006"

// PortariaDocument is the rendered travel authorization text. Layout and PDF rendering happen elsewhere.
type PortariaDocument struct {
	RequestID   string    `json:"request_id"`
	Number      string    `json:"number"`
	FileName    string    `json:"file_name"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PortariaService produces the travel authorization (portaria) of an approved request
type PortariaService interface {
	// Values returns the substitution value of every placeholder for a request
	Values(ctx context.Context, requestID string) (map[string]string, error)

	// Generate renders the configured template for an approved request
	Generate(ctx context.Context, requestID string) (*PortariaDocument, error)

	// SetTemplate replaces the stored template. Reserved to ADMIN.
	SetTemplate(ctx context.Context, actorID, template string) error
}

type portariaServiceImpl struct {
	requestRepo port.TravelRequestRepository
	profileRepo port.ProfileRepository
	settingRepo port.SettingRepository
	now         func() time.Time
	logger      Logger
}

// NewPortariaService creates a new PortariaService
func NewPortariaService(
	requestRepo port.TravelRequestRepository,
	profileRepo port.ProfileRepository,
	settingRepo port.SettingRepository,
	now func() time.Time,
	logger Logger,
) PortariaService {
	if now == nil {
		now = time.Now
	}
	return &portariaServiceImpl{
		requestRepo: requestRepo,
		profileRepo: profileRepo,
		settingRepo: settingRepo,
		now:         now,
		logger:      logger,
	}
}

func (s *portariaServiceImpl) Values(ctx context.Context, requestID string) (map[string]string, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get travel request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: travel request %s", domainwf.ErrNotFound, requestID)
	}

	profile, err := s.profileRepo.GetByID(ctx, req.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("get requester: %w", err)
	}

	return PortariaValues(req, profile), nil
}

func (s *portariaServiceImpl) Generate(ctx context.Context, requestID string) (*PortariaDocument, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get travel request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: travel request %s", domainwf.ErrNotFound, requestID)
	}
	if !domainwf.State(req.Status).IsPostApproval() {
		return nil, fmt.Errorf("%w: portaria is only issued for approved requests, %s is %s",
			domainwf.ErrInvalidState, requestID, req.Status)
	}

	profile, err := s.profileRepo.GetByID(ctx, req.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("get requester: %w", err)
	}

	template, err := s.settingRepo.Get(ctx, entity.SettingPortariaTemplate)
	if err != nil || strings.TrimSpace(template) == "" {
		if err != nil {
			s.logger.Error("Failed to load portaria template, using fallback", "error", err)
		}
		template = DefaultPortariaTemplate
	}

	now := s.now()
	doc := &PortariaDocument{
		RequestID:   req.ID,
		Number:      fmt.Sprintf("%s/%d", shortID(req.ID, 6), now.Year()),
		FileName:    fmt.Sprintf("Portaria_Viagem_%s.pdf", prefix(req.ID, 8)),
		Content:     RenderPortaria(template, PortariaValues(req, profile)),
		GeneratedAt: now,
	}

	s.logger.Info("Portaria generated", "request_id", req.ID, "number", doc.Number)
	return doc, nil
}

func (s *portariaServiceImpl) SetTemplate(ctx context.Context, actorID, template string) error {
	actor, err := s.profileRepo.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("get actor: %w", err)
	}
	if actor == nil || actor.Role != entity.RoleAdmin {
		return fmt.Errorf("%w: only %s may change the portaria template", domainwf.ErrAuthorization, entity.RoleAdmin)
	}
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("%w: template is empty", domainwf.ErrValidation)
	}

	if err := s.settingRepo.Set(ctx, entity.SettingPortariaTemplate, template); err != nil {
		return fmt.Errorf("save portaria template: %w", err)
	}

	s.logger.Info("Portaria template updated", "actor_id", actorID, "length", len(template))
	return nil
}

// PortariaValues maps each placeholder to its value for a request and its requester
func PortariaValues(req *entity.TravelRequest, requester *entity.Profile) map[string]string {
	funding := entity.FundingSourceLabels[req.FundingSource]
	if funding == "" {
		funding = req.FundingSource
	}

	return map[string]string{
		PlaceholderName:          requester.DisplayName(),
		PlaceholderID:            shortID(req.ID, 8),
		PlaceholderDestination:   req.Destination,
		PlaceholderStartDate:     formatBRDate(req.DepartureDate),
		PlaceholderEndDate:       formatBRDate(req.ReturnDate),
		PlaceholderFundingSource: funding,
	}
}

// RenderPortaria replaces every placeholder occurrence in one pass, ignoring case.
// Substituted values are never scanned again.
func RenderPortaria(template string, values map[string]string) string {
	if len(values) == 0 {
		return template
	}

	patterns := make([]string, 0, len(values))
	lookup := make(map[string]string, len(values))
	for placeholder, value := range values {
		patterns = append(patterns, regexp.QuoteMeta(placeholder))
		lookup[strings.ToLower(placeholder)] = value
	}
	// longest first so a placeholder never matches inside a longer one
	sort.Slice(patterns, func(i, j int) bool { return len(patterns[i]) > len(patterns[j]) })

	re := regexp.MustCompile(`(?i)` + strings.Join(patterns, "|"))
	return re.ReplaceAllStringFunc(template, func(match string) string {
		return lookup[strings.ToLower(match)]
	})
}

func shortID(id string, n int) string {
	return strings.ToUpper(prefix(id, n))
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatBRDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(brDateLayout)
}
