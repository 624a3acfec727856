package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/deadline"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

const reportPageSize = 200

// ReportService builds the accountability follow-up report for the DAD
type ReportService interface {
	// AccountabilityRows lists open and overdue accountabilities, most urgent first
	AccountabilityRows(ctx context.Context) ([]port.AccountabilityReportRow, error)

	// ExportAccountability renders AccountabilityRows as a spreadsheet
	ExportAccountability(ctx context.Context) ([]byte, error)
}

type reportServiceImpl struct {
	requestRepo port.TravelRequestRepository
	profileRepo port.ProfileRepository
	exporter    port.SpreadsheetExporter
	policy      deadline.Policy
	now         func() time.Time
	logger      Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	requestRepo port.TravelRequestRepository,
	profileRepo port.ProfileRepository,
	exporter port.SpreadsheetExporter,
	policy deadline.Policy,
	now func() time.Time,
	logger Logger,
) ReportService {
	if now == nil {
		now = time.Now
	}
	return &reportServiceImpl{
		requestRepo: requestRepo,
		profileRepo: profileRepo,
		exporter:    exporter,
		policy:      policy,
		now:         now,
		logger:      logger,
	}
}

func (s *reportServiceImpl) AccountabilityRows(ctx context.Context) ([]port.AccountabilityReportRow, error) {
	now := s.now()
	profiles := make(map[string]*entity.Profile)
	var rows []port.AccountabilityReportRow

	for _, status := range []domainwf.State{domainwf.StateAwaitingAccountability, domainwf.StateOverdue} {
		requests, err := s.listAll(ctx, status)
		if err != nil {
			return nil, err
		}

		for _, req := range requests {
			profile, ok := profiles[req.RequesterID]
			if !ok {
				profile, err = s.profileRepo.GetByID(ctx, req.RequesterID)
				if err != nil {
					return nil, fmt.Errorf("get requester %s: %w", req.RequesterID, err)
				}
				profiles[req.RequesterID] = profile
			}

			d := s.policy.Evaluate(req.ReturnDate, now)
			row := port.AccountabilityReportRow{
				RequestID:      req.ID,
				RequesterName:  profile.DisplayName(),
				Destination:    req.Destination,
				ReturnDate:     d.ReturnDate,
				DueDate:        d.DueDate,
				DaysRemaining:  d.DaysRemaining,
				Classification: string(d.Classification),
				Status:         domainwf.State(req.Status).Label(),
			}
			if profile != nil {
				row.Department = profile.Department
			}
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DaysRemaining != rows[j].DaysRemaining {
			return rows[i].DaysRemaining < rows[j].DaysRemaining
		}
		return rows[i].RequestID < rows[j].RequestID
	})

	return rows, nil
}

func (s *reportServiceImpl) ExportAccountability(ctx context.Context) ([]byte, error) {
	rows, err := s.AccountabilityRows(ctx)
	if err != nil {
		return nil, err
	}

	data, err := s.exporter.ExportAccountability(ctx, rows)
	if err != nil {
		s.logger.Error("Failed to export accountability report", "rows", len(rows), "error", err)
		return nil, fmt.Errorf("export accountability report: %w", err)
	}

	s.logger.Info("Accountability report exported", "rows", len(rows), "bytes", len(data))
	return data, nil
}

func (s *reportServiceImpl) listAll(ctx context.Context, status domainwf.State) ([]*entity.TravelRequest, error) {
	var all []*entity.TravelRequest
	for offset := 0; ; offset += reportPageSize {
		page, err := s.requestRepo.List(ctx, entity.TravelRequestFilter{
			Status: status.String(),
			Limit:  reportPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s requests: %w", status, err)
		}
		all = append(all, page...)
		if len(page) < reportPageSize {
			return all, nil
		}
	}
}
