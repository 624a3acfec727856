package service

import (
	"context"
	"testing"
	"time"

	"github.com/sefapa/sgpd/internal/domain/deadline"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

func TestReportService_AccountabilityRows(t *testing.T) {
	open := sampleRequest("req-open", domainwf.StateAwaitingAccountability)
	late := sampleRequest("req-late", domainwf.StateOverdue)
	late.ReturnDate = date("2025-01-10")
	draft := sampleRequest("req-draft", domainwf.StateDraft)

	profiles := newMockProfileRepo(&entity.Profile{ID: "emp-1", Name: "Maria Souza", Department: "DTI"})
	exporter := &mockExporter{}
	svc := NewReportService(
		newMockRequestRepo(open, late, draft),
		profiles,
		exporter,
		deadline.DefaultPolicy(),
		func() time.Time { return date("2025-01-18") },
		&mockLogger{},
	)

	data, err := svc.ExportAccountability(context.Background())
	if err != nil {
		t.Fatalf("ExportAccountability() failed: %v", err)
	}
	if string(data) != "xlsx" {
		t.Errorf("unexpected export %q", data)
	}

	rows := exporter.rows
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].RequestID != "req-late" || rows[0].DaysRemaining != -3 || rows[0].Classification != "OVERDUE" {
		t.Errorf("first row = %+v, want the overdue request", rows[0])
	}
	if rows[1].RequestID != "req-open" || rows[1].DaysRemaining != 2 {
		t.Errorf("second row = %+v", rows[1])
	}
	if rows[1].RequesterName != "Maria Souza" || rows[1].Department != "DTI" || rows[1].Status != "Aguardando Prestacao de Contas" {
		t.Errorf("row details = %+v", rows[1])
	}
	if profiles.lookups != 1 {
		t.Errorf("profile lookups = %d, want 1 (cached)", profiles.lookups)
	}
}
