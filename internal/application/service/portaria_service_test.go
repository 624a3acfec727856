package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

func TestPortariaValues_NameFallback(t *testing.T) {
	req := sampleRequest("a1b2c3d4-e5f6-7890-abcd-ef0123456789", domainwf.StateApproved)

	tests := []struct {
		name    string
		profile *entity.Profile
		want    string
	}{
		{"profile name", &entity.Profile{Name: "Maria Souza", Email: "maria@sefa.pa.gov.br"}, "Maria Souza"},
		{"email local part", &entity.Profile{Email: "jose.alves@sefa.pa.gov.br"}, "jose.alves"},
		{"nothing", &entity.Profile{}, "Servidor Não Identificado"},
		{"no profile", nil, "Servidor Não Identificado"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := PortariaValues(req, tt.profile)
			if values[PlaceholderName] != tt.want {
				t.Errorf("[Nome] = %q, want %q", values[PlaceholderName], tt.want)
			}
		})
	}
}

func TestPortariaValues_Formatting(t *testing.T) {
	req := sampleRequest("a1b2c3d4-e5f6-7890-abcd-ef0123456789", domainwf.StateApproved)
	req.FundingSource = entity.FundingBID

	values := PortariaValues(req, &entity.Profile{Name: "Maria Souza"})

	want := map[string]string{
		PlaceholderID:            "A1B2C3D4",
		PlaceholderDestination:   "Brasília",
		PlaceholderStartDate:     "10/01/2025",
		PlaceholderEndDate:       "15/01/2025",
		PlaceholderFundingSource: "BID",
	}
	for k, v := range want {
		if values[k] != v {
			t.Errorf("%s = %q, want %q", k, values[k], v)
		}
	}
}

func TestRenderPortaria(t *testing.T) {
	values := map[string]string{
		PlaceholderName:        "Maria Souza",
		PlaceholderID:          "A1B2C3D4",
		PlaceholderDestination: "[ID]",
	}

	got := RenderPortaria("Servidor [nome] ([NOME]), matrícula [Id], destino [Destino].", values)
	want := "Servidor Maria Souza (Maria Souza), matrícula A1B2C3D4, destino [ID]."
	if got != want {
		t.Errorf("RenderPortaria() = %q, want %q", got, want)
	}

	if got := RenderPortaria("sem campos", nil); got != "sem campos" {
		t.Errorf("RenderPortaria() without values = %q", got)
	}
}

func TestPortariaService_Generate(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	profiles := newMockProfileRepo(&entity.Profile{ID: "emp-1", Name: "Maria Souza"})

	t.Run("uses configured template", func(t *testing.T) {
		repo := newMockRequestRepo(sampleRequest("a1b2c3d4-e5f6", domainwf.StateApproved))
		settings := &mockSettingRepo{values: map[string]string{
			entity.SettingPortariaTemplate: "Autorizo [Nome] a viajar para [DESTINO] de [Data Início] a [data fim] ([Fonte de Recurso]).",
		}}
		svc := NewPortariaService(repo, profiles, settings, func() time.Time { return now }, &mockLogger{})

		doc, err := svc.Generate(context.Background(), "a1b2c3d4-e5f6")
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		want := "Autorizo Maria Souza a viajar para Brasília de 10/01/2025 a 15/01/2025 (Tesouro)."
		if doc.Content != want {
			t.Errorf("Content = %q, want %q", doc.Content, want)
		}
		if doc.Number != "A1B2C3/2026" || doc.FileName != "Portaria_Viagem_a1b2c3d4.pdf" {
			t.Errorf("Number = %q, FileName = %q", doc.Number, doc.FileName)
		}
	})

	t.Run("falls back to default template", func(t *testing.T) {
		repo := newMockRequestRepo(sampleRequest("req-1", domainwf.StateCompleted))
		logger := &mockLogger{}
		settings := &mockSettingRepo{err: errors.New("no such table")}
		svc := NewPortariaService(repo, profiles, settings, func() time.Time { return now }, logger)

		doc, err := svc.Generate(context.Background(), "req-1")
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		if !strings.Contains(doc.Content, "deslocamento do servidor Maria Souza, matrícula REQ-1, para Brasília") {
			t.Errorf("unexpected content %q", doc.Content)
		}
		if len(logger.errors) != 1 {
			t.Errorf("template load failure should be logged once, got %d", len(logger.errors))
		}
	})

	t.Run("not before approval", func(t *testing.T) {
		repo := newMockRequestRepo(sampleRequest("req-1", domainwf.StateAwaitingAudit))
		svc := NewPortariaService(repo, profiles, &mockSettingRepo{values: map[string]string{}}, nil, &mockLogger{})

		if _, err := svc.Generate(context.Background(), "req-1"); !errors.Is(err, domainwf.ErrInvalidState) {
			t.Errorf("Generate() error = %v, want %v", err, domainwf.ErrInvalidState)
		}
	})

	t.Run("values for unknown request", func(t *testing.T) {
		svc := NewPortariaService(newMockRequestRepo(), profiles, &mockSettingRepo{}, nil, &mockLogger{})
		if _, err := svc.Values(context.Background(), "nope"); !errors.Is(err, domainwf.ErrNotFound) {
			t.Errorf("Values() error = %v, want %v", err, domainwf.ErrNotFound)
		}
	})
}

func TestPortariaService_SetTemplate(t *testing.T) {
	profiles := newMockProfileRepo(
		&entity.Profile{ID: "admin-1", Role: entity.RoleAdmin},
		&entity.Profile{ID: "dad-1", Role: entity.RoleDAD},
	)
	settings := &mockSettingRepo{values: map[string]string{}}
	svc := NewPortariaService(newMockRequestRepo(), profiles, settings, nil, &mockLogger{})
	ctx := context.Background()

	if err := svc.SetTemplate(ctx, "dad-1", "Portaria [ID]"); !errors.Is(err, domainwf.ErrAuthorization) {
		t.Errorf("SetTemplate() by DAD error = %v, want %v", err, domainwf.ErrAuthorization)
	}
	if err := svc.SetTemplate(ctx, "admin-1", "  "); !errors.Is(err, domainwf.ErrValidation) {
		t.Errorf("SetTemplate() with blank template error = %v, want %v", err, domainwf.ErrValidation)
	}
	if err := svc.SetTemplate(ctx, "admin-1", "Portaria [ID]"); err != nil {
		t.Fatalf("SetTemplate() failed: %v", err)
	}
	if got := settings.values[entity.SettingPortariaTemplate]; got != "Portaria [ID]" {
		t.Errorf("stored template = %q", got)
	}
}
