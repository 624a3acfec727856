package document

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sefapa/sgpd/internal/application/port"
)

func TestXLSXExporter_ExportAccountability(t *testing.T) {
	rows := []port.AccountabilityReportRow{
		{
			RequestID:      "req-late",
			RequesterName:  "Maria Souza",
			Department:     "DTI",
			Destination:    "Brasília",
			ReturnDate:     time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			DueDate:        time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			DaysRemaining:  -3,
			Classification: "OVERDUE",
			Status:         "Em Atraso",
		},
		{
			RequestID:      "req-open",
			RequesterName:  "joao",
			Destination:    "Santarém",
			ReturnDate:     time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			DueDate:        time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
			DaysRemaining:  2,
			Classification: "NEAR_DUE",
			Status:         "Aguardando Prestacao de Contas",
		},
	}

	data, err := NewXLSXExporter().ExportAccountability(context.Background(), rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(accountabilitySheet)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, accountabilityHeaders, got[0])
	assert.Equal(t, []string{"req-late", "Maria Souza", "DTI", "Brasília", "10/01/2025", "15/01/2025", "-3", "Em atraso", "Em Atraso"}, got[1])
	assert.Equal(t, "Prazo próximo", got[2][7])
	assert.Equal(t, "", got[2][2])
}

func TestXLSXExporter_EmptyReport(t *testing.T) {
	data, err := NewXLSXExporter().ExportAccountability(context.Background(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(accountabilitySheet)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
