package document

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/sefapa/sgpd/internal/application/port"
)

const (
	accountabilitySheet = "Prestação de Contas"
	dateLayout          = "02/01/2006"
)

var accountabilityHeaders = []string{
	"Solicitação", "Servidor", "Setor", "Destino", "Retorno", "Prazo", "Dias Restantes", "Situação", "Status",
}

// classificationLabels maps deadline classifications to the sheet wording
var classificationLabels = map[string]string{
	"ON_TIME":  "No prazo",
	"NEAR_DUE": "Prazo próximo",
	"OVERDUE":  "Em atraso",
}

// XLSXExporter implements port.SpreadsheetExporter
type XLSXExporter struct{}

// NewXLSXExporter creates a new spreadsheet exporter
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// ExportAccountability writes one row per request under a bold header row
func (e *XLSXExporter) ExportAccountability(ctx context.Context, rows []port.AccountabilityReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", accountabilitySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	row, err := writeHeader(f, accountabilitySheet, 0, accountabilityHeaders)
	if err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	overdueStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "C00000"},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row++

		values := []interface{}{
			r.RequestID,
			r.RequesterName,
			r.Department,
			r.Destination,
			r.ReturnDate.Format(dateLayout),
			r.DueDate.Format(dateLayout),
			r.DaysRemaining,
			classificationLabel(r.Classification),
			r.Status,
		}
		for idx, value := range values {
			if err := writeColumn(f, accountabilitySheet, idx+1, row, value); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}

		if r.Classification == "OVERDUE" {
			cell, err := excelize.CoordinatesToCellName(8, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStyle(accountabilitySheet, cell, cell, overdueStyle); err != nil {
				return nil, fmt.Errorf("style row %d: %w", row, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func classificationLabel(c string) string {
	if label, ok := classificationLabels[c]; ok {
		return label
	}
	return c
}

func writeColumn(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string) (int, error) {
	row++
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
	})
	if err != nil {
		return row, err
	}

	cellFirst, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return row, err
	}
	cellLast, err := excelize.CoordinatesToCellName(len(headers), row)
	if err != nil {
		return row, err
	}
	if err := f.SetCellStyle(sheet, cellFirst, cellLast, style); err != nil {
		return row, err
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return row, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		return row, err
	}

	for idx, value := range headers {
		if err := writeColumn(f, sheet, idx+1, row, value); err != nil {
			return row, err
		}
	}
	return row, nil
}
