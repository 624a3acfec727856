package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// DefaultMaxPages bounds how much of a trip report is read
const DefaultMaxPages = 30

// PDFExtractor implements port.ReportTextExtractor with MuPDF
type PDFExtractor struct {
	maxPages int
	logger   *zap.Logger
}

// NewPDFExtractor creates a new PDF text extractor. maxPages <= 0 uses DefaultMaxPages.
func NewPDFExtractor(maxPages int, logger *zap.Logger) *PDFExtractor {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &PDFExtractor{
		maxPages: maxPages,
		logger:   logger,
	}
}

// ExtractText returns the text of every page, pages separated by a blank line
func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty document")
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > e.maxPages {
		e.logger.Warn("Trip report truncated",
			zap.Int("total_pages", pageCount),
			zap.Int("max_pages", e.maxPages))
		pageCount = e.maxPages
	}

	pages := make([]string, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := doc.Text(pageNum)
		if err != nil {
			e.logger.Warn("Failed to extract page text",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	e.logger.Debug("PDF text extracted",
		zap.Int("pages", pageCount),
		zap.Int("pages_with_text", len(pages)))

	return strings.Join(pages, "\n\n"), nil
}
