package port

import (
	"context"
	"time"
)

// Messenger delivers an already persisted notification to an outbound channel
type Messenger interface {
	SendText(ctx context.Context, recipientID, content string) error
}

// ReportTextExtractor pulls plain text out of an uploaded trip report
type ReportTextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// ConferenceInput is what the DAD assistant compares
type ConferenceInput struct {
	RequestID     string
	Destination   string
	DepartureDate time.Time
	ReturnDate    time.Time
	ReportText    string
}

// ConferenceResult is the advisory analysis returned to the DAD reviewer
type ConferenceResult struct {
	RequestID string    `json:"request_id"`
	Analysis  string    `json:"analysis"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// ConferenceAssistant compares a trip report with the approved request
type ConferenceAssistant interface {
	Analyze(ctx context.Context, in ConferenceInput) (*ConferenceResult, error)
}

// AccountabilityReportRow is one line of the accountability status spreadsheet
type AccountabilityReportRow struct {
	RequestID      string
	RequesterName  string
	Department     string
	Destination    string
	ReturnDate     time.Time
	DueDate        time.Time
	DaysRemaining  int
	Classification string
	Status         string
}

// SpreadsheetExporter renders report rows into a workbook
type SpreadsheetExporter interface {
	ExportAccountability(ctx context.Context, rows []AccountabilityReportRow) ([]byte, error)
}

// DocumentStore keeps accountability proof files. Paths are relative to the store root.
type DocumentStore interface {
	Save(ctx context.Context, requestID, fileName string, content []byte) (string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}
