package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

type mockRequestRepo struct {
	requests map[string]*entity.TravelRequest
	listFunc func(filter entity.TravelRequestFilter) ([]*entity.TravelRequest, error)
}

func newMockRequestRepo(reqs ...*entity.TravelRequest) *mockRequestRepo {
	m := &mockRequestRepo{requests: make(map[string]*entity.TravelRequest)}
	for _, r := range reqs {
		m.requests[r.ID] = r
	}
	return m
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.TravelRequest) error {
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*entity.TravelRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (m *mockRequestRepo) UpdateDraft(ctx context.Context, req *entity.TravelRequest) error {
	stored, ok := m.requests[req.ID]
	if !ok || stored.Status != domainwf.StateDraft.String() {
		return domainwf.ErrConcurrentModification
	}
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id, expected, newStatus string) error {
	return errors.New("not used")
}

func (m *mockRequestRepo) ListByStatusAndReturnDate(ctx context.Context, status string, returnDate time.Time) ([]*entity.TravelRequest, error) {
	return nil, nil
}

func (m *mockRequestRepo) ListByStatusReturnedBefore(ctx context.Context, status string, before time.Time) ([]*entity.TravelRequest, error) {
	return nil, nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter entity.TravelRequestFilter) ([]*entity.TravelRequest, error) {
	if m.listFunc != nil {
		return m.listFunc(filter)
	}
	var out []*entity.TravelRequest
	for _, r := range m.requests {
		if filter.Status == "" || r.Status == filter.Status {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockProfileRepo struct {
	profiles map[string]*entity.Profile
	lookups  int
}

func newMockProfileRepo(profiles ...*entity.Profile) *mockProfileRepo {
	m := &mockProfileRepo{profiles: make(map[string]*entity.Profile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	m.lookups++
	return m.profiles[id], nil
}

func (m *mockProfileRepo) Upsert(ctx context.Context, p *entity.Profile) error {
	m.profiles[p.ID] = p
	return nil
}

type mockEntryRepo struct {
	entries []*entity.WorkflowEntry
}

func (m *mockEntryRepo) Append(ctx context.Context, entry *entity.WorkflowEntry) error {
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockEntryRepo) ListByRequestID(ctx context.Context, requestID string) ([]*entity.WorkflowEntry, error) {
	var out []*entity.WorkflowEntry
	for _, e := range m.entries {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEntryRepo) Latest(ctx context.Context, requestID string) (*entity.WorkflowEntry, error) {
	entries, _ := m.ListByRequestID(ctx, requestID)
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[len(entries)-1], nil
}

type mockSettingRepo struct {
	values map[string]string
	err    error
}

func (m *mockSettingRepo) Get(ctx context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.values[key], nil
}

func (m *mockSettingRepo) Set(ctx context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

type mockNotificationRepo struct {
	notifications []*entity.Notification
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	n.ID = int64(len(m.notifications) + 1)
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*entity.Notification, error) {
	var out []*entity.Notification
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) CountByRequestID(ctx context.Context, requestID string) (int, error) {
	return len(m.notifications), nil
}

type mockMessenger struct {
	sent []string
	err  error
}

func (m *mockMessenger) SendText(ctx context.Context, recipientID, content string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, recipientID+": "+content)
	return nil
}

type mockExtractor struct {
	text string
	err  error
}

func (m *mockExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	return m.text, m.err
}

type mockAssistant struct {
	analysis string
	input    *port.ConferenceInput
}

func (m *mockAssistant) Analyze(ctx context.Context, in port.ConferenceInput) (*port.ConferenceResult, error) {
	m.input = &in
	return &port.ConferenceResult{RequestID: in.RequestID, Analysis: m.analysis, Model: "gpt-4o-mini"}, nil
}

type mockExporter struct {
	rows []port.AccountabilityReportRow
}

func (m *mockExporter) ExportAccountability(ctx context.Context, rows []port.AccountabilityReportRow) ([]byte, error) {
	m.rows = rows
	return []byte("xlsx"), nil
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleRequest(id string, status domainwf.State) *entity.TravelRequest {
	return &entity.TravelRequest{
		ID:            id,
		RequesterID:   "emp-1",
		Origin:        "Belém",
		Destination:   "Brasília",
		DepartureDate: date("2025-01-10"),
		ReturnDate:    date("2025-01-15"),
		Justification: "Reunião do CONFAZ",
		FundingSource: entity.FundingTesouro,
		Status:        status.String(),
	}
}
