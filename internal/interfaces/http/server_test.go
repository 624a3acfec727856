package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sefapa/sgpd/internal/application/accountability"
	"github.com/sefapa/sgpd/internal/application/alert"
	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/application/service"
	"github.com/sefapa/sgpd/internal/application/workflow"
	"github.com/sefapa/sgpd/internal/domain/deadline"
	"github.com/sefapa/sgpd/internal/domain/entity"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
	"github.com/sefapa/sgpd/internal/infrastructure/document"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/repository"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/sqlite"
	"github.com/sefapa/sgpd/internal/infrastructure/storage"
	"github.com/sefapa/sgpd/migrations"
	"github.com/sefapa/sgpd/pkg/database"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type textExtractor struct{}

func (textExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	return string(data), nil
}

type echoAssistant struct{}

func (echoAssistant) Analyze(ctx context.Context, in port.ConferenceInput) (*port.ConferenceResult, error) {
	return &port.ConferenceResult{RequestID: in.RequestID, Analysis: "Datas conferem com " + in.Destination + ".", Model: "stub"}, nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, _ := time.Parse("2006-01-02", day)
	c.now = t.Add(10 * time.Hour)
}

type testServer struct {
	router *Server
	clock  *fixedClock
	docs   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns: 4,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))

	clock := &fixedClock{}
	clock.Set("2025-01-05")
	policy := deadline.DefaultPolicy()

	requests := repository.NewTravelRequestRepository(db.DB, logger)
	profiles := repository.NewProfileRepository(db.DB, logger)
	notifications := repository.NewNotificationRepository(db.DB, logger)
	settings := repository.NewSettingRepository(db.DB, logger)
	tx := sqlite.NewDB(db.DB, logger)
	workflowLog := service.NewWorkflowLogService(repository.NewWorkflowEntryRepository(db.DB, logger), nopLogger{})

	engine := workflow.NewEngine(requests, profiles, repository.NewAccountabilityRepository(db.DB, logger), workflowLog, tx,
		workflow.WithClock(clock.Now))

	dispatcher := alert.NewDispatcher(requests, profiles, notifications, repository.NewAlertDispatchRepository(db.DB, logger), tx,
		alert.WithClock(clock.Now))
	sweeper := alert.NewSweeper(requests, engine, policy, clock.Now, nopLogger{})

	docsDir := t.TempDir()
	services := Services{
		Requests:       service.NewTravelRequestService(requests, profiles, policy, clock.Now, nopLogger{}),
		Engine:         engine,
		WorkflowLog:    workflowLog,
		Portaria:       service.NewPortariaService(requests, profiles, settings, clock.Now, nopLogger{}),
		Notifications:  service.NewNotificationService(notifications, nil, nopLogger{}),
		Reports:        service.NewReportService(requests, profiles, document.NewXLSXExporter(), policy, clock.Now, nopLogger{}),
		Conference:     service.NewConferenceService(requests, profiles, textExtractor{}, echoAssistant{}, nopLogger{}),
		Profiles:       service.NewProfileService(profiles, clock.Now, nopLogger{}),
		Accountability: accountability.NewService(engine, requests, storage.NewLocalDocumentStore(docsDir, logger), nopLogger{}),
		DailyJob:       alert.NewDailyJob(sweeper, dispatcher, time.Minute, nopLogger{}),
	}

	ctx := context.Background()
	for _, p := range []*entity.Profile{
		{ID: "emp-1", Name: "Maria Souza", Email: "maria@sefa.pa.gov.br", Role: entity.RoleEmployee, Department: "DTI"},
		{ID: "chefe-1", Name: "João Lima", Role: entity.RoleChefia},
		{ID: "sub-1", Name: "Carla Dias", Role: entity.RoleSubsecretario},
		{ID: "dad-1", Name: "Paulo Rocha", Role: entity.RoleDAD},
		{ID: "admin-1", Name: "Admin", Role: entity.RoleAdmin},
	} {
		require.NoError(t, profiles.Upsert(ctx, p))
	}

	return &testServer{
		router: NewServer(DefaultServerConfig(), services, nopLogger{}),
		clock:  clock,
		docs:   docsDir,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, actor string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.serve(t, req, actor)
}

func (s *testServer) upload(t *testing.T, path, actor string, fields map[string]string, fileField string, files map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		part, err := w.CreateFormFile(fileField, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.serve(t, req, actor)
}

func (s *testServer) serve(t *testing.T, req *http.Request, actor string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	rec := httptest.NewRecorder()
	s.router.Router().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestAPI_RequiresActor(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodGet, "/api/v1/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestAPI_FullLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/requests", "emp-1", TravelRequestBody{
		Origin:        "Belém",
		Destination:   "Brasília",
		DepartureDate: "2025-01-10",
		ReturnDate:    "2025-01-15",
		Justification: "Reunião do CONFAZ",
		FundingSource: "tesouro",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	created := decode[entity.TravelRequest](t, env)
	assert.Equal(t, domainwf.StateDraft.String(), created.Status)
	base := "/api/v1/requests/" + created.ID

	rec, _ = s.do(t, http.MethodPost, base+"/submit", "emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, base+"/approve", "emp-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "requester cannot approve")

	rec, _ = s.do(t, http.MethodPost, base+"/reject", "chefe-1", DecisionBody{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reject needs a comment")

	rec, _ = s.do(t, http.MethodPost, base+"/approve", "chefe-1", DecisionBody{ExpectedStatus: domainwf.StateAwaitingAudit.String()})
	assert.Equal(t, http.StatusConflict, rec.Code, "stale expected status")

	for _, approver := range []string{"chefe-1", "sub-1", "dad-1"} {
		rec, env = s.do(t, http.MethodPost, base+"/approve", approver, nil)
		require.Equal(t, http.StatusOK, rec.Code, env.Error)
	}
	result := decode[workflow.TransitionResult](t, env)
	assert.Equal(t, domainwf.StateApproved, result.To)

	rec, env = s.do(t, http.MethodGet, base+"/portaria", "emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	doc := decode[service.PortariaDocument](t, env)
	assert.Contains(t, doc.Content, "Maria Souza")
	assert.Contains(t, doc.Content, "10/01/2025")

	rec, _ = s.upload(t, base+"/accountability", "emp-1", map[string]string{"tickets": "true", "report": "true"}, "files", map[string]string{"bilhetes.pdf": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "accountability is not open before the trip ends")

	s.clock.Set("2025-01-16")
	rec, env = s.do(t, http.MethodPost, "/api/v1/jobs/daily", "emp-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, env = s.do(t, http.MethodPost, "/api/v1/jobs/daily", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	daily := decode[alert.DailyResult](t, env)
	assert.Equal(t, 1, daily.Sweep.Opened)

	rec, env = s.do(t, http.MethodGet, base+"/deadline", "emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	status := decode[deadline.Status](t, env)
	assert.Equal(t, 4, status.DaysRemaining)

	rec, env = s.do(t, http.MethodPost, base+"/conference", "dad-1", ConferenceBody{Text: "Viagem de 10/01 a 15/01"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	analysis := decode[port.ConferenceResult](t, env)
	assert.True(t, strings.HasSuffix(analysis.Analysis, service.ConferenceDisclaimer))

	rec, _ = s.do(t, http.MethodPost, base+"/conference", "emp-1", ConferenceBody{Text: "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/reports/accountability.xlsx", "emp-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/reports/accountability.xlsx", "dad-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	rec, _ = s.upload(t, base+"/accountability", "dad-1",
		map[string]string{"tickets": "true", "report": "true"},
		"files", map[string]string{"bilhetes.pdf": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the requester uploads proofs")
	stored, err := os.ReadDir(s.docs)
	require.NoError(t, err)
	assert.Empty(t, stored, "a refused upload writes nothing")

	rec, _ = s.upload(t, base+"/accountability", "emp-1", map[string]string{"tickets": "true"}, "files", map[string]string{"bilhetes.pdf": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "tickets only is incomplete")

	rec, env = s.upload(t, base+"/accountability", "emp-1",
		map[string]string{"tickets": "true", "report": "true"},
		"files", map[string]string{"bilhetes.pdf": "x", "relatorio.pdf": "y"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	receipt := decode[accountability.Receipt](t, env)
	assert.Equal(t, domainwf.StateCompleted, receipt.Transition.To)
	assert.Len(t, receipt.Documents, 2)
	assert.FileExists(t, filepath.Join(s.docs, receipt.Documents[0]))

	rec, env = s.do(t, http.MethodGet, base+"/history", "emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]entity.WorkflowEntry](t, env)
	require.Len(t, history, 6)
	assert.Equal(t, domainwf.TriggerSubmit.String(), history[0].Action)
	assert.Equal(t, domainwf.TriggerCompleteAccountability.String(), history[5].Action)

	rec, env = s.do(t, http.MethodGet, base+"/permitted", "emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"triggers":[]`)
}

func TestAPI_ReturnAndEditDraft(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodPost, "/api/v1/requests", "emp-1", TravelRequestBody{
		Destination:   "Santarém",
		DepartureDate: "2025-02-01",
		ReturnDate:    "2025-02-03",
		Justification: "Fiscalização",
		FundingSource: "FIPAT",
	})
	created := decode[entity.TravelRequest](t, env)
	base := "/api/v1/requests/" + created.ID

	rec, _ := s.do(t, http.MethodPost, base+"/submit", "emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPut, base, "emp-1", TravelRequestBody{Destination: "Marabá"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "only drafts are editable")

	rec, _ = s.do(t, http.MethodPost, base+"/return", "chefe-1", DecisionBody{Comment: "Ajustar datas"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(t, http.MethodPut, base, "emp-1", TravelRequestBody{
		Destination:   "Santarém",
		DepartureDate: "2025-02-02",
		ReturnDate:    "2025-02-04",
		Justification: "Fiscalização",
		FundingSource: "FIPAT",
	})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, _ = s.do(t, http.MethodPost, base+"/submit", "emp-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/requests?status=AWAITING_DEPT_HEAD", "chefe-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_BadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"bad date", http.MethodPost, "/api/v1/requests", TravelRequestBody{DepartureDate: "10/01/2025"}, http.StatusBadRequest},
		{"unknown request", http.MethodGet, "/api/v1/requests/nope", nil, http.StatusNotFound},
		{"unknown expected status", http.MethodPost, "/api/v1/requests/nope/approve", DecisionBody{ExpectedStatus: "Aprovado"}, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/v1/requests?status=Rascunho", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, tt.method, tt.path, "emp-1", tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestAPI_Profiles(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPut, "/api/v1/profiles/emp-1", "emp-1", service.ProfileInput{Name: "Maria", Role: entity.RoleChefia})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(t, http.MethodPut, "/api/v1/profiles/emp-1", "admin-1", service.ProfileInput{Name: "Maria", Role: entity.RoleChefia})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, env = s.do(t, http.MethodGet, "/api/v1/profiles/emp-1", "emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.RoleChefia, decode[entity.Profile](t, env).Role)

	rec, _ = s.do(t, http.MethodPut, "/api/v1/settings/portaria-template", "admin-1", TemplateBody{Template: "Portaria [ID] de [Nome]"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domainwf.ErrNotFound, http.StatusNotFound},
		{domainwf.ErrValidation, http.StatusBadRequest},
		{domainwf.ErrAuthorization, http.StatusForbidden},
		{domainwf.ErrConcurrentModification, http.StatusConflict},
		{domainwf.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{domainwf.ErrGuardFailed, http.StatusUnprocessableEntity},
		{domainwf.ErrIncompleteSubmission, http.StatusUnprocessableEntity},
		{service.ErrConferenceUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
