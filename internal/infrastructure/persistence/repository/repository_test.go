package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sefapa/sgpd/internal/domain/entity"
	"github.com/sefapa/sgpd/internal/domain/workflow"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/sqlite"
	"github.com/sefapa/sgpd/migrations"
	"github.com/sefapa/sgpd/pkg/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))
	return db.DB
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func seedRequest(t *testing.T, db *sql.DB, id, status, returnOn string) *entity.TravelRequest {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	require.NoError(t, NewProfileRepository(db, logger).Upsert(ctx, &entity.Profile{
		ID: "emp-1", Name: "Maria Souza", Email: "maria@sefa.pa.gov.br", Role: entity.RoleEmployee,
	}))

	req := &entity.TravelRequest{
		ID:            id,
		RequesterID:   "emp-1",
		Origin:        "Belém",
		Destination:   "Brasília",
		DepartureDate: day("2025-01-10"),
		ReturnDate:    day(returnOn),
		Justification: "Reunião do CONFAZ",
		FundingSource: entity.FundingTesouro,
		Status:        status,
	}
	require.NoError(t, NewTravelRequestRepository(db, logger).Create(ctx, req))
	return req
}

func TestTravelRequestRepository_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewTravelRequestRepository(db, zap.NewNop())
	ctx := context.Background()

	seedRequest(t, db, "req-1", workflow.StateDraft.String(), "2025-01-15")

	got, err := repo.GetByID(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Brasília", got.Destination)
	assert.Equal(t, day("2025-01-10"), got.DepartureDate)
	assert.Equal(t, day("2025-01-15"), got.ReturnDate)
	assert.Equal(t, workflow.StateDraft.String(), got.Status)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTravelRequestRepository_UpdateStatusIsConditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewTravelRequestRepository(db, zap.NewNop())
	ctx := context.Background()

	seedRequest(t, db, "req-1", workflow.StateAwaitingDeptHead.String(), "2025-01-15")

	err := repo.UpdateStatus(ctx, "req-1", workflow.StateAwaitingDeptHead.String(), workflow.StateAwaitingDeputySecretary.String())
	require.NoError(t, err)

	// second writer still believes the request is at the first stage
	err = repo.UpdateStatus(ctx, "req-1", workflow.StateAwaitingDeptHead.String(), workflow.StateRejected.String())
	assert.True(t, errors.Is(err, workflow.ErrConcurrentModification), "got %v", err)

	got, err := repo.GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateAwaitingDeputySecretary.String(), got.Status)
}

func TestTravelRequestRepository_UpdateDraftOnlyInDraft(t *testing.T) {
	db := newTestDB(t)
	repo := NewTravelRequestRepository(db, zap.NewNop())
	ctx := context.Background()

	req := seedRequest(t, db, "req-1", workflow.StateDraft.String(), "2025-01-15")
	req.Destination = "São Paulo"
	require.NoError(t, repo.UpdateDraft(ctx, req))

	require.NoError(t, repo.UpdateStatus(ctx, "req-1", workflow.StateDraft.String(), workflow.StateAwaitingDeptHead.String()))

	req.Destination = "Manaus"
	err := repo.UpdateDraft(ctx, req)
	assert.True(t, errors.Is(err, workflow.ErrConcurrentModification))

	got, _ := repo.GetByID(ctx, "req-1")
	assert.Equal(t, "São Paulo", got.Destination)
}

func TestTravelRequestRepository_Selections(t *testing.T) {
	db := newTestDB(t)
	repo := NewTravelRequestRepository(db, zap.NewNop())
	ctx := context.Background()

	awaiting := workflow.StateAwaitingAccountability.String()
	seedRequest(t, db, "due", awaiting, "2025-01-15")
	seedRequest(t, db, "later", awaiting, "2025-01-16")
	seedRequest(t, db, "approved", workflow.StateApproved.String(), "2025-01-15")

	exact, err := repo.ListByStatusAndReturnDate(ctx, awaiting, day("2025-01-15"))
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "due", exact[0].ID)

	before, err := repo.ListByStatusReturnedBefore(ctx, awaiting, day("2025-01-16"))
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, "due", before[0].ID)

	all, err := repo.List(ctx, entity.TravelRequestFilter{RequesterID: "emp-1"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	approved, err := repo.List(ctx, entity.TravelRequestFilter{Status: workflow.StateApproved.String()})
	require.NoError(t, err)
	assert.Len(t, approved, 1)
}

func TestWorkflowEntryRepository_OrderAndAppendOnly(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkflowEntryRepository(db, zap.NewNop())
	ctx := context.Background()

	seedRequest(t, db, "req-1", workflow.StateDraft.String(), "2025-01-15")

	base := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	steps := []struct {
		action   workflow.Trigger
		from, to workflow.State
		at       time.Time
	}{
		{workflow.TriggerSubmit, workflow.StateDraft, workflow.StateAwaitingDeptHead, base},
		{workflow.TriggerApprove, workflow.StateAwaitingDeptHead, workflow.StateAwaitingDeputySecretary, base.Add(time.Hour)},
		// same timestamp as the previous step: ties fall back to insertion order
		{workflow.TriggerReturnForCorrection, workflow.StateAwaitingDeputySecretary, workflow.StateDraft, base.Add(time.Hour)},
	}
	for _, s := range steps {
		require.NoError(t, repo.Append(ctx, &entity.WorkflowEntry{
			RequestID:  "req-1",
			ActorID:    "someone",
			ActorRole:  entity.RoleChefia,
			Action:     s.action.String(),
			FromStatus: s.from.String(),
			ToStatus:   s.to.String(),
			CreatedAt:  s.at,
		}))
	}

	history, err := repo.ListByRequestID(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, s := range steps {
		assert.Equal(t, s.action.String(), history[i].Action)
		assert.True(t, s.at.Equal(history[i].CreatedAt), "entry %d time %v", i, history[i].CreatedAt)
	}

	latest, err := repo.Latest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.TriggerReturnForCorrection.String(), latest.Action)

	_, err = db.Exec(`UPDATE approval_workflow SET comment = 'x'`)
	assert.Error(t, err)
	_, err = db.Exec(`DELETE FROM approval_workflow`)
	assert.Error(t, err)

	none, err := repo.Latest(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestAlertDispatchRepository_ClaimOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewAlertDispatchRepository(db, zap.NewNop())
	ctx := context.Background()

	seedRequest(t, db, "req-1", workflow.StateAwaitingAccountability.String(), "2025-01-15")

	first, err := repo.Claim(ctx, "req-1", day("2025-01-18"))
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.Claim(ctx, "req-1", day("2025-01-18"))
	require.NoError(t, err)
	assert.False(t, second)

	otherDay, err := repo.Claim(ctx, "req-1", day("2025-01-19"))
	require.NoError(t, err)
	assert.True(t, otherDay)

	require.NoError(t, repo.Attach(ctx, "req-1", day("2025-01-18"), 42))
}

func TestTransactionRollbackDropsClaim(t *testing.T) {
	db := newTestDB(t)
	logger := zap.NewNop()
	tx := sqlite.NewDB(db, logger)
	claims := NewAlertDispatchRepository(db, logger)
	notifications := NewNotificationRepository(db, logger)
	ctx := context.Background()

	seedRequest(t, db, "req-1", workflow.StateAwaitingAccountability.String(), "2025-01-15")

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := claims.Claim(txCtx, "req-1", day("2025-01-18"))
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, notifications.Create(txCtx, &entity.Notification{RecipientID: "emp-1", RequestID: "req-1", Message: "m"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := notifications.CountByRequestID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	ok, err := claims.Claim(ctx, "req-1", day("2025-01-18"))
	require.NoError(t, err)
	assert.True(t, ok, "rolled back claim must be claimable again")
}

func TestNotificationRepository_ListByRecipient(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db, zap.NewNop())
	ctx := context.Background()

	for i, msg := range []string{"first", "second"} {
		require.NoError(t, repo.Create(ctx, &entity.Notification{
			RecipientID: "emp-1",
			Message:     msg,
			CreatedAt:   time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}))
	}

	got, err := repo.ListByRecipient(ctx, "emp-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Message)
}

func TestAccountabilityAndSettings(t *testing.T) {
	db := newTestDB(t)
	logger := zap.NewNop()
	ctx := context.Background()

	seedRequest(t, db, "req-1", workflow.StateAwaitingAccountability.String(), "2025-01-15")

	acc := NewAccountabilityRepository(db, logger)
	require.NoError(t, acc.Create(ctx, &entity.AccountabilitySubmission{
		RequestID:       "req-1",
		SubmittedBy:     "emp-1",
		Checklist:       entity.AccountabilityChecklist{Tickets: true, Report: true},
		AttachmentCount: 2,
	}))
	sub, err := acc.GetByRequestID(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.True(t, sub.Checklist.Report)
	assert.False(t, sub.Checklist.Refund)
	assert.Equal(t, 2, sub.AttachmentCount)

	settings := NewSettingRepository(db, logger)
	v, err := settings.Get(ctx, entity.SettingPortariaTemplate)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, settings.Set(ctx, entity.SettingPortariaTemplate, "A [Nome]"))
	require.NoError(t, settings.Set(ctx, entity.SettingPortariaTemplate, "B [Nome]"))
	v, err = settings.Get(ctx, entity.SettingPortariaTemplate)
	require.NoError(t, err)
	assert.Equal(t, "B [Nome]", v)
}
