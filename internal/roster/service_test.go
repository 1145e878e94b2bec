package roster_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/apperr"
	"github.com/hugh/mevamscale/internal/database/models"
	"github.com/hugh/mevamscale/internal/roster"
	"github.com/hugh/mevamscale/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     *roster.Service
	project *models.Project
	u1, u2  *models.User
	team    *models.Team
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	f := &fixture{db: db, svc: roster.NewService(db, testutil.TestLogger())}
	f.u1 = testutil.CreateTestUser(t, db, "Lucas", models.GlobalRoleVolunteer)
	f.u2 = testutil.CreateTestUser(t, db, "Ana", models.GlobalRoleSound)
	f.project = testutil.CreateTestProject(t, db, "Culto Domingo")
	f.team = testutil.CreateTestTeam(t, db, f.project.ID, "Banda A",
		models.TeamMembership{UserID: f.u1.ID, Function: "Violão"},
		models.TeamMembership{UserID: f.u2.ID, Function: "Mesa de som"},
	)
	return f
}

func (f *fixture) teamInput(eventAt time.Time) roster.TeamScheduleInput {
	return roster.TeamScheduleInput{
		TeamID:    f.team.ID,
		ProjectID: f.project.ID,
		EventAt:   eventAt,
		Domain:    models.DomainWorship,
	}
}

func TestService_CreateEntry(t *testing.T) {
	f := setup(t)
	ctx := testutil.TestContext(t)
	eventAt := time.Date(2025, 3, 9, 19, 0, 0, 0, time.UTC)

	t.Run("starts unconfirmed", func(t *testing.T) {
		entry, err := f.svc.CreateEntry(ctx, roster.EntryInput{
			ProjectID: f.project.ID,
			UserID:    f.u1.ID,
			EventAt:   eventAt,
			Function:  " Violão ",
			Domain:    models.DomainWorship,
		})
		require.NoError(t, err)
		assert.False(t, entry.Confirmed)
		assert.Nil(t, entry.ConfirmedAt)
		assert.Equal(t, "Violão", entry.Function)
		assert.Nil(t, entry.BatchID)
	})

	tests := []struct {
		name    string
		in      roster.EntryInput
		wantErr error
	}{
		{"unknown project", roster.EntryInput{ProjectID: uuid.New(), UserID: f.u1.ID, EventAt: eventAt, Function: "Baixo", Domain: models.DomainSound}, roster.ErrProjectNotFound},
		{"unknown user", roster.EntryInput{ProjectID: f.project.ID, UserID: uuid.New(), EventAt: eventAt, Function: "Baixo", Domain: models.DomainSound}, roster.ErrUserNotFound},
		{"missing event", roster.EntryInput{ProjectID: f.project.ID, UserID: f.u1.ID, Function: "Baixo", Domain: models.DomainSound}, roster.ErrEventRequired},
		{"missing function", roster.EntryInput{ProjectID: f.project.ID, UserID: f.u1.ID, EventAt: eventAt, Domain: models.DomainSound}, roster.ErrFunctionRequired},
		{"unknown domain", roster.EntryInput{ProjectID: f.project.ID, UserID: f.u1.ID, EventAt: eventAt, Function: "Baixo", Domain: "lighting"}, roster.ErrInvalidDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateEntry(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_CreateEntriesFromTeam(t *testing.T) {
	f := setup(t)
	ctx := testutil.TestContext(t)
	eventAt := time.Date(2025, 3, 9, 19, 0, 0, 0, time.UTC)

	result, err := f.svc.CreateEntriesFromTeam(ctx, f.teamInput(eventAt))
	require.NoError(t, err)
	assert.Equal(t, 2, result.CreatedCount)
	assert.Equal(t, models.BatchStatusCompleted, result.Batch.Status)
	require.Len(t, result.Entries, 2)

	byUser := map[uuid.UUID]models.ScheduleEntry{}
	for _, e := range result.Entries {
		byUser[e.UserID] = e
		assert.False(t, e.Confirmed)
		assert.True(t, e.EventAt.Equal(eventAt))
		assert.Equal(t, models.DomainWorship, e.Domain)
		require.NotNil(t, e.BatchID)
		assert.Equal(t, result.Batch.ID, *e.BatchID)
	}
	assert.Equal(t, "Violão", byUser[f.u1.ID].Function)
	assert.Equal(t, "Mesa de som", byUser[f.u2.ID].Function)

	lines, err := f.svc.ListByProject(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestService_CreateEntriesFromEmptyTeam(t *testing.T) {
	f := setup(t)
	ctx := testutil.TestContext(t)

	empty := testutil.CreateTestTeam(t, f.db, f.project.ID, "Banda Vazia")
	in := f.teamInput(time.Now().Add(24 * time.Hour))
	in.TeamID = empty.ID

	result, err := f.svc.CreateEntriesFromTeam(ctx, in)
	require.NoError(t, err)
	assert.Zero(t, result.CreatedCount)
	assert.Empty(t, result.Entries)
	assert.Equal(t, models.BatchStatusCompleted, result.Batch.Status)
}

func TestService_CreateEntriesFromTeam_Validation(t *testing.T) {
	f := setup(t)
	ctx := testutil.TestContext(t)
	eventAt := time.Now().Add(time.Hour)

	t.Run("team from another project", func(t *testing.T) {
		other := testutil.CreateTestProject(t, f.db, "Outro Projeto")
		in := f.teamInput(eventAt)
		in.ProjectID = other.ID

		_, err := f.svc.CreateEntriesFromTeam(ctx, in)
		assert.ErrorIs(t, err, roster.ErrTeamNotInProject)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	})

	t.Run("unknown team", func(t *testing.T) {
		in := f.teamInput(eventAt)
		in.TeamID = uuid.New()

		_, err := f.svc.CreateEntriesFromTeam(ctx, in)
		assert.ErrorIs(t, err, roster.ErrTeamNotFound)
	})

	t.Run("unknown domain", func(t *testing.T) {
		in := f.teamInput(eventAt)
		in.Domain = ""

		_, err := f.svc.CreateEntriesFromTeam(ctx, in)
		assert.ErrorIs(t, err, roster.ErrInvalidDomain)
	})
}

func TestService_CreateEntriesFromTeam_FailureWritesNothing(t *testing.T) {
	f := setup(t)
	ctx := testutil.TestContext(t)

	require.NoError(t, f.db.Migrator().DropTable(&models.ScheduleEntry{}))

	_, err := f.svc.CreateEntriesFromTeam(ctx, f.teamInput(time.Now().Add(time.Hour)))
	require.Error(t, err)
	assert.Equal(t, apperr.Storage, apperr.KindOf(err))

	var batches []models.RosterBatch
	require.NoError(t, f.db.Find(&batches).Error)
	require.Len(t, batches, 1)
	assert.Equal(t, models.BatchStatusFailed, batches[0].Status)
	assert.Zero(t, batches[0].CreatedCount)
	assert.NotEmpty(t, batches[0].Error)
}

func TestService_RunBatch(t *testing.T) {
	f := setup(t)
	ctx := testutil.TestContext(t)

	batch, err := f.svc.QueueBatch(ctx, f.teamInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusPending, batch.Status)

	first, err := f.svc.RunBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, first.CreatedCount)

	t.Run("replaying a completed batch writes nothing new", func(t *testing.T) {
		again, err := f.svc.RunBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, again.CreatedCount)
		assert.ElementsMatch(t, entryIDs(first.Entries), entryIDs(again.Entries))

		var count int64
		require.NoError(t, f.db.Model(&models.ScheduleEntry{}).Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := f.svc.RunBatch(ctx, uuid.New())
		assert.ErrorIs(t, err, roster.ErrBatchNotFound)
	})
}

func TestService_RunBatch_Running(t *testing.T) {
	f := setup(t)
	ctx := testutil.TestContext(t)

	batch, err := f.svc.QueueBatch(ctx, f.teamInput(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	setRunning := func(startedAt time.Time) {
		require.NoError(t, f.db.Model(&models.RosterBatch{}).Where("id = ?", batch.ID).
			Updates(map[string]interface{}{"status": models.BatchStatusRunning, "started_at": startedAt.UTC()}).Error)
	}

	t.Run("fresh run is left alone", func(t *testing.T) {
		setRunning(time.Now())
		_, err := f.svc.RunBatch(ctx, batch.ID)
		assert.ErrorIs(t, err, roster.ErrBatchInProgress)
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	})

	t.Run("stale run is reclaimed", func(t *testing.T) {
		setRunning(time.Now().Add(-time.Hour))
		result, err := f.svc.RunBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.CreatedCount)
	})
}

type stubDispatcher struct {
	dispatched []uuid.UUID
	err        error
}

func (d *stubDispatcher) DispatchBatch(ctx context.Context, batch *models.RosterBatch) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.dispatched = append(d.dispatched, batch.ID)
	return batch.ID.String(), nil
}

func TestService_ScheduleTeamAsync(t *testing.T) {
	t.Run("queues for the worker", func(t *testing.T) {
		f := setup(t)
		ctx := testutil.TestContext(t)
		dispatcher := &stubDispatcher{}
		f.svc.WithDispatcher(dispatcher)

		batch, err := f.svc.ScheduleTeamAsync(ctx, f.teamInput(time.Now().Add(time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusPending, batch.Status)
		assert.Equal(t, []uuid.UUID{batch.ID}, dispatcher.dispatched)

		stored, err := f.svc.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, batch.ID.String(), stored.TaskID)

		entries, err := f.svc.BatchEntries(ctx, batch.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)

		// What the worker does
		result, err := f.svc.RunBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, result.CreatedCount)
	})

	t.Run("dispatch failure marks batch failed", func(t *testing.T) {
		f := setup(t)
		ctx := testutil.TestContext(t)
		f.svc.WithDispatcher(&stubDispatcher{err: errors.New("redis down")})

		_, err := f.svc.ScheduleTeamAsync(ctx, f.teamInput(time.Now().Add(time.Hour)))
		require.Error(t, err)
		assert.Equal(t, apperr.Storage, apperr.KindOf(err))

		var batch models.RosterBatch
		require.NoError(t, f.db.First(&batch).Error)
		assert.Equal(t, models.BatchStatusFailed, batch.Status)
		assert.Contains(t, batch.Error, "redis down")
	})

	t.Run("runs inline without dispatcher", func(t *testing.T) {
		f := setup(t)
		ctx := testutil.TestContext(t)

		batch, err := f.svc.ScheduleTeamAsync(ctx, f.teamInput(time.Now().Add(time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, models.BatchStatusCompleted, batch.Status)
		assert.Equal(t, 2, batch.CreatedCount)
	})
}

func TestService_Confirm(t *testing.T) {
	f := setup(t)
	ctx := testutil.TestContext(t)

	entry, err := f.svc.CreateEntry(ctx, roster.EntryInput{
		ProjectID: f.project.ID,
		UserID:    f.u2.ID,
		EventAt:   time.Now().Add(time.Hour),
		Function:  "Mesa de som",
		Domain:    models.DomainSound,
	})
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.Confirmed)
	require.NotNil(t, confirmed.ConfirmedAt)

	t.Run("confirming twice keeps the first time", func(t *testing.T) {
		again, err := f.svc.Confirm(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, again.Confirmed)
		require.NotNil(t, again.ConfirmedAt)
		assert.True(t, confirmed.ConfirmedAt.Equal(*again.ConfirmedAt))
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := f.svc.Confirm(ctx, uuid.New())
		assert.ErrorIs(t, err, roster.ErrEntryNotFound)
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})
}

func TestService_ListByProject(t *testing.T) {
	f := setup(t)
	ctx := testutil.TestContext(t)

	t0 := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(7 * 24 * time.Hour)
	t2 := t1.Add(7 * 24 * time.Hour)

	for _, at := range []time.Time{t2, t0, t1} {
		_, err := f.svc.CreateEntry(ctx, roster.EntryInput{
			ProjectID: f.project.ID,
			UserID:    f.u1.ID,
			EventAt:   at,
			Function:  "Violão",
			Domain:    models.DomainWorship,
		})
		require.NoError(t, err)
	}

	lines, err := f.svc.ListByProject(ctx, f.project.ID)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	for i, want := range []time.Time{t0, t1, t2} {
		assert.True(t, lines[i].EventAt.Equal(want), "line %d: got %s want %s", i, lines[i].EventAt, want)
		assert.Equal(t, "Lucas", lines[i].UserName)
		assert.False(t, lines[i].Confirmed)
	}

	t.Run("empty project", func(t *testing.T) {
		other := testutil.CreateTestProject(t, f.db, "Vazio")
		lines, err := f.svc.ListByProject(ctx, other.ID)
		require.NoError(t, err)
		assert.NotNil(t, lines)
		assert.Empty(t, lines)
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := f.svc.ListByProject(ctx, uuid.New())
		assert.ErrorIs(t, err, roster.ErrProjectNotFound)
	})
}

func entryIDs(entries []models.ScheduleEntry) []uuid.UUID {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
