package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/mevamscale/internal/database/models"
	"github.com/hugh/mevamscale/internal/roster"
	"github.com/hugh/mevamscale/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewHandler tests handler initialization
func TestNewHandler(t *testing.T) {
	setup := testutil.NewTestContext(t)

	handler := NewHandler(setup.DB, setup.Logger)

	assert.NotNil(t, handler)
	assert.NotNil(t, handler.db)
	assert.NotNil(t, handler.logger)
	assert.NotNil(t, handler.roster)
}

func TestRegisterHandlers(t *testing.T) {
	setup := testutil.NewTestContext(t)
	handler := NewHandler(setup.DB, setup.Logger)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	h, pattern := mux.Handler(asynq.NewTask(TypeTeamFanOut, nil))
	assert.NotNil(t, h)
	assert.Equal(t, TypeTeamFanOut, pattern)
}

// TestHandleTeamFanOut_InvalidPayload tests invalid JSON payload
func TestHandleTeamFanOut_InvalidPayload(t *testing.T) {
	setup := testutil.NewTestContext(t)
	handler := NewHandler(setup.DB, setup.Logger)

	task := asynq.NewTask(TypeTeamFanOut, []byte("invalid json"))

	err := handler.HandleTeamFanOut(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payload")
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleTeamFanOut_UnknownBatch(t *testing.T) {
	setup := testutil.NewTestContext(t)
	handler := NewHandler(setup.DB, setup.Logger)

	task, err := NewTeamFanOutTask(TeamFanOutPayload{BatchID: uuid.New()})
	require.NoError(t, err)

	err = handler.HandleTeamFanOut(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.ErrorIs(t, err, roster.ErrBatchNotFound)
}

func TestHandleTeamFanOut_RunsBatch(t *testing.T) {
	setup := testutil.NewTestContext(t)
	handler := NewHandler(setup.DB, setup.Logger)
	ctx := testutil.TestContext(t)

	singer := testutil.CreateTestUser(t, setup.DB, "Cantora", models.GlobalRoleWorship)
	project := testutil.CreateTestProject(t, setup.DB, "Culto")
	team := testutil.CreateTestTeam(t, setup.DB, project.ID, "Louvor",
		models.TeamMembership{UserID: setup.User.ID, Function: "Teclado"},
		models.TeamMembership{UserID: singer.ID, Function: "Vocal"},
	)

	batch, err := handler.roster.QueueBatch(ctx, roster.TeamScheduleInput{
		TeamID:    team.ID,
		ProjectID: project.ID,
		EventAt:   time.Now().Add(48 * time.Hour),
		Domain:    models.DomainWorship,
	})
	require.NoError(t, err)

	task, err := NewTeamFanOutTask(TeamFanOutPayload{
		BatchID:   batch.ID,
		TeamID:    team.ID,
		ProjectID: project.ID,
	})
	require.NoError(t, err)

	require.NoError(t, handler.HandleTeamFanOut(ctx, task))

	var stored models.RosterBatch
	require.NoError(t, setup.DB.First(&stored, "id = ?", batch.ID).Error)
	assert.Equal(t, models.BatchStatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.CreatedCount)

	// Redelivery of the same task must not duplicate entries
	require.NoError(t, handler.HandleTeamFanOut(ctx, task))

	var count int64
	require.NoError(t, setup.DB.Model(&models.ScheduleEntry{}).Where("batch_id = ?", batch.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

type recordingEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
	err  error
}

func (e *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.task = task
	e.opts = opts
	for _, o := range opts {
		if o.Type() == asynq.TaskIDOpt {
			return &asynq.TaskInfo{ID: o.Value().(string)}, nil
		}
	}
	return &asynq.TaskInfo{ID: "generated"}, nil
}

func TestDispatcher_DispatchBatch(t *testing.T) {
	batch := &models.RosterBatch{
		Base:      models.Base{ID: uuid.New()},
		TeamID:    uuid.New(),
		ProjectID: uuid.New(),
	}

	t.Run("one task per batch", func(t *testing.T) {
		enq := &recordingEnqueuer{}
		id, err := NewDispatcher(enq).DispatchBatch(context.Background(), batch)
		require.NoError(t, err)
		assert.Equal(t, batch.ID.String(), id)

		require.NotNil(t, enq.task)
		assert.Equal(t, TypeTeamFanOut, enq.task.Type())

		var payload TeamFanOutPayload
		require.NoError(t, json.Unmarshal(enq.task.Payload(), &payload))
		assert.Equal(t, batch.ID, payload.BatchID)
		assert.Equal(t, batch.TeamID, payload.TeamID)
		assert.Equal(t, batch.ProjectID, payload.ProjectID)
	})

	t.Run("enqueue failure", func(t *testing.T) {
		enq := &recordingEnqueuer{err: errors.New("connection refused")}
		_, err := NewDispatcher(enq).DispatchBatch(context.Background(), batch)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enqueueing task")
	})
}
