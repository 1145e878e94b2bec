package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/mevamscale/internal/database/models"
)

// Task type names
const (
	TypeTeamFanOut = "roster:team_fanout"
)

// TeamFanOutPayload contains the data for a team fan-out task
type TeamFanOutPayload struct {
	BatchID   uuid.UUID `json:"batch_id"`
	TeamID    uuid.UUID `json:"team_id"`
	ProjectID uuid.UUID `json:"project_id"`
}

func NewTeamFanOutTask(payload TeamFanOutPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTeamFanOut, data, asynq.MaxRetry(5), asynq.Queue("critical")), nil
}

// Enqueuer is the part of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher sends roster batches to the worker through asynq.
type Dispatcher struct {
	client Enqueuer
}

func NewDispatcher(client Enqueuer) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) DispatchBatch(ctx context.Context, batch *models.RosterBatch) (string, error) {
	task, err := NewTeamFanOutTask(TeamFanOutPayload{
		BatchID:   batch.ID,
		TeamID:    batch.TeamID,
		ProjectID: batch.ProjectID,
	})
	if err != nil {
		return "", fmt.Errorf("building task: %w", err)
	}

	// One task per batch; a duplicate enqueue is rejected by asynq
	info, err := d.client.EnqueueContext(ctx, task, asynq.TaskID(batch.ID.String()))
	if err != nil {
		return "", fmt.Errorf("enqueueing task: %w", err)
	}
	return info.ID, nil
}
