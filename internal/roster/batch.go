package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/apperr"
	"github.com/hugh/mevamscale/internal/database/models"
	"gorm.io/gorm"
)

const staleBatchAfter = 10 * time.Minute

// Dispatcher hands a queued batch to a background worker and returns the
// task identifier.
type Dispatcher interface {
	DispatchBatch(ctx context.Context, batch *models.RosterBatch) (string, error)
}

// WithDispatcher enables ScheduleTeamAsync to defer batches to a worker.
func (s *Service) WithDispatcher(d Dispatcher) *Service {
	s.dispatcher = d
	return s
}

type TeamScheduleInput struct {
	TeamID      uuid.UUID
	ProjectID   uuid.UUID
	EventAt     time.Time
	Domain      models.Domain
	RequestedBy *uuid.UUID
}

// FanOutResult reports a completed team fan-out.
type FanOutResult struct {
	Batch        *models.RosterBatch    `json:"batch"`
	CreatedCount int                    `json:"created_count"`
	Entries      []models.ScheduleEntry `json:"entries"`
}

// CreateEntriesFromTeam schedules every member of a team for one event,
// each with the function they hold in the team. Either the whole roster is
// written or nothing is, and the batch records which of the two happened.
func (s *Service) CreateEntriesFromTeam(ctx context.Context, in TeamScheduleInput) (*FanOutResult, error) {
	batch, err := s.QueueBatch(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.RunBatch(ctx, batch.ID)
}

// ScheduleTeamAsync queues the fan-out for the worker. Without a dispatcher
// the batch is run inline.
func (s *Service) ScheduleTeamAsync(ctx context.Context, in TeamScheduleInput) (*models.RosterBatch, error) {
	batch, err := s.QueueBatch(ctx, in)
	if err != nil {
		return nil, err
	}

	if s.dispatcher == nil {
		result, err := s.RunBatch(ctx, batch.ID)
		if err != nil {
			return nil, err
		}
		return result.Batch, nil
	}

	taskID, err := s.dispatcher.DispatchBatch(ctx, batch)
	if err != nil {
		s.markFailed(ctx, batch.ID, err)
		return nil, apperr.Wrap(apperr.New(apperr.Storage, "failed to queue roster batch"), err)
	}

	if err := s.db.WithContext(ctx).Model(batch).Update("task_id", taskID).Error; err != nil {
		s.logger.Warn("failed to record task id", "batch_id", batch.ID, "error", err)
	}
	batch.TaskID = taskID
	return batch, nil
}

// QueueBatch validates a fan-out request and records it as pending.
func (s *Service) QueueBatch(ctx context.Context, in TeamScheduleInput) (*models.RosterBatch, error) {
	if in.EventAt.IsZero() {
		return nil, ErrEventRequired
	}
	if !in.Domain.Valid() {
		return nil, ErrInvalidDomain
	}

	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", in.TeamID).Error; err != nil {
		return nil, apperr.FromDB(err, ErrTeamNotFound)
	}
	if team.ProjectID != in.ProjectID {
		return nil, ErrTeamNotInProject
	}

	batch := models.RosterBatch{
		ProjectID:   in.ProjectID,
		TeamID:      in.TeamID,
		EventAt:     in.EventAt.UTC(),
		Domain:      in.Domain,
		Status:      models.BatchStatusPending,
		RequestedBy: in.RequestedBy,
	}
	if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return &batch, nil
}

// RunBatch executes a pending or previously failed batch. Running a
// completed batch again returns the entries it produced.
func (s *Service) RunBatch(ctx context.Context, batchID uuid.UUID) (*FanOutResult, error) {
	claimed, err := s.claim(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		batch, err := s.GetBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if batch.Status != models.BatchStatusCompleted {
			return nil, ErrBatchInProgress
		}
		entries, err := s.BatchEntries(ctx, batchID)
		if err != nil {
			return nil, err
		}
		return &FanOutResult{Batch: batch, CreatedCount: len(entries), Entries: entries}, nil
	}

	var result FanOutResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch models.RosterBatch
		if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
			return err
		}

		var roster []models.TeamMembership
		if err := tx.Where("team_id = ?", batch.TeamID).
			Order("created_at ASC, user_id ASC").
			Find(&roster).Error; err != nil {
			return err
		}

		entries := make([]models.ScheduleEntry, len(roster))
		for i, member := range roster {
			entries[i] = models.ScheduleEntry{
				Base:      models.Base{ID: uuid.New()},
				ProjectID: batch.ProjectID,
				UserID:    member.UserID,
				EventAt:   batch.EventAt,
				Function:  member.Function,
				Domain:    batch.Domain,
				BatchID:   &batch.ID,
			}
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}

		completedAt := time.Now().UTC()
		if err := tx.Model(&batch).Updates(map[string]interface{}{
			"status":        models.BatchStatusCompleted,
			"created_count": len(entries),
			"completed_at":  completedAt,
			"error":         "",
		}).Error; err != nil {
			return err
		}
		batch.Status = models.BatchStatusCompleted
		batch.CreatedCount = len(entries)
		batch.CompletedAt = &completedAt
		batch.Error = ""

		result = FanOutResult{Batch: &batch, CreatedCount: len(entries), Entries: entries}
		return nil
	})
	if err != nil {
		s.markFailed(ctx, batchID, err)
		return nil, apperr.FromDB(err, ErrBatchNotFound)
	}

	s.logger.Info("team scheduled",
		"batch_id", batchID,
		"team_id", result.Batch.TeamID,
		"project_id", result.Batch.ProjectID,
		"entries", result.CreatedCount,
	)
	return &result, nil
}

func (s *Service) GetBatch(ctx context.Context, batchID uuid.UUID) (*models.RosterBatch, error) {
	var batch models.RosterBatch
	if err := s.db.WithContext(ctx).First(&batch, "id = ?", batchID).Error; err != nil {
		return nil, apperr.FromDB(err, ErrBatchNotFound)
	}
	return &batch, nil
}

func (s *Service) BatchEntries(ctx context.Context, batchID uuid.UUID) ([]models.ScheduleEntry, error) {
	entries := []models.ScheduleEntry{}
	if err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return entries, nil
}

// claim moves the batch to running if nobody else holds it. A batch left
// running by a crashed worker can be claimed again after staleBatchAfter.
func (s *Service) claim(ctx context.Context, batchID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.RosterBatch{}).
		Where("id = ?", batchID).
		Where("(status IN ? OR (status = ? AND started_at < ?))",
			[]string{string(models.BatchStatusPending), string(models.BatchStatusFailed)},
			string(models.BatchStatusRunning), now.Add(-staleBatchAfter),
		).
		Updates(map[string]interface{}{
			"status":     models.BatchStatusRunning,
			"started_at": now,
		})
	if result.Error != nil {
		return false, apperr.FromDB(result.Error, nil)
	}
	return result.RowsAffected == 1, nil
}

// markFailed records the failure even when ctx has been cancelled.
func (s *Service) markFailed(ctx context.Context, batchID uuid.UUID, cause error) {
	err := s.db.WithContext(context.WithoutCancel(ctx)).
		Model(&models.RosterBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"status":        models.BatchStatusFailed,
			"created_count": 0,
			"error":         cause.Error(),
		}).Error
	if err != nil {
		s.logger.Error("failed to mark roster batch failed", "batch_id", batchID, "error", err)
		return
	}
	s.logger.Warn("roster batch failed", "batch_id", batchID, "error", cause)
}
