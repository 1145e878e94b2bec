package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/mevamscale/internal/roster"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	roster *roster.Service
}

func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		roster: roster.NewService(db, logger),
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeTeamFanOut, h.HandleTeamFanOut)
}

func (h *Handler) HandleTeamFanOut(ctx context.Context, t *asynq.Task) error {
	var payload TeamFanOutPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	h.logger.Info("starting team fan-out",
		"batch_id", payload.BatchID,
		"team_id", payload.TeamID,
		"project_id", payload.ProjectID,
	)

	result, err := h.roster.RunBatch(ctx, payload.BatchID)
	if err != nil {
		if errors.Is(err, roster.ErrBatchNotFound) {
			return fmt.Errorf("batch %s: %w: %w", payload.BatchID, err, asynq.SkipRetry)
		}
		h.logger.Error("team fan-out failed", "batch_id", payload.BatchID, "error", err)
		return err
	}

	h.logger.Info("team fan-out completed",
		"batch_id", payload.BatchID,
		"entries", result.CreatedCount,
	)
	return nil
}
