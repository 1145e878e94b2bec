package roster

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/apperr"
	"github.com/hugh/mevamscale/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrEntryNotFound    = apperr.New(apperr.NotFound, "schedule entry not found")
	ErrProjectNotFound  = apperr.New(apperr.NotFound, "project not found")
	ErrUserNotFound     = apperr.New(apperr.NotFound, "user not found")
	ErrTeamNotFound     = apperr.New(apperr.NotFound, "team not found")
	ErrBatchNotFound    = apperr.New(apperr.NotFound, "roster batch not found")
	ErrTeamNotInProject = apperr.New(apperr.Validation, "team does not belong to project")
	ErrBatchInProgress  = apperr.New(apperr.Conflict, "roster batch is already running")
	ErrEventRequired    = apperr.New(apperr.Validation, "event time is required")
	ErrFunctionRequired = apperr.New(apperr.Validation, "function is required")
	ErrInvalidDomain    = apperr.New(apperr.Validation, "domain must be sound, worship or projection")
)

type Service struct {
	db         *gorm.DB
	logger     *slog.Logger
	dispatcher Dispatcher
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

type EntryInput struct {
	ProjectID uuid.UUID
	UserID    uuid.UUID
	EventAt   time.Time
	Function  string
	Domain    models.Domain
}

// RosterLine is the display projection of an entry.
type RosterLine struct {
	EntryID   uuid.UUID     `json:"entry_id"`
	UserID    uuid.UUID     `json:"user_id"`
	UserName  string        `json:"user_name"`
	EventAt   time.Time     `json:"event_at"`
	Function  string        `json:"function"`
	Domain    models.Domain `json:"domain"`
	Confirmed bool          `json:"confirmed"`
}

// CreateEntry schedules one user. The entry starts unconfirmed.
func (s *Service) CreateEntry(ctx context.Context, in EntryInput) (*models.ScheduleEntry, error) {
	in.Function = strings.TrimSpace(in.Function)
	if in.EventAt.IsZero() {
		return nil, ErrEventRequired
	}
	if in.Function == "" {
		return nil, ErrFunctionRequired
	}
	if !in.Domain.Valid() {
		return nil, ErrInvalidDomain
	}

	entry := models.ScheduleEntry{
		ProjectID: in.ProjectID,
		UserID:    in.UserID,
		EventAt:   in.EventAt.UTC(),
		Function:  in.Function,
		Domain:    in.Domain,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Project{}, in.ProjectID, ErrProjectNotFound); err != nil {
			return err
		}
		if err := exists(tx, &models.User{}, in.UserID, ErrUserNotFound); err != nil {
			return err
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, nil)
	}

	return &entry, nil
}

// Confirm marks an entry confirmed. Confirming twice is a no-op; the first
// confirmation time is kept.
func (s *Service) Confirm(ctx context.Context, entryID uuid.UUID) (*models.ScheduleEntry, error) {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).
		Model(&models.ScheduleEntry{}).
		Where("id = ? AND confirmed = ?", entryID, false).
		Updates(map[string]interface{}{
			"confirmed":    true,
			"confirmed_at": now,
		}).Error
	if err != nil {
		return nil, apperr.FromDB(err, nil)
	}

	return s.GetEntry(ctx, entryID)
}

func (s *Service) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", entryID).Error; err != nil {
		return nil, apperr.FromDB(err, ErrEntryNotFound)
	}
	return &entry, nil
}

// ListByProject returns the project's roster ordered by event time.
func (s *Service) ListByProject(ctx context.Context, projectID uuid.UUID) ([]RosterLine, error) {
	if err := exists(s.db.WithContext(ctx), &models.Project{}, projectID, ErrProjectNotFound); err != nil {
		return nil, apperr.FromDB(err, nil)
	}

	lines := []RosterLine{}
	err := s.db.WithContext(ctx).
		Table("schedule_entries AS e").
		Select("e.id AS entry_id, e.user_id, u.name AS user_name, e.event_at, e.function, e.domain, e.confirmed").
		Joins("JOIN users u ON u.id = e.user_id").
		Where("e.project_id = ?", projectID).
		Order("e.event_at ASC, e.created_at ASC, e.id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return lines, nil
}

func exists(tx *gorm.DB, model interface{}, id uuid.UUID, notFound *apperr.Error) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return nil
}
