package teams

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/apperr"
	"github.com/hugh/mevamscale/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound     = apperr.New(apperr.NotFound, "team not found")
	ErrProjectNotFound  = apperr.New(apperr.NotFound, "project not found")
	ErrUserNotFound     = apperr.New(apperr.NotFound, "user not found")
	ErrAlreadyMember    = apperr.New(apperr.Conflict, "user already in team")
	ErrNameRequired     = apperr.New(apperr.Validation, "team name is required")
	ErrFunctionRequired = apperr.New(apperr.Validation, "function in team is required")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Member is one roster line of a team.
type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
	Function string    `json:"function"`
}

func (s *Service) Create(ctx context.Context, projectID uuid.UUID, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	if count == 0 {
		return nil, ErrProjectNotFound
	}

	team := models.Team{ProjectID: projectID, Name: name}
	if err := s.db.WithContext(ctx).Create(&team).Error; err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return &team, nil
}

// AddMember puts userID on the team with the function they perform in it.
// The pair is unique; there is no update or removal.
func (s *Service) AddMember(ctx context.Context, teamID, userID uuid.UUID, function string) (*models.TeamMembership, error) {
	function = strings.TrimSpace(function)
	if function == "" {
		return nil, ErrFunctionRequired
	}

	membership := models.TeamMembership{TeamID: teamID, UserID: userID, Function: function}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Team{}).Where("id = ?", teamID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrTeamNotFound
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrUserNotFound
		}
		if err := tx.Model(&models.TeamMembership{}).
			Where("team_id = ? AND user_id = ?", teamID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyMember
		}

		if err := tx.Create(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyMember
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return &membership, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, ErrTeamNotFound)
	}
	return &team, nil
}

// Members returns the roster of teamID ordered by when members joined.
func (s *Service) Members(ctx context.Context, teamID uuid.UUID) ([]Member, error) {
	if _, err := s.Get(ctx, teamID); err != nil {
		return nil, err
	}

	members := []Member{}
	err := s.db.WithContext(ctx).
		Table("team_memberships AS tm").
		Select("tm.user_id, u.name AS user_name, tm.function").
		Joins("JOIN users u ON u.id = tm.user_id").
		Where("tm.team_id = ?", teamID).
		Order("tm.created_at ASC, u.name ASC").
		Scan(&members).Error
	if err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return members, nil
}

func (s *Service) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Team, error) {
	teams := []models.Team{}
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&teams).Error; err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return teams, nil
}
