package projects

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
	ErrProjectNotFound    = apperr.New(apperr.NotFound, "project not found")
	ErrUserNotFound       = apperr.New(apperr.NotFound, "user not found")
	ErrMembershipNotFound = apperr.New(apperr.NotFound, "membership not found")
	ErrDuplicateName      = apperr.New(apperr.Conflict, "project name already in use")
	ErrAlreadyLinked      = apperr.New(apperr.Conflict, "user already linked to project")
	ErrNameRequired       = apperr.New(apperr.Validation, "project name is required")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Roles lists the per-domain roles for a new membership. Empty fields
// default to visualizar.
type Roles struct {
	Sound      models.ProjectRole
	Worship    models.ProjectRole
	Projection models.ProjectRole
}

// MemberView is a membership joined with the member's display data.
type MemberView struct {
	UserID         uuid.UUID          `json:"user_id"`
	UserName       string             `json:"user_name"`
	UserEmail      string             `json:"user_email"`
	RoleSound      models.ProjectRole `json:"role_sound"`
	RoleWorship    models.ProjectRole `json:"role_worship"`
	RoleProjection models.ProjectRole `json:"role_projection"`
}

// Create inserts the project and makes the creator admin in every domain.
// Both rows are written in one transaction so a project never exists
// without an administrator.
func (s *Service) Create(ctx context.Context, name string, creatorID uuid.UUID) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	var project models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, creatorID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Project{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateName
		}

		project = models.Project{Name: name}
		if err := tx.Create(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateName
			}
			return err
		}

		return tx.Create(&models.Membership{
			UserID:         creatorID,
			ProjectID:      project.ID,
			RoleSound:      models.ProjectRoleAdmin,
			RoleWorship:    models.ProjectRoleAdmin,
			RoleProjection: models.ProjectRoleAdmin,
		}).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, nil)
	}

	return &project, nil
}

// LinkMember adds userID to projectID. It never overwrites an existing
// membership.
func (s *Service) LinkMember(ctx context.Context, userID, projectID uuid.UUID, roles Roles) (*models.Membership, error) {
	membership := models.Membership{
		UserID:         userID,
		ProjectID:      projectID,
		RoleSound:      defaultRole(roles.Sound),
		RoleWorship:    defaultRole(roles.Worship),
		RoleProjection: defaultRole(roles.Projection),
	}
	for _, d := range models.Domains {
		if r := membership.RoleFor(d); !r.Valid() {
			return nil, apperr.Newf(apperr.Validation, "invalid %s role %q", d, r)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		if err := requireProject(tx, projectID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Membership{}).
			Where("user_id = ? AND project_id = ?", userID, projectID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyLinked
		}

		if err := tx.Create(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyLinked
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

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, ErrProjectNotFound)
	}
	return &project, nil
}

func (s *Service) Membership(ctx context.Context, userID, projectID uuid.UUID) (*models.Membership, error) {
	var membership models.Membership
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		First(&membership).Error; err != nil {
		return nil, apperr.FromDB(err, ErrMembershipNotFound)
	}
	return &membership, nil
}

// Members lists a project's memberships ordered by member name.
func (s *Service) Members(ctx context.Context, projectID uuid.UUID) ([]MemberView, error) {
	if err := requireProject(s.db.WithContext(ctx), projectID); err != nil {
		return nil, apperr.FromDB(err, nil)
	}

	members := []MemberView{}
	err := s.db.WithContext(ctx).
		Table("project_memberships AS m").
		Select("m.user_id, u.name AS user_name, u.email AS user_email, m.role_sound, m.role_worship, m.role_projection").
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.project_id = ?", projectID).
		Order("u.name ASC").
		Scan(&members).Error
	if err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return members, nil
}

// ListForUser returns the projects userID belongs to, by name.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	projects := []models.Project{}
	err := s.db.WithContext(ctx).
		Select("projects.*").
		Joins("JOIN project_memberships m ON m.project_id = projects.id").
		Where("m.user_id = ?", userID).
		Order("projects.name ASC").
		Find(&projects).Error
	if err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return projects, nil
}

func defaultRole(r models.ProjectRole) models.ProjectRole {
	if r == "" {
		return models.ProjectRoleViewer
	}
	return r
}

func requireUser(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func requireProject(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrProjectNotFound
	}
	return nil
}
