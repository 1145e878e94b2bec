package skills

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/apperr"
	"github.com/hugh/mevamscale/internal/database/models"
	"gorm.io/gorm"
)

var ErrUserNotFound = apperr.New(apperr.NotFound, "user not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Set replaces the whole skill set of userID with functions. An empty set
// clears it. Concurrent calls for the same user serialise on the user row;
// the last one to commit wins.
func (s *Service) Set(ctx context.Context, userID uuid.UUID, functions []string) ([]string, error) {
	set := normalize(functions)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("skills_version", gorm.Expr("skills_version + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.Skill{}).Error; err != nil {
			return err
		}
		if len(set) == 0 {
			return nil
		}

		rows := make([]models.Skill, len(set))
		for i, fn := range set {
			rows[i] = models.Skill{UserID: userID, Function: fn}
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, nil)
	}

	return set, nil
}

// List returns the functions of userID in alphabetical order.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	if count == 0 {
		return nil, ErrUserNotFound
	}

	functions := []string{}
	if err := s.db.WithContext(ctx).
		Model(&models.Skill{}).
		Where("user_id = ?", userID).
		Order("function ASC").
		Pluck("function", &functions).Error; err != nil {
		return nil, apperr.FromDB(err, nil)
	}
	return functions, nil
}

// normalize trims, drops blanks and de-duplicates, returning a sorted set.
func normalize(functions []string) []string {
	seen := make(map[string]struct{}, len(functions))
	out := make([]string, 0, len(functions))
	for _, fn := range functions {
		fn = strings.TrimSpace(fn)
		if fn == "" {
			continue
		}
		if _, ok := seen[fn]; ok {
			continue
		}
		seen[fn] = struct{}{}
		out = append(out, fn)
	}
	sort.Strings(out)
	return out
}
