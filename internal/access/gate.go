// Package access decides whether a principal may act on a project.
//
// A global admin is always allowed. Everyone else needs a membership row for
// the project whose role in the relevant domain reaches the required level.
// Membership rows are read on every call, so role changes apply to tokens
// that were issued before them.
package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/apperr"
	"github.com/hugh/mevamscale/internal/auth"
	"github.com/hugh/mevamscale/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrNotMember        = apperr.New(apperr.Forbidden, "not a member of this project")
	ErrInsufficientRole = apperr.New(apperr.Forbidden, "insufficient role for this operation")
	ErrUnknownDomain    = apperr.New(apperr.Validation, "unknown domain")
	ErrUnknownRole      = apperr.New(apperr.Validation, "unknown project role")
	ErrMissingPrincipal = apperr.New(apperr.Unauthenticated, "authentication required")
)

// Policy controls the operations whose gating is configurable.
type Policy struct {
	GateConfirm bool
	GateList    bool
}

type Gate struct {
	db     *gorm.DB
	policy Policy
}

func NewGate(db *gorm.DB, policy Policy) *Gate {
	return &Gate{db: db, policy: policy}
}

func (g *Gate) Policy() Policy {
	return g.policy
}

// Authorize checks that p holds at least min in domain on projectID.
func (g *Gate) Authorize(ctx context.Context, p *auth.Principal, projectID uuid.UUID, domain models.Domain, min models.ProjectRole) error {
	if !domain.Valid() {
		return ErrUnknownDomain
	}
	return g.check(ctx, p, projectID, min, func(m models.Membership) bool {
		return m.RoleFor(domain).AtLeast(min)
	})
}

// AuthorizeAny checks that p holds at least min in any domain on projectID.
func (g *Gate) AuthorizeAny(ctx context.Context, p *auth.Principal, projectID uuid.UUID, min models.ProjectRole) error {
	return g.check(ctx, p, projectID, min, func(m models.Membership) bool {
		return m.HighestRole().AtLeast(min)
	})
}

// AuthorizeConfirm applies the confirm policy for an entry.
func (g *Gate) AuthorizeConfirm(ctx context.Context, p *auth.Principal, entry *models.ScheduleEntry) error {
	if !g.policy.GateConfirm {
		return nil
	}
	return g.Authorize(ctx, p, entry.ProjectID, entry.Domain, models.ProjectRoleEditor)
}

// AuthorizeList applies the listing policy for a project roster.
func (g *Gate) AuthorizeList(ctx context.Context, p *auth.Principal, projectID uuid.UUID) error {
	if !g.policy.GateList {
		return nil
	}
	return g.AuthorizeAny(ctx, p, projectID, models.ProjectRoleViewer)
}

func (g *Gate) check(ctx context.Context, p *auth.Principal, projectID uuid.UUID, min models.ProjectRole, allowed func(models.Membership) bool) error {
	if p == nil || p.UserID == uuid.Nil {
		return ErrMissingPrincipal
	}
	if !min.Valid() {
		return ErrUnknownRole
	}
	if p.IsAdmin() {
		return nil
	}

	var membership models.Membership
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", p.UserID, projectID).
		First(&membership).Error
	if err != nil {
		return apperr.FromDB(err, ErrNotMember)
	}

	if !allowed(membership) {
		return ErrInsufficientRole
	}
	return nil
}
