package models

// GlobalRole is the account-wide permission carried in the session token.
type GlobalRole string

const (
	GlobalRoleAdmin      GlobalRole = "admin"
	GlobalRoleSound      GlobalRole = "sound"
	GlobalRoleProjection GlobalRole = "projection"
	GlobalRoleWorship    GlobalRole = "worship"
	GlobalRoleVolunteer  GlobalRole = "volunteer"
)

func (r GlobalRole) Valid() bool {
	switch r {
	case GlobalRoleAdmin, GlobalRoleSound, GlobalRoleProjection, GlobalRoleWorship, GlobalRoleVolunteer:
		return true
	}
	return false
}

// Domain is one of the functional scheduling tracks of a project.
type Domain string

const (
	DomainSound      Domain = "sound"
	DomainWorship    Domain = "worship"
	DomainProjection Domain = "projection"
)

var Domains = []Domain{DomainSound, DomainWorship, DomainProjection}

func (d Domain) Valid() bool {
	switch d {
	case DomainSound, DomainWorship, DomainProjection:
		return true
	}
	return false
}

// ProjectRole is a per-project, per-domain permission level.
// Ordered: visualizar < editar < admin.
type ProjectRole string

const (
	ProjectRoleViewer ProjectRole = "visualizar"
	ProjectRoleEditor ProjectRole = "editar"
	ProjectRoleAdmin  ProjectRole = "admin"
)

// Rank returns the position of r in the role order, or -1 for unknown values.
func (r ProjectRole) Rank() int {
	switch r {
	case ProjectRoleViewer:
		return 0
	case ProjectRoleEditor:
		return 1
	case ProjectRoleAdmin:
		return 2
	}
	return -1
}

func (r ProjectRole) Valid() bool {
	return r.Rank() >= 0
}

// AtLeast reports whether r grants min. Unknown roles grant nothing.
func (r ProjectRole) AtLeast(min ProjectRole) bool {
	return r.Valid() && min.Valid() && r.Rank() >= min.Rank()
}
