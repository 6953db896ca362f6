package models

import "time"

// Org-scoped roles, in descending seniority. Platform admins sit above all of
// these and are tracked separately (PlatformAdmin).
const (
	RoleSuperAdmin  = "super_admin"
	RolePastorAdmin = "pastor_admin"
	RoleBranchAdmin = "branch_admin"
	RoleEvangelist  = "evangelist"
)

// Membership statuses.
const (
	MembershipActive   = "active"
	MembershipPending  = "pending"
	MembershipDisabled = "disabled"
)

// Membership binds a user to a church (and optionally a branch) with a role.
// A user holds at most one membership per (church, role); approving a second
// request for the same pair upserts rather than duplicating.
type Membership struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"not null;uniqueIndex:idx_membership_user_church_role" json:"user_id"`
	ChurchID uint   `gorm:"not null;uniqueIndex:idx_membership_user_church_role" json:"church_id"`
	BranchID *uint  `json:"branch_id,omitempty"`
	Role     string `gorm:"not null;uniqueIndex:idx_membership_user_church_role" json:"role"`
	Status   string `gorm:"not null;default:'active'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User   User    `gorm:"foreignKey:UserID" json:"-"`
	Church Church  `gorm:"foreignKey:ChurchID" json:"church,omitempty"`
	Branch *Branch `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
}

// ValidOrgRole reports whether role is one of the org-scoped roles.
func ValidOrgRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RolePastorAdmin, RoleBranchAdmin, RoleEvangelist:
		return true
	}
	return false
}
