// Package authz resolves a user's effective permissions from platform-admin
// status and org memberships. Resolution is fail-closed: any store error denies.
package authz

import (
	"context"
	"time"

	"harvestlog/internal/models"
)

// Role is an effective role with a total precedence order.
type Role int

const (
	RoleNone Role = iota
	RoleEvangelist
	RoleBranchAdmin
	RolePastorAdmin
	RoleSuperAdmin
)

func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return models.RoleSuperAdmin
	case RolePastorAdmin:
		return models.RolePastorAdmin
	case RoleBranchAdmin:
		return models.RoleBranchAdmin
	case RoleEvangelist:
		return models.RoleEvangelist
	default:
		return "none"
	}
}

// RoleFromMembership maps a membership role string to its Role. Unknown
// strings map to RoleNone rather than erroring; a corrupt row must not
// grant anything.
func RoleFromMembership(role string) Role {
	switch role {
	case models.RoleSuperAdmin:
		return RoleSuperAdmin
	case models.RolePastorAdmin:
		return RolePastorAdmin
	case models.RoleBranchAdmin:
		return RoleBranchAdmin
	case models.RoleEvangelist:
		return RoleEvangelist
	default:
		return RoleNone
	}
}

// Scope is one org-scoped grant held by the user.
type Scope struct {
	ChurchID uint
	BranchID *uint
	Role     Role
}

// AuthContext is the resolved permission set for one user. Immutable once
// built; handlers query it through the predicate methods.
type AuthContext struct {
	UserID        uint
	Approved      bool
	PlatformAdmin bool
	Scopes        []Scope
}

// Store is the read surface the resolver needs. Implementations must honor
// ctx cancellation so the resolver's deadline is effective.
type Store interface {
	IsPlatformAdmin(ctx context.Context, userID uint) (bool, error)
	ActiveMemberships(ctx context.Context, userID uint) ([]models.Membership, error)
	UserApproved(ctx context.Context, userID uint) (bool, error)
}

// Resolver builds AuthContexts with a bounded per-resolution deadline.
type Resolver struct {
	store   Store
	timeout time.Duration
}

// NewResolver creates a Resolver. A non-positive timeout falls back to 3s.
func NewResolver(store Store, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{store: store, timeout: timeout}
}

// Resolve computes the AuthContext for userID. Every store failure or timeout
// returns a nil context and an UPSTREAM_UNAVAILABLE error; callers deny on
// any non-nil error.
func (r *Resolver) Resolve(ctx context.Context, userID uint) (*AuthContext, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	admin, err := r.store.IsPlatformAdmin(ctx, userID)
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}

	approved, err := r.store.UserApproved(ctx, userID)
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}

	memberships, err := r.store.ActiveMemberships(ctx, userID)
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}

	ac := &AuthContext{
		UserID:        userID,
		Approved:      approved,
		PlatformAdmin: admin,
		Scopes:        make([]Scope, 0, len(memberships)),
	}
	for _, m := range memberships {
		if m.Status != models.MembershipActive {
			continue
		}
		role := RoleFromMembership(m.Role)
		if role == RoleNone {
			continue
		}
		ac.Scopes = append(ac.Scopes, Scope{
			ChurchID: m.ChurchID,
			BranchID: m.BranchID,
			Role:     role,
		})
	}
	return ac, nil
}

// EffectiveRole returns the highest role the user holds within a church.
// Platform admins are super_admin everywhere.
func (a *AuthContext) EffectiveRole(churchID uint) Role {
	if a.PlatformAdmin {
		return RoleSuperAdmin
	}
	best := RoleNone
	for _, s := range a.Scopes {
		if s.ChurchID == churchID && s.Role > best {
			best = s.Role
		}
	}
	return best
}

// IsAdminOf reports whether the user administers the church at any level.
func (a *AuthContext) IsAdminOf(churchID uint) bool {
	return a.EffectiveRole(churchID) >= RoleBranchAdmin
}

// IsAnyAdmin reports whether the user administers any church, or the platform.
func (a *AuthContext) IsAnyAdmin() bool {
	if a.PlatformAdmin {
		return true
	}
	for _, s := range a.Scopes {
		if s.Role >= RoleBranchAdmin {
			return true
		}
	}
	return false
}

// AdminChurchIDs returns the churches the user administers. Nil means
// unrestricted (platform admin).
func (a *AuthContext) AdminChurchIDs() []uint {
	if a.PlatformAdmin {
		return nil
	}
	seen := map[uint]bool{}
	var ids []uint
	for _, s := range a.Scopes {
		if s.Role >= RoleBranchAdmin && !seen[s.ChurchID] {
			seen[s.ChurchID] = true
			ids = append(ids, s.ChurchID)
		}
	}
	return ids
}

// CanDecideRequest reports whether the user may approve or reject an access
// request for the given church/branch. Super and pastor admins decide anything
// in their church; branch admins only requests targeting their own branch.
func (a *AuthContext) CanDecideRequest(churchID uint, branchID *uint) bool {
	if a.PlatformAdmin {
		return true
	}
	for _, s := range a.Scopes {
		if s.ChurchID != churchID {
			continue
		}
		switch s.Role {
		case RoleSuperAdmin, RolePastorAdmin:
			return true
		case RoleBranchAdmin:
			if s.BranchID != nil && branchID != nil && *s.BranchID == *branchID {
				return true
			}
		}
	}
	return false
}

// CanViewBranch reports whether the user may read admin data scoped to the
// given church/branch pair. A nil branchID asks for church-wide access, which
// branch admins do not have.
func (a *AuthContext) CanViewBranch(churchID uint, branchID *uint) bool {
	if a.PlatformAdmin {
		return true
	}
	for _, s := range a.Scopes {
		if s.ChurchID != churchID {
			continue
		}
		switch s.Role {
		case RoleSuperAdmin, RolePastorAdmin:
			return true
		case RoleBranchAdmin:
			if branchID != nil && s.BranchID != nil && *s.BranchID == *branchID {
				return true
			}
		}
	}
	return false
}

// CanManageChurches reports whether the user may create or modify churches
// and branches. Platform admins only.
func (a *AuthContext) CanManageChurches() bool {
	return a.PlatformAdmin
}

// CanLogSouls reports whether the user may record souls: an approved account
// with an active evangelist membership in the church.
func (a *AuthContext) CanLogSouls(churchID uint) bool {
	if !a.Approved {
		return false
	}
	for _, s := range a.Scopes {
		if s.ChurchID == churchID && s.Role == RoleEvangelist {
			return true
		}
	}
	return false
}

// EvangelistScope returns the user's evangelist membership scope for churchID,
// if any. Used to stamp church/branch onto new soul records.
func (a *AuthContext) EvangelistScope(churchID uint) (Scope, bool) {
	for _, s := range a.Scopes {
		if s.ChurchID == churchID && s.Role == RoleEvangelist {
			return s, true
		}
	}
	return Scope{}, false
}
