package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvestlog/internal/models"
)

type stubStore struct {
	isPlatformAdminFn   func(ctx context.Context, userID uint) (bool, error)
	activeMembershipsFn func(ctx context.Context, userID uint) ([]models.Membership, error)
	userApprovedFn      func(ctx context.Context, userID uint) (bool, error)
}

func (s *stubStore) IsPlatformAdmin(ctx context.Context, userID uint) (bool, error) {
	if s.isPlatformAdminFn != nil {
		return s.isPlatformAdminFn(ctx, userID)
	}
	return false, nil
}

func (s *stubStore) ActiveMemberships(ctx context.Context, userID uint) ([]models.Membership, error) {
	if s.activeMembershipsFn != nil {
		return s.activeMembershipsFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubStore) UserApproved(ctx context.Context, userID uint) (bool, error) {
	if s.userApprovedFn != nil {
		return s.userApprovedFn(ctx, userID)
	}
	return false, nil
}

func uintPtr(v uint) *uint { return &v }

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("platform admin outranks all memberships", func(t *testing.T) {
		t.Parallel()
		store := &stubStore{
			isPlatformAdminFn: func(ctx context.Context, userID uint) (bool, error) {
				return true, nil
			},
		}
		r := NewResolver(store, time.Second)
		ac, err := r.Resolve(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, ac.PlatformAdmin)
		assert.Equal(t, RoleSuperAdmin, ac.EffectiveRole(99))
		assert.True(t, ac.CanManageChurches())
		assert.True(t, ac.CanDecideRequest(12, nil))
	})

	t.Run("store error denies with UPSTREAM_UNAVAILABLE", func(t *testing.T) {
		t.Parallel()
		store := &stubStore{
			activeMembershipsFn: func(ctx context.Context, userID uint) ([]models.Membership, error) {
				return nil, errors.New("connection refused")
			},
		}
		r := NewResolver(store, time.Second)
		ac, err := r.Resolve(context.Background(), 7)
		assert.Nil(t, ac)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeUnavailable, appErr.Code)
	})

	t.Run("slow store hits the deadline and denies", func(t *testing.T) {
		t.Parallel()
		store := &stubStore{
			isPlatformAdminFn: func(ctx context.Context, userID uint) (bool, error) {
				select {
				case <-ctx.Done():
					return false, ctx.Err()
				case <-time.After(2 * time.Second):
					return true, nil
				}
			},
		}
		r := NewResolver(store, 50*time.Millisecond)
		ac, err := r.Resolve(context.Background(), 7)
		assert.Nil(t, ac)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeUnavailable, appErr.Code)
	})

	t.Run("user without memberships or platform flag resolves to nothing", func(t *testing.T) {
		t.Parallel()
		r := NewResolver(&stubStore{}, time.Second)
		ac, err := r.Resolve(context.Background(), 7)
		require.NoError(t, err)
		assert.False(t, ac.PlatformAdmin)
		assert.Empty(t, ac.Scopes)
		assert.False(t, ac.CanManageChurches())
		assert.False(t, ac.CanDecideRequest(1, nil))
		assert.False(t, ac.CanViewBranch(1, nil))
		assert.False(t, ac.CanLogSouls(1))
	})

	t.Run("disabled and unknown-role memberships grant nothing", func(t *testing.T) {
		t.Parallel()
		store := &stubStore{
			activeMembershipsFn: func(ctx context.Context, userID uint) ([]models.Membership, error) {
				return []models.Membership{
					{ChurchID: 1, Role: models.RolePastorAdmin, Status: models.MembershipDisabled},
					{ChurchID: 1, Role: "owner", Status: models.MembershipActive},
				}, nil
			},
		}
		r := NewResolver(store, time.Second)
		ac, err := r.Resolve(context.Background(), 7)
		require.NoError(t, err)
		assert.Empty(t, ac.Scopes)
		assert.Equal(t, RoleNone, ac.EffectiveRole(1))
	})

	t.Run("super admin membership is church-scoped admin", func(t *testing.T) {
		t.Parallel()
		store := &stubStore{
			activeMembershipsFn: func(ctx context.Context, userID uint) ([]models.Membership, error) {
				return []models.Membership{
					{ChurchID: 1, Role: models.RoleSuperAdmin, Status: models.MembershipActive},
				}, nil
			},
		}
		r := NewResolver(store, time.Second)
		ac, err := r.Resolve(context.Background(), 7)
		require.NoError(t, err)
		assert.False(t, ac.PlatformAdmin)
		assert.Equal(t, RoleSuperAdmin, ac.EffectiveRole(1))
		assert.True(t, ac.CanDecideRequest(1, nil))
		assert.True(t, ac.CanDecideRequest(1, uintPtr(4)))
		assert.True(t, ac.CanViewBranch(1, nil))
		// Seniority stays within the church that granted it.
		assert.Equal(t, RoleNone, ac.EffectiveRole(2))
		assert.False(t, ac.CanDecideRequest(2, nil))
		assert.False(t, ac.CanManageChurches())
	})
}

func TestEffectiveRole(t *testing.T) {
	t.Parallel()

	ac := &AuthContext{
		UserID: 3,
		Scopes: []Scope{
			{ChurchID: 1, Role: RoleEvangelist},
			{ChurchID: 1, Role: RolePastorAdmin},
			{ChurchID: 2, Role: RoleBranchAdmin, BranchID: uintPtr(20)},
		},
	}

	assert.Equal(t, RolePastorAdmin, ac.EffectiveRole(1))
	assert.Equal(t, RoleBranchAdmin, ac.EffectiveRole(2))
	assert.Equal(t, RoleNone, ac.EffectiveRole(3))
	assert.ElementsMatch(t, []uint{1, 2}, ac.AdminChurchIDs())
}

func TestCanDecideRequest(t *testing.T) {
	t.Parallel()

	t.Run("pastor admin decides church-wide", func(t *testing.T) {
		t.Parallel()
		ac := &AuthContext{Scopes: []Scope{{ChurchID: 1, Role: RolePastorAdmin}}}
		assert.True(t, ac.CanDecideRequest(1, nil))
		assert.True(t, ac.CanDecideRequest(1, uintPtr(5)))
		assert.False(t, ac.CanDecideRequest(2, nil))
	})

	t.Run("branch admin limited to own branch", func(t *testing.T) {
		t.Parallel()
		ac := &AuthContext{Scopes: []Scope{{ChurchID: 1, Role: RoleBranchAdmin, BranchID: uintPtr(5)}}}
		assert.True(t, ac.CanDecideRequest(1, uintPtr(5)))
		assert.False(t, ac.CanDecideRequest(1, uintPtr(6)))
		assert.False(t, ac.CanDecideRequest(1, nil))
	})

	t.Run("evangelist decides nothing", func(t *testing.T) {
		t.Parallel()
		ac := &AuthContext{Scopes: []Scope{{ChurchID: 1, Role: RoleEvangelist}}}
		assert.False(t, ac.CanDecideRequest(1, nil))
	})
}

func TestCanLogSouls(t *testing.T) {
	t.Parallel()

	scopes := []Scope{{ChurchID: 1, Role: RoleEvangelist, BranchID: uintPtr(4)}}

	t.Run("approved evangelist may log", func(t *testing.T) {
		t.Parallel()
		ac := &AuthContext{Approved: true, Scopes: scopes}
		assert.True(t, ac.CanLogSouls(1))
		got, ok := ac.EvangelistScope(1)
		require.True(t, ok)
		assert.Equal(t, uint(4), *got.BranchID)
	})

	t.Run("unapproved evangelist may not", func(t *testing.T) {
		t.Parallel()
		ac := &AuthContext{Approved: false, Scopes: scopes}
		assert.False(t, ac.CanLogSouls(1))
	})

	t.Run("approval alone is not membership", func(t *testing.T) {
		t.Parallel()
		ac := &AuthContext{Approved: true}
		assert.False(t, ac.CanLogSouls(1))
	})
}
