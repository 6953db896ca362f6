package service

import (
	"context"

	"harvestlog/internal/models"
	"harvestlog/internal/repository"
)

// AuthStore adapts the user and membership repositories to the read surface
// the permission resolver needs.
type AuthStore struct {
	users       repository.UserRepository
	memberships repository.MembershipRepository
}

// NewAuthStore returns a new AuthStore.
func NewAuthStore(users repository.UserRepository, memberships repository.MembershipRepository) *AuthStore {
	return &AuthStore{users: users, memberships: memberships}
}

func (s *AuthStore) IsPlatformAdmin(ctx context.Context, userID uint) (bool, error) {
	return s.users.IsPlatformAdmin(ctx, userID)
}

func (s *AuthStore) ActiveMemberships(ctx context.Context, userID uint) ([]models.Membership, error) {
	return s.memberships.ActiveForUser(ctx, userID)
}

func (s *AuthStore) UserApproved(ctx context.Context, userID uint) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Approved, nil
}
