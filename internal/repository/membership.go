package repository

import (
	"context"
	"time"

	"harvestlog/internal/cache"
	"harvestlog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipRepository defines persistence operations for memberships.
type MembershipRepository interface {
	ActiveForUser(ctx context.Context, userID uint) ([]models.Membership, error)
	SetBranch(ctx context.Context, userID, churchID uint, branchID *uint) error
	Disable(ctx context.Context, userID, churchID uint, role string) error
	ListEvangelists(ctx context.Context, churchID uint, branchID *uint) ([]models.Membership, error)
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository returns a new MembershipRepository implementation.
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) ActiveForUser(ctx context.Context, userID uint) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := readDB(r.db).WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.MembershipActive).
		Find(&memberships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}

// upsertActiveMembership creates the membership or reactivates an existing
// (user, church, role) row. Approving a duplicate request must not produce a
// second membership. Runs on whatever handle the caller passes, so it can
// join an open transaction.
func upsertActiveMembership(db *gorm.DB, membership *models.Membership) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "church_id"}, {Name: "role"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":     models.MembershipActive,
			"branch_id":  membership.BranchID,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(membership).Error
}

func (r *membershipRepository) SetBranch(ctx context.Context, userID, churchID uint, branchID *uint) error {
	res := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND church_id = ? AND role = ?", userID, churchID, models.RoleEvangelist).
		Update("branch_id", branchID)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Membership", userID)
	}
	cache.InvalidateAuthContext(ctx, userID)
	return nil
}

// Disable deactivates a membership without deleting it. The user keeps their
// history; ActiveForUser and the resolver stop seeing the grant.
func (r *membershipRepository) Disable(ctx context.Context, userID, churchID uint, role string) error {
	res := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND church_id = ? AND role = ?", userID, churchID, role).
		Update("status", models.MembershipDisabled)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Membership", userID)
	}
	cache.InvalidateAuthContext(ctx, userID)
	return nil
}

func (r *membershipRepository) ListEvangelists(ctx context.Context, churchID uint, branchID *uint) ([]models.Membership, error) {
	q := readDB(r.db).WithContext(ctx).
		Preload("User").
		Preload("Branch").
		Where("church_id = ? AND role = ? AND status = ?", churchID, models.RoleEvangelist, models.MembershipActive)
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}

	var memberships []models.Membership
	if err := q.Order("created_at ASC").Find(&memberships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}
