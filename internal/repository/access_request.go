package repository

import (
	"context"
	"errors"
	"time"

	"harvestlog/internal/cache"
	"harvestlog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyDecided signals an idempotent retry: the request already carries
// the same terminal status the caller asked for.
var ErrAlreadyDecided = errors.New("access request already decided")

// AccessRequestRepository defines persistence operations for access requests.
type AccessRequestRepository interface {
	GetByID(ctx context.Context, id uint) (*models.AccessRequest, error)
	Create(ctx context.Context, req *models.AccessRequest) error
	ListPending(ctx context.Context, churchIDs []uint, branchID *uint) ([]models.AccessRequest, error)
	ListForUser(ctx context.Context, userID uint) ([]models.AccessRequest, error)
	HasPending(ctx context.Context, userID, churchID uint) (bool, error)
	Decide(ctx context.Context, requestID, actorID uint, approve bool, assignBranchID *uint) (*models.AccessRequest, error)
}

type accessRequestRepository struct {
	db *gorm.DB
}

// NewAccessRequestRepository returns a new AccessRequestRepository implementation.
func NewAccessRequestRepository(db *gorm.DB) AccessRequestRepository {
	return &accessRequestRepository{db: db}
}

func (r *accessRequestRepository) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	var req models.AccessRequest
	if err := readDB(r.db).WithContext(ctx).
		Preload("User").Preload("Church").Preload("Branch").
		First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Access request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *accessRequestRepository) Create(ctx context.Context, req *models.AccessRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accessRequestRepository) ListPending(ctx context.Context, churchIDs []uint, branchID *uint) ([]models.AccessRequest, error) {
	q := readDB(r.db).WithContext(ctx).
		Preload("User").Preload("Church").Preload("Branch").
		Where("status = ?", models.RequestPending)
	// nil churchIDs means unrestricted (platform admin)
	if churchIDs != nil {
		q = q.Where("church_id IN ?", churchIDs)
	}
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}

	var reqs []models.AccessRequest
	if err := q.Order("created_at ASC").Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

func (r *accessRequestRepository) ListForUser(ctx context.Context, userID uint) ([]models.AccessRequest, error) {
	var reqs []models.AccessRequest
	if err := readDB(r.db).WithContext(ctx).
		Preload("Church").Preload("Branch").
		Where("user_id = ?", userID).
		Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

func (r *accessRequestRepository) HasPending(ctx context.Context, userID, churchID uint) (bool, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.AccessRequest{}).
		Where("user_id = ? AND church_id = ? AND status = ?", userID, churchID, models.RequestPending).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Decide atomically transitions a pending request to approved or rejected.
// The row is locked for the duration of the transaction, so two concurrent
// decisions serialize: the first wins, the second sees a terminal status.
// A retry of the same decision returns ErrAlreadyDecided with the request;
// a conflicting decision returns CONFLICT. Approval also upserts the
// evangelist membership and flips the user's approved flag inside the same
// transaction. A non-nil assignBranchID overrides the branch the applicant
// asked for; it is stamped onto the request row and the membership alike.
func (r *accessRequestRepository) Decide(ctx context.Context, requestID, actorID uint, approve bool, assignBranchID *uint) (*models.AccessRequest, error) {
	var req models.AccessRequest
	var alreadyDecided bool

	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Access request", requestID)
			}
			return models.NewInternalError(err)
		}

		if req.Terminal() {
			wanted := models.RequestRejected
			if approve {
				wanted = models.RequestApproved
			}
			if req.Status == wanted {
				alreadyDecided = true
				return nil
			}
			return models.NewConflictError("access request has already been decided")
		}

		now := time.Now().UTC()
		req.Status = models.RequestRejected
		if approve {
			req.Status = models.RequestApproved
			if assignBranchID != nil {
				req.BranchID = assignBranchID
			}
		}
		req.HandledBy = &actorID
		req.HandledAt = &now
		if err := tx.Save(&req).Error; err != nil {
			return models.NewInternalError(err)
		}

		if !approve {
			return nil
		}

		membership := models.Membership{
			UserID:   req.UserID,
			ChurchID: req.ChurchID,
			BranchID: req.BranchID,
			Role:     models.RoleEvangelist,
			Status:   models.MembershipActive,
		}
		if err := upsertActiveMembership(tx, &membership); err != nil {
			return models.NewInternalError(err)
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", req.UserID).
			Update("approved", true).Error; err != nil {
			return models.NewInternalError(err)
		}

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	cache.InvalidateUser(ctx, req.UserID)

	if alreadyDecided {
		return &req, ErrAlreadyDecided
	}
	return &req, nil
}
