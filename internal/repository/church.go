package repository

import (
	"context"
	"errors"

	"harvestlog/internal/cache"
	"harvestlog/internal/models"

	"gorm.io/gorm"
)

// ChurchRepository defines persistence operations for churches and branches.
type ChurchRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Church, error)
	GetBySlug(ctx context.Context, slug string) (*models.Church, error)
	List(ctx context.Context) ([]models.Church, error)
	Create(ctx context.Context, church *models.Church) error
	CreateBranch(ctx context.Context, branch *models.Branch) error
	GetBranch(ctx context.Context, id uint) (*models.Branch, error)
	ListBranches(ctx context.Context, churchID uint) ([]models.Branch, error)
}

type churchRepository struct {
	db *gorm.DB
}

// NewChurchRepository returns a new ChurchRepository implementation.
func NewChurchRepository(db *gorm.DB) ChurchRepository {
	return &churchRepository{db: db}
}

func (r *churchRepository) GetByID(ctx context.Context, id uint) (*models.Church, error) {
	var church models.Church
	if err := readDB(r.db).WithContext(ctx).Preload("Branches").First(&church, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Church", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &church, nil
}

func (r *churchRepository) GetBySlug(ctx context.Context, slug string) (*models.Church, error) {
	var church models.Church
	key := cache.ChurchKey(slug)

	err := cache.Aside(ctx, key, &church, cache.ChurchTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Preload("Branches").
			Where("slug = ?", slug).First(&church).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Church", slug)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &church, nil
}

func (r *churchRepository) List(ctx context.Context) ([]models.Church, error) {
	var churches []models.Church

	err := cache.Aside(ctx, cache.ChurchListKey, &churches, cache.ChurchTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Preload("Branches").
			Order("name ASC").Find(&churches).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return churches, nil
}

func (r *churchRepository) Create(ctx context.Context, church *models.Church) error {
	if err := r.db.WithContext(ctx).Create(church).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("a church with this slug already exists")
		}
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.ChurchListKey)
	return nil
}

func (r *churchRepository) CreateBranch(ctx context.Context, branch *models.Branch) error {
	if err := r.db.WithContext(ctx).Create(branch).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("a branch with this name already exists in the church")
		}
		return models.NewInternalError(err)
	}
	var church models.Church
	if err := readDB(r.db).WithContext(ctx).Select("slug").First(&church, branch.ChurchID).Error; err == nil {
		cache.InvalidateChurch(ctx, church.Slug)
	}
	return nil
}

func (r *churchRepository) GetBranch(ctx context.Context, id uint) (*models.Branch, error) {
	var branch models.Branch
	if err := readDB(r.db).WithContext(ctx).First(&branch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Branch", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &branch, nil
}

func (r *churchRepository) ListBranches(ctx context.Context, churchID uint) ([]models.Branch, error) {
	var branches []models.Branch
	if err := readDB(r.db).WithContext(ctx).
		Where("church_id = ?", churchID).Order("name ASC").Find(&branches).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return branches, nil
}
