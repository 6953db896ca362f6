package repository

import (
	"context"
	"errors"
	"time"

	"harvestlog/internal/models"

	"gorm.io/gorm"
)

// SoulFilter narrows soul queries. Zero values mean no restriction, except
// EvangelistID which scopes the query to one evangelist when set.
type SoulFilter struct {
	EvangelistID uint
	ChurchID     uint
	BranchID     *uint
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

// LeaderboardRow is one evangelist's soul count for a period.
type LeaderboardRow struct {
	EvangelistID uint   `json:"evangelist_id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	SoulsCount   int64  `json:"souls_count"`
}

// SoulRepository defines persistence operations for soul records.
type SoulRepository interface {
	Create(ctx context.Context, soul *models.Soul) error
	GetByID(ctx context.Context, id uint) (*models.Soul, error)
	Update(ctx context.Context, soul *models.Soul) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter SoulFilter) ([]models.Soul, error)
	Count(ctx context.Context, filter SoulFilter) (int64, error)
	Leaderboard(ctx context.Context, churchID uint, branchID *uint, from, to time.Time) ([]LeaderboardRow, error)
}

type soulRepository struct {
	db *gorm.DB
}

// NewSoulRepository returns a new SoulRepository implementation.
func NewSoulRepository(db *gorm.DB) SoulRepository {
	return &soulRepository{db: db}
}

func (r *soulRepository) Create(ctx context.Context, soul *models.Soul) error {
	if err := r.db.WithContext(ctx).Create(soul).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *soulRepository) GetByID(ctx context.Context, id uint) (*models.Soul, error) {
	var soul models.Soul
	if err := readDB(r.db).WithContext(ctx).First(&soul, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Soul", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &soul, nil
}

func (r *soulRepository) Update(ctx context.Context, soul *models.Soul) error {
	if err := r.db.WithContext(ctx).Save(soul).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *soulRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Soul{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Soul", id)
	}
	return nil
}

func applySoulFilter(q *gorm.DB, filter SoulFilter) *gorm.DB {
	if filter.EvangelistID != 0 {
		q = q.Where("evangelist_id = ?", filter.EvangelistID)
	}
	if filter.ChurchID != 0 {
		q = q.Where("church_id = ?", filter.ChurchID)
	}
	if filter.BranchID != nil {
		q = q.Where("branch_id = ?", *filter.BranchID)
	}
	if !filter.From.IsZero() {
		q = q.Where("won_on >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("won_on <= ?", filter.To)
	}
	return q
}

func (r *soulRepository) List(ctx context.Context, filter SoulFilter) ([]models.Soul, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var souls []models.Soul
	q := applySoulFilter(readDB(r.db).WithContext(ctx).Model(&models.Soul{}), filter)
	if err := q.Order("won_on DESC").Limit(limit).Offset(filter.Offset).Find(&souls).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return souls, nil
}

func (r *soulRepository) Count(ctx context.Context, filter SoulFilter) (int64, error) {
	var count int64
	q := applySoulFilter(readDB(r.db).WithContext(ctx).Model(&models.Soul{}), filter)
	if err := q.Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// Leaderboard aggregates soul counts per evangelist within a church and period,
// highest first.
func (r *soulRepository) Leaderboard(ctx context.Context, churchID uint, branchID *uint, from, to time.Time) ([]LeaderboardRow, error) {
	q := readDB(r.db).WithContext(ctx).Model(&models.Soul{}).
		Select("souls.evangelist_id, users.full_name, users.email, COUNT(souls.id) AS souls_count").
		Joins("JOIN users ON users.id = souls.evangelist_id").
		Where("souls.church_id = ?", churchID).
		Where("souls.won_on >= ? AND souls.won_on <= ?", from, to).
		Group("souls.evangelist_id, users.full_name, users.email").
		Order("souls_count DESC, users.full_name ASC")
	if branchID != nil {
		q = q.Where("souls.branch_id = ?", *branchID)
	}

	var rows []LeaderboardRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
