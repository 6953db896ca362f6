package repository

import (
	"context"
	"time"

	"harvestlog/internal/models"

	"gorm.io/gorm"
)

// ApprovalLogFilter narrows audit queries. Nil ChurchIDs means unrestricted
// (platform admin); otherwise only entries for evangelists holding a
// membership in one of the listed churches are returned.
type ApprovalLogFilter struct {
	EvangelistID uint
	ActionBy     uint
	ChurchIDs    []uint
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

// ApprovalLogRepository defines persistence for the approval audit trail.
// Append-only; there is no update or delete.
type ApprovalLogRepository interface {
	Append(ctx context.Context, log *models.ApprovalLog) error
	List(ctx context.Context, filter ApprovalLogFilter) ([]models.ApprovalLog, error)
}

type approvalLogRepository struct {
	db *gorm.DB
}

// NewApprovalLogRepository returns a new ApprovalLogRepository implementation.
func NewApprovalLogRepository(db *gorm.DB) ApprovalLogRepository {
	return &approvalLogRepository{db: db}
}

func (r *approvalLogRepository) Append(ctx context.Context, log *models.ApprovalLog) error {
	if log.ActionAt.IsZero() {
		log.ActionAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *approvalLogRepository) List(ctx context.Context, filter ApprovalLogFilter) ([]models.ApprovalLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	q := readDB(r.db).WithContext(ctx).Model(&models.ApprovalLog{}).
		Preload("Evangelist").Preload("Actor")
	if filter.EvangelistID != 0 {
		q = q.Where("evangelist_id = ?", filter.EvangelistID)
	}
	if filter.ChurchIDs != nil {
		q = q.Where("evangelist_id IN (?)",
			r.db.Model(&models.Membership{}).Select("user_id").
				Where("church_id IN ? AND role = ?", filter.ChurchIDs, models.RoleEvangelist))
	}
	if filter.ActionBy != 0 {
		q = q.Where("action_by = ?", filter.ActionBy)
	}
	if !filter.From.IsZero() {
		q = q.Where("action_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("action_at <= ?", filter.To)
	}

	var logs []models.ApprovalLog
	if err := q.Order("action_at DESC").Limit(limit).Offset(filter.Offset).Find(&logs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return logs, nil
}
