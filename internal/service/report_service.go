package service

import (
	"context"
	"time"

	"harvestlog/internal/authz"
	"harvestlog/internal/cache"
	"harvestlog/internal/models"
	"harvestlog/internal/repository"
)

// ReportService owns the admin leaderboard and approval audit views.
type ReportService struct {
	souls        repository.SoulRepository
	approvalLogs repository.ApprovalLogRepository
	timeout      time.Duration
}

func NewReportService(souls repository.SoulRepository, approvalLogs repository.ApprovalLogRepository, timeout time.Duration) *ReportService {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ReportService{souls: souls, approvalLogs: approvalLogs, timeout: timeout}
}

// Period is a closed date range. DefaultPeriod runs from the start of the
// current month to now.
type Period struct {
	From time.Time
	To   time.Time
}

func DefaultPeriod() Period {
	now := time.Now().UTC()
	return Period{
		From: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		To:   now,
	}
}

// Leaderboard returns soul counts per evangelist for a church and period,
// highest first. Cached briefly; the board tolerates slight staleness.
func (s *ReportService) Leaderboard(ctx context.Context, actor *authz.AuthContext, churchID uint, branchID *uint, period Period) ([]repository.LeaderboardRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if !actor.CanViewBranch(churchID, branchID) {
		return nil, models.NewForbiddenError("you may not view the leaderboard for this church or branch")
	}

	if period.From.IsZero() || period.To.IsZero() {
		period = DefaultPeriod()
	}

	var rows []repository.LeaderboardRow
	if branchID == nil {
		key := cache.LeaderboardKey(churchID, period.From.Format("2006-01-02"), period.To.Format("2006-01-02"))
		err := cache.Aside(ctx, key, &rows, cache.LeaderboardTTL, func() error {
			var err error
			rows, err = s.souls.Leaderboard(ctx, churchID, nil, period.From, period.To)
			return err
		})
		return rows, err
	}

	return s.souls.Leaderboard(ctx, churchID, branchID, period.From, period.To)
}

// Audit returns approval log entries the actor may see, newest first.
// Platform admins read the full trail; org admins only entries for
// evangelists serving in churches they administer.
func (s *ReportService) Audit(ctx context.Context, actor *authz.AuthContext, filter repository.ApprovalLogFilter) ([]models.ApprovalLog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if !actor.IsAnyAdmin() {
		return nil, models.NewForbiddenError("admin access required")
	}

	// Nil for platform admins, so the scoping clause is skipped entirely.
	filter.ChurchIDs = actor.AdminChurchIDs()

	return s.approvalLogs.List(ctx, filter)
}
