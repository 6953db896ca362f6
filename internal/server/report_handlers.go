package server

import (
	"harvestlog/internal/export"
	"harvestlog/internal/repository"
	"harvestlog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard handles GET /api/churches/:id/leaderboard
// @Summary Soul-winning leaderboard
// @Description Souls won per evangelist for a period, highest first.
// @Description Defaults to the current month.
// @Tags reports
// @Produce json
// @Param id path int true "Church ID"
// @Param branch_id query int false "Branch filter"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} repository.LeaderboardRow
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /churches/{id}/leaderboard [get]
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	rows, _, ok := s.leaderboardRows(c)
	if !ok {
		return nil
	}
	return c.JSON(rows)
}

// ExportLeaderboard handles GET /api/churches/:id/leaderboard/export
// @Summary Export leaderboard as CSV
// @Tags reports
// @Produce text/csv
// @Param id path int true "Church ID"
// @Param branch_id query int false "Branch filter"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {string} string "CSV body"
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /churches/{id}/leaderboard/export [get]
func (s *Server) ExportLeaderboard(c *fiber.Ctx) error {
	if !s.csvExportAllowed(c) {
		return nil
	}

	rows, period, ok := s.leaderboardRows(c)
	if !ok {
		return nil
	}

	body, err := export.Leaderboard(rows, period.From, period.To)
	if err != nil {
		return respondAppError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="leaderboard.csv"`)
	return c.Send(body)
}

// leaderboardRows loads the scoped leaderboard. A false return means the
// response was already written.
func (s *Server) leaderboardRows(c *fiber.Ctx) ([]repository.LeaderboardRow, service.Period, bool) {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil, service.Period{}, false
	}

	churchID, err := s.parseID(c, "id")
	if err != nil {
		return nil, service.Period{}, false
	}

	branchID, err := parseOptionalBranchID(c)
	if err != nil {
		_ = respondAppError(c, err)
		return nil, service.Period{}, false
	}
	from, to, err := parsePeriod(c)
	if err != nil {
		_ = respondAppError(c, err)
		return nil, service.Period{}, false
	}

	period := service.Period{From: from, To: to}
	if period.From.IsZero() || period.To.IsZero() {
		period = service.DefaultPeriod()
	}

	rows, err := s.reportService.Leaderboard(c.Context(), actor, churchID, branchID, period)
	if err != nil {
		_ = respondAppError(c, err)
		return nil, service.Period{}, false
	}
	return rows, period, true
}
