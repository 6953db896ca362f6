package server

import (
	"harvestlog/internal/export"
	"harvestlog/internal/models"
	"harvestlog/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// ApproveEvangelist handles POST /api/admin/evangelists/:id/approve
// @Summary Approve evangelist
// @Description Mark an evangelist's account approved. If the audit record
// @Description cannot be written the response carries a PARTIAL_SUCCESS warning.
// @Tags admin
// @Produce json
// @Param id path int true "Evangelist user ID"
// @Success 200 {object} object{user=models.UserResponse,warning=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/evangelists/{id}/approve [post]
func (s *Server) ApproveEvangelist(c *fiber.Ctx) error {
	return s.setEvangelistApproval(c, true)
}

// UnapproveEvangelist handles POST /api/admin/evangelists/:id/unapprove
// @Summary Revoke evangelist approval
// @Description Approval is reversible; the account loses soul-logging access
// @Description but keeps its history.
// @Tags admin
// @Produce json
// @Param id path int true "Evangelist user ID"
// @Success 200 {object} object{user=models.UserResponse,warning=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/evangelists/{id}/unapprove [post]
func (s *Server) UnapproveEvangelist(c *fiber.Ctx) error {
	return s.setEvangelistApproval(c, false)
}

func (s *Server) setEvangelistApproval(c *fiber.Ctx, approved bool) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	evangelistID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.approvalService.SetEvangelistApproval(c.Context(), actor, evangelistID, approved)
	if err != nil {
		return respondAppError(c, err)
	}

	resp := fiber.Map{"user": result.User.ToResponse()}
	if result.Warning != nil {
		resp["warning"] = result.Warning.Message
		resp["warning_code"] = result.Warning.Code
	}
	return c.JSON(resp)
}

// SetEvangelistBranch handles PUT /api/admin/evangelists/:id/branch
// @Summary Reassign evangelist branch
// @Description Move an evangelist to another branch of the church, or clear
// @Description the branch to make them church-wide.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Evangelist user ID"
// @Param request body object{church_id=int,branch_id=int} true "Target branch"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/evangelists/{id}/branch [put]
func (s *Server) SetEvangelistBranch(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	evangelistID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		ChurchID uint  `json:"church_id"`
		BranchID *uint `json:"branch_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.ChurchID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("church_id is required"))
	}

	if err := s.approvalService.SetEvangelistBranch(c.Context(), actor, evangelistID, req.ChurchID, req.BranchID); err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Branch updated"})
}

// RemoveEvangelist handles DELETE /api/admin/evangelists/:id/membership
// @Summary Remove evangelist from church
// @Description Disable the evangelist's membership in a church. Their account
// @Description and soul history remain; the grant stops resolving.
// @Tags admin
// @Produce json
// @Param id path int true "Evangelist user ID"
// @Param church_id query int true "Church ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/evangelists/{id}/membership [delete]
func (s *Server) RemoveEvangelist(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	evangelistID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	churchID := c.QueryInt("church_id", 0)
	if churchID <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("church_id is required"))
	}

	if err := s.approvalService.RemoveEvangelist(c.Context(), actor, evangelistID, uint(churchID)); err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Membership removed"})
}

// GetAuditTrail handles GET /api/admin/audit
// @Summary Approval audit trail
// @Description Append-only history of evangelist approval changes, newest first.
// @Tags admin
// @Produce json
// @Param evangelist_id query int false "Filter by evangelist"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} models.ApprovalLog
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/audit [get]
func (s *Server) GetAuditTrail(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	filter, err := s.auditFilter(c)
	if err != nil {
		return respondAppError(c, err)
	}

	logs, err := s.reportService.Audit(c.Context(), actor, filter)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(logs)
}

// ExportAuditTrail handles GET /api/admin/audit/export
// @Summary Export audit trail as CSV
// @Tags admin
// @Produce text/csv
// @Param evangelist_id query int false "Filter by evangelist"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {string} string "CSV body"
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/audit/export [get]
func (s *Server) ExportAuditTrail(c *fiber.Ctx) error {
	if !s.csvExportAllowed(c) {
		return nil
	}

	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	filter, err := s.auditFilter(c)
	if err != nil {
		return respondAppError(c, err)
	}

	logs, err := s.reportService.Audit(c.Context(), actor, filter)
	if err != nil {
		return respondAppError(c, err)
	}

	body, err := export.Audit(logs)
	if err != nil {
		return respondAppError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="approval_audit.csv"`)
	return c.Send(body)
}

func (s *Server) auditFilter(c *fiber.Ctx) (repository.ApprovalLogFilter, error) {
	from, to, err := parsePeriod(c)
	if err != nil {
		return repository.ApprovalLogFilter{}, err
	}

	filter := repository.ApprovalLogFilter{From: from, To: to}
	if id := c.QueryInt("evangelist_id", 0); id > 0 {
		filter.EvangelistID = uint(id)
	}
	p := parsePagination(c, 100)
	filter.Limit = p.Limit
	filter.Offset = p.Offset
	return filter, nil
}
