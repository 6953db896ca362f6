package server

import (
	"time"

	"harvestlog/internal/export"
	"harvestlog/internal/models"
	"harvestlog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LogSoul handles POST /api/souls
// @Summary Log a soul
// @Description Record a soul won. Requires an approved account with an active
// @Description evangelist membership in the church.
// @Tags souls
// @Accept json
// @Produce json
// @Param request body object{church_id=int,name=string,phone=string,email=string,residence=string,notes=string,won_on=string} true "Soul record"
// @Success 201 {object} models.Soul
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /souls [post]
func (s *Server) LogSoul(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	var req struct {
		ChurchID  uint   `json:"church_id"`
		Name      string `json:"name"`
		Phone     string `json:"phone"`
		Email     string `json:"email"`
		Residence string `json:"residence"`
		Notes     string `json:"notes"`
		WonOn     string `json:"won_on"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	var wonOn time.Time
	if req.WonOn != "" {
		wonOn, err = time.Parse("2006-01-02", req.WonOn)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("won_on must be a date in YYYY-MM-DD format"))
		}
	}

	soul, err := s.soulService.LogSoul(c.Context(), actor, service.LogSoulInput{
		ChurchID:  req.ChurchID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Residence: req.Residence,
		Notes:     req.Notes,
		WonOn:     wonOn,
	})
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(soul)
}

// GetMySouls handles GET /api/souls/me
// @Summary My soul records
// @Tags souls
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} models.Soul
// @Security BearerAuth
// @Router /souls/me [get]
func (s *Server) GetMySouls(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	from, to, err := parsePeriod(c)
	if err != nil {
		return respondAppError(c, err)
	}
	p := parsePagination(c, 50)

	souls, err := s.soulService.ListMine(c.Context(), actor, from, to, p.Limit, p.Offset)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(souls)
}

// UpdateSoul handles PUT /api/souls/:id
// @Summary Update a soul record
// @Description Owners only.
// @Tags souls
// @Accept json
// @Produce json
// @Param id path int true "Soul ID"
// @Param request body object{name=string,phone=string,email=string,residence=string,notes=string,won_on=string} true "Fields to change"
// @Success 200 {object} models.Soul
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /souls/{id} [put]
func (s *Server) UpdateSoul(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	soulID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name      string `json:"name"`
		Phone     string `json:"phone"`
		Email     string `json:"email"`
		Residence string `json:"residence"`
		Notes     string `json:"notes"`
		WonOn     string `json:"won_on"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	var wonOn time.Time
	if req.WonOn != "" {
		wonOn, err = time.Parse("2006-01-02", req.WonOn)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("won_on must be a date in YYYY-MM-DD format"))
		}
	}

	soul, err := s.soulService.UpdateSoul(c.Context(), actor, soulID, service.UpdateSoulInput{
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Residence: req.Residence,
		Notes:     req.Notes,
		WonOn:     wonOn,
	})
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(soul)
}

// DeleteSoul handles DELETE /api/souls/:id
// @Summary Delete a soul record
// @Description Owners only.
// @Tags souls
// @Produce json
// @Param id path int true "Soul ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /souls/{id} [delete]
func (s *Server) DeleteSoul(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	soulID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.soulService.DeleteSoul(c.Context(), actor, soulID); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Soul record deleted"})
}

// GetChurchSouls handles GET /api/churches/:id/souls
// @Summary Souls in a church
// @Description Admin view of soul records, scoped to what the actor may see.
// @Tags churches
// @Produce json
// @Param id path int true "Church ID"
// @Param branch_id query int false "Branch filter"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} models.Soul
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /churches/{id}/souls [get]
func (s *Server) GetChurchSouls(c *fiber.Ctx) error {
	souls, ok := s.churchSouls(c)
	if !ok {
		return nil
	}
	return c.JSON(souls)
}

// ExportChurchSouls handles GET /api/churches/:id/souls/export
// @Summary Export church souls as CSV
// @Tags churches
// @Produce text/csv
// @Param id path int true "Church ID"
// @Param branch_id query int false "Branch filter"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {string} string "CSV body"
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /churches/{id}/souls/export [get]
func (s *Server) ExportChurchSouls(c *fiber.Ctx) error {
	if !s.csvExportAllowed(c) {
		return nil
	}

	souls, ok := s.churchSouls(c)
	if !ok {
		return nil
	}

	body, err := export.Souls(souls)
	if err != nil {
		return respondAppError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="souls.csv"`)
	return c.Send(body)
}

// churchSouls loads the admin-scoped soul list. A false return means the
// response was already written.
func (s *Server) churchSouls(c *fiber.Ctx) ([]models.Soul, bool) {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil, false
	}

	churchID, err := s.parseID(c, "id")
	if err != nil {
		return nil, false
	}

	branchID, err := parseOptionalBranchID(c)
	if err != nil {
		_ = respondAppError(c, err)
		return nil, false
	}
	from, to, err := parsePeriod(c)
	if err != nil {
		_ = respondAppError(c, err)
		return nil, false
	}
	p := parsePagination(c, 50)

	souls, err := s.soulService.ListForAdmin(c.Context(), actor, churchID, branchID, from, to, p.Limit, p.Offset)
	if err != nil {
		_ = respondAppError(c, err)
		return nil, false
	}
	return souls, true
}
