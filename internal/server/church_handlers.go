package server

import (
	"strings"

	"harvestlog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetChurches handles GET /api/churches
// @Summary List churches
// @Description Public church directory, used by the onboarding request form.
// @Tags churches
// @Produce json
// @Success 200 {array} models.Church
// @Router /churches [get]
func (s *Server) GetChurches(c *fiber.Ctx) error {
	churches, err := s.churchService.List(c.Context())
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(churches)
}

// GetChurchBySlug handles GET /api/churches/:slug
// @Summary Get church by slug
// @Tags churches
// @Produce json
// @Param slug path string true "Church slug"
// @Success 200 {object} models.Church
// @Failure 404 {object} models.ErrorResponse
// @Router /churches/{slug} [get]
func (s *Server) GetChurchBySlug(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("slug is required"))
	}

	church, err := s.churchService.GetBySlug(c.Context(), slug)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(church)
}

// CreateChurch handles POST /api/churches
// @Summary Create church
// @Description Register a new church. Platform admins only.
// @Tags churches
// @Accept json
// @Produce json
// @Param request body object{name=string,slug=string} true "Church"
// @Success 201 {object} models.Church
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /churches [post]
func (s *Server) CreateChurch(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	church, err := s.churchService.CreateChurch(c.Context(), actor, req.Name, strings.TrimSpace(req.Slug))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(church)
}

// GetBranches handles GET /api/churches/:id/branches
// @Summary List branches
// @Tags churches
// @Produce json
// @Param id path int true "Church ID"
// @Success 200 {array} models.Branch
// @Security BearerAuth
// @Router /churches/{id}/branches [get]
func (s *Server) GetBranches(c *fiber.Ctx) error {
	churchID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	branches, err := s.churchRepo.ListBranches(c.Context(), churchID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(branches)
}

// CreateBranch handles POST /api/churches/:id/branches
// @Summary Create branch
// @Description Add a branch to a church. Pastor admins of the church or platform admins.
// @Tags churches
// @Accept json
// @Produce json
// @Param id path int true "Church ID"
// @Param request body object{name=string} true "Branch"
// @Success 201 {object} models.Branch
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /churches/{id}/branches [post]
func (s *Server) CreateBranch(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	churchID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	branch, err := s.churchService.CreateBranch(c.Context(), actor, churchID, req.Name)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(branch)
}

// GetEvangelists handles GET /api/churches/:id/evangelists
// @Summary List evangelists
// @Description Active evangelist memberships in a church, optionally one branch.
// @Tags churches
// @Produce json
// @Param id path int true "Church ID"
// @Param branch_id query int false "Branch filter"
// @Success 200 {array} models.Membership
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /churches/{id}/evangelists [get]
func (s *Server) GetEvangelists(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	churchID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	branchID, err := parseOptionalBranchID(c)
	if err != nil {
		return respondAppError(c, err)
	}

	if !actor.CanViewBranch(churchID, branchID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("you may not view evangelists for this church or branch"))
	}

	memberships, err := s.membershipRepo.ListEvangelists(c.Context(), churchID, branchID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(memberships)
}
