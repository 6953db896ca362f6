package server

import (
	"harvestlog/internal/models"
	"harvestlog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/me
// @Summary My profile
// @Description Current user's profile plus resolved role information.
// @Tags me
// @Produce json
// @Success 200 {object} object{user=models.UserResponse,platform_admin=bool,scopes=array}
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUserByID(c.Context(), actor.UserID)
	if err != nil {
		return respondAppError(c, err)
	}

	type scopeDTO struct {
		ChurchID uint   `json:"church_id"`
		BranchID *uint  `json:"branch_id,omitempty"`
		Role     string `json:"role"`
	}
	scopes := make([]scopeDTO, 0, len(actor.Scopes))
	for _, sc := range actor.Scopes {
		scopes = append(scopes, scopeDTO{ChurchID: sc.ChurchID, BranchID: sc.BranchID, Role: sc.Role.String()})
	}

	return c.JSON(fiber.Map{
		"user":           user.ToResponse(),
		"platform_admin": actor.PlatformAdmin,
		"scopes":         scopes,
	})
}

// UpdateMyProfile handles PUT /api/me
// @Summary Update my profile
// @Description Update full name and phone on the current account.
// @Tags me
// @Accept json
// @Produce json
// @Param request body object{full_name=string,phone=string} true "Profile fields"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	var req struct {
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:   userID,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(user.ToResponse())
}

// PromotePlatformAdmin handles POST /api/admin/users/:id/promote
// @Summary Promote to platform admin
// @Description Grant super admin rights. Platform admins only.
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/promote [post]
func (s *Server) PromotePlatformAdmin(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}
	if !actor.PlatformAdmin {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("platform admin access required"))
	}

	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.userService.GetUserByID(c.Context(), userID); err != nil {
		return respondAppError(c, err)
	}
	if err := s.userRepo.PromotePlatformAdmin(c.Context(), userID); err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{"message": "User promoted to platform admin"})
}
