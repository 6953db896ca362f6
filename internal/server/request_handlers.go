package server

import (
	"harvestlog/internal/models"
	"harvestlog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateAccessRequest handles POST /api/requests
// @Summary Request church access
// @Description Submit a request to serve as an evangelist in a church.
// @Description One pending request per church at a time.
// @Tags requests
// @Accept json
// @Produce json
// @Param request body object{church_id=int,branch_id=int,note=string} true "Access request"
// @Success 201 {object} models.AccessRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests [post]
func (s *Server) CreateAccessRequest(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	var req struct {
		ChurchID uint   `json:"church_id"`
		BranchID *uint  `json:"branch_id"`
		Note     string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	created, err := s.approvalService.CreateRequest(c.Context(), service.CreateRequestInput{
		UserID:   userID,
		ChurchID: req.ChurchID,
		BranchID: req.BranchID,
		Note:     req.Note,
	})
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetMyAccessRequests handles GET /api/me/requests
// @Summary My access requests
// @Tags requests
// @Produce json
// @Success 200 {array} models.AccessRequest
// @Security BearerAuth
// @Router /me/requests [get]
func (s *Server) GetMyAccessRequests(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	requests, err := s.approvalService.ListForUser(c.Context(), userID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(requests)
}

// GetPendingAccessRequests handles GET /api/requests/pending
// @Summary Pending access requests
// @Description Requests awaiting a decision, scoped to what the admin may decide.
// @Tags requests
// @Produce json
// @Success 200 {array} models.AccessRequest
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests/pending [get]
func (s *Server) GetPendingAccessRequests(c *fiber.Ctx) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	requests, err := s.approvalService.ListPending(c.Context(), actor)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(requests)
}

// ApproveAccessRequest handles POST /api/requests/:id/approve
// @Summary Approve access request
// @Description Approve a pending request: grants the evangelist membership and
// @Description marks the account approved. An optional branch_id places the
// @Description evangelist into that branch instead of the requested one.
// @Description Retrying the same decision is a no-op.
// @Tags requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body object{branch_id=int} false "Branch assignment"
// @Success 200 {object} object{request=models.AccessRequest,already_decided=bool}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests/{id}/approve [post]
func (s *Server) ApproveAccessRequest(c *fiber.Ctx) error {
	return s.decideAccessRequest(c, true)
}

// RejectAccessRequest handles POST /api/requests/:id/reject
// @Summary Reject access request
// @Tags requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} object{request=models.AccessRequest,already_decided=bool}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /requests/{id}/reject [post]
func (s *Server) RejectAccessRequest(c *fiber.Ctx) error {
	return s.decideAccessRequest(c, false)
}

func (s *Server) decideAccessRequest(c *fiber.Ctx, approve bool) error {
	actor, err := s.resolveAuth(c)
	if err != nil {
		return nil
	}

	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	// The approve body is optional; without one the request's own branch is kept.
	var assignBranchID *uint
	if approve && len(c.Body()) > 0 {
		var body struct {
			BranchID *uint `json:"branch_id"`
		}
		if err := c.BodyParser(&body); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		assignBranchID = body.BranchID
	}

	result, err := s.approvalService.DecideRequest(c.Context(), actor, requestID, approve, assignBranchID)
	if err != nil {
		return respondAppError(c, err)
	}

	resp := fiber.Map{
		"request":         result.Request,
		"already_decided": result.AlreadyDecided,
	}
	if result.Warning != nil {
		resp["warning"] = result.Warning.Message
		resp["warning_code"] = result.Warning.Code
	}
	return c.JSON(resp)
}
