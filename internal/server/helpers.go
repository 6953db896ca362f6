package server

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"harvestlog/internal/authz"
	"harvestlog/internal/cache"
	"harvestlog/internal/featureflags"
	"harvestlog/internal/models"
	"harvestlog/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "branchId" -> "branch ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// resolveAuth builds the permission context for the authenticated user.
// Fail-closed: any resolution failure writes a 503 and returns
// errResponseWritten; the handler must then return nil.
// Contexts are cached briefly so a burst of requests does not hammer
// the membership tables.
func (s *Server) resolveAuth(c *fiber.Ctx) (*authz.AuthContext, error) {
	userID, ok := c.Locals("userID").(uint)
	if !ok || userID == 0 {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
		return nil, errResponseWritten
	}

	start := time.Now()
	var actor *authz.AuthContext
	err := cache.Aside(c.Context(), cache.AuthContextKey(userID), &actor, cache.AuthContextTTL, func() error {
		resolved, err := s.resolver.Resolve(c.Context(), userID)
		if err != nil {
			return err
		}
		actor = resolved
		return nil
	})
	if err != nil || actor == nil {
		observability.RecordAuthzResolution("unavailable", start)
		if err == nil {
			err = models.NewUnavailableError(errors.New("authorization context unavailable"))
		}
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			appErr = models.NewUnavailableError(err)
		}
		_ = models.RespondWithError(c, fiber.StatusServiceUnavailable, appErr)
		return nil, errResponseWritten
	}

	observability.RecordAuthzResolution("ok", start)
	return actor, nil
}

// parsePeriod reads optional from/to date query params (2006-01-02).
// Zero Period means "use the default reporting period".
func parsePeriod(c *fiber.Ctx) (from, to time.Time, err error) {
	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, models.NewValidationError("from must be a date in YYYY-MM-DD format")
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, models.NewValidationError("to must be a date in YYYY-MM-DD format")
		}
		// Inclusive end of day.
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, models.NewValidationError("to must not be before from")
	}
	return from, to, nil
}

// parseOptionalBranchID reads the optional branch_id query param.
func parseOptionalBranchID(c *fiber.Ctx) (*uint, error) {
	raw := c.Query("branch_id")
	if raw == "" {
		return nil, nil
	}
	id := c.QueryInt("branch_id", 0)
	if id <= 0 {
		return nil, models.NewValidationError("branch_id must be a positive integer")
	}
	branchID := uint(id)
	return &branchID, nil
}

// csvExportAllowed enforces the csv_export feature gate for download
// endpoints. A false return means a 403 was already written.
func (s *Server) csvExportAllowed(c *fiber.Ctx) bool {
	userID, _ := c.Locals("userID").(uint)
	if s.featureFlags.Enabled(featureflags.FlagCSVExport, userID) {
		return true
	}
	_ = models.RespondWithError(c, fiber.StatusForbidden,
		models.NewForbiddenError("CSV export is currently disabled"))
	return false
}

// respondAppError maps an AppError (or a plain error) to its HTTP status.
func respondAppError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return models.RespondWithError(c, models.StatusForError(appErr), appErr)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
