package handlers

import (
	"strconv"
	"strings"

	"github.com/formbase/formbase/internal/middleware"
	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/types"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// auditContext collects request metadata for audit rows.
func auditContext(c *fiber.Ctx) services.AuditContext {
	return services.AuditContext{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		SessionID: c.Get("X-Session-Id"),
	}
}

// userID returns the authenticated user id, empty for anonymous requests.
func userID(c *fiber.Ctx) string {
	return middleware.UserID(c)
}

// requireUserID rejects anonymous requests with a 401.
func requireUserID(c *fiber.Ctx) (string, error) {
	uid := middleware.UserID(c)
	if uid == "" {
		return "", types.ErrUnauthorized("Authentication required")
	}
	return uid, nil
}

// serviceError translates a service error into the JSON envelope.
func serviceError(c *fiber.Ctx, err error) error {
	if appErr, ok := err.(*types.AppError); ok {
		return utils.ErrorResponse(c, appErr.Status, appErr.Code, appErr.Message)
	}
	if strings.Contains(err.Error(), "E_VERSION") {
		return utils.VersionErrorResponse(c)
	}
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

// parsePagination reads limit/offset query parameters.
func parsePagination(c *fiber.Ctx) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit", "0"))
	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
