package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// DataResponse sends the standard success envelope
func DataResponse(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// MessageResponse sends a success envelope with only a message
func MessageResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}

// ErrorResponse sends the standard error envelope
func ErrorResponse(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// VersionErrorResponse sends a version conflict error (409)
func VersionErrorResponse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"success":      false,
		"error":        "E_VERSION - Refresh and reconcile with current version and retry.",
		"code":         "VERSION_CONFLICT",
		"versionError": true,
	})
}

// CSVResponse streams CSV with an attachment disposition
func CSVResponse(c *fiber.Ctx, filename string, body []byte) error {
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(body)
}

// SuccessEnvelope defines the schema for success responses
type SuccessEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorEnvelope defines the schema for error responses
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Timestamp returns the standard RFC3339 UTC timestamp used in logs and
// exports.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
