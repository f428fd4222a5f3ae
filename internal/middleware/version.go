package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// LocalsAPIVersion is the fiber.Ctx Locals key holding the negotiated
// API version.
const LocalsAPIVersion = "apiVersion"

const currentAPIVersion = "1.0.0"

// VersionMiddleware parses the X-Api-Version header and stores the
// negotiated version in Locals. Absent or aliased values resolve to the
// current version.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", currentAPIVersion)

		if version == "1.0" || version == "1" {
			version = currentAPIVersion
		}

		c.Locals(LocalsAPIVersion, version)

		return c.Next()
	}
}
