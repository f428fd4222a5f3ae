package middleware

import (
	"strings"

	"github.com/formbase/formbase/internal/types"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalsUserID is the fiber.Ctx Locals key holding the authenticated user id.
const LocalsUserID = "user_id"

type authClaims struct {
	jwt.RegisteredClaims
}

// Auth validates a bearer token and stores the user id in Locals.
// Requests without a valid token are rejected.
func Auth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := parseBearer(c, secret)
		if err != nil {
			return err
		}
		if userID == "" {
			return types.ErrUnauthorized("Missing bearer token")
		}
		c.Locals(LocalsUserID, userID)
		return c.Next()
	}
}

// OptionalAuth validates a bearer token when present but lets anonymous
// requests through. Public form reads and submissions use this path.
func OptionalAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := parseBearer(c, secret)
		if err != nil {
			return err
		}
		if userID != "" {
			c.Locals(LocalsUserID, userID)
		}
		return c.Next()
	}
}

// parseBearer extracts and verifies the Authorization header. Returns an
// empty user id when no header is present; a malformed or invalid token is
// always an error, even on optional routes.
func parseBearer(c *fiber.Ctx, secret string) (string, error) {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth == "" {
		return "", nil
	}
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return "", types.ErrUnauthorized("Malformed authorization header")
	}

	tokenStr := strings.TrimSpace(auth[7:])
	var claims authClaims

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, types.ErrUnauthorized("Unexpected signing method")
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return "", types.ErrUnauthorized("Invalid token")
	}

	if claims.Subject == "" {
		return "", types.ErrUnauthorized("Token missing subject")
	}

	return claims.Subject, nil
}

// UserID returns the authenticated user id from Locals, empty for
// anonymous requests.
func UserID(c *fiber.Ctx) string {
	if v, ok := c.Locals(LocalsUserID).(string); ok {
		return v
	}
	return ""
}
