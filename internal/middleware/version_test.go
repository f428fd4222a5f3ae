package middleware_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/formbase/formbase/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func TestVersionMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.VersionMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(middleware.LocalsAPIVersion).(string))
	})

	cases := []struct {
		header string
		want   string
	}{
		{"", "1.0.0"},
		{"1", "1.0.0"},
		{"1.0", "1.0.0"},
		{"1.0.0", "1.0.0"},
		{"2.1.0", "2.1.0"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if tc.header != "" {
			req.Header.Set("X-Api-Version", tc.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != tc.want {
			t.Errorf("Header %q: expected version %q, got %q", tc.header, tc.want, body)
		}
	}
}
