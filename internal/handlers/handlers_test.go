package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/formbase/formbase/internal/config"
	"github.com/formbase/formbase/internal/handlers"
	"github.com/formbase/formbase/internal/middleware"
	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/types"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "handlers-test-secret"

// envelope mirrors the JSON response shape for assertions.
type envelope struct {
	Success      bool            `json:"success"`
	Data         json.RawMessage `json:"data"`
	Message      string          `json:"message"`
	Error        string          `json:"error"`
	Code         string          `json:"code"`
	VersionError bool            `json:"versionError"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Form{},
		&models.FormField{},
		&models.FormShare{},
		&models.FormSubmission{},
		&models.AuditLog{},
		&models.Webhook{},
		&models.WebhookDelivery{},
		&models.FileUpload{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// newTestApp wires the API routes the way the server binary does, against
// an isolated in-memory database.
func newTestApp(t *testing.T) (*fiber.App, *services.Manager, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	cfg := &config.Config{
		JWTSecret:          testSecret,
		JWTExpiry:          time.Hour,
		UploadDir:          t.TempDir(),
		MaxUploadBytes:     1 << 20,
		AuditRetentionDays: 90,
		WebhookTimeout:     time.Second,
		WebhookAttempts:    1,
	}
	manager := services.NewManager(db, cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := err.(*types.AppError); ok {
				return utils.ErrorResponse(c, appErr.Status, appErr.Code, appErr.Message)
			}
			if fiberErr, ok := err.(*fiber.Error); ok {
				return utils.ErrorResponse(c, fiberErr.Code, "ERROR", fiberErr.Message)
			}
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "ERROR", "Internal server error")
		},
	})

	auth := middleware.Auth(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)
	api := app.Group("/api")

	users := &handlers.UserHandler{Manager: manager}
	api.Post("/users/register", users.Register)
	api.Post("/users/login", users.Login)
	api.Get("/users/me", auth, users.Me)

	forms := &handlers.FormHandler{Manager: manager}
	api.Post("/forms", auth, forms.Create)
	api.Get("/forms", auth, forms.List)
	api.Get("/forms/:id", optionalAuth, forms.Get)
	api.Put("/forms/:id", auth, forms.Update)
	api.Delete("/forms/:id", auth, forms.Delete)
	api.Post("/forms/:id/publish", auth, forms.Publish)
	api.Post("/forms/:id/unpublish", auth, forms.Unpublish)
	api.Post("/forms/:id/clone", auth, forms.Clone)
	api.Put("/forms/:id/visibility", auth, forms.SetVisibility)

	shares := &handlers.ShareHandler{Manager: manager}
	api.Post("/forms/:id/shares", auth, shares.Create)
	api.Get("/forms/:id/shares", auth, shares.List)
	api.Delete("/forms/:id/shares/:userId", auth, shares.Delete)

	submissions := &handlers.SubmissionHandler{Manager: manager}
	api.Post("/forms/:id/submissions", optionalAuth, submissions.Create)
	api.Get("/forms/:id/submissions", auth, submissions.List)
	api.Get("/forms/:id/submissions/export", auth, submissions.Export)
	api.Get("/forms/:id/statistics", auth, submissions.Statistics)
	api.Get("/submissions/:id", auth, submissions.Get)
	api.Put("/submissions/:id", auth, submissions.Update)
	api.Delete("/submissions/:id", auth, submissions.Delete)

	webhooks := &handlers.WebhookHandler{Manager: manager}
	api.Post("/forms/:id/webhooks", auth, webhooks.Create)
	api.Get("/forms/:id/webhooks", auth, webhooks.List)
	api.Delete("/webhooks/:id", auth, webhooks.Delete)
	api.Get("/webhooks/:id/deliveries", auth, webhooks.Deliveries)

	uploads := &handlers.UploadHandler{Manager: manager}
	api.Post("/forms/:id/uploads", optionalAuth, uploads.Create)
	api.Get("/uploads/:id", auth, uploads.Get)

	audit := &handlers.AuditHandler{Manager: manager}
	api.Get("/audit/forms/:id", auth, audit.List)
	api.Get("/audit/forms/:id/export", auth, audit.Export)
	api.Get("/audit/forms/:id/report", auth, audit.Report)

	dashboard := &handlers.DashboardHandler{DB: db, Manager: manager}
	api.Get("/dashboard", auth, dashboard.Summary)
	app.Get("/health", dashboard.Health)

	return app, manager, db
}

// registerUser creates an account through the API and returns user id and
// bearer token.
func registerUser(t *testing.T, app *fiber.App, email string) (string, string) {
	t.Helper()

	resp := doJSON(t, app, "POST", "/api/users/register", "", map[string]interface{}{
		"email":    email,
		"password": "a-strong-password",
	})
	env := decodeEnvelope(t, resp)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Register failed with %d: %s", resp.StatusCode, env.Error)
	}
	var user models.User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		t.Fatalf("Failed to decode user: %v", err)
	}

	resp = doJSON(t, app, "POST", "/api/users/login", "", map[string]interface{}{
		"email":    email,
		"password": "a-strong-password",
	})
	env = decodeEnvelope(t, resp)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Login failed with %d: %s", resp.StatusCode, env.Error)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &login); err != nil {
		t.Fatalf("Failed to decode login payload: %v", err)
	}

	return user.ID, login.Token
}

// bearerFor mints a token directly, bypassing the login route.
func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response envelope: %v", err)
	}
	return env
}

// createFormVia posts a minimal single-field form and returns its id.
func createFormVia(t *testing.T, app *fiber.App, token, title, visibility string) string {
	t.Helper()
	resp := doJSON(t, app, "POST", "/api/forms", token, map[string]interface{}{
		"title":      title,
		"visibility": visibility,
		"fields": []map[string]interface{}{
			{"name": "name", "label": "Name", "type": "text", "required": true},
		},
	})
	env := decodeEnvelope(t, resp)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Form create failed with %d: %s", resp.StatusCode, env.Error)
	}
	var form models.Form
	if err := json.Unmarshal(env.Data, &form); err != nil {
		t.Fatalf("Failed to decode form: %v", err)
	}
	return form.ID
}

// publishVia publishes a form through the API.
func publishVia(t *testing.T, app *fiber.App, token, formID string) {
	t.Helper()
	resp := doJSON(t, app, "POST", "/api/forms/"+formID+"/publish", token, nil)
	if resp.StatusCode != fiber.StatusOK {
		env := decodeEnvelope(t, resp)
		t.Fatalf("Publish failed with %d: %s", resp.StatusCode, env.Error)
	}
}
