package services_test

import (
	"testing"
	"time"

	"github.com/formbase/formbase/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// Auto-migrate models
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

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "x", Role: models.RoleUser}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return &user
}

func createForm(t *testing.T, db *gorm.DB, ownerID, visibility, status string) *models.Form {
	t.Helper()
	form := models.Form{
		OwnerID:     ownerID,
		Title:       "Test Form",
		Visibility:  visibility,
		Status:      status,
		FormVersion: 1,
		Fields: []models.FormField{
			{Name: "name", Label: "Name", Type: models.FieldText, Required: true, Position: 0},
		},
	}
	if err := db.Create(&form).Error; err != nil {
		t.Fatalf("Failed to create form: %v", err)
	}
	return &form
}

func createShare(t *testing.T, db *gorm.DB, formID, userID, level string, expiresAt *time.Time) *models.FormShare {
	t.Helper()
	share := models.FormShare{
		FormID:           formID,
		SharedWithUserID: userID,
		PermissionLevel:  level,
		ExpiresAt:        expiresAt,
	}
	if err := db.Create(&share).Error; err != nil {
		t.Fatalf("Failed to create share: %v", err)
	}
	return &share
}

func strPtr(s string) *string {
	return &s
}
