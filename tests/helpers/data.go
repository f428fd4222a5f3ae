package helpers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/formbase/formbase/internal/models"
	"gorm.io/gorm"
)

// CreateTestUser creates a user row directly. The password hash is not a
// real bcrypt hash; use the register endpoint when a login is needed.
func CreateTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{
		Email:        email,
		PasswordHash: "x",
		Role:         models.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return &user
}

// CreateTestForm creates a form with the given visibility and status, plus
// a single required text field named "name".
func CreateTestForm(t *testing.T, db *gorm.DB, ownerID, visibility, status string) *models.Form {
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

// CreateTestShare grants userID a permission level on the form. A nil
// expiresAt never expires.
func CreateTestShare(t *testing.T, db *gorm.DB, formID, userID, level string, expiresAt *time.Time) *models.FormShare {
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

// CreateTestSubmission creates a submission with the given data map.
func CreateTestSubmission(t *testing.T, db *gorm.DB, formID string, submitterID *string, data map[string]interface{}) *models.FormSubmission {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal submission data: %v", err)
	}
	now := time.Now()
	sub := models.FormSubmission{
		FormID:      formID,
		SubmitterID: submitterID,
		Status:      models.SubmissionSubmitted,
		Data:        models.NewJSON(raw),
		SubmittedAt: &now,
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("Failed to create submission: %v", err)
	}
	return &sub
}
