package services

import (
	"time"

	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/types"
	"gorm.io/gorm"
)

// ShareInput is the payload for creating or updating a share.
type ShareInput struct {
	SharedWithUserID string     `json:"sharedWithUserId"`
	PermissionLevel  string     `json:"permissionLevel"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// SharingService manages explicit permission grants on forms.
type SharingService struct {
	db *gorm.DB
}

// NewSharingService creates a SharingService backed by db.
func NewSharingService(db *gorm.DB) *SharingService {
	return &SharingService{db: db}
}

// Share creates or updates the share row for (form, user). Sharing a form
// with its owner is rejected: the owner's capability is implicit and a
// share row for them would only confuse revocation.
func (s *SharingService) Share(formID, grantedBy string, input ShareInput) (*models.FormShare, error) {
	if input.SharedWithUserID == "" {
		return nil, types.ErrValidation("sharedWithUserId is required", nil)
	}
	if !models.ValidPermissionLevel(input.PermissionLevel) {
		return nil, types.ErrValidation("invalid permission level", map[string]interface{}{
			"permissionLevel": input.PermissionLevel,
		})
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now()) {
		return nil, types.ErrValidation("expiresAt must be in the future", nil)
	}

	var form models.Form
	if err := s.db.Where("id = ?", formID).First(&form).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound("Form not found")
		}
		return nil, err
	}
	if form.OwnerID == input.SharedWithUserID {
		return nil, types.ErrValidation("cannot share a form with its owner", nil)
	}

	var target models.User
	if err := s.db.Where("id = ?", input.SharedWithUserID).First(&target).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound("User not found")
		}
		return nil, err
	}

	share := models.FormShare{
		FormID:           formID,
		SharedWithUserID: input.SharedWithUserID,
	}
	err := s.db.Where("form_id = ? AND shared_with_user_id = ?", formID, input.SharedWithUserID).
		FirstOrCreate(&share).Error
	if err != nil {
		return nil, err
	}

	share.PermissionLevel = input.PermissionLevel
	share.ExpiresAt = input.ExpiresAt
	share.Notes = input.Notes
	share.CreatedBy = grantedBy
	if err := s.db.Save(&share).Error; err != nil {
		return nil, err
	}

	return &share, nil
}

// Unshare removes the share row for (form, user). Missing rows are a 404.
func (s *SharingService) Unshare(formID, userID string) error {
	result := s.db.Where("form_id = ? AND shared_with_user_id = ?", formID, userID).
		Delete(&models.FormShare{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound("Share not found")
	}
	return nil
}

// ListForForm returns all unexpired shares on a form.
func (s *SharingService) ListForForm(formID string) ([]models.FormShare, error) {
	var shares []models.FormShare
	err := s.db.Where("form_id = ?", formID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at").
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// ListSharedWith returns the forms currently shared with a user.
func (s *SharingService) ListSharedWith(userID string) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.
		Joins("JOIN form_shares ON form_shares.form_id = forms.id").
		Where("form_shares.shared_with_user_id = ?", userID).
		Where("form_shares.expires_at IS NULL OR form_shares.expires_at > ?", time.Now()).
		Find(&forms).Error
	if err != nil {
		return nil, err
	}
	return forms, nil
}

// RemoveAllShares deletes every share on a form. Callers pass their
// transaction handle when the removal must be atomic with another write
// (the visibility-to-private cascade).
func RemoveAllShares(tx *gorm.DB, formID string) (int64, error) {
	result := tx.Where("form_id = ?", formID).Delete(&models.FormShare{})
	return result.RowsAffected, result.Error
}
