package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission levels, ordered: view < submit < edit < admin. Each level
// includes every capability below it.
const (
	PermissionView   = "view"
	PermissionSubmit = "submit"
	PermissionEdit   = "edit"
	PermissionAdmin  = "admin"
)

// FormShare is an explicit grant of a permission level on a form to
// another user. A row with a past ExpiresAt grants nothing; queries must
// filter with `expires_at IS NULL OR expires_at > now`.
type FormShare struct {
	ID               string     `gorm:"type:char(36);primaryKey" json:"id"`
	FormID           string     `gorm:"type:char(36);not null;index:idx_form_share,unique" json:"formId"`
	SharedWithUserID string     `gorm:"type:char(36);not null;index:idx_form_share,unique" json:"sharedWithUserId"`
	PermissionLevel  string     `gorm:"size:32;not null;default:view" json:"permissionLevel"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	Notes            string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy        string     `gorm:"type:char(36)" json:"createdBy"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a UUID if none was provided.
func (s *FormShare) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for FormShare
func (FormShare) TableName() string {
	return "form_shares"
}

// ValidPermissionLevel reports whether level is a recognized permission level.
func ValidPermissionLevel(level string) bool {
	switch level {
	case PermissionView, PermissionSubmit, PermissionEdit, PermissionAdmin:
		return true
	}
	return false
}
