package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Form visibility values. Visibility is the default access policy applied
// when no explicit share row matches the requesting user.
const (
	VisibilityPrivate      = "private"
	VisibilityShared       = "shared"
	VisibilityPublic       = "public"
	VisibilityOrganization = "organization"
)

// Form status values.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Form represents a user-defined schema of input fields owned by a user.
// FormVersion increments on every mutation and backs the optimistic
// concurrency check on updates.
type Form struct {
	ID          string `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID     string `gorm:"type:char(36);not null;index" json:"ownerId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Visibility  string `gorm:"size:32;not null;default:private;index" json:"visibility"`
	Status      string `gorm:"size:32;not null;default:draft;index" json:"status"`
	FormVersion uint64 `gorm:"not null;default:0" json:"version"`
	IsTemplate  bool   `gorm:"not null;default:false" json:"isTemplate"`
	Fields      []FormField    `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE" json:"fields,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID if none was provided.
func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for Form
func (Form) TableName() string {
	return "forms"
}

// ValidVisibility reports whether v is a recognized visibility value.
func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPrivate, VisibilityShared, VisibilityPublic, VisibilityOrganization:
		return true
	}
	return false
}

// Field types accepted by the validator.
const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldEmail    = "email"
	FieldURL      = "url"
	FieldNumber   = "number"
	FieldDate     = "date"
	FieldSelect   = "select"
	FieldCheckbox = "checkbox"
	FieldFile     = "file"
)

// FormField is a single input definition within a form. Options carries
// type-specific constraints as JSON: choices, min, max, minLength,
// maxLength, pattern.
type FormField struct {
	ID       string `gorm:"type:char(36);primaryKey" json:"id"`
	FormID   string `gorm:"type:char(36);not null;index" json:"formId"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Label    string `gorm:"size:255" json:"label"`
	Type     string `gorm:"size:32;not null;default:text" json:"type"`
	Required bool   `gorm:"not null;default:false" json:"required"`
	Position int    `gorm:"not null;default:0" json:"position"`
	Options  JSON   `gorm:"type:json" json:"options,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeCreate assigns a UUID if none was provided.
func (f *FormField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for FormField
func (FormField) TableName() string {
	return "form_fields"
}
