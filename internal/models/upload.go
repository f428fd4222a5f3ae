package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileUpload records a file received for a form's file field. SubmissionID
// stays nil until the upload is attached to a submission.
type FileUpload struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	FormID       string    `gorm:"type:char(36);not null;index" json:"formId"`
	SubmissionID *string   `gorm:"type:char(36);index" json:"submissionId,omitempty"`
	UploaderID   *string   `gorm:"type:char(36)" json:"uploaderId,omitempty"`
	FieldName    string    `gorm:"size:255;not null" json:"fieldName"`
	FileName     string    `gorm:"size:512;not null" json:"fileName"`
	ContentType  string    `gorm:"size:255" json:"contentType"`
	SizeBytes    int64     `gorm:"not null" json:"sizeBytes"`
	StoragePath  string    `gorm:"size:1024;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BeforeCreate assigns a UUID if none was provided.
func (u *FileUpload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for FileUpload
func (FileUpload) TableName() string {
	return "file_uploads"
}
