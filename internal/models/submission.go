package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submission status values. There is no enforced transition table; a
// draft becomes submitted when saved without the draft flag, and moving a
// submission out of draft requires form edit capability.
const (
	SubmissionDraft      = "draft"
	SubmissionProcessing = "processing"
	SubmissionSubmitted  = "submitted"
	SubmissionCompleted  = "completed"
	SubmissionFailed     = "failed"
)

// FormSubmission is a single response to a published form. SubmitterID is
// nil for anonymous submissions against public forms.
type FormSubmission struct {
	ID          string     `gorm:"type:char(36);primaryKey" json:"id"`
	FormID      string     `gorm:"type:char(36);not null;index" json:"formId"`
	SubmitterID *string    `gorm:"type:char(36);index" json:"submitterId,omitempty"`
	Status      string     `gorm:"size:32;not null;default:submitted;index" json:"status"`
	Data        JSON       `gorm:"type:json" json:"data"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a UUID if none was provided.
func (s *FormSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for FormSubmission
func (FormSubmission) TableName() string {
	return "form_submissions"
}
