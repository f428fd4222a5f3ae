package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Webhook event names.
const (
	EventSubmissionCreated   = "submission.created"
	EventSubmissionCompleted = "submission.completed"
	EventFormPublished       = "form.published"
)

// Webhook is an outbound HTTP subscription attached to a form. Events
// holds the JSON-encoded list of event names the endpoint wants.
type Webhook struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	FormID    string    `gorm:"type:char(36);not null;index" json:"formId"`
	URL       string    `gorm:"size:2048;not null" json:"url"`
	Secret    string    `gorm:"size:255" json:"-"`
	Events    JSON      `gorm:"type:json" json:"events"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID if none was provided.
func (w *Webhook) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for Webhook
func (Webhook) TableName() string {
	return "webhooks"
}

// WebhookDelivery records the outcome of one dispatch to a webhook
// endpoint, including the number of attempts made.
type WebhookDelivery struct {
	ID          string     `gorm:"type:char(36);primaryKey" json:"id"`
	WebhookID   string     `gorm:"type:char(36);not null;index" json:"webhookId"`
	Event       string     `gorm:"size:64;not null" json:"event"`
	Payload     JSON       `gorm:"type:json" json:"payload"`
	StatusCode  int        `json:"statusCode"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"lastError,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// BeforeCreate assigns a UUID if none was provided.
func (d *WebhookDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for WebhookDelivery
func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
