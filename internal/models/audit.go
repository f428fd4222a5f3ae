package models

import "time"

// Audit actions recorded against forms.
const (
	AuditView             = "view"
	AuditSubmit           = "submit"
	AuditEdit             = "edit"
	AuditDelete           = "delete"
	AuditShare            = "share"
	AuditUnshare          = "unshare"
	AuditClone            = "clone"
	AuditExport           = "export"
	AuditPublish          = "publish"
	AuditUnpublish        = "unpublish"
	AuditPermissionChange = "permission_change"
	AuditAccessDenied     = "access_denied"
)

// AuditLog is an append-only record of an access attempt and its outcome.
// UserID is empty for anonymous requests. Rows are pruned by the retention
// cleanup job, never updated.
type AuditLog struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FormID       string    `gorm:"type:char(36);not null;index" json:"formId"`
	UserID       *string   `gorm:"type:char(36);index" json:"userId,omitempty"`
	Action       string    `gorm:"size:32;not null;index" json:"action"`
	Metadata     JSON      `gorm:"type:json" json:"metadata,omitempty"`
	Success      bool      `gorm:"not null;default:true" json:"success"`
	ErrorMessage string    `gorm:"type:text" json:"errorMessage,omitempty"`
	IPAddress    string    `gorm:"size:64" json:"ipAddress,omitempty"`
	UserAgent    string    `gorm:"size:512" json:"userAgent,omitempty"`
	SessionID    string    `gorm:"size:128" json:"sessionId,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

// TableName overrides the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
