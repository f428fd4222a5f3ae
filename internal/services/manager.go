package services

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/formbase/formbase/internal/config"
	"github.com/formbase/formbase/internal/models"
	"gorm.io/gorm"
)

// Manager is the process-wide facade over the form services. Composite
// operations delegate to the underlying service, then write exactly one
// audit row reflecting the outcome.
type Manager struct {
	db *gorm.DB

	Forms       *FormService
	Permissions *PermissionService
	Sharing     *SharingService
	Clone       *CloneService
	Audit       *AuditService
	Submissions *SubmissionService
	Webhooks    *WebhookService
	Uploads     *UploadService
	Auth        *AuthService

	cfg *config.Config
}

var (
	managerInstance *Manager
	managerOnce     sync.Once
)

// GetManager lazily constructs the service graph once per process.
func GetManager(db *gorm.DB, cfg *config.Config) *Manager {
	managerOnce.Do(func() {
		managerInstance = NewManager(db, cfg)
	})
	return managerInstance
}

// NewManager constructs a fresh service graph. Most callers want
// GetManager; tests use this to bind a manager per database.
func NewManager(db *gorm.DB, cfg *config.Config) *Manager {
	audit := NewAuditService(db)
	perms := NewPermissionService(db, audit)
	webhooks := NewWebhookService(db, cfg.WebhookTimeout, cfg.WebhookAttempts)

	return &Manager{
		db:          db,
		Forms:       NewFormService(db),
		Permissions: perms,
		Sharing:     NewSharingService(db),
		Clone:       NewCloneService(db),
		Audit:       audit,
		Submissions: NewSubmissionService(db, perms, audit, webhooks),
		Webhooks:    webhooks,
		Uploads:     NewUploadService(db, cfg.UploadDir, cfg.MaxUploadBytes),
		Auth:        NewAuthService(db, cfg.JWTSecret, cfg.JWTExpiry),
		cfg:         cfg,
	}
}

// ShareFormWithAudit grants a share and records the outcome.
func (m *Manager) ShareFormWithAudit(formID, grantedBy string, input ShareInput, actx AuditContext) (*models.FormShare, error) {
	share, err := m.Sharing.Share(formID, grantedBy, input)

	entry := AuditEntry{
		FormID:  formID,
		UserID:  grantedBy,
		Action:  models.AuditShare,
		Success: err == nil,
		Metadata: map[string]interface{}{
			"sharedWithUserId": input.SharedWithUserID,
			"permissionLevel":  input.PermissionLevel,
		},
		Context: actx,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	m.Audit.Log(entry)

	return share, err
}

// UnshareFormWithAudit revokes a share and records the outcome.
func (m *Manager) UnshareFormWithAudit(formID, revokedBy, targetUserID string, actx AuditContext) error {
	err := m.Sharing.Unshare(formID, targetUserID)

	entry := AuditEntry{
		FormID:  formID,
		UserID:  revokedBy,
		Action:  models.AuditUnshare,
		Success: err == nil,
		Metadata: map[string]interface{}{
			"sharedWithUserId": targetUserID,
		},
		Context: actx,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	m.Audit.Log(entry)

	return err
}

// CloneFormWithAudit clones a form and records the outcome.
func (m *Manager) CloneFormWithAudit(sourceID, newOwnerID string, asTemplate bool, actx AuditContext) (*models.Form, error) {
	clone, err := m.Clone.Clone(sourceID, newOwnerID, asTemplate)

	entry := AuditEntry{
		FormID:  sourceID,
		UserID:  newOwnerID,
		Action:  models.AuditClone,
		Success: err == nil,
		Context: actx,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Metadata = map[string]interface{}{
			"cloneId":    clone.ID,
			"asTemplate": asTemplate,
		}
	}
	m.Audit.Log(entry)

	return clone, err
}

// SetVisibilityWithAudit changes visibility (cascading share removal on
// private) and records a permission_change row.
func (m *Manager) SetVisibilityWithAudit(formID, userID, visibility string, actx AuditContext) (*models.Form, error) {
	form, sharesRemoved, err := m.Forms.SetVisibility(formID, visibility)

	entry := AuditEntry{
		FormID:  formID,
		UserID:  userID,
		Action:  models.AuditPermissionChange,
		Success: err == nil,
		Metadata: map[string]interface{}{
			"visibility":    visibility,
			"sharesRemoved": sharesRemoved,
		},
		Context: actx,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	m.Audit.Log(entry)

	return form, err
}

// PublishFormWithAudit moves a form to published, records the audit row,
// and emits the form.published webhook event.
func (m *Manager) PublishFormWithAudit(formID, userID string, actx AuditContext) (*models.Form, error) {
	form, err := m.Forms.SetStatus(formID, models.StatusPublished)

	entry := AuditEntry{
		FormID:  formID,
		UserID:  userID,
		Action:  models.AuditPublish,
		Success: err == nil,
		Context: actx,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	m.Audit.Log(entry)

	if err == nil {
		m.Webhooks.Dispatch(models.EventFormPublished, formID, map[string]interface{}{
			"formId": formID,
			"title":  form.Title,
		})
	}

	return form, err
}

// UnpublishFormWithAudit moves a form back to draft and records it.
func (m *Manager) UnpublishFormWithAudit(formID, userID string, actx AuditContext) (*models.Form, error) {
	form, err := m.Forms.SetStatus(formID, models.StatusDraft)

	entry := AuditEntry{
		FormID:  formID,
		UserID:  userID,
		Action:  models.AuditUnpublish,
		Success: err == nil,
		Context: actx,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	m.Audit.Log(entry)

	return form, err
}

// Health aggregates the database ping with service-level checks.
func (m *Manager) Health() HealthCheckResult {
	result := HealthCheck(m.cfg, m.db)

	// Audit retention horizon, for operators.
	result.Details["audit_retention_days"] = strconv.Itoa(m.cfg.AuditRetentionDays)

	var pending int64
	if err := m.db.Model(&models.WebhookDelivery{}).
		Where("delivered_at IS NULL").Count(&pending).Error; err == nil {
		if pending > 0 {
			result.Details["webhook_failed_deliveries"] = "present"
		}
	}

	return result
}

// StartAuditRetention launches the periodic retention cleanup. It returns
// a stop function.
func (m *Manager) StartAuditRetention(interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				horizon := time.Now().AddDate(0, 0, -m.cfg.AuditRetentionDays)
				if removed, err := m.Audit.Cleanup(horizon); err != nil {
					log.Printf("audit retention cleanup failed: %v", err)
				} else if removed > 0 {
					log.Printf("audit retention cleanup removed %d rows", removed)
				}
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}
