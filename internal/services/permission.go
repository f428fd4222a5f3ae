package services

import (
	"log"
	"time"

	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/types"
	"gorm.io/gorm"
)

// Capability sources, in resolution order.
const (
	SourceOwner  = "owner"
	SourceShared = "shared"
	SourcePublic = "public"
	SourceNone   = "none"
)

// Actions checked by Enforce.
const (
	ActionView   = "view"
	ActionSubmit = "submit"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Capabilities is the effective access a user holds on a form.
type Capabilities struct {
	CanView   bool   `json:"canView"`
	CanSubmit bool   `json:"canSubmit"`
	CanEdit   bool   `json:"canEdit"`
	CanDelete bool   `json:"canDelete"`
	Source    string `json:"source"`
}

// PermissionService resolves a user's effective access level on a form:
// owner beats explicit share beats public visibility. Any database failure
// resolves to no access rather than an error.
type PermissionService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewPermissionService creates a PermissionService backed by db.
func NewPermissionService(db *gorm.DB, audit *AuditService) *PermissionService {
	return &PermissionService{db: db, audit: audit}
}

// Resolve computes the capability tuple for (formID, userID). userID may
// be empty for anonymous requests. A missing form is not an error: it
// resolves to all-false with source "none" so callers cannot distinguish
// a hidden form from an absent one.
func (s *PermissionService) Resolve(formID, userID string) Capabilities {
	none := Capabilities{Source: SourceNone}

	var form models.Form
	if err := s.db.Where("id = ?", formID).First(&form).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			// Fail closed on infrastructure errors.
			log.Printf("permission resolve failed for form %s: %v", formID, err)
		}
		return none
	}

	if userID != "" && form.OwnerID == userID {
		return Capabilities{CanView: true, CanSubmit: true, CanEdit: true, CanDelete: true, Source: SourceOwner}
	}

	if userID != "" {
		var share models.FormShare
		err := s.db.
			Where("form_id = ? AND shared_with_user_id = ?", formID, userID).
			Where("expires_at IS NULL OR expires_at > ?", time.Now()).
			First(&share).Error
		if err == nil {
			return capabilitiesForLevel(share.PermissionLevel)
		}
		if err != gorm.ErrRecordNotFound {
			log.Printf("permission share lookup failed for form %s: %v", formID, err)
			return none
		}
	}

	if form.Visibility == models.VisibilityPublic && form.Status == models.StatusPublished {
		return Capabilities{CanView: true, CanSubmit: true, Source: SourcePublic}
	}

	return none
}

// capabilitiesForLevel maps a share's permission level to capabilities.
// Levels are cumulative: each case grants its own capability and falls
// through to everything below it.
func capabilitiesForLevel(level string) Capabilities {
	caps := Capabilities{Source: SourceShared}
	switch level {
	case models.PermissionAdmin:
		caps.CanDelete = true
		fallthrough
	case models.PermissionEdit:
		caps.CanEdit = true
		fallthrough
	case models.PermissionSubmit:
		caps.CanSubmit = true
		fallthrough
	case models.PermissionView:
		caps.CanView = true
	}
	return caps
}

// allowed selects the capability matching the requested action.
func (c Capabilities) allowed(action string) bool {
	switch action {
	case ActionView:
		return c.CanView
	case ActionSubmit:
		return c.CanSubmit
	case ActionEdit:
		return c.CanEdit
	case ActionDelete:
		return c.CanDelete
	}
	return false
}

// Enforce resolves the capability for action and returns a 403 error when
// it is missing, after recording an access_denied audit row. The returned
// error is deliberately generic.
func (s *PermissionService) Enforce(formID, userID, action string, actx AuditContext) (Capabilities, error) {
	caps := s.Resolve(formID, userID)
	if caps.allowed(action) {
		return caps, nil
	}

	s.audit.Log(AuditEntry{
		FormID:  formID,
		UserID:  userID,
		Action:  models.AuditAccessDenied,
		Success: false,
		Error:   "denied: " + action,
		Metadata: map[string]interface{}{
			"requestedAction": action,
			"source":          caps.Source,
		},
		Context: actx,
	})

	return caps, types.ErrPermissionDenied()
}
