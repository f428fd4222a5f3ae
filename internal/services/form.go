package services

import (
	"encoding/json"
	"fmt"

	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FieldInput defines one field in a create/update payload.
type FieldInput struct {
	Name     string                 `json:"name"`
	Label    string                 `json:"label"`
	Type     string                 `json:"type"`
	Required bool                   `json:"required"`
	Position int                    `json:"position"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// FormInput is the payload for creating a form.
type FormInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Visibility  string       `json:"visibility"`
	Fields      []FieldInput `json:"fields"`
}

// FormUpdateInput is the payload for updating a form. Version must match
// the stored FormVersion or the update is rejected with E_VERSION.
type FormUpdateInput struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Version     types.FlexUint64   `json:"version"`
	Fields      []FieldInput       `json:"fields,omitempty"`
}

// FormService owns the form lifecycle: create, update with optimistic
// version check, publish/unpublish, visibility changes, delete.
type FormService struct {
	db *gorm.DB
}

// NewFormService creates a FormService backed by db.
func NewFormService(db *gorm.DB) *FormService {
	return &FormService{db: db}
}

// Create inserts a new draft form with its fields.
func (s *FormService) Create(ownerID string, input FormInput) (*models.Form, error) {
	if input.Title == "" {
		return nil, types.ErrValidation("title is required", nil)
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	if !models.ValidVisibility(visibility) {
		return nil, types.ErrValidation("invalid visibility", map[string]interface{}{"visibility": visibility})
	}

	form := models.Form{
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Visibility:  visibility,
		Status:      models.StatusDraft,
		Fields:      fieldsFromInput(input.Fields),
	}

	if err := s.db.Create(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// Get loads a form with its fields.
func (s *FormService) Get(formID string) (*models.Form, error) {
	var form models.Form
	err := s.db.Preload("Fields", func(db *gorm.DB) *gorm.DB {
		return db.Order("form_fields.position")
	}).Where("id = ?", formID).First(&form).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound("Form not found")
		}
		return nil, err
	}
	return &form, nil
}

// ListOwned returns a user's own forms, newest first.
func (s *FormService) ListOwned(ownerID string) ([]models.Form, error) {
	var forms []models.Form
	if err := s.db.Where("owner_id = ?", ownerID).Order("updated_at DESC").Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

// Update applies a version-checked update. The form row is locked for the
// duration of the transaction; a stale version fails with E_VERSION.
func (s *FormService) Update(formID string, input FormUpdateInput) (*models.Form, error) {
	var updated models.Form

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var form models.Form
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", formID).
			First(&form).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return types.ErrNotFound("Form not found")
			}
			return err
		}

		if form.FormVersion != input.Version.Uint64() {
			return fmt.Errorf("E_VERSION")
		}

		if input.Title != nil {
			form.Title = *input.Title
		}
		if input.Description != nil {
			form.Description = *input.Description
		}

		if input.Fields != nil {
			// Field updates replace the whole set.
			if err := tx.Where("form_id = ?", formID).Delete(&models.FormField{}).Error; err != nil {
				return err
			}
			fields := fieldsFromInput(input.Fields)
			for i := range fields {
				fields[i].FormID = formID
			}
			if len(fields) > 0 {
				if err := tx.Create(&fields).Error; err != nil {
					return err
				}
			}
		}

		form.FormVersion++
		result := tx.Model(&models.Form{}).
			Where("id = ? AND form_version = ?", formID, input.Version.Uint64()).
			Updates(map[string]interface{}{
				"title":        form.Title,
				"description":  form.Description,
				"form_version": form.FormVersion,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("E_VERSION - Failed to update form due to concurrent modification")
		}

		updated = form
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(updated.ID)
}

// SetStatus moves a form between draft/published/archived.
func (s *FormService) SetStatus(formID, status string) (*models.Form, error) {
	switch status {
	case models.StatusDraft, models.StatusPublished, models.StatusArchived:
	default:
		return nil, types.ErrValidation("invalid status", map[string]interface{}{"status": status})
	}

	result := s.db.Model(&models.Form{}).Where("id = ?", formID).
		Updates(map[string]interface{}{
			"status":       status,
			"form_version": gorm.Expr("form_version + 1"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, types.ErrNotFound("Form not found")
	}
	return s.Get(formID)
}

// SetVisibility changes the form's visibility. Moving to private cascades
// to delete every share row in the same transaction, so a share can never
// outlive the policy that allowed it.
func (s *FormService) SetVisibility(formID, visibility string) (*models.Form, int64, error) {
	if !models.ValidVisibility(visibility) {
		return nil, 0, types.ErrValidation("invalid visibility", map[string]interface{}{"visibility": visibility})
	}

	var sharesRemoved int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Form{}).Where("id = ?", formID).
			Updates(map[string]interface{}{
				"visibility":   visibility,
				"form_version": gorm.Expr("form_version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.ErrNotFound("Form not found")
		}

		if visibility == models.VisibilityPrivate {
			removed, err := RemoveAllShares(tx, formID)
			if err != nil {
				return err
			}
			sharesRemoved = removed
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	form, err := s.Get(formID)
	if err != nil {
		return nil, 0, err
	}
	return form, sharesRemoved, nil
}

// Delete soft-deletes a form. Share rows are removed immediately; the
// form row stays recoverable.
func (s *FormService) Delete(formID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := RemoveAllShares(tx, formID); err != nil {
			return err
		}
		result := tx.Where("id = ?", formID).Delete(&models.Form{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.ErrNotFound("Form not found")
		}
		return nil
	})
}

// fieldsFromInput converts field payloads to models, encoding options as JSON.
func fieldsFromInput(inputs []FieldInput) []models.FormField {
	fields := make([]models.FormField, 0, len(inputs))
	for i, in := range inputs {
		fieldType := in.Type
		if fieldType == "" {
			fieldType = models.FieldText
		}
		position := in.Position
		if position == 0 {
			position = i
		}
		field := models.FormField{
			Name:     in.Name,
			Label:    in.Label,
			Type:     fieldType,
			Required: in.Required,
			Position: position,
		}
		if in.Options != nil {
			if raw, err := json.Marshal(in.Options); err == nil {
				field.Options = models.NewJSON(raw)
			}
		}
		fields = append(fields, field)
	}
	return fields
}
