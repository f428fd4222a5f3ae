package services

import (
	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/types"
	"gorm.io/gorm"
)

// CloneService duplicates form definitions. A clone always starts as a
// private draft owned by the cloning user, whatever the source was.
type CloneService struct {
	db *gorm.DB
}

// NewCloneService creates a CloneService backed by db.
func NewCloneService(db *gorm.DB) *CloneService {
	return &CloneService{db: db}
}

// Clone copies a form and its field definitions into a new form owned by
// newOwnerID. asTemplate marks the copy as a reusable template.
func (s *CloneService) Clone(sourceID, newOwnerID string, asTemplate bool) (*models.Form, error) {
	var clone *models.Form

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var source models.Form
		if err := tx.Preload("Fields").Where("id = ?", sourceID).First(&source).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return types.ErrNotFound("Form not found")
			}
			return err
		}

		copied := models.Form{
			OwnerID:     newOwnerID,
			Title:       source.Title + " (copy)",
			Description: source.Description,
			Visibility:  models.VisibilityPrivate,
			Status:      models.StatusDraft,
			IsTemplate:  asTemplate,
		}
		for _, f := range source.Fields {
			copied.Fields = append(copied.Fields, models.FormField{
				Name:     f.Name,
				Label:    f.Label,
				Type:     f.Type,
				Required: f.Required,
				Position: f.Position,
				Options:  f.Options,
			})
		}

		if err := tx.Create(&copied).Error; err != nil {
			return err
		}
		clone = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	return clone, nil
}
