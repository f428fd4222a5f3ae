package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadService stores files received through multipart form uploads on
// local disk under opaque UUID names and records their metadata.
type UploadService struct {
	db       *gorm.DB
	dir      string
	maxBytes int64
}

// NewUploadService creates an UploadService rooted at dir.
func NewUploadService(db *gorm.DB, dir string, maxBytes int64) *UploadService {
	return &UploadService{db: db, dir: dir, maxBytes: maxBytes}
}

// Store writes content to disk and records a FileUpload row. uploaderID is
// empty for anonymous submitters.
func (s *UploadService) Store(formID, uploaderID, fieldName, fileName, contentType string, content []byte) (*models.FileUpload, error) {
	if int64(len(content)) > s.maxBytes {
		return nil, types.ErrValidation(
			fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes), nil)
	}
	if fieldName == "" || fileName == "" {
		return nil, types.ErrValidation("field name and file name are required", nil)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}

	storageName := uuid.NewString()
	storagePath := filepath.Join(s.dir, storageName)
	if err := os.WriteFile(storagePath, content, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	upload := models.FileUpload{
		FormID:      formID,
		FieldName:   fieldName,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   int64(len(content)),
		StoragePath: storagePath,
	}
	if uploaderID != "" {
		uid := uploaderID
		upload.UploaderID = &uid
	}

	if err := s.db.Create(&upload).Error; err != nil {
		// The row is the source of truth; an orphaned file on disk is
		// cleaned up rather than left dangling.
		os.Remove(storagePath)
		return nil, err
	}

	return &upload, nil
}

// Get loads upload metadata or returns a 404 AppError.
func (s *UploadService) Get(uploadID string) (*models.FileUpload, error) {
	var upload models.FileUpload
	if err := s.db.Where("id = ?", uploadID).First(&upload).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound("Upload not found")
		}
		return nil, err
	}
	return &upload, nil
}

// Read returns the stored bytes for an upload.
func (s *UploadService) Read(upload *models.FileUpload) ([]byte, error) {
	content, err := os.ReadFile(upload.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", upload.ID, err)
	}
	return content, nil
}

// Attach links an upload to a submission.
func (s *UploadService) Attach(uploadID, submissionID string) error {
	result := s.db.Model(&models.FileUpload{}).
		Where("id = ?", uploadID).
		Update("submission_id", submissionID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound("Upload not found")
	}
	return nil
}
