package services

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/types"
	"github.com/formbase/formbase/internal/utils"
	"gorm.io/gorm"
)

// SubmissionInput is the payload for creating or updating a submission.
type SubmissionInput struct {
	Data   map[string]interface{} `json:"data"`
	Draft  bool                   `json:"draft,omitempty"`
	Status string                 `json:"status,omitempty"`
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	Status string
	Limit  int
	Offset int
}

// SubmissionStats aggregates a form's submissions.
type SubmissionStats struct {
	FormID         string           `json:"formId"`
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"byStatus"`
	LastSubmission *time.Time       `json:"lastSubmission,omitempty"`
}

// SubmissionService gates submission CRUD behind form permissions, with
// one exception layered on top: a user may always act on their own
// submission, except moving it past draft still needs form edit.
type SubmissionService struct {
	db       *gorm.DB
	perms    *PermissionService
	audit    *AuditService
	webhooks *WebhookService
}

// NewSubmissionService creates a SubmissionService.
func NewSubmissionService(db *gorm.DB, perms *PermissionService, audit *AuditService, webhooks *WebhookService) *SubmissionService {
	return &SubmissionService{db: db, perms: perms, audit: audit, webhooks: webhooks}
}

// Create validates and persists a new submission. userID is empty for
// anonymous submitters, which only public published forms accept. The
// submit capability is enforced for everyone else.
func (s *SubmissionService) Create(formID, userID string, input SubmissionInput, actx AuditContext) (*models.FormSubmission, error) {
	var form models.Form
	if err := s.db.Preload("Fields").Where("id = ?", formID).First(&form).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound("Form not found")
		}
		return nil, err
	}

	if form.Status != models.StatusPublished {
		return nil, types.ErrValidation("form is not accepting submissions", nil)
	}

	if _, err := s.perms.Enforce(formID, userID, ActionSubmit, actx); err != nil {
		return nil, err
	}

	if !input.Draft {
		if fieldErrs := ValidateSubmissionData(form.Fields, input.Data); len(fieldErrs) > 0 {
			details := make(map[string]interface{}, len(fieldErrs))
			for k, v := range fieldErrs {
				details[k] = v
			}
			return nil, types.ErrValidation("submission data failed validation", details)
		}
	}

	raw, err := json.Marshal(input.Data)
	if err != nil {
		return nil, types.ErrValidation("submission data is not valid JSON", nil)
	}

	status := models.SubmissionSubmitted
	var submittedAt *time.Time
	if input.Draft {
		status = models.SubmissionDraft
	} else {
		now := time.Now()
		submittedAt = &now
	}

	submission := models.FormSubmission{
		FormID:      formID,
		Status:      status,
		Data:        models.NewJSON(raw),
		SubmittedAt: submittedAt,
	}
	if userID != "" {
		uid := userID
		submission.SubmitterID = &uid
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&submission).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(AuditEntry{
		FormID:  formID,
		UserID:  userID,
		Action:  models.AuditSubmit,
		Success: true,
		Metadata: map[string]interface{}{
			"submissionId": submission.ID,
			"status":       submission.Status,
		},
		Context: actx,
	})

	if status != models.SubmissionDraft {
		s.webhooks.Dispatch(models.EventSubmissionCreated, formID, map[string]interface{}{
			"submissionId": submission.ID,
			"formId":       formID,
			"status":       submission.Status,
			"submittedAt":  submission.SubmittedAt,
		})
	}

	return &submission, nil
}

// Get returns a submission when the caller owns it or holds view on its form.
func (s *SubmissionService) Get(submissionID, userID string, actx AuditContext) (*models.FormSubmission, error) {
	submission, err := s.load(submissionID)
	if err != nil {
		return nil, err
	}

	if !s.isOwnSubmission(submission, userID) {
		if _, err := s.perms.Enforce(submission.FormID, userID, ActionView, actx); err != nil {
			return nil, err
		}
	}

	return submission, nil
}

// Update writes data and status changes. Own drafts are freely editable;
// updating any non-draft submission needs form edit capability even for
// its submitter.
func (s *SubmissionService) Update(submissionID, userID string, input SubmissionInput, actx AuditContext) (*models.FormSubmission, error) {
	submission, err := s.load(submissionID)
	if err != nil {
		return nil, err
	}

	own := s.isOwnSubmission(submission, userID)
	needsEdit := !own || submission.Status != models.SubmissionDraft
	if needsEdit {
		if _, err := s.perms.Enforce(submission.FormID, userID, ActionEdit, actx); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{}

	if input.Data != nil {
		var form models.Form
		if err := s.db.Preload("Fields").Where("id = ?", submission.FormID).First(&form).Error; err != nil {
			return nil, err
		}
		leavingDraft := submission.Status == models.SubmissionDraft && !input.Draft
		if leavingDraft || submission.Status != models.SubmissionDraft {
			if fieldErrs := ValidateSubmissionData(form.Fields, input.Data); len(fieldErrs) > 0 {
				details := make(map[string]interface{}, len(fieldErrs))
				for k, v := range fieldErrs {
					details[k] = v
				}
				return nil, types.ErrValidation("submission data failed validation", details)
			}
		}
		raw, err := json.Marshal(input.Data)
		if err != nil {
			return nil, types.ErrValidation("submission data is not valid JSON", nil)
		}
		updates["data"] = models.NewJSON(raw)
	}

	// Status writes are permissive: any recognized status can be set
	// directly, the permission gate above is the only guard.
	if input.Status != "" {
		switch input.Status {
		case models.SubmissionDraft, models.SubmissionProcessing, models.SubmissionSubmitted,
			models.SubmissionCompleted, models.SubmissionFailed:
		default:
			return nil, types.ErrValidation("invalid status", map[string]interface{}{"status": input.Status})
		}
		updates["status"] = input.Status
		if input.Status == models.SubmissionSubmitted && submission.SubmittedAt == nil {
			updates["submitted_at"] = time.Now()
		}
	} else if submission.Status == models.SubmissionDraft && !input.Draft && input.Data != nil {
		updates["status"] = models.SubmissionSubmitted
		updates["submitted_at"] = time.Now()
	}

	if len(updates) == 0 {
		return submission, nil
	}

	if err := s.db.Model(&models.FormSubmission{}).Where("id = ?", submissionID).Updates(updates).Error; err != nil {
		return nil, err
	}

	updated, err := s.load(submissionID)
	if err != nil {
		return nil, err
	}

	s.audit.Log(AuditEntry{
		FormID:  updated.FormID,
		UserID:  userID,
		Action:  models.AuditEdit,
		Success: true,
		Metadata: map[string]interface{}{
			"submissionId": updated.ID,
			"status":       updated.Status,
		},
		Context: actx,
	})

	if newStatus, ok := updates["status"].(string); ok && newStatus == models.SubmissionCompleted {
		s.webhooks.Dispatch(models.EventSubmissionCompleted, updated.FormID, map[string]interface{}{
			"submissionId": updated.ID,
			"formId":       updated.FormID,
			"status":       updated.Status,
		})
	}

	return updated, nil
}

// Delete removes a submission. Submitters may delete their own; everyone
// else needs delete capability on the form.
func (s *SubmissionService) Delete(submissionID, userID string, actx AuditContext) error {
	submission, err := s.load(submissionID)
	if err != nil {
		return err
	}

	if !s.isOwnSubmission(submission, userID) {
		if _, err := s.perms.Enforce(submission.FormID, userID, ActionDelete, actx); err != nil {
			return err
		}
	}

	if err := s.db.Where("id = ?", submissionID).Delete(&models.FormSubmission{}).Error; err != nil {
		return err
	}

	s.audit.Log(AuditEntry{
		FormID:  submission.FormID,
		UserID:  userID,
		Action:  models.AuditDelete,
		Success: true,
		Metadata: map[string]interface{}{
			"submissionId": submissionID,
		},
		Context: actx,
	})

	return nil
}

// List returns a form's submissions, newest first, gated on view.
func (s *SubmissionService) List(formID, userID string, filter SubmissionFilter, actx AuditContext) ([]models.FormSubmission, error) {
	if _, err := s.perms.Enforce(formID, userID, ActionView, actx); err != nil {
		return nil, err
	}

	q := s.db.Where("form_id = ?", formID).Order("created_at DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q = q.Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var submissions []models.FormSubmission
	if err := q.Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// Stats aggregates a form's submissions, gated on view.
func (s *SubmissionService) Stats(formID, userID string, actx AuditContext) (*SubmissionStats, error) {
	if _, err := s.perms.Enforce(formID, userID, ActionView, actx); err != nil {
		return nil, err
	}

	stats := &SubmissionStats{FormID: formID, ByStatus: make(map[string]int64)}

	if err := s.db.Model(&models.FormSubmission{}).Where("form_id = ?", formID).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := s.db.Model(&models.FormSubmission{}).
		Select("status, COUNT(*) as count").
		Where("form_id = ?", formID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, sc := range counts {
		stats.ByStatus[sc.Status] = sc.Count
	}

	var latest models.FormSubmission
	err := s.db.Where("form_id = ? AND submitted_at IS NOT NULL", formID).
		Order("submitted_at DESC").First(&latest).Error
	if err == nil {
		stats.LastSubmission = latest.SubmittedAt
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	return stats, nil
}

// ExportCSV renders a form's submissions as CSV, one column per field,
// gated on view. The export itself is audited.
func (s *SubmissionService) ExportCSV(formID, userID string, actx AuditContext) ([]byte, error) {
	if _, err := s.perms.Enforce(formID, userID, ActionView, actx); err != nil {
		return nil, err
	}

	var form models.Form
	if err := s.db.Preload("Fields", func(db *gorm.DB) *gorm.DB {
		return db.Order("form_fields.position")
	}).Where("id = ?", formID).First(&form).Error; err != nil {
		return nil, err
	}

	var submissions []models.FormSubmission
	if err := s.db.Where("form_id = ?", formID).Order("created_at").Find(&submissions).Error; err != nil {
		return nil, err
	}

	header := []string{"id", "status", "submitter_id", "submitted_at"}
	for _, f := range form.Fields {
		header = append(header, f.Name)
	}

	records := make([][]string, 0, len(submissions))
	for _, sub := range submissions {
		var data map[string]interface{}
		_ = json.Unmarshal(sub.Data.JSON, &data)

		submitter := ""
		if sub.SubmitterID != nil {
			submitter = *sub.SubmitterID
		}
		submitted := ""
		if sub.SubmittedAt != nil {
			submitted = utils.Timestamp(*sub.SubmittedAt)
		}

		row := []string{sub.ID, sub.Status, submitter, submitted}
		for _, f := range form.Fields {
			row = append(row, stringifyValue(data[f.Name]))
		}
		records = append(records, row)
	}

	s.audit.Log(AuditEntry{
		FormID:  formID,
		UserID:  userID,
		Action:  models.AuditExport,
		Success: true,
		Metadata: map[string]interface{}{
			"rows": len(records),
		},
		Context: actx,
	})

	return utils.BuildCSV(header, records)
}

// load fetches a submission or returns a 404 AppError.
func (s *SubmissionService) load(submissionID string) (*models.FormSubmission, error) {
	var submission models.FormSubmission
	if err := s.db.Where("id = ?", submissionID).First(&submission).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrNotFound("Submission not found")
		}
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionService) isOwnSubmission(submission *models.FormSubmission, userID string) bool {
	return userID != "" && submission.SubmitterID != nil && *submission.SubmitterID == userID
}

func stringifyValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
