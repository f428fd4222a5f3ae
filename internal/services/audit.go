package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/utils"
	"gorm.io/gorm"
)

// AuditContext carries request metadata into audit rows.
type AuditContext struct {
	IPAddress string
	UserAgent string
	SessionID string
}

// AuditEntry is the input for one audit row.
type AuditEntry struct {
	FormID   string
	UserID   string
	Action   string
	Success  bool
	Error    string
	Metadata map[string]interface{}
	Context  AuditContext
}

// AuditFilter narrows audit queries.
type AuditFilter struct {
	FormID  string
	UserID  string
	Action  string
	Success *bool
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Offset  int
}

// AccessReport aggregates a form's audit rows.
type AccessReport struct {
	FormID        string           `json:"formId"`
	TotalEntries  int64            `json:"totalEntries"`
	ByAction      map[string]int64 `json:"byAction"`
	DeniedCount   int64            `json:"deniedCount"`
	FailureCount  int64            `json:"failureCount"`
	DistinctUsers int64            `json:"distinctUsers"`
}

// AuditService appends and reads the append-only access log.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates an AuditService backed by db.
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Log appends one audit row. Audit writes never fail the calling
// operation; a failure is logged and swallowed.
func (s *AuditService) Log(entry AuditEntry) {
	row := models.AuditLog{
		FormID:       entry.FormID,
		Action:       entry.Action,
		Success:      entry.Success,
		ErrorMessage: entry.Error,
		IPAddress:    entry.Context.IPAddress,
		UserAgent:    entry.Context.UserAgent,
		SessionID:    entry.Context.SessionID,
	}
	if entry.UserID != "" {
		uid := entry.UserID
		row.UserID = &uid
	}
	if entry.Metadata != nil {
		raw, err := json.Marshal(entry.Metadata)
		if err == nil {
			row.Metadata = models.NewJSON(raw)
		}
	}

	if err := s.db.Create(&row).Error; err != nil {
		log.Printf("audit write failed for form %s action %s: %v", entry.FormID, entry.Action, err)
	}
}

// Query returns audit rows matching filter, newest first.
func (s *AuditService) Query(filter AuditFilter) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	q := s.buildQuery(filter).Order("created_at DESC, id DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q = q.Limit(limit)
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ExportCSV renders matching audit rows as CSV.
func (s *AuditService) ExportCSV(filter AuditFilter) ([]byte, error) {
	rows, err := s.Query(filter)
	if err != nil {
		return nil, err
	}

	header := []string{"id", "created_at", "form_id", "user_id", "action", "success", "error_message", "ip_address"}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		userID := ""
		if r.UserID != nil {
			userID = *r.UserID
		}
		records = append(records, []string{
			strconv.FormatUint(r.ID, 10),
			utils.Timestamp(r.CreatedAt),
			r.FormID,
			userID,
			r.Action,
			strconv.FormatBool(r.Success),
			r.ErrorMessage,
			r.IPAddress,
		})
	}

	return utils.BuildCSV(header, records)
}

// Report aggregates the audit rows of one form.
func (s *AuditService) Report(formID string) (*AccessReport, error) {
	report := &AccessReport{FormID: formID, ByAction: make(map[string]int64)}

	if err := s.db.Model(&models.AuditLog{}).Where("form_id = ?", formID).Count(&report.TotalEntries).Error; err != nil {
		return nil, err
	}

	type actionCount struct {
		Action string
		Count  int64
	}
	var counts []actionCount
	if err := s.db.Model(&models.AuditLog{}).
		Select("action, COUNT(*) as count").
		Where("form_id = ?", formID).
		Group("action").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, ac := range counts {
		report.ByAction[ac.Action] = ac.Count
	}
	report.DeniedCount = report.ByAction[models.AuditAccessDenied]

	if err := s.db.Model(&models.AuditLog{}).
		Where("form_id = ? AND success = ?", formID, false).
		Count(&report.FailureCount).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.AuditLog{}).
		Where("form_id = ? AND user_id IS NOT NULL", formID).
		Distinct("user_id").
		Count(&report.DistinctUsers).Error; err != nil {
		return nil, err
	}

	return report, nil
}

// Cleanup deletes audit rows older than the retention horizon and returns
// the number of rows removed.
func (s *AuditService) Cleanup(olderThan time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", olderThan).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit cleanup failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// buildQuery applies the filter conditions.
func (s *AuditService) buildQuery(filter AuditFilter) *gorm.DB {
	q := s.db.Model(&models.AuditLog{})
	if filter.FormID != "" {
		q = q.Where("form_id = ?", filter.FormID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Success != nil {
		q = q.Where("success = ?", *filter.Success)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("created_at < ?", *filter.Until)
	}
	return q
}
