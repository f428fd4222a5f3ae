package services_test

import (
	"testing"
	"time"

	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/types"
	"gorm.io/gorm"
)

func newSubmissionStack(t *testing.T) (*gorm.DB, *services.SubmissionService) {
	t.Helper()
	db := setupTestDB(t)
	audit := services.NewAuditService(db)
	perms := services.NewPermissionService(db, audit)
	webhooks := services.NewWebhookService(db, time.Second, 1)
	return db, services.NewSubmissionService(db, perms, audit, webhooks)
}

func TestSubmissionCreateRequiresPublished(t *testing.T) {
	db, subs := newSubmissionStack(t)

	owner := createUser(t, db, "owner@example.com")
	form := createForm(t, db, owner.ID, models.VisibilityPublic, models.StatusDraft)

	_, err := subs.Create(form.ID, owner.ID, services.SubmissionInput{
		Data: map[string]interface{}{"name": "Ada"},
	}, services.AuditContext{})
	if err == nil {
		t.Fatal("Expected error submitting to an unpublished form")
	}
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Status != 400 {
		t.Errorf("Expected 400, got %v", err)
	}
}

func TestSubmissionCreateAnonymousOnPublicForm(t *testing.T) {
	db, subs := newSubmissionStack(t)

	owner := createUser(t, db, "owner@example.com")
	form := createForm(t, db, owner.ID, models.VisibilityPublic, models.StatusPublished)

	sub, err := subs.Create(form.ID, "", services.SubmissionInput{
		Data: map[string]interface{}{"name": "Ada"},
	}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Anonymous submission failed: %v", err)
	}
	if sub.SubmitterID != nil {
		t.Error("Anonymous submission must have nil submitter")
	}
	if sub.Status != models.SubmissionSubmitted {
		t.Errorf("Expected submitted status, got %s", sub.Status)
	}
	if sub.SubmittedAt == nil {
		t.Error("Expected submittedAt to be set")
	}

	// Private published forms reject anonymous submitters.
	private := createForm(t, db, owner.ID, models.VisibilityPrivate, models.StatusPublished)
	_, err = subs.Create(private.ID, "", services.SubmissionInput{
		Data: map[string]interface{}{"name": "Ada"},
	}, services.AuditContext{})
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Status != 403 {
		t.Errorf("Expected 403 for anonymous on private form, got %v", err)
	}
}

func TestSubmissionCreateValidatesData(t *testing.T) {
	db, subs := newSubmissionStack(t)

	owner := createUser(t, db, "owner@example.com")
	form := createForm(t, db, owner.ID, models.VisibilityPublic, models.StatusPublished)

	// Missing the required "name" field.
	_, err := subs.Create(form.ID, owner.ID, services.SubmissionInput{
		Data: map[string]interface{}{},
	}, services.AuditContext{})
	if err == nil {
		t.Fatal("Expected validation error for missing required field")
	}
	appErr, ok := err.(*types.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Details["name"] == nil {
		t.Errorf("Expected field error for name, got %v", appErr.Details)
	}

	// Drafts skip validation.
	draft, err := subs.Create(form.ID, owner.ID, services.SubmissionInput{
		Data:  map[string]interface{}{},
		Draft: true,
	}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Draft creation failed: %v", err)
	}
	if draft.Status != models.SubmissionDraft {
		t.Errorf("Expected draft status, got %s", draft.Status)
	}
	if draft.SubmittedAt != nil {
		t.Error("Draft must not carry a submittedAt")
	}
}

func TestSubmissionCreateWritesAuditRow(t *testing.T) {
	db, subs := newSubmissionStack(t)

	owner := createUser(t, db, "owner@example.com")
	form := createForm(t, db, owner.ID, models.VisibilityPublic, models.StatusPublished)

	sub, err := subs.Create(form.ID, owner.ID, services.SubmissionInput{
		Data: map[string]interface{}{"name": "Ada"},
	}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var rows []models.AuditLog
	db.Where("form_id = ? AND action = ?", form.ID, models.AuditSubmit).Find(&rows)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 submit audit row, got %d", len(rows))
	}
	if !rows[0].Success {
		t.Error("Expected success=true")
	}
	_ = sub
}

func TestSubmissionOwnDraftUpdate(t *testing.T) {
	db, subs := newSubmissionStack(t)

	owner := createUser(t, db, "owner@example.com")
	submitter := createUser(t, db, "submitter@example.com")
	form := createForm(t, db, owner.ID, models.VisibilityPublic, models.StatusPublished)

	draft, err := subs.Create(form.ID, submitter.ID, services.SubmissionInput{
		Data:  map[string]interface{}{},
		Draft: true,
	}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Draft creation failed: %v", err)
	}

	// The submitter can update their own draft without edit capability.
	updated, err := subs.Update(draft.ID, submitter.ID, services.SubmissionInput{
		Data:  map[string]interface{}{"name": "Ada"},
		Draft: true,
	}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Own draft update failed: %v", err)
	}
	if updated.Status != models.SubmissionDraft {
		t.Errorf("Expected draft to stay draft, got %s", updated.Status)
	}

	// Dropping the draft flag transitions to submitted with a timestamp.
	submitted, err := subs.Update(draft.ID, submitter.ID, services.SubmissionInput{
		Data: map[string]interface{}{"name": "Ada"},
	}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Draft submission failed: %v", err)
	}
	if submitted.Status != models.SubmissionSubmitted {
		t.Errorf("Expected submitted, got %s", submitted.Status)
	}
	if submitted.SubmittedAt == nil {
		t.Error("Expected submittedAt on transition")
	}
}

func TestSubmissionNonDraftUpdateNeedsEdit(t *testing.T) {
	db, subs := newSubmissionStack(t)

	owner := createUser(t, db, "owner@example.com")
	submitter := createUser(t, db, "submitter@example.com")
	form := createForm(t, db, owner.ID, models.VisibilityPublic, models.StatusPublished)

	sub, err := subs.Create(form.ID, submitter.ID, services.SubmissionInput{
		Data: map[string]interface{}{"name": "Ada"},
	}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Even the submitter cannot touch their submitted entry without form
	// edit capability.
	_, err = subs.Update(sub.ID, submitter.ID, services.SubmissionInput{
		Data: map[string]interface{}{"name": "Grace"},
	}, services.AuditContext{})
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Status != 403 {
		t.Fatalf("Expected 403, got %v", err)
	}

	// With an edit share the same update goes through.
	createShare(t, db, form.ID, submitter.ID, models.PermissionEdit, nil)
	updated, err := subs.Update(sub.ID, submitter.ID, services.SubmissionInput{
		Data: map[string]interface{}{"name": "Grace"},
	}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Update with edit share failed: %v", err)
	}
	if updated.Status != models.SubmissionSubmitted {
		t.Errorf("Expected status to stay submitted, got %s", updated.Status)
	}
}

func TestSubmissionGetAndDelete(t *testing.T) {
	db, subs := newSubmissionStack(t)

	owner := createUser(t, db, "owner@example.com")
	submitter := createUser(t, db, "submitter@example.com")
	stranger := createUser(t, db, "stranger@example.com")
	form := createForm(t, db, owner.ID, models.VisibilityPublic, models.StatusPublished)

	sub, err := subs.Create(form.ID, submitter.ID, services.SubmissionInput{
		Data: map[string]interface{}{"name": "Ada"},
	}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Public visibility grants view, so even a stranger can read it.
	if _, err := subs.Get(sub.ID, stranger.ID, services.AuditContext{}); err != nil {
		t.Errorf("Expected public view to allow read: %v", err)
	}

	// But a stranger cannot delete it.
	err = subs.Delete(sub.ID, stranger.ID, services.AuditContext{})
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Status != 403 {
		t.Errorf("Expected 403 deleting someone else's submission, got %v", err)
	}

	// The submitter can delete their own.
	if err := subs.Delete(sub.ID, submitter.ID, services.AuditContext{}); err != nil {
		t.Fatalf("Own delete failed: %v", err)
	}

	_, err = subs.Get(sub.ID, submitter.ID, services.AuditContext{})
	appErr, ok = err.(*types.AppError)
	if !ok || appErr.Status != 404 {
		t.Errorf("Expected 404 after delete, got %v", err)
	}
}

func TestSubmissionListAndStats(t *testing.T) {
	db, subs := newSubmissionStack(t)

	owner := createUser(t, db, "owner@example.com")
	form := createForm(t, db, owner.ID, models.VisibilityPrivate, models.StatusPublished)

	for i := 0; i < 3; i++ {
		if _, err := subs.Create(form.ID, owner.ID, services.SubmissionInput{
			Data: map[string]interface{}{"name": "Ada"},
		}, services.AuditContext{}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := subs.Create(form.ID, owner.ID, services.SubmissionInput{
		Data:  map[string]interface{}{},
		Draft: true,
	}, services.AuditContext{}); err != nil {
		t.Fatalf("Draft create failed: %v", err)
	}

	all, err := subs.List(form.ID, owner.ID, services.SubmissionFilter{}, services.AuditContext{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 submissions, got %d", len(all))
	}

	drafts, err := subs.List(form.ID, owner.ID, services.SubmissionFilter{Status: models.SubmissionDraft}, services.AuditContext{})
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(drafts) != 1 {
		t.Errorf("Expected 1 draft, got %d", len(drafts))
	}

	stats, err := subs.Stats(form.ID, owner.ID, services.AuditContext{})
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("Expected total 4, got %d", stats.Total)
	}
	if stats.ByStatus[models.SubmissionSubmitted] != 3 {
		t.Errorf("Expected 3 submitted, got %d", stats.ByStatus[models.SubmissionSubmitted])
	}
	if stats.LastSubmission == nil {
		t.Error("Expected a last submission timestamp")
	}

	// Listing without view capability is denied.
	stranger := createUser(t, db, "stranger@example.com")
	_, err = subs.List(form.ID, stranger.ID, services.SubmissionFilter{}, services.AuditContext{})
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Status != 403 {
		t.Errorf("Expected 403 for stranger, got %v", err)
	}
	_ = db
}

func TestSubmissionExportCSV(t *testing.T) {
	db, subs := newSubmissionStack(t)

	owner := createUser(t, db, "owner@example.com")
	form := createForm(t, db, owner.ID, models.VisibilityPrivate, models.StatusPublished)

	if _, err := subs.Create(form.ID, owner.ID, services.SubmissionInput{
		Data: map[string]interface{}{"name": "Ada"},
	}, services.AuditContext{}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	csvBytes, err := subs.ExportCSV(form.ID, owner.ID, services.AuditContext{})
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	body := string(csvBytes)
	if !containsLinePrefix(body, "id,status,submitter_id,submitted_at,name") {
		t.Errorf("Unexpected CSV header: %q", body)
	}

	// The export itself is audited.
	var rows []models.AuditLog
	db.Where("form_id = ? AND action = ?", form.ID, models.AuditExport).Find(&rows)
	if len(rows) != 1 {
		t.Errorf("Expected 1 export audit row, got %d", len(rows))
	}
}

func containsLinePrefix(body, prefix string) bool {
	return len(body) >= len(prefix) && body[:len(prefix)] == prefix
}
