package handlers_test

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/formbase/formbase/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestAuditListAfterFormActivity(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, ownerToken := registerUser(t, app, "owner@example.com")
	_, strangerToken := registerUser(t, app, "stranger@example.com")
	formID := createFormVia(t, app, ownerToken, "Watched", "private")

	// An owner read and a stranger denial both leave audit rows.
	doJSON(t, app, "GET", "/api/forms/"+formID, ownerToken, nil)
	doJSON(t, app, "GET", "/api/forms/"+formID, strangerToken, nil)

	resp := doJSON(t, app, "GET", "/api/audit/forms/"+formID, ownerToken, nil)
	env := decodeEnvelope(t, resp)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Audit list failed with %d: %s", resp.StatusCode, env.Error)
	}
	var rows []models.AuditLog
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		t.Fatalf("Failed to decode audit rows: %v", err)
	}
	if len(rows) < 2 {
		t.Fatalf("Expected at least 2 audit rows, got %d", len(rows))
	}

	var sawView, sawDenied bool
	for _, row := range rows {
		if row.Action == models.AuditView && row.Success {
			sawView = true
		}
		if row.Action == models.AuditAccessDenied && !row.Success {
			sawDenied = true
		}
	}
	if !sawView || !sawDenied {
		t.Errorf("Expected a view row and a denial row, got %+v", rows)
	}

	// Filtering by success keeps only the denial.
	resp = doJSON(t, app, "GET", "/api/audit/forms/"+formID+"?success=false", ownerToken, nil)
	env = decodeEnvelope(t, resp)
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		t.Fatalf("Failed to decode filtered rows: %v", err)
	}
	for _, row := range rows {
		if row.Success {
			t.Errorf("Filter success=false returned a successful row: %+v", row)
		}
	}
}

func TestAuditAccessNeedsAdminCapability(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, ownerToken := registerUser(t, app, "owner@example.com")
	granteeID, granteeToken := registerUser(t, app, "grantee@example.com")
	formID := createFormVia(t, app, ownerToken, "Restricted Log", "shared")

	resp := doJSON(t, app, "POST", "/api/forms/"+formID+"/shares", ownerToken, map[string]interface{}{
		"sharedWithUserId": granteeID,
		"permissionLevel":  "edit",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Share failed with %d", resp.StatusCode)
	}

	// Edit capability is not enough for the audit log.
	resp = doJSON(t, app, "GET", "/api/audit/forms/"+formID, granteeToken, nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403 for edit-level grantee, got %d", resp.StatusCode)
	}
}

func TestAuditExportCSV(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, token := registerUser(t, app, "owner@example.com")
	formID := createFormVia(t, app, token, "Logged", "private")
	doJSON(t, app, "GET", "/api/forms/"+formID, token, nil)

	resp := doJSON(t, app, "GET", "/api/audit/forms/"+formID+"/export", token, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Export failed with %d", resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.HasPrefix(string(body), "id,created_at,form_id,user_id,action,success,error_message,ip_address") {
		t.Errorf("Unexpected CSV header: %q", body)
	}
}

func TestAuditReport(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, ownerToken := registerUser(t, app, "owner@example.com")
	_, strangerToken := registerUser(t, app, "stranger@example.com")
	formID := createFormVia(t, app, ownerToken, "Reported", "private")

	doJSON(t, app, "GET", "/api/forms/"+formID, ownerToken, nil)
	doJSON(t, app, "GET", "/api/forms/"+formID, strangerToken, nil)

	resp := doJSON(t, app, "GET", "/api/audit/forms/"+formID+"/report", ownerToken, nil)
	env := decodeEnvelope(t, resp)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Report failed with %d: %s", resp.StatusCode, env.Error)
	}

	var report struct {
		TotalEntries int64            `json:"totalEntries"`
		ByAction     map[string]int64 `json:"byAction"`
		DeniedCount  int64            `json:"deniedCount"`
	}
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if report.ByAction[models.AuditView] < 1 {
		t.Errorf("Expected at least one view, got %d", report.ByAction[models.AuditView])
	}
	if report.DeniedCount < 1 {
		t.Errorf("Expected at least one denial, got %d", report.DeniedCount)
	}
	if report.TotalEntries < 2 {
		t.Errorf("Expected at least 2 entries, got %d", report.TotalEntries)
	}
}

func TestDashboardSummary(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, token := registerUser(t, app, "owner@example.com")
	formID := createFormVia(t, app, token, "Dash", "public")
	publishVia(t, app, token, formID)

	resp := doJSON(t, app, "POST", "/api/forms/"+formID+"/submissions", "", map[string]interface{}{
		"data": map[string]interface{}{"name": "Visitor"},
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Submission failed with %d", resp.StatusCode)
	}

	resp = doJSON(t, app, "GET", "/api/dashboard", token, nil)
	env := decodeEnvelope(t, resp)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Dashboard failed with %d: %s", resp.StatusCode, env.Error)
	}

	var summary struct {
		Forms          int64 `json:"forms"`
		PublishedForms int64 `json:"publishedForms"`
		Submissions    int64 `json:"submissions"`
	}
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if summary.Forms != 1 || summary.PublishedForms != 1 || summary.Submissions != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doJSON(t, app, "GET", "/health", "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Status  string            `json:"status"`
		Details map[string]string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode health payload: %v", err)
	}
	resp.Body.Close()
	if result.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", result.Status)
	}
}
