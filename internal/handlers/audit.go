package handlers

import (
	"fmt"
	"time"

	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// AuditHandler handles audit log reads and exports
type AuditHandler struct {
	Manager *services.Manager
}

// buildFilter reads the audit query parameters.
func buildFilter(c *fiber.Ctx, formID string) services.AuditFilter {
	limit, offset := parsePagination(c)
	filter := services.AuditFilter{
		FormID: formID,
		UserID: c.Query("userId", ""),
		Action: c.Query("action", ""),
		Limit:  limit,
		Offset: offset,
	}

	if v := c.Query("success", ""); v == "true" || v == "false" {
		success := v == "true"
		filter.Success = &success
	}
	if v := c.Query("since", ""); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = &t
		}
	}
	if v := c.Query("until", ""); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Until = &t
		}
	}

	return filter
}

// List handles GET /api/audit/forms/:id
// @Summary Read a form's audit log
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param action query string false "Action filter"
// @Param success query bool false "Success filter"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /audit/forms/{id} [get]
func (h *AuditHandler) List(c *fiber.Ctx) error {
	formID := c.Params("id")

	if _, err := h.Manager.Permissions.Enforce(formID, userID(c), services.ActionDelete, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	rows, err := h.Manager.Audit.Query(buildFilter(c, formID))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, rows)
}

// Export handles GET /api/audit/forms/:id/export
// @Summary Export a form's audit log as CSV
// @Tags Audit
// @Produce text/csv
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {string} string "CSV body"
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /audit/forms/{id}/export [get]
func (h *AuditHandler) Export(c *fiber.Ctx) error {
	formID := c.Params("id")

	if _, err := h.Manager.Permissions.Enforce(formID, userID(c), services.ActionDelete, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	body, err := h.Manager.Audit.ExportCSV(buildFilter(c, formID))
	if err != nil {
		return serviceError(c, err)
	}

	filename := fmt.Sprintf("audit-%s-%s.csv", formID, time.Now().UTC().Format("20060102"))
	return utils.CSVResponse(c, filename, body)
}

// Report handles GET /api/audit/forms/:id/report
// @Summary Access report for a form
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /audit/forms/{id}/report [get]
func (h *AuditHandler) Report(c *fiber.Ctx) error {
	formID := c.Params("id")

	if _, err := h.Manager.Permissions.Enforce(formID, userID(c), services.ActionDelete, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	report, err := h.Manager.Audit.Report(formID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, report)
}
