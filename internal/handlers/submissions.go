package handlers

import (
	"fmt"
	"time"

	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// SubmissionHandler handles submission routes
type SubmissionHandler struct {
	Manager *services.Manager
}

// Create handles POST /api/forms/:id/submissions
// @Summary Submit to a form
// @Description Validate and persist a submission; anonymous only on public published forms
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param body body services.SubmissionInput true "Submission data"
// @Success 201 {object} utils.SuccessEnvelope
// @Failure 400 {object} utils.ErrorEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/submissions [post]
func (h *SubmissionHandler) Create(c *fiber.Ctx) error {
	formID := c.Params("id")

	var input services.SubmissionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	}

	submission, err := h.Manager.Submissions.Create(formID, userID(c), input, auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusCreated, submission)
}

// List handles GET /api/forms/:id/submissions
// @Summary List a form's submissions
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param status query string false "Status filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/submissions [get]
func (h *SubmissionHandler) List(c *fiber.Ctx) error {
	formID := c.Params("id")
	limit, offset := parsePagination(c)

	filter := services.SubmissionFilter{
		Status: c.Query("status", ""),
		Limit:  limit,
		Offset: offset,
	}

	submissions, err := h.Manager.Submissions.List(formID, userID(c), filter, auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, submissions)
}

// Export handles GET /api/forms/:id/submissions/export
// @Summary Export submissions as CSV
// @Tags Submissions
// @Produce text/csv
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {string} string "CSV body"
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/submissions/export [get]
func (h *SubmissionHandler) Export(c *fiber.Ctx) error {
	formID := c.Params("id")

	body, err := h.Manager.Submissions.ExportCSV(formID, userID(c), auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	filename := fmt.Sprintf("submissions-%s-%s.csv", formID, time.Now().UTC().Format("20060102"))
	return utils.CSVResponse(c, filename, body)
}

// Statistics handles GET /api/forms/:id/statistics
// @Summary Submission statistics
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/statistics [get]
func (h *SubmissionHandler) Statistics(c *fiber.Ctx) error {
	formID := c.Params("id")

	stats, err := h.Manager.Submissions.Stats(formID, userID(c), auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, stats)
}

// Get handles GET /api/submissions/:id
// @Summary Read a submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Failure 404 {object} utils.ErrorEnvelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *fiber.Ctx) error {
	submission, err := h.Manager.Submissions.Get(c.Params("id"), userID(c), auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, submission)
}

// Update handles PUT /api/submissions/:id
// @Summary Update a submission
// @Description Submitters may edit their own drafts; anything else needs form edit
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Param body body services.SubmissionInput true "Update payload"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 400 {object} utils.ErrorEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /submissions/{id} [put]
func (h *SubmissionHandler) Update(c *fiber.Ctx) error {
	var input services.SubmissionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	}

	submission, err := h.Manager.Submissions.Update(c.Params("id"), userID(c), input, auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, submission)
}

// Delete handles DELETE /api/submissions/:id
// @Summary Delete a submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *fiber.Ctx) error {
	if err := h.Manager.Submissions.Delete(c.Params("id"), userID(c), auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	return utils.MessageResponse(c, fiber.StatusOK, "Submission deleted")
}
