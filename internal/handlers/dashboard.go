package handlers

import (
	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DashboardHandler summarizes a user's forms and submissions
type DashboardHandler struct {
	DB      *gorm.DB
	Manager *services.Manager
}

// Summary handles GET /api/dashboard
// @Summary Dashboard summary
// @Description Counts of the caller's forms, submissions, and shares
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 401 {object} utils.ErrorEnvelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	uid, err := requireUserID(c)
	if err != nil {
		return serviceError(c, err)
	}

	var formCount, publishedCount, submissionCount, sharedWithMe int64

	if err := h.DB.Model(&models.Form{}).Where("owner_id = ?", uid).Count(&formCount).Error; err != nil {
		return serviceError(c, err)
	}
	if err := h.DB.Model(&models.Form{}).
		Where("owner_id = ? AND status = ?", uid, models.StatusPublished).
		Count(&publishedCount).Error; err != nil {
		return serviceError(c, err)
	}
	if err := h.DB.Model(&models.FormSubmission{}).
		Joins("JOIN forms ON forms.id = form_submissions.form_id").
		Where("forms.owner_id = ? AND forms.deleted_at IS NULL", uid).
		Count(&submissionCount).Error; err != nil {
		return serviceError(c, err)
	}
	if err := h.DB.Model(&models.FormShare{}).
		Where("shared_with_user_id = ?", uid).
		Count(&sharedWithMe).Error; err != nil {
		return serviceError(c, err)
	}

	var recent []models.FormSubmission
	if err := h.DB.
		Joins("JOIN forms ON forms.id = form_submissions.form_id").
		Where("forms.owner_id = ? AND forms.deleted_at IS NULL", uid).
		Order("form_submissions.created_at DESC").
		Limit(10).
		Find(&recent).Error; err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, fiber.Map{
		"forms":             formCount,
		"publishedForms":    publishedCount,
		"submissions":       submissionCount,
		"sharedWithMe":      sharedWithMe,
		"recentSubmissions": recent,
	})
}

// Health handles GET /api/health
// @Summary Service health
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *DashboardHandler) Health(c *fiber.Ctx) error {
	result := h.Manager.Health()
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
