package handlers

import (
	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// ShareHandler handles explicit permission grants
type ShareHandler struct {
	Manager *services.Manager
}

// Create handles POST /api/forms/:id/shares
// @Summary Share a form
// @Description Grant or update a permission level for another user
// @Tags Shares
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param body body services.ShareInput true "Share details"
// @Success 201 {object} utils.SuccessEnvelope
// @Failure 400 {object} utils.ErrorEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/shares [post]
func (h *ShareHandler) Create(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	// Managing shares requires admin-level capability on the form.
	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionDelete, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	var input services.ShareInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	}

	share, err := h.Manager.ShareFormWithAudit(formID, uid, input, auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusCreated, share)
}

// List handles GET /api/forms/:id/shares
// @Summary List a form's shares
// @Tags Shares
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/shares [get]
func (h *ShareHandler) List(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionDelete, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	shares, err := h.Manager.Sharing.ListForForm(formID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, shares)
}

// Delete handles DELETE /api/forms/:id/shares/:userId
// @Summary Revoke a share
// @Tags Shares
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param userId path string true "Shared user ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Failure 404 {object} utils.ErrorEnvelope
// @Router /forms/{id}/shares/{userId} [delete]
func (h *ShareHandler) Delete(c *fiber.Ctx) error {
	formID := c.Params("id")
	targetUserID := c.Params("userId")
	uid := userID(c)

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionDelete, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	if err := h.Manager.UnshareFormWithAudit(formID, uid, targetUserID, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	return utils.MessageResponse(c, fiber.StatusOK, "Share removed")
}
