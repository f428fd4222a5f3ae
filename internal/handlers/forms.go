package handlers

import (
	"github.com/formbase/formbase/internal/models"
	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// FormHandler handles form lifecycle routes
type FormHandler struct {
	Manager *services.Manager
}

// Create handles POST /api/forms
// @Summary Create a form
// @Description Create a new draft form with field definitions
// @Tags Forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.FormInput true "Form definition"
// @Success 201 {object} utils.SuccessEnvelope
// @Failure 400 {object} utils.ErrorEnvelope
// @Router /forms [post]
func (h *FormHandler) Create(c *fiber.Ctx) error {
	uid, err := requireUserID(c)
	if err != nil {
		return serviceError(c, err)
	}

	var input services.FormInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	}

	form, err := h.Manager.Forms.Create(uid, input)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusCreated, form)
}

// List handles GET /api/forms
// @Summary List accessible forms
// @Description List the caller's own forms plus forms shared with them
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.SuccessEnvelope
// @Router /forms [get]
func (h *FormHandler) List(c *fiber.Ctx) error {
	uid, err := requireUserID(c)
	if err != nil {
		return serviceError(c, err)
	}

	owned, err := h.Manager.Forms.ListOwned(uid)
	if err != nil {
		return serviceError(c, err)
	}
	shared, err := h.Manager.Sharing.ListSharedWith(uid)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, fiber.Map{
		"owned":  owned,
		"shared": shared,
	})
}

// Get handles GET /api/forms/:id
// @Summary Read a form
// @Description Read a form's definition, gated on view capability
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id} [get]
func (h *FormHandler) Get(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	caps, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionView, auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	form, err := h.Manager.Forms.Get(formID)
	if err != nil {
		return serviceError(c, err)
	}

	h.Manager.Audit.Log(services.AuditEntry{
		FormID:  formID,
		UserID:  uid,
		Action:  models.AuditView,
		Success: true,
		Context: auditContext(c),
	})

	return utils.DataResponse(c, fiber.StatusOK, fiber.Map{
		"form":        form,
		"permissions": caps,
	})
}

// Update handles PUT /api/forms/:id
// @Summary Update a form
// @Description Update a form's definition with an optimistic version check
// @Tags Forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param body body services.FormUpdateInput true "Update payload"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Failure 409 {object} utils.ErrorEnvelope
// @Router /forms/{id} [put]
func (h *FormHandler) Update(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionEdit, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	var input services.FormUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	}

	form, err := h.Manager.Forms.Update(formID, input)
	if err != nil {
		return serviceError(c, err)
	}

	h.Manager.Audit.Log(services.AuditEntry{
		FormID:  formID,
		UserID:  uid,
		Action:  models.AuditEdit,
		Success: true,
		Context: auditContext(c),
	})

	return utils.DataResponse(c, fiber.StatusOK, form)
}

// Delete handles DELETE /api/forms/:id
// @Summary Delete a form
// @Description Soft-delete a form and remove its shares
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id} [delete]
func (h *FormHandler) Delete(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionDelete, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	if err := h.Manager.Forms.Delete(formID); err != nil {
		return serviceError(c, err)
	}

	h.Manager.Audit.Log(services.AuditEntry{
		FormID:  formID,
		UserID:  uid,
		Action:  models.AuditDelete,
		Success: true,
		Context: auditContext(c),
	})

	return utils.MessageResponse(c, fiber.StatusOK, "Form deleted")
}

// Publish handles POST /api/forms/:id/publish
// @Summary Publish a form
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/publish [post]
func (h *FormHandler) Publish(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionEdit, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	form, err := h.Manager.PublishFormWithAudit(formID, uid, auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, form)
}

// Unpublish handles POST /api/forms/:id/unpublish
// @Summary Unpublish a form
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/unpublish [post]
func (h *FormHandler) Unpublish(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionEdit, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	form, err := h.Manager.UnpublishFormWithAudit(formID, uid, auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, form)
}

// Clone handles POST /api/forms/:id/clone
// @Summary Clone a form
// @Description Copy a form's definition into a new private draft
// @Tags Forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 201 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/clone [post]
func (h *FormHandler) Clone(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid, err := requireUserID(c)
	if err != nil {
		return serviceError(c, err)
	}

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionView, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	var body struct {
		AsTemplate bool `json:"asTemplate"`
	}
	// An empty body means a plain clone.
	_ = c.BodyParser(&body)

	clone, err := h.Manager.CloneFormWithAudit(formID, uid, body.AsTemplate, auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusCreated, clone)
}

// SetVisibility handles PUT /api/forms/:id/visibility
// @Summary Change form visibility
// @Description Change visibility; moving to private removes all shares
// @Tags Forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/visibility [put]
func (h *FormHandler) SetVisibility(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	// Visibility is an access-policy change, so the bar is admin-level
	// capability, which only owners and admin shares clear.
	caps := h.Manager.Permissions.Resolve(formID, uid)
	if !caps.CanDelete {
		if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionDelete, auditContext(c)); err != nil {
			return serviceError(c, err)
		}
	}

	var body struct {
		Visibility string `json:"visibility"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	}

	form, err := h.Manager.SetVisibilityWithAudit(formID, uid, body.Visibility, auditContext(c))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, form)
}
