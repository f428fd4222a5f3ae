package handlers

import (
	"log"

	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// WebhookHandler handles webhook registration and delivery logs
type WebhookHandler struct {
	Manager *services.Manager
}

// Create handles POST /api/forms/:id/webhooks
// @Summary Register a webhook
// @Description Subscribe an endpoint to form events; the signing secret is returned once
// @Tags Webhooks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Param body body services.WebhookInput true "Webhook details"
// @Success 201 {object} utils.SuccessEnvelope
// @Failure 400 {object} utils.ErrorEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/webhooks [post]
func (h *WebhookHandler) Create(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionEdit, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	var input services.WebhookInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	}

	webhook, secret, err := h.Manager.Webhooks.Register(formID, input)
	if err != nil {
		return serviceError(c, err)
	}

	// Reachability is advisory only; a target behind a firewall still
	// gets registered.
	if err := utils.PingWebhookTarget(webhook.URL); err != nil {
		log.Printf("webhook target %s not reachable at registration: %v", webhook.URL, err)
	}

	return utils.DataResponse(c, fiber.StatusCreated, fiber.Map{
		"webhook": webhook,
		"secret":  secret,
	})
}

// List handles GET /api/forms/:id/webhooks
// @Summary List a form's webhooks
// @Tags Webhooks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Form ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/webhooks [get]
func (h *WebhookHandler) List(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionEdit, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	webhooks, err := h.Manager.Webhooks.ListForForm(formID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, webhooks)
}

// Delete handles DELETE /api/webhooks/:id
// @Summary Delete a webhook
// @Tags Webhooks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Webhook ID"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Failure 404 {object} utils.ErrorEnvelope
// @Router /webhooks/{id} [delete]
func (h *WebhookHandler) Delete(c *fiber.Ctx) error {
	webhook, err := h.Manager.Webhooks.Get(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}

	if _, err := h.Manager.Permissions.Enforce(webhook.FormID, userID(c), services.ActionEdit, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	if err := h.Manager.Webhooks.Delete(webhook.ID); err != nil {
		return serviceError(c, err)
	}

	return utils.MessageResponse(c, fiber.StatusOK, "Webhook deleted")
}

// Deliveries handles GET /api/webhooks/:id/deliveries
// @Summary Webhook delivery log
// @Tags Webhooks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Webhook ID"
// @Param limit query int false "Page size"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /webhooks/{id}/deliveries [get]
func (h *WebhookHandler) Deliveries(c *fiber.Ctx) error {
	webhook, err := h.Manager.Webhooks.Get(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}

	if _, err := h.Manager.Permissions.Enforce(webhook.FormID, userID(c), services.ActionEdit, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	limit, _ := parsePagination(c)
	deliveries, err := h.Manager.Webhooks.Deliveries(webhook.ID, limit)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, deliveries)
}
