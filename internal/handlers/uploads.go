package handlers

import (
	"io"

	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// UploadHandler handles multipart file uploads and downloads
type UploadHandler struct {
	Manager *services.Manager
}

// Create handles POST /api/forms/:id/uploads
// @Summary Upload a file
// @Description Accept a multipart file for a form's file field; requires submit capability
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Form ID"
// @Param field formData string true "Field name"
// @Param file formData file true "File content"
// @Success 201 {object} utils.SuccessEnvelope
// @Failure 400 {object} utils.ErrorEnvelope
// @Failure 403 {object} utils.ErrorEnvelope
// @Router /forms/{id}/uploads [post]
func (h *UploadHandler) Create(c *fiber.Ctx) error {
	formID := c.Params("id")
	uid := userID(c)

	if _, err := h.Manager.Permissions.Enforce(formID, uid, services.ActionSubmit, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	fieldName := c.FormValue("field")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Missing file")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Unreadable file")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Unreadable file")
	}

	upload, err := h.Manager.Uploads.Store(
		formID, uid, fieldName,
		fileHeader.Filename,
		fileHeader.Header.Get(fiber.HeaderContentType),
		content,
	)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusCreated, upload)
}

// Get handles GET /api/uploads/:id
// @Summary Download a file
// @Description Stream a stored upload; requires view capability on its form
// @Tags Uploads
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Upload ID"
// @Success 200 {string} string "File content"
// @Failure 403 {object} utils.ErrorEnvelope
// @Failure 404 {object} utils.ErrorEnvelope
// @Router /uploads/{id} [get]
func (h *UploadHandler) Get(c *fiber.Ctx) error {
	upload, err := h.Manager.Uploads.Get(c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}

	if _, err := h.Manager.Permissions.Enforce(upload.FormID, userID(c), services.ActionView, auditContext(c)); err != nil {
		return serviceError(c, err)
	}

	content, err := h.Manager.Uploads.Read(upload)
	if err != nil {
		return serviceError(c, err)
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+upload.FileName+`"`)
	return c.Status(fiber.StatusOK).Send(content)
}
