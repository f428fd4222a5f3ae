package handlers

import (
	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// UserHandler handles account routes
type UserHandler struct {
	Manager *services.Manager
}

// Register handles POST /api/users/register
// @Summary Register an account
// @Description Create a new user account
// @Tags Users
// @Accept json
// @Produce json
// @Param body body services.RegisterInput true "Account details"
// @Success 201 {object} utils.SuccessEnvelope
// @Failure 400 {object} utils.ErrorEnvelope
// @Failure 409 {object} utils.ErrorEnvelope
// @Router /users/register [post]
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	}

	user, err := h.Manager.Auth.Register(input)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusCreated, user)
}

// Login handles POST /api/users/login
// @Summary Log in
// @Description Exchange credentials for a bearer token
// @Tags Users
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Credentials"
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 401 {object} utils.ErrorEnvelope
// @Router /users/login [post]
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var input services.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	}

	token, user, err := h.Manager.Auth.Login(input)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Me handles GET /api/users/me
// @Summary Current user
// @Description Return the authenticated user's profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.SuccessEnvelope
// @Failure 401 {object} utils.ErrorEnvelope
// @Router /users/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	uid, err := requireUserID(c)
	if err != nil {
		return serviceError(c, err)
	}

	user, err := h.Manager.Auth.GetUser(uid)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.DataResponse(c, fiber.StatusOK, user)
}
