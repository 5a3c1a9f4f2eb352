package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/users-api/internal/api/metrics"
	"github.com/99minutos/users-api/internal/api/middleware"
	"github.com/99minutos/users-api/internal/core/domain"
	"github.com/99minutos/users-api/internal/core/ports"
	"github.com/99minutos/users-api/internal/i18n"
)

// UserHandler handles HTTP requests for the /users resource.
type UserHandler struct {
	service    ports.UserService
	translator *i18n.Translator
}

func NewUserHandler(service ports.UserService, translator *i18n.Translator) *UserHandler {
	return &UserHandler{service: service, translator: translator}
}

// List handles GET /users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userCollectionResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserCollectionResponse(users))
}

// Create handles POST /users.
//
// @Summary      Create a user
// @Description  New users are always created with status "approved".
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  validationErrorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.Create(c.Request().Context(), toCreateInput(req))
	if err != nil {
		return err
	}

	metrics.UsersCreatedTotal.Inc()
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Get handles GET /users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Update handles PUT and PATCH /users/:id. Absent fields keep their values.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      202   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  validationErrorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users/{id} [put]
// @Router       /users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.Update(c.Request().Context(), c.Param("id"), toUpdateInput(req))
	if err != nil {
		return err
	}

	metrics.UsersUpdatedTotal.Inc()
	return c.JSON(http.StatusAccepted, toUserResponse(user))
}

// Delete handles DELETE /users/:id.
//
// The localized confirmation is written with the 204 status. net/http refuses
// bodies on 204 responses, so ErrBodyNotAllowed is not treated as a failure.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      204  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}

	metrics.UsersDeletedTotal.Inc()
	locale := middleware.ResolveLocale(c, h.translator)
	err := c.JSON(http.StatusNoContent, messageResponse{Message: h.translator.T(locale, i18n.KeyDeleted)})
	if errors.Is(err, http.ErrBodyNotAllowed) {
		return nil
	}
	return err
}

// Approve handles POST and PATCH /users/:id/approve.
//
// @Summary      Approve a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      202  {object}  userResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id}/approve [post]
func (h *UserHandler) Approve(c echo.Context) error {
	user, err := h.service.Approve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	metrics.StatusChangesTotal.WithLabelValues(string(domain.StatusApproved)).Inc()
	return c.JSON(http.StatusAccepted, toUserResponse(user))
}

// Block handles POST and PATCH /users/:id/block.
//
// @Summary      Block a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      202  {object}  userResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id}/block [post]
func (h *UserHandler) Block(c echo.Context) error {
	user, err := h.service.Block(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	metrics.StatusChangesTotal.WithLabelValues(string(domain.StatusBlocked)).Inc()
	return c.JSON(http.StatusAccepted, toUserResponse(user))
}

// SetRole handles POST and PATCH /users/:id/role.
//
// @Summary      Change a user's role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "User ID"
// @Param        body  body      setRoleRequest  true  "Role identifier"
// @Success      202   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  validationErrorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users/{id}/role [post]
func (h *UserHandler) SetRole(c echo.Context) error {
	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.SetRole(c.Request().Context(), c.Param("id"), toSetRoleInput(req))
	if err != nil {
		return err
	}

	metrics.RoleChangesTotal.Inc()
	return c.JSON(http.StatusAccepted, toUserResponse(user))
}
