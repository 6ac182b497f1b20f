package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const defaultFailureLimit = 50

// UserHandler serves the service-to-service and administrative user endpoints.
type UserHandler struct {
	authService ports.AuthService
	failures    ports.SyncFailureLog
}

func NewUserHandler(authService ports.AuthService, failures ports.SyncFailureLog) *UserHandler {
	return &UserHandler{authService: authService, failures: failures}
}

type updateProfileRequest struct {
	CurrentLogin string `json:"current_login" validate:"required"`
	NewLogin     string `json:"new_login,omitempty" validate:"max=255"`
	FirstName    string `json:"first_name,omitempty" validate:"max=100"`
	LastName     string `json:"last_name,omitempty" validate:"max=100"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type syncFailuresResponse struct {
	Items []domain.SyncFailure `json:"items"`
	Count int                  `json:"count"`
}

// UpdateProfile applies a profile change pushed by the profile service.
//
// @Summary      Sync a profile change
// @Tags         internal
// @Accept       json
// @Param        X-Internal-Api-Key  header  string                true  "Internal API key"
// @Param        body                body    updateProfileRequest  true  "Profile change"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /auth/v1/users/profile [put]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("update_profile", err)
	}

	err := h.authService.UpdateUserProfile(c.Request().Context(), ports.UpdateProfileInput{
		CurrentLogin: req.CurrentLogin,
		NewLogin:     req.NewLogin,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	if err != nil {
		return observe("update_profile", err)
	}
	_ = observe("update_profile", nil)
	return c.NoContent(http.StatusNoContent)
}

// Delete removes the credential record for a login.
//
// @Summary      Delete a user
// @Tags         internal
// @Param        X-Internal-Api-Key  header  string  true  "Internal API key"
// @Param        login               path    string  true  "Login"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /auth/v1/users/{login} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	login, err := loginParam(c)
	if err != nil {
		return observe("delete_user", err)
	}
	if err := h.authService.DeleteUserByIdentity(c.Request().Context(), login); err != nil {
		return observe("delete_user", err)
	}
	_ = observe("delete_user", nil)
	return c.NoContent(http.StatusNoContent)
}

// ChangeRole sets the role of a user. Requires an administrator token.
//
// @Summary      Change a user's role
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        login  path  string             true  "Login"
// @Param        body   body  changeRoleRequest  true  "New role"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /auth/v1/users/{login}/role [put]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("change_role", err)
	}
	login, err := loginParam(c)
	if err != nil {
		return observe("change_role", err)
	}

	if err := h.authService.ChangeRole(c.Request().Context(), login, req.Role); err != nil {
		return observe("change_role", err)
	}
	_ = observe("change_role", nil)
	return c.NoContent(http.StatusNoContent)
}

// loginParam returns the :login path segment. Echo matches on the raw path,
// so logins such as "alice%40example.com" arrive still escaped.
func loginParam(c echo.Context) (string, error) {
	login, err := url.PathUnescape(c.Param("login"))
	if err != nil {
		return "", fmt.Errorf("%w: malformed login in path", domain.ErrInvalidInput)
	}
	return login, nil
}

// SyncFailures lists the most recent sync jobs that could not be delivered.
//
// @Summary      List failed sync jobs
// @Tags         internal
// @Produce      json
// @Param        X-Internal-Api-Key  header  string  true   "Internal API key"
// @Param        limit               query   int     false  "Max items (default 50)"
// @Success      200  {object}  syncFailuresResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/v1/internal/sync/failures [get]
func (h *UserHandler) SyncFailures(c echo.Context) error {
	limit := int64(defaultFailureLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	items, err := h.failures.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, syncFailuresResponse{Items: items, Count: len(items)})
}
