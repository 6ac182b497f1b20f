package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Login     string `json:"login" validate:"required,max=255"`
	Password  string `json:"password" validate:"required,max=72"`
	Role      string `json:"role" validate:"required"`
	FirstName string `json:"first_name,omitempty" validate:"max=100"`
	LastName  string `json:"last_name,omitempty" validate:"max=100"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type validateRequest struct {
	Token string `json:"token"`
}

type logoutRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Login authenticates a user and returns an access/refresh token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  domain.TokenPair
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/v1/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("login", err)
	}

	pair, err := h.authService.Login(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		return observe("login", err)
	}
	_ = observe("login", nil)
	return c.JSON(http.StatusOK, pair)
}

// Register creates a ROLE_USER account and returns a token pair for it.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  domain.TokenPair
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/v1/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("register", err)
	}

	pair, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Login:     req.Login,
		Password:  req.Password,
		Role:      req.Role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return observe("register", err)
	}
	_ = observe("register", nil)
	return c.JSON(http.StatusCreated, pair)
}

// Refresh exchanges a refresh token for a new token pair.
//
// @Summary      Refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  domain.TokenPair
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/v1/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("refresh", err)
	}

	pair, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return observe("refresh", err)
	}
	_ = observe("refresh", nil)
	return c.JSON(http.StatusOK, pair)
}

// Validate answers whether a token is trustworthy. It always returns 200;
// the verdict is in the body. The token is read from the JSON body, the
// "token" query parameter or the bearer header, in that order.
//
// @Summary      Validate a token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body   body      validateRequest  false  "Token"
// @Param        token  query     string           false  "Token"
// @Success      200    {object}  domain.ValidationResult
// @Router       /auth/v1/validate [post]
func (h *AuthHandler) Validate(c echo.Context) error {
	var req validateRequest
	_ = c.Bind(&req)

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = strings.TrimSpace(c.QueryParam("token"))
	}
	if token == "" {
		token = bearerToken(c)
	}

	res := h.authService.ValidateToken(c.Request().Context(), token)
	if res.Valid {
		metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	} else {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
	}
	return c.JSON(http.StatusOK, res)
}

// Logout checks both tokens. Tokens are stateless, so nothing is revoked.
// The access token may be sent in the body or as a bearer header.
//
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Param        body  body  logoutRequest  true  "Tokens"
// @Success      204
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/v1/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe("logout", err)
	}
	access := req.AccessToken
	if access == "" {
		access = bearerToken(c)
	}

	if err := h.authService.Logout(c.Request().Context(), access, req.RefreshToken); err != nil {
		return observe("logout", err)
	}
	_ = observe("logout", nil)
	return c.NoContent(http.StatusNoContent)
}

// bindAndValidate decodes the request and runs the registered validator.
// Both failures are reported as invalid input.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// observe counts the outcome of op and returns err unchanged.
func observe(op string, err error) error {
	result := "ok"
	if err != nil {
		result = domain.Code(err)
		if result == "" {
			result = "INTERNAL"
		}
	}
	metrics.AuthOperationsTotal.WithLabelValues(op, result).Inc()
	return err
}
