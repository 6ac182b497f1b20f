package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// Context keys set by Auth.
const (
	LoginKey = "login"
	RoleKey  = "role"
)

// Auth validates the bearer access token and injects its subject and role
// into the echo context.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return fmt.Errorf("%w: missing authorization header", domain.ErrInvalidToken)
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				return fmt.Errorf("%w: invalid authorization header", domain.ErrInvalidToken)
			}
			token = strings.TrimSpace(token)

			if !verifier.Validate(token) {
				return domain.ErrInvalidToken
			}
			login, err := verifier.Subject(token)
			if err != nil {
				return domain.ErrInvalidToken
			}
			role, err := verifier.Claim(token, domain.RoleClaim)
			if err != nil {
				return domain.ErrInvalidToken
			}

			c.Set(LoginKey, login)
			c.Set(RoleKey, role)

			return next(c)
		}
	}
}
