package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// InternalKeyHeader carries the shared secret on service-to-service calls.
const InternalKeyHeader = "X-Internal-Api-Key"

// InternalAPIKey admits requests whose X-Internal-Api-Key header equals key.
// An empty key rejects every request.
func InternalAPIKey(key string) echo.MiddlewareFunc {
	expected := []byte(key)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(expected) == 0 {
				return domain.ErrInvalidAPIKey
			}
			got := []byte(c.Request().Header.Get(InternalKeyHeader))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				return domain.ErrInvalidAPIKey
			}
			return next(c)
		}
	}
}
