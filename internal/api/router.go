package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/auth-service/docs"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const (
	metricsNamespace = "auth"
	metricsSubsystem = "http"
	requestTimeout   = 15 * time.Second
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth     ports.AuthService
	Tokens   ports.TokenVerifier
	Failures ports.SyncFailureLog
	Checks   map[string]handler.Check
	// InternalAPIKey guards the service-to-service routes.
	InternalAPIKey string
	Log            zerolog.Logger
	// Registry overrides the Prometheus registry; nil uses the default one,
	// which also carries the metrics package collectors.
	Registry *prometheus.Registry
	// DisableSwagger hides /swagger/* (production).
	DisableSwagger bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.BodyLimit("64K"))
	e.Use(echomiddleware.ContextTimeoutWithConfig(echomiddleware.ContextTimeoutConfig{Timeout: requestTimeout}))

	promCfg := echoprometheus.MiddlewareConfig{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}
	handlerCfg := echoprometheus.HandlerConfig{}
	if d.Registry != nil {
		promCfg.Registerer = d.Registry
		handlerCfg.Gatherer = d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Auth, d.Failures)
	healthHandler := handler.NewHealthHandler(d.Checks)

	internal := middleware.InternalAPIKey(d.InternalAPIKey)
	admin := []echo.MiddlewareFunc{middleware.Auth(d.Tokens), middleware.RBAC(domain.RoleAdmin)}

	// --- Auth routes ---
	v1 := e.Group("/auth/v1")
	v1.POST("/login", authHandler.Login)
	v1.POST("/create-token", authHandler.Login)
	v1.POST("/register", authHandler.Register)
	v1.POST("/refresh", authHandler.Refresh)
	v1.POST("/validate", authHandler.Validate)
	v1.POST("/logout", authHandler.Logout)

	// --- Service-to-service routes ---
	v1.PUT("/users/profile", userHandler.UpdateProfile, internal)
	v1.DELETE("/users/:login", userHandler.Delete, internal)
	v1.GET("/internal/sync/failures", userHandler.SyncFailures, internal)

	// --- Administrative routes ---
	v1.PUT("/users/:login/role", userHandler.ChangeRole, admin...)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(handlerCfg))
	if !d.DisableSwagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

// requestLogger writes one structured zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
