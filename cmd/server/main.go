// @title           Auth Service API
// @version         1.0
// @description     Credential store and token issuer. Mirrors users into the identity provider and the profile service.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	mongodb "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/identity"
	"github.com/99minutos/auth-service/internal/infrastructure/profile"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/internal/infrastructure/security"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/pkg/logger"
)

const (
	serviceName     = "auth-service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
		Fields:  map[string]string{"env": cfg.Env},
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("auth service stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		AppName:     serviceName,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	credentials := mongodb.NewCredentialRepository(db)
	if err := credentials.EnsureIndexes(ctx); err != nil {
		return err
	}
	failures := redisdb.NewFailureLog(rdb, 0)

	// --- Security ---
	hasher := security.NewBcryptHasher(cfg.JWT.BcryptCost)
	tokens, err := security.NewJWTIssuer(security.TokenConfig{
		Secret:     []byte(cfg.JWT.Secret),
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
	})
	if err != nil {
		return err
	}

	// --- Collaborators ---
	idp, err := newIdentityProvider(cfg, logger.Component("keycloak"))
	if err != nil {
		return err
	}
	profiles := profile.New(profile.Config{
		BaseURL: cfg.Profile.URL,
		APIKey:  cfg.Profile.APIKey,
		Timeout: cfg.Sync.Timeout,
	})
	log.Info().
		Bool("identity_provider", idp.Enabled()).
		Bool("profile_service", profiles.Enabled()).
		Msg("collaborators configured")

	// --- Best-effort sync ---
	syncService := service.NewSyncService(idp, profiles, failures, cfg.Sync.Timeout, logger.Component("sync"))
	dispatcher := queue.NewDispatcher(cfg.Sync.Workers, cfg.Sync.Buffer, syncService,
		logger.Component("dispatcher"), queue.WithSkipError(service.ErrSyncSkipped))
	// Workers keep draining after ctx is cancelled; Close stops them.
	dispatcher.Start(context.WithoutCancel(ctx))
	defer dispatcher.Close()

	authService := service.NewAuthService(credentials, hasher, tokens, dispatcher, logger.Component("auth"),
		service.WithDeletePropagation(cfg.Keycloak.PropagateDelete))

	bootstrapper := service.NewAdminBootstrapper(credentials, hasher, idp, cfg.Sync.Timeout, logger.Component("bootstrap"))
	if err := bootstrapper.Run(ctx, ports.AdminSeed{
		Login:     cfg.Bootstrap.Login,
		Password:  cfg.Bootstrap.Password,
		FirstName: cfg.Bootstrap.FirstName,
		LastName:  cfg.Bootstrap.LastName,
	}); err != nil {
		return err
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Auth:     authService,
		Tokens:   tokens,
		Failures: failures,
		Checks: map[string]handler.Check{
			"mongodb": credentials.Ping,
			"redis":   failures.Ping,
		},
		InternalAPIKey: cfg.InternalAPIKey,
		Log:            logger.Component("http"),
		DisableSwagger: cfg.IsProduction(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting auth service")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func newIdentityProvider(cfg *config.Config, log zerolog.Logger) (ports.IdentityProvider, error) {
	if !cfg.Keycloak.Enabled {
		return identity.Disabled{}, nil
	}
	return identity.NewKeycloak(identity.KeycloakConfig{
		BaseURL:       cfg.Keycloak.URL,
		Realm:         cfg.Keycloak.Realm,
		ClientID:      cfg.Keycloak.ClientID,
		ClientSecret:  cfg.Keycloak.ClientSecret,
		AuthType:      cfg.Keycloak.AuthType,
		AdminUsername: cfg.Keycloak.AdminUsername,
		AdminPassword: cfg.Keycloak.AdminPassword,
		AdminRealm:    cfg.Keycloak.AdminRealm,
		Timeout:       cfg.Sync.Timeout,
	}, log)
}
