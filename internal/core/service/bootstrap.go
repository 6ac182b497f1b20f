package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// AdminBootstrapper provisions the seed administrator at startup and mirrors
// it into the identity provider when one is configured.
type AdminBootstrapper struct {
	repo     ports.CredentialStore
	hasher   ports.PasswordHasher
	identity ports.IdentityProvider
	timeout  time.Duration
	log      zerolog.Logger
}

func NewAdminBootstrapper(
	repo ports.CredentialStore,
	hasher ports.PasswordHasher,
	identity ports.IdentityProvider,
	timeout time.Duration,
	log zerolog.Logger,
) *AdminBootstrapper {
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}
	return &AdminBootstrapper{repo: repo, hasher: hasher, identity: identity, timeout: timeout, log: log}
}

// Run returns an error only when the credential store fails. Identity
// provider problems are logged and ignored.
func (b *AdminBootstrapper) Run(ctx context.Context, seed ports.AdminSeed) error {
	login := domain.NormalizeLogin(seed.Login)
	if login == "" {
		return nil
	}

	_, err := b.repo.FindByLogin(ctx, login)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		if seed.Password == "" {
			b.log.Warn().Str("login", login).Msg("admin user not found and no bootstrap password configured")
			return nil
		}
		if err := b.createLocal(ctx, login, seed); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	default:
		b.log.Info().Str("login", login).Msg("admin user present")
	}

	b.mirror(ctx, login, seed)
	return nil
}

func (b *AdminBootstrapper) createLocal(ctx context.Context, login string, seed ports.AdminSeed) error {
	hash, err := b.hasher.Hash(seed.Password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	now := time.Now().UTC()
	_, err = b.repo.Save(ctx, &domain.User{
		Login:        login,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		FirstName:    seed.FirstName,
		LastName:     seed.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil && !errors.Is(err, domain.ErrLoginExists) {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	b.log.Info().Str("login", login).Msg("admin user created")
	return nil
}

func (b *AdminBootstrapper) mirror(ctx context.Context, login string, seed ports.AdminSeed) {
	if !b.identity.Enabled() {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	exists, err := b.identity.UserExists(callCtx, login)
	if err != nil {
		b.log.Error().Err(err).Str("login", login).Msg("failed to look up admin in identity provider")
		return
	}
	if exists {
		b.log.Info().Str("login", login).Msg("admin already present in identity provider")
		return
	}
	if seed.Password == "" {
		b.log.Warn().Str("login", login).Msg("cannot mirror admin without bootstrap password")
		return
	}

	if _, err := b.identity.CreateUser(callCtx, ports.IdentityUser{
		Login:     login,
		Password:  seed.Password,
		Role:      domain.RoleAdmin,
		FirstName: seed.FirstName,
		LastName:  seed.LastName,
	}); err != nil {
		b.log.Error().Err(err).Str("login", login).Msg("failed to create admin in identity provider")
		return
	}
	b.log.Info().Str("login", login).Msg("admin created in identity provider")
}
