package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/infrastructure/security"
)

func newBootstrapper(repo *stubCredentialStore, idp *stubIdentityProvider) *AdminBootstrapper {
	return NewAdminBootstrapper(repo, security.NewBcryptHasher(bcrypt.MinCost), idp, time.Second, zerolog.Nop())
}

func TestAdminBootstrapper_CreatesAdmin(t *testing.T) {
	repo := newStubCredentialStore()
	idp := &stubIdentityProvider{enabled: true}
	b := newBootstrapper(repo, idp)

	if err := b.Run(context.Background(), ports.AdminSeed{Login: "Admin@Example.com", Password: "s3cret"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	stored, err := repo.FindByLogin(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("expected admin record: %v", err)
	}
	if stored.Role != domain.RoleAdmin {
		t.Fatalf("expected ROLE_ADMIN, got %s", stored.Role)
	}
	if len(idp.created) != 1 || idp.created[0].Role != domain.RoleAdmin {
		t.Fatalf("expected admin mirrored to identity provider, got %+v", idp.created)
	}

	// Idempotent on restart.
	if err := b.Run(context.Background(), ports.AdminSeed{Login: "admin@example.com", Password: "s3cret"}); err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if repo.count() != 1 {
		t.Fatalf("expected one record, got %d", repo.count())
	}
}

func TestAdminBootstrapper_NoSeed(t *testing.T) {
	repo := newStubCredentialStore()
	b := newBootstrapper(repo, &stubIdentityProvider{enabled: true})

	if err := b.Run(context.Background(), ports.AdminSeed{}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if err := b.Run(context.Background(), ports.AdminSeed{Login: "root"}); err != nil {
		t.Fatalf("Run without password returned error: %v", err)
	}
	if repo.count() != 0 {
		t.Fatalf("no record expected without a password")
	}
}

func TestAdminBootstrapper_IdentityProviderErrorsAreIgnored(t *testing.T) {
	repo := newStubCredentialStore()
	idp := &stubIdentityProvider{enabled: true, existsErr: errors.New("timeout")}
	b := newBootstrapper(repo, idp)

	if err := b.Run(context.Background(), ports.AdminSeed{Login: "root", Password: "pw"}); err != nil {
		t.Fatalf("identity provider failure must not fail bootstrap: %v", err)
	}
	if repo.count() != 1 {
		t.Fatalf("expected local admin despite IdP failure")
	}
}

func TestAdminBootstrapper_StoreErrorSurfaces(t *testing.T) {
	repo := newStubCredentialStore()
	repo.err = errors.New("mongo down")
	b := newBootstrapper(repo, &stubIdentityProvider{})

	if err := b.Run(context.Background(), ports.AdminSeed{Login: "root", Password: "pw"}); err == nil {
		t.Fatalf("expected store error")
	}
}
