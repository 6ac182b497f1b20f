package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// CredentialStore defines the persistence contract for credential records.
// Login uniqueness is enforced by the store: Save returns domain.ErrLoginExists
// when a create or rename collides with another record.
type CredentialStore interface {
	// FindByLogin returns domain.ErrUserNotFound when no record matches.
	FindByLogin(ctx context.Context, login string) (*domain.User, error)
	ExistsByLogin(ctx context.Context, login string) (bool, error)
	// Save inserts the record when ID is empty, otherwise replaces it.
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, user *domain.User) error
}
