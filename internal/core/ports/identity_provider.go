package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// IdentityUser is the account mirrored into the identity provider.
type IdentityUser struct {
	Login     string
	Password  string
	Role      domain.Role
	FirstName string
	LastName  string
}

// IdentityProvider mirrors the user lifecycle into an external IdP. A
// deployment without an IdP wires a disabled implementation whose Enabled
// returns false and whose calls are no-ops.
type IdentityProvider interface {
	Enabled() bool
	CreateUser(ctx context.Context, user IdentityUser) (string, error)
	UpdateUserProfile(ctx context.Context, oldLogin, newLogin, firstName, lastName string) error
	DeleteUser(ctx context.Context, login string) error
	UserExists(ctx context.Context, login string) (bool, error)
}
