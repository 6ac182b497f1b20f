package identity

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/ports"
)

// Disabled is wired when no identity provider is configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreateUser(context.Context, ports.IdentityUser) (string, error) { return "", nil }

func (Disabled) UpdateUserProfile(context.Context, string, string, string, string) error { return nil }

func (Disabled) DeleteUser(context.Context, string) error { return nil }

func (Disabled) UserExists(context.Context, string) (bool, error) { return false, nil }
