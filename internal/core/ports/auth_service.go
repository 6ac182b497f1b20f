package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RegisterInput carries the public registration request.
type RegisterInput struct {
	Login     string
	Password  string
	Role      string
	FirstName string
	LastName  string
}

// UpdateProfileInput is sent by the profile service when a user edits their profile.
type UpdateProfileInput struct {
	CurrentLogin string
	NewLogin     string
	FirstName    string
	LastName     string
}

// AdminSeed describes the out-of-band administrator provisioned at startup.
type AdminSeed struct {
	Login     string
	Password  string
	FirstName string
	LastName  string
}

type AuthService interface {
	Login(ctx context.Context, login, password string) (*domain.TokenPair, error)
	Register(ctx context.Context, in RegisterInput) (*domain.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ValidateToken(ctx context.Context, token string) domain.ValidationResult
	Logout(ctx context.Context, accessToken, refreshToken string) error
	UpdateUserProfile(ctx context.Context, in UpdateProfileInput) error
	DeleteUserByIdentity(ctx context.Context, login string) error
	ChangeRole(ctx context.Context, login, role string) error
}
