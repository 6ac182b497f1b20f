package ports

import (
	"context"
	"time"
)

// ProfileUser is the profile shell created in the profile service.
type ProfileUser struct {
	Login     string
	FirstName string
	LastName  string
	BirthDate *time.Time
}

// ProfileService owns non-authentication user data.
type ProfileService interface {
	Enabled() bool
	CreateUser(ctx context.Context, user ProfileUser) error
}
