package domain

import (
	"strings"
	"time"
)

// Role is the closed set of privilege levels a credential can carry.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

const rolePrefix = "ROLE_"

// ParseRole accepts the bare ("USER") and prefixed ("ROLE_USER") spellings,
// case-insensitively, and returns the canonical prefixed form.
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return "", ErrInvalidRole
	}
	if !strings.HasPrefix(name, rolePrefix) {
		name = rolePrefix + name
	}
	switch r := Role(name); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) String() string { return string(r) }

// User is the credential record owned by the auth service.
type User struct {
	ID           string    `json:"id"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeLogin trims surrounding whitespace and lowercases the login.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
