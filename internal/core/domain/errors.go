package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrLoginExists        = errors.New("login already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrForbiddenRole      = errors.New("role cannot be self-assigned")
	ErrInvalidToken       = errors.New("invalid token")
	ErrRoleMismatch       = errors.New("role mismatch: token role does not match user role")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidAPIKey      = errors.New("invalid internal api key")
	ErrForbidden          = errors.New("insufficient role")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidCredentials, "INVALID_CREDENTIALS"},
	{ErrLoginExists, "LOGIN_EXISTS"},
	{ErrInvalidRole, "INVALID_ROLE"},
	{ErrForbiddenRole, "FORBIDDEN_ROLE"},
	{ErrInvalidToken, "INVALID_TOKEN"},
	{ErrRoleMismatch, "ROLE_MISMATCH"},
	{ErrUserNotFound, "USER_NOT_FOUND"},
	{ErrInvalidInput, "INVALID_INPUT"},
	{ErrInvalidAPIKey, "INVALID_API_KEY"},
	{ErrForbidden, "FORBIDDEN"},
}

// Code returns the stable machine code of the sentinel wrapped by err, or ""
// when err is not a domain error.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
