package ports

import "github.com/99minutos/auth-service/internal/core/domain"

// PasswordHasher is a one-way adaptive hash with an embedded random salt.
// Digests are only ever compared through Verify.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenVerifier checks signed tokens. Subject and Claim are only meaningful
// after Validate returned true.
type TokenVerifier interface {
	Validate(token string) bool
	Subject(token string) (string, error)
	Claim(token, name string) (string, error)
}

// TokenIssuer mints and verifies access and refresh tokens.
type TokenIssuer interface {
	TokenVerifier
	IssueAccess(login string, role domain.Role) (string, error)
	IssueRefresh(login string, role domain.Role) (string, error)
	// AccessTTLSeconds is reported to clients as expires_in.
	AccessTTLSeconds() int64
}
