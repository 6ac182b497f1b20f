package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenConfig is built once at startup and never mutated afterwards.
type TokenConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Issuer is written to and required on tokens when non-empty.
	Issuer string
}

// JWTIssuer signs HS256 tokens carrying the login as subject and the role claim.
type JWTIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTIssuer validates cfg and applies default lifetimes.
func NewJWTIssuer(cfg TokenConfig) (*JWTIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt issuer: signing secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	return &JWTIssuer{cfg: cfg, now: time.Now}, nil
}

func (i *JWTIssuer) IssueAccess(login string, role domain.Role) (string, error) {
	return i.issue(login, role, i.cfg.AccessTTL)
}

func (i *JWTIssuer) IssueRefresh(login string, role domain.Role) (string, error) {
	return i.issue(login, role, i.cfg.RefreshTTL)
}

func (i *JWTIssuer) AccessTTLSeconds() int64 {
	return int64(i.cfg.AccessTTL / time.Second)
}

func (i *JWTIssuer) issue(login string, role domain.Role, ttl time.Duration) (string, error) {
	now := i.now()
	claims := tokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			Subject:   login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate reports whether token is well formed, signed with the process
// secret and not expired. It never panics.
func (i *JWTIssuer) Validate(token string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_, err := i.parse(token, &tokenClaims{})
	return err == nil
}

func (i *JWTIssuer) Subject(token string) (string, error) {
	claims := &tokenClaims{}
	if _, err := i.parse(token, claims); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (i *JWTIssuer) Claim(token, name string) (string, error) {
	claims := jwt.MapClaims{}
	if _, err := i.parse(token, claims); err != nil {
		return "", err
	}
	v, ok := claims[name].(string)
	if !ok {
		return "", fmt.Errorf("claim %q: %w", name, domain.ErrInvalidToken)
	}
	return v, nil
}

func (i *JWTIssuer) parse(token string, claims jwt.Claims) (*jwt.Token, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}

	tkn, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}
	return tkn, nil
}
