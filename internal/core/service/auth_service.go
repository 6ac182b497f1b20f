package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// AuthService implements the credential and token lifecycle. It holds no
// session state; every decision is re-derived from the token and the store.
type AuthService struct {
	repo            ports.CredentialStore
	hasher          ports.PasswordHasher
	tokens          ports.TokenIssuer
	sync            ports.SyncDispatcher
	log             zerolog.Logger
	propagateDelete bool
	now             func() time.Time
}

// Option customises an AuthService.
type Option func(*AuthService)

// WithDeletePropagation makes DeleteUserByIdentity also remove the user from
// the identity provider.
func WithDeletePropagation(enabled bool) Option {
	return func(s *AuthService) { s.propagateDelete = enabled }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(
	repo ports.CredentialStore,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	sync ports.SyncDispatcher,
	log zerolog.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		sync:   sync,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the password and issues a token pair from the stored role.
// Unknown logins and wrong passwords yield the same error.
func (s *AuthService) Login(ctx context.Context, login, password string) (*domain.TokenPair, error) {
	normalized := domain.NormalizeLogin(login)
	if normalized == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByLogin(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issuePair(user.Login, user.Role)
}

// Register creates a credential record and authenticates the caller. The
// identity provider and the profile service are notified best-effort.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.TokenPair, error) {
	login := domain.NormalizeLogin(in.Login)
	if login == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	exists, err := s.repo.ExistsByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, domain.ErrLoginExists
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	// Administrators are provisioned out-of-band only.
	if role == domain.RoleAdmin {
		return nil, domain.ErrForbiddenRole
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Save(ctx, &domain.User{
		Login:        login,
		PasswordHash: hash,
		Role:         role,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrLoginExists) {
			return nil, domain.ErrLoginExists
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	s.log.Info().Str("login", created.Login).Str("role", created.Role.String()).Msg("user registered")

	s.dispatch(domain.SyncJob{
		Kind:      domain.SyncCreateIdentity,
		Login:     created.Login,
		Password:  in.Password,
		Role:      created.Role,
		FirstName: created.FirstName,
		LastName:  created.LastName,
	})
	s.dispatch(domain.SyncJob{
		Kind:      domain.SyncCreateProfile,
		Login:     created.Login,
		FirstName: created.FirstName,
		LastName:  created.LastName,
	})

	return s.issuePair(created.Login, created.Role)
}

// RefreshToken exchanges a valid refresh token for a new pair. The role
// embedded in the token must still match the stored role; the new pair is
// issued from the stored role.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if !s.tokens.Validate(refreshToken) {
		return nil, domain.ErrInvalidToken
	}

	login, err := s.tokens.Subject(refreshToken)
	if err != nil || login == "" {
		return nil, domain.ErrInvalidToken
	}
	claim, err := s.tokens.Claim(refreshToken, domain.RoleClaim)
	if err != nil {
		return nil, domain.ErrInvalidRole
	}
	tokenRole, err := domain.ParseRole(claim)
	if err != nil {
		return nil, domain.ErrInvalidRole
	}

	user, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	if user.Role != tokenRole {
		s.log.Warn().
			Str("login", user.Login).
			Str("token_role", tokenRole.String()).
			Str("stored_role", user.Role.String()).
			Msg("refresh rejected: role changed since issuance")
		return nil, domain.ErrRoleMismatch
	}

	return s.issuePair(user.Login, user.Role)
}

// ValidateToken is the trust oracle consumed by other services. It never
// returns an error and never panics; any failure reports Valid=false.
func (s *AuthService) ValidateToken(_ context.Context, token string) (res domain.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn().Interface("panic", r).Msg("token validation panicked")
			res = domain.ValidationResult{}
		}
	}()

	if !s.tokens.Validate(token) {
		return domain.ValidationResult{}
	}
	login, err := s.tokens.Subject(token)
	if err != nil {
		return domain.ValidationResult{}
	}
	role, err := s.tokens.Claim(token, domain.RoleClaim)
	if err != nil {
		return domain.ValidationResult{}
	}
	return domain.ValidationResult{Valid: true, Login: login, Role: role}
}

// Logout only checks both tokens; there is no server-side state to clear.
func (s *AuthService) Logout(_ context.Context, accessToken, refreshToken string) error {
	if !s.tokens.Validate(accessToken) {
		return fmt.Errorf("access token: %w", domain.ErrInvalidToken)
	}
	if !s.tokens.Validate(refreshToken) {
		return fmt.Errorf("refresh token: %w", domain.ErrInvalidToken)
	}
	return nil
}

// UpdateUserProfile applies a profile change pushed by the profile service.
// A record missing locally is logged and treated as success.
func (s *AuthService) UpdateUserProfile(ctx context.Context, in ports.UpdateProfileInput) error {
	requested := strings.TrimSpace(in.CurrentLogin)
	if requested == "" {
		return domain.ErrInvalidInput
	}

	user, err := s.findTolerant(ctx, requested)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn().Str("login", requested).Msg("skip profile sync: user not found")
			return nil
		}
		return fmt.Errorf("update profile: %w", err)
	}

	previous := user.Login
	newLogin := domain.NormalizeLogin(in.NewLogin)
	if newLogin == "" {
		newLogin = previous
	}

	if !strings.EqualFold(previous, newLogin) {
		taken, err := s.repo.ExistsByLogin(ctx, newLogin)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if taken {
			return domain.ErrLoginExists
		}
	}

	user.Login = newLogin
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.UpdatedAt = s.now().UTC()

	if _, err := s.repo.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrLoginExists) {
			return domain.ErrLoginExists
		}
		return fmt.Errorf("update profile: %w", err)
	}
	s.log.Info().Str("login", newLogin).Str("previous_login", previous).Msg("user profile updated")

	s.dispatch(domain.SyncJob{
		Kind:          domain.SyncUpdateIdentity,
		Login:         newLogin,
		PreviousLogin: previous,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
	})
	return nil
}

// DeleteUserByIdentity removes the local record. The identity provider is
// only touched when delete propagation is enabled.
func (s *AuthService) DeleteUserByIdentity(ctx context.Context, login string) error {
	normalized := domain.NormalizeLogin(login)
	if normalized == "" {
		return domain.ErrInvalidInput
	}

	user, err := s.repo.FindByLogin(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.repo.Delete(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info().Str("login", user.Login).Bool("propagate", s.propagateDelete).Msg("user deleted")

	if s.propagateDelete {
		s.dispatch(domain.SyncJob{Kind: domain.SyncDeleteIdentity, Login: user.Login})
	}
	return nil
}

// ChangeRole is the administrative path for promoting or demoting a user.
// Outstanding refresh tokens stop working because their role no longer matches.
func (s *AuthService) ChangeRole(ctx context.Context, login, role string) error {
	newRole, err := domain.ParseRole(role)
	if err != nil {
		return err
	}

	user, err := s.repo.FindByLogin(ctx, domain.NormalizeLogin(login))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("change role: %w", err)
	}
	if user.Role == newRole {
		return nil
	}

	previous := user.Role
	user.Role = newRole
	user.UpdatedAt = s.now().UTC()
	if _, err := s.repo.Save(ctx, user); err != nil {
		return fmt.Errorf("change role: %w", err)
	}
	s.log.Info().
		Str("login", user.Login).
		Str("previous_role", previous.String()).
		Str("role", newRole.String()).
		Msg("user role changed")
	return nil
}

// findTolerant looks the login up as given and then in normalized form.
func (s *AuthService) findTolerant(ctx context.Context, requested string) (*domain.User, error) {
	user, err := s.repo.FindByLogin(ctx, requested)
	if err == nil {
		return user, nil
	}
	normalized := domain.NormalizeLogin(requested)
	if !errors.Is(err, domain.ErrUserNotFound) || normalized == requested {
		return nil, err
	}
	return s.repo.FindByLogin(ctx, normalized)
}

func (s *AuthService) issuePair(login string, role domain.Role) (*domain.TokenPair, error) {
	access, err := s.tokens.IssueAccess(login, role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(login, role)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.tokens.AccessTTLSeconds(),
	}, nil
}

// dispatch hands job to the sync pipeline and swallows every failure; the
// local record is authoritative and external mirrors catch up later.
func (s *AuthService) dispatch(job domain.SyncJob) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("kind", string(job.Kind)).Str("login", job.Login).Msg("sync dispatch panicked")
		}
	}()

	job.EnqueuedAt = s.now().UTC()
	if !s.sync.Enqueue(job) {
		s.log.Warn().Str("kind", string(job.Kind)).Str("login", job.Login).Msg("sync job dropped")
	}
}
