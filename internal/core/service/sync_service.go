package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const defaultSyncTimeout = 5 * time.Second

// ErrSyncSkipped is returned when the job's collaborator is not configured.
var ErrSyncSkipped = errors.New("sync target disabled")

// SyncService delivers sync jobs to the identity provider and the profile
// service. Every call runs under a finite timeout and failures are logged and
// recorded, never propagated to the request that produced the job.
type SyncService struct {
	identity ports.IdentityProvider
	profiles ports.ProfileService
	failures ports.SyncFailureLog
	timeout  time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewSyncService returns a SyncService. failures may be nil.
func NewSyncService(
	identity ports.IdentityProvider,
	profiles ports.ProfileService,
	failures ports.SyncFailureLog,
	timeout time.Duration,
	log zerolog.Logger,
) *SyncService {
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}
	return &SyncService{
		identity: identity,
		profiles: profiles,
		failures: failures,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
	}
}

// Process delivers job. The returned error is informational (metrics); it is
// already logged and recorded.
func (s *SyncService) Process(ctx context.Context, job domain.SyncJob) error {
	err := s.safeDeliver(ctx, job)
	switch {
	case err == nil:
		s.log.Debug().Str("kind", string(job.Kind)).Str("login", job.Login).Msg("sync job delivered")
		return nil
	case errors.Is(err, ErrSyncSkipped):
		s.log.Debug().Str("kind", string(job.Kind)).Str("login", job.Login).Msg("sync job skipped")
		return err
	}

	s.log.Error().
		Err(err).
		Str("kind", string(job.Kind)).
		Str("target", job.Kind.Target()).
		Str("login", job.Login).
		Msg("sync job failed")

	if s.failures != nil {
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if recErr := s.failures.Record(recCtx, job.Failure(err, s.now())); recErr != nil {
			s.log.Warn().Err(recErr).Str("login", job.Login).Msg("failed to record sync failure")
		}
	}
	return err
}

func (s *SyncService) safeDeliver(ctx context.Context, job domain.SyncJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", job.Kind, r)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.deliver(callCtx, job)
}

func (s *SyncService) deliver(ctx context.Context, job domain.SyncJob) error {
	switch job.Kind {
	case domain.SyncCreateIdentity:
		if !s.identity.Enabled() {
			return ErrSyncSkipped
		}
		id, err := s.identity.CreateUser(ctx, ports.IdentityUser{
			Login:     job.Login,
			Password:  job.Password,
			Role:      job.Role,
			FirstName: job.FirstName,
			LastName:  job.LastName,
		})
		if err != nil {
			return fmt.Errorf("create identity: %w", err)
		}
		s.log.Info().Str("login", job.Login).Str("external_id", id).Msg("identity created")
		return nil

	case domain.SyncUpdateIdentity:
		if !s.identity.Enabled() {
			return ErrSyncSkipped
		}
		previous := job.PreviousLogin
		if previous == "" {
			previous = job.Login
		}
		if err := s.identity.UpdateUserProfile(ctx, previous, job.Login, job.FirstName, job.LastName); err != nil {
			return fmt.Errorf("update identity: %w", err)
		}
		return nil

	case domain.SyncDeleteIdentity:
		if !s.identity.Enabled() {
			return ErrSyncSkipped
		}
		if err := s.identity.DeleteUser(ctx, job.Login); err != nil {
			return fmt.Errorf("delete identity: %w", err)
		}
		return nil

	case domain.SyncCreateProfile:
		if !s.profiles.Enabled() {
			return ErrSyncSkipped
		}
		if err := s.profiles.CreateUser(ctx, ports.ProfileUser{
			Login:     job.Login,
			FirstName: job.FirstName,
			LastName:  job.LastName,
		}); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown sync kind %q", job.Kind)
	}
}
