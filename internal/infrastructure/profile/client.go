package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/99minutos/auth-service/internal/core/ports"
)

const (
	// APIKeyHeader carries the shared secret for service-to-service calls.
	APIKeyHeader = "X-Internal-Api-Key"

	syncPath        = "/api/v1/users/sync"
	defaultTimeout  = 5 * time.Second
	placeholderName = "Unknown"
	defaultAgeYears = 18
)

// Config points the client at the profile service.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client creates profile shells in the profile service.
type Client struct {
	http *resty.Client
	now  func() time.Time
}

type syncRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate"`
}

// New returns a profile client, or a disabled one when the URL or key is unset.
func New(cfg Config) ports.ProfileService {
	if strings.TrimSpace(cfg.BaseURL) == "" || cfg.APIKey == "" {
		return Disabled{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader(APIKeyHeader, cfg.APIKey).
			SetHeader("Content-Type", "application/json"),
		now: time.Now,
	}
}

func (c *Client) Enabled() bool { return true }

// CreateUser posts the profile shell. Missing names are sent as a placeholder
// and a missing birth date defaults to 18 years ago; the user fills both in later.
func (c *Client) CreateUser(ctx context.Context, user ports.ProfileUser) error {
	birth := c.now().AddDate(-defaultAgeYears, 0, 0)
	if user.BirthDate != nil {
		birth = *user.BirthDate
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(syncRequest{
			Email:     user.Login,
			FirstName: orPlaceholder(user.FirstName),
			LastName:  orPlaceholder(user.LastName),
			BirthDate: birth.Format(time.DateOnly),
		}).
		Post(syncPath)
	if err != nil {
		return fmt.Errorf("profile sync: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("profile sync: unexpected status %d", resp.StatusCode())
	}
	return nil
}

func orPlaceholder(name string) string {
	if strings.TrimSpace(name) == "" {
		return placeholderName
	}
	return name
}

// Disabled is wired when the profile service is not configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreateUser(context.Context, ports.ProfileUser) error { return nil }
