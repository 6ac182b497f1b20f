package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8081"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// InternalAPIKey guards the service-to-service endpoints. When empty,
	// every internal call is rejected.
	InternalAPIKey string `env:"INTERNAL_API_KEY"`

	JWT       JWTConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	Profile   ProfileConfig
	Sync      SyncConfig
	Bootstrap BootstrapConfig
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET, required"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL,  default=15m"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL, default=168h"`
	Issuer     string        `env:"JWT_ISSUER"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,  default=auth_service"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE, default=0"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=0"`
}

type KeycloakConfig struct {
	Enabled       bool   `env:"KEYCLOAK_ENABLED, default=false"`
	URL           string `env:"KEYCLOAK_URL"`
	Realm         string `env:"KEYCLOAK_REALM"`
	ClientID      string `env:"KEYCLOAK_CLIENT_ID"`
	ClientSecret  string `env:"KEYCLOAK_CLIENT_SECRET"`
	AuthType      string `env:"KEYCLOAK_AUTH_TYPE, default=client"`
	AdminUsername string `env:"KEYCLOAK_ADMIN_USERNAME"`
	AdminPassword string `env:"KEYCLOAK_ADMIN_PASSWORD"`
	AdminRealm    string `env:"KEYCLOAK_ADMIN_REALM, default=master"`
	// PropagateDelete mirrors local deletions into the IdP.
	PropagateDelete bool `env:"IDP_PROPAGATE_DELETE, default=false"`
}

type ProfileConfig struct {
	URL    string `env:"PROFILE_SERVICE_URL"`
	APIKey string `env:"PROFILE_SERVICE_API_KEY"`
}

type SyncConfig struct {
	Workers int           `env:"SYNC_WORKERS, default=4"`
	Buffer  int           `env:"SYNC_BUFFER,  default=256"`
	Timeout time.Duration `env:"SYNC_TIMEOUT, default=5s"`
}

type BootstrapConfig struct {
	Login     string `env:"BOOTSTRAP_ADMIN_LOGIN"`
	Password  string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	FirstName string `env:"BOOTSTRAP_ADMIN_FIRST_NAME, default=Admin"`
	LastName  string `env:"BOOTSTRAP_ADMIN_LAST_NAME,  default=User"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) validate() error {
	var errs []error
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must not be shorter than JWT_ACCESS_TTL"))
	}
	if c.Keycloak.Enabled && (c.Keycloak.URL == "" || c.Keycloak.Realm == "") {
		errs = append(errs, errors.New("KEYCLOAK_URL and KEYCLOAK_REALM are required when KEYCLOAK_ENABLED=true"))
	}
	if c.Sync.Timeout <= 0 {
		errs = append(errs, errors.New("SYNC_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
