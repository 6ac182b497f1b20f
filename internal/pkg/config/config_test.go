package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}

	if cfg.Port != "8081" {
		t.Errorf("unexpected port: %q", cfg.Port)
	}
	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Errorf("unexpected token lifetimes: %v / %v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.Keycloak.Enabled || cfg.Keycloak.PropagateDelete {
		t.Errorf("keycloak must be disabled by default")
	}
	if cfg.Sync.Timeout != 5*time.Second || cfg.Sync.Workers != 4 {
		t.Errorf("unexpected sync defaults: %+v", cfg.Sync)
	}
	if cfg.InternalAPIKey != "" {
		t.Errorf("internal api key must default to empty")
	}
}

func TestLoadFrom_RequiresSecret(t *testing.T) {
	if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":           "s3cret",
		"JWT_ACCESS_TTL":       "5m",
		"JWT_REFRESH_TTL":      "24h",
		"KEYCLOAK_ENABLED":     "true",
		"KEYCLOAK_URL":         "http://keycloak:8080",
		"KEYCLOAK_REALM":       "innowise",
		"KEYCLOAK_AUTH_TYPE":   "admin",
		"IDP_PROPAGATE_DELETE": "true",
		"ENV":                  "Production",
	}))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.JWT.AccessTTL != 5*time.Minute || cfg.JWT.RefreshTTL != 24*time.Hour {
		t.Errorf("unexpected lifetimes: %+v", cfg.JWT)
	}
	if !cfg.Keycloak.Enabled || cfg.Keycloak.AuthType != "admin" || !cfg.Keycloak.PropagateDelete {
		t.Errorf("unexpected keycloak config: %+v", cfg.Keycloak)
	}
	if !cfg.IsProduction() {
		t.Errorf("expected production env")
	}
}

func TestLoadFrom_Validation(t *testing.T) {
	cases := []map[string]string{
		{"JWT_SECRET": "s", "JWT_ACCESS_TTL": "2h", "JWT_REFRESH_TTL": "1h"},
		{"JWT_SECRET": "s", "KEYCLOAK_ENABLED": "true"},
		{"JWT_SECRET": "s", "SYNC_TIMEOUT": "0s"},
	}
	for _, env := range cases {
		if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(env)); err == nil {
			t.Fatalf("expected validation error for %v", env)
		}
	}
}
