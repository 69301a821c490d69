package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "https://fabien-sh.eu.auth0.com/.well-known/jwks.json", cfg.Auth.JWKSURL())
	assert.Equal(t, "https://fabien-sh.eu.auth0.com/authorize?audience=library-api", cfg.Auth.AuthorizationURL())
	assert.Equal(t, "https://fabien-sh.eu.auth0.com/oauth/token", cfg.Auth.TokenURL())
	assert.Equal(t, time.Hour, cfg.Auth.JWKSTTL)
	assert.Equal(t, 10*time.Second, cfg.Auth.Leeway)
	assert.Equal(t, 5*time.Second, cfg.Auth.JWKSTimeout)
	assert.Equal(t, 5*time.Second, cfg.Auth.JWKSMinRefresh)
	assert.Equal(t, ":8000", cfg.Server.ListenAddr)
}

func TestLoad_Layers(t *testing.T) {
	path := writeFile(t, "config.yaml", `
auth:
  tenant_base_url: https://auth.example.com/
  audience: from-yaml
  issuer: https://auth.example.com/
  algorithm: ES256
  jwks_ttl: 30m
  discovery: true
server:
  listen_addr: ":9000"
log:
  level: debug
  format: json
`)
	envFile := writeFile(t, ".env", "LIBRARY_API_AUDIENCE=from-dotenv\nLIBRARY_API_LEEWAY=5s\n")

	t.Setenv("LIBRARY_API_LISTEN_ADDR", ":9100")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Auth.Audience, ".env overrides the file")
	assert.Equal(t, ":9100", cfg.Server.ListenAddr, "environment overrides the file")
	assert.Equal(t, 5*time.Second, cfg.Auth.Leeway)
	assert.Equal(t, 30*time.Minute, cfg.Auth.JWKSTTL)
	assert.Equal(t, "ES256", cfg.Auth.Algorithm)
	assert.Equal(t, "https://auth.example.com/", cfg.Auth.Issuer)
	assert.True(t, cfg.Auth.Discovery)
	assert.Equal(t, "https://auth.example.com/.well-known/jwks.json", cfg.Auth.JWKSURL())
	assert.Equal(t, "/oauth/token", cfg.Auth.TokenPath, "unset keys keep their default")

	t.Run("environment wins over .env", func(t *testing.T) {
		t.Setenv("LIBRARY_API_AUDIENCE", "from-env")
		cfg, err := Load(path, envFile)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Auth.Audience)
	})
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing config file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing env file is ignored", func(t *testing.T) {
		_, err := Load("", filepath.Join(t.TempDir(), ".env"))
		assert.NoError(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "auth: [\n"), "")
		assert.ErrorContains(t, err, "parsing config file")
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("LIBRARY_API_JWKS_TIMEOUT", "soon")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "LIBRARY_API_JWKS_TIMEOUT")
	})

	t.Run("invalid discovery flag", func(t *testing.T) {
		t.Setenv("LIBRARY_API_DISCOVERY", "maybe")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "LIBRARY_API_DISCOVERY")
	})

	t.Run("symmetric algorithm", func(t *testing.T) {
		t.Setenv("LIBRARY_API_ALGORITHM", "HS256")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "unsupported signature algorithm")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"relative tenant", func(c *Config) { c.Auth.TenantBaseURL = "fabien-sh.eu.auth0.com" }, "tenant_base_url"},
		{"empty audience", func(c *Config) { c.Auth.Audience = "" }, "audience is required"},
		{"relative jwks path", func(c *Config) { c.Auth.JWKSPath = "jwks.json" }, "jwks_path"},
		{"negative leeway", func(c *Config) { c.Auth.Leeway = -time.Second }, "leeway cannot be negative"},
		{"zero ttl", func(c *Config) { c.Auth.JWKSTTL = 0 }, "jwks_ttl must be positive"},
		{"zero timeout", func(c *Config) { c.Auth.JWKSTimeout = 0 }, "jwks_timeout must be positive"},
		{"refresh interval above ttl", func(c *Config) { c.Auth.JWKSMinRefresh = 2 * time.Hour }, "jwks_min_refresh_interval"},
		{"empty listen address", func(c *Config) { c.Server.ListenAddr = "" }, "listen_addr is required"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "not a valid logrus Level"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}

	require.NoError(t, Default().Validate())

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.wantErr)
		})
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	logger := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
