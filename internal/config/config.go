// Package config loads the process configuration of the Library API.
//
// Values are resolved in priority order (highest wins):
//
//	built-in defaults
//	YAML file
//	.env file
//	LIBRARY_API_* environment variables
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/fabiensh/library-api/validator"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LIBRARY_API_"

const (
	defaultTenantBaseURL     = "https://fabien-sh.eu.auth0.com"
	defaultAudience          = "library-api"
	defaultJWKSPath          = "/.well-known/jwks.json"
	defaultAuthorizationPath = "/authorize"
	defaultTokenPath         = "/oauth/token"
	defaultJWKSTTL           = time.Hour
	defaultJWKSTimeout       = 5 * time.Second
	defaultJWKSMinRefresh    = 5 * time.Second
	defaultLeeway            = 10 * time.Second
	defaultListenAddr        = ":8000"
	defaultShutdownTimeout   = 10 * time.Second
	defaultLogLevel          = "info"
	defaultLogFormat         = "text"
)

// Config is the process configuration.
type Config struct {
	Auth   AuthConfig   `yaml:"auth"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// AuthConfig describes the authorization server and how tokens are checked.
type AuthConfig struct {
	TenantBaseURL     string        `yaml:"tenant_base_url"`
	Audience          string        `yaml:"audience"`
	Issuer            string        `yaml:"issuer"`
	JWKSPath          string        `yaml:"jwks_path"`
	AuthorizationPath string        `yaml:"authorization_path"`
	TokenPath         string        `yaml:"token_path"`
	ClientID          string        `yaml:"client_id"`
	Discovery         bool          `yaml:"discovery"`
	Algorithm         string        `yaml:"algorithm"`
	Leeway            time.Duration `yaml:"leeway"`
	JWKSTTL           time.Duration `yaml:"jwks_ttl"`
	JWKSTimeout       time.Duration `yaml:"jwks_timeout"`
	JWKSMinRefresh    time.Duration `yaml:"jwks_min_refresh_interval"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Auth: AuthConfig{
			TenantBaseURL:     defaultTenantBaseURL,
			Audience:          defaultAudience,
			JWKSPath:          defaultJWKSPath,
			AuthorizationPath: defaultAuthorizationPath,
			TokenPath:         defaultTokenPath,
			Algorithm:         string(validator.RS256),
			Leeway:            defaultLeeway,
			JWKSTTL:           defaultJWKSTTL,
			JWKSTimeout:       defaultJWKSTimeout,
			JWKSMinRefresh:    defaultJWKSMinRefresh,
		},
		Server: ServerConfig{
			ListenAddr:      defaultListenAddr,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// Load builds the configuration from the defaults, the YAML file at path and
// the .env file at envFile, then applies LIBRARY_API_* variables. Empty paths
// are skipped. A missing .env file is not an error; a missing YAML file is.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		var err error
		dotenv, err = godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("reading env file: %w", err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	texts := map[string]*string{
		"TENANT_BASE_URL":    &c.Auth.TenantBaseURL,
		"AUDIENCE":           &c.Auth.Audience,
		"ISSUER":             &c.Auth.Issuer,
		"JWKS_PATH":          &c.Auth.JWKSPath,
		"AUTHORIZATION_PATH": &c.Auth.AuthorizationPath,
		"TOKEN_PATH":         &c.Auth.TokenPath,
		"CLIENT_ID":          &c.Auth.ClientID,
		"ALGORITHM":          &c.Auth.Algorithm,
		"LISTEN_ADDR":        &c.Server.ListenAddr,
		"LOG_LEVEL":          &c.Log.Level,
		"LOG_FORMAT":         &c.Log.Format,
	}
	for name, field := range texts {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = v
		}
	}

	if v, ok := lookup(EnvPrefix + "DISCOVERY"); ok {
		discovery, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDISCOVERY: %w", EnvPrefix, err)
		}
		c.Auth.Discovery = discovery
	}

	durations := map[string]*time.Duration{
		"LEEWAY":                    &c.Auth.Leeway,
		"JWKS_TTL":                  &c.Auth.JWKSTTL,
		"JWKS_TIMEOUT":              &c.Auth.JWKSTimeout,
		"JWKS_MIN_REFRESH_INTERVAL": &c.Auth.JWKSMinRefresh,
		"SHUTDOWN_TIMEOUT":          &c.Server.ShutdownTimeout,
	}
	for name, field := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*field = d
	}

	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.Auth.TenantBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("tenant_base_url %q must be an absolute http(s) URL", c.Auth.TenantBaseURL)
	}
	if c.Auth.Audience == "" {
		return errors.New("audience is required")
	}
	if !strings.HasPrefix(c.Auth.JWKSPath, "/") {
		return fmt.Errorf("jwks_path %q must start with /", c.Auth.JWKSPath)
	}
	if _, err := validator.ParseAlgorithm(c.Auth.Algorithm); err != nil {
		return err
	}
	if c.Auth.Leeway < 0 {
		return errors.New("leeway cannot be negative")
	}
	if c.Auth.JWKSTTL <= 0 {
		return errors.New("jwks_ttl must be positive")
	}
	if c.Auth.JWKSTimeout <= 0 {
		return errors.New("jwks_timeout must be positive")
	}
	if c.Auth.JWKSMinRefresh < 0 || c.Auth.JWKSMinRefresh >= c.Auth.JWKSTTL {
		return errors.New("jwks_min_refresh_interval must be between zero and jwks_ttl")
	}
	if c.Server.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log format %q must be text or json", c.Log.Format)
	}
	return nil
}

// JWKSURL is the tenant's JSON Web Key Set URL. With Discovery the server
// uses the jwks_uri published by the provider instead.
func (a AuthConfig) JWKSURL() string {
	return strings.TrimSuffix(a.TenantBaseURL, "/") + a.JWKSPath
}

// AuthorizationURL is the OAuth authorization endpoint, scoped to the
// audience.
func (a AuthConfig) AuthorizationURL() string {
	return strings.TrimSuffix(a.TenantBaseURL, "/") + a.AuthorizationPath + "?audience=" + url.QueryEscape(a.Audience)
}

// TokenURL is the OAuth token endpoint.
func (a AuthConfig) TokenURL() string {
	return strings.TrimSuffix(a.TenantBaseURL, "/") + a.TokenPath
}

// NewLogger builds the logrus logger described by c.
func (c LogConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.Level); err == nil {
		logger.SetLevel(level)
	}
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
