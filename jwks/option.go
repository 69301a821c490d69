package jwks

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fabiensh/library-api/metrics"
)

// Option is how options for the Cache are set up.
type Option func(*Cache) error

// WithJWKSURL sets the absolute URL of the JSON Web Key Set.
// This is a required option.
func WithJWKSURL(jwksURL string) Option {
	return func(c *Cache) error {
		u, err := url.Parse(jwksURL)
		if err != nil {
			return fmt.Errorf("invalid JWKS URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("JWKS URL must be absolute http(s), got %q", jwksURL)
		}
		if u.Host == "" {
			return fmt.Errorf("JWKS URL has no host: %q", jwksURL)
		}
		c.jwksURL = u.String()
		return nil
	}
}

// WithTTL sets how long a key is served after it was fetched.
// Zero selects DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		if ttl < 0 {
			return fmt.Errorf("cache TTL cannot be negative")
		}
		if ttl == 0 {
			ttl = DefaultTTL
		}
		c.ttl = ttl
		return nil
	}
}

// WithMinRefreshInterval makes cache misses reuse the last successfully
// fetched key set until it is older than interval. Keys taken from a reused
// set keep that set's fetch time, so the TTL still counts from the fetch.
// Zero, the default, fetches on every miss.
func WithMinRefreshInterval(interval time.Duration) Option {
	return func(c *Cache) error {
		if interval < 0 {
			return fmt.Errorf("minimum refresh interval cannot be negative")
		}
		c.minRefreshInterval = interval
		return nil
	}
}

// WithHTTPClient sets the client used to fetch the key set. The client's
// Timeout bounds every fetch; the default client uses DefaultTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) error {
		if client == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithTimeout sets the fetch timeout on a client owned by the Cache.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Cache) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		c.httpClient = &http.Client{Timeout: timeout}
		return nil
	}
}

// WithClock sets the time source used for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger Logger) Option {
	return func(c *Cache) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the recorder for cache hits, misses and fetches.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Cache) error {
		if recorder == nil {
			return fmt.Errorf("metrics recorder cannot be nil")
		}
		c.metrics = recorder
		return nil
	}
}
