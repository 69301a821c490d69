package jwks

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/fabiensh/library-api/metrics"
)

const (
	// DefaultTTL is how long a fetched key is served before it is refetched.
	DefaultTTL = time.Hour

	// DefaultTimeout bounds a single JWKS fetch.
	DefaultTimeout = 5 * time.Second

	// maxBodySize limits the JWKS response body. Real key sets are a few KB.
	maxBodySize = 1 << 20
)

var (
	// ErrKeyNotFound is returned when the key set was fetched but holds no
	// key with the requested identifier.
	ErrKeyNotFound = errors.New("no signing key matches the key identifier")

	// ErrKeySourceUnreachable is returned when the key set could not be
	// fetched: transport error, timeout, non-2xx status or unparsable body.
	ErrKeySourceUnreachable = errors.New("signing key source unreachable")

	// ErrUnsupportedKey is returned when the matching key cannot be used to
	// verify signatures (e.g. a symmetric "oct" key).
	ErrUnsupportedKey = errors.New("unsupported signing key")
)

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SigningKey is a public key fetched from the JWKS endpoint.
// It is never mutated once cached.
type SigningKey struct {
	KeyID string
	// Algorithm is the "alg" advertised by the key set, empty when absent.
	Algorithm string
	Key       crypto.PublicKey
	FetchedAt time.Time
}

// Cache fetches signing keys from a JSON Web Key Set endpoint and keeps each
// of them for a fixed TTL counted from its fetch time.
//
// Cache is safe for concurrent use. Concurrent misses for the same key
// identifier share a single outbound request; misses for different key
// identifiers are fetched independently. Failed lookups are never cached.
// WithMinRefreshInterval lets misses within the interval reuse the last
// fetched set, so unknown key identifiers cannot each trigger a request.
type Cache struct {
	jwksURL    string
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time
	logger     Logger
	metrics    metrics.Recorder

	// minRefreshInterval bounds how often misses reach the endpoint.
	minRefreshInterval time.Duration

	mu        sync.RWMutex
	keys      map[string]*SigningKey
	lastSet   jwk.Set
	lastFetch time.Time
	group     singleflight.Group
}

// New builds a Cache. WithJWKSURL is required.
//
// Example:
//
//	cache, err := jwks.New(
//	    jwks.WithJWKSURL("https://tenant.eu.auth0.com/.well-known/jwks.json"),
//	    jwks.WithTTL(time.Hour),
//	)
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		ttl:        DefaultTTL,
		now:        time.Now,
		metrics:    metrics.Noop{},
		keys:       make(map[string]*SigningKey),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if c.jwksURL == "" {
		return nil, errors.New("JWKS URL is required (use WithJWKSURL)")
	}

	if c.minRefreshInterval >= c.ttl {
		return nil, fmt.Errorf("minimum refresh interval %s must be shorter than the TTL %s", c.minRefreshInterval, c.ttl)
	}

	return c, nil
}

// Key returns the signing key identified by kid.
//
// A fresh cached key is returned without any network call. Otherwise the key
// set is fetched, the matching key is cached and returned. The returned error
// wraps ErrKeyNotFound, ErrUnsupportedKey or ErrKeySourceUnreachable.
func (c *Cache) Key(ctx context.Context, kid string) (*SigningKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: empty key identifier", ErrKeyNotFound)
	}

	if key, ok := c.fresh(kid); ok {
		c.metrics.IncCounter("jwks_cache_hits_total", map[string]string{})
		return key, nil
	}
	c.metrics.IncCounter("jwks_cache_misses_total", map[string]string{})

	// The fetch outlives any single caller so that joined callers are not
	// failed by the leader's cancellation; the HTTP client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(kid, func() (any, error) {
		if key, ok := c.fresh(kid); ok {
			return key, nil
		}
		return c.refresh(fetchCtx, kid)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*SigningKey), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrKeySourceUnreachable, ctx.Err())
	}
}

// fresh returns the cached key for kid if it has not outlived the TTL.
func (c *Cache) fresh(kid string) (*SigningKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key, ok := c.keys[kid]
	if !ok || c.now().Sub(key.FetchedAt) >= c.ttl {
		return nil, false
	}
	return key, true
}

// refresh obtains the key set and stores the key matching kid.
func (c *Cache) refresh(ctx context.Context, kid string) (*SigningKey, error) {
	set, fetchedAt, err := c.keySet(ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("JWKS fetch failed",
				"url", c.jwksURL,
				"kid", kid,
				"error", err)
		}
		return nil, err
	}

	jwkKey, found := set.LookupKeyID(kid)
	if !found {
		c.forget(kid)
		if c.logger != nil {
			c.logger.Warn("no signing key matches the key identifier",
				"url", c.jwksURL,
				"kid", kid,
				"keys", set.Len())
		}
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
	}

	key, err := newSigningKey(kid, jwkKey, fetchedAt)
	if err != nil {
		c.forget(kid)
		if c.logger != nil {
			c.logger.Warn("signing key cannot be used", "kid", kid, "error", err)
		}
		return nil, err
	}

	c.mu.Lock()
	c.keys[kid] = key
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("signing key cached", "kid", kid, "alg", key.Algorithm)
	}

	return key, nil
}

// keySet returns the last fetched set while it is younger than the minimum
// refresh interval, and fetches a new one otherwise. Only successful fetches
// are remembered.
func (c *Cache) keySet(ctx context.Context) (jwk.Set, time.Time, error) {
	if c.minRefreshInterval > 0 {
		c.mu.RLock()
		set, fetchedAt := c.lastSet, c.lastFetch
		c.mu.RUnlock()

		if set != nil && c.now().Sub(fetchedAt) < c.minRefreshInterval {
			c.metrics.IncCounter("jwks_fetch_total", map[string]string{"outcome": "reused"})
			return set, fetchedAt, nil
		}
	}

	start := time.Now()
	set, err := c.fetchSet(ctx)
	c.metrics.ObserveHistogram("jwks_fetch_duration_seconds", time.Since(start).Seconds(), map[string]string{})
	if err != nil {
		c.metrics.IncCounter("jwks_fetch_total", map[string]string{"outcome": "error"})
		return nil, time.Time{}, err
	}
	c.metrics.IncCounter("jwks_fetch_total", map[string]string{"outcome": "success"})

	fetchedAt := c.now()
	c.mu.Lock()
	c.lastSet, c.lastFetch = set, fetchedAt
	c.mu.Unlock()

	return set, fetchedAt, nil
}

// forget drops a key that is no longer published.
func (c *Cache) forget(kid string) {
	c.mu.Lock()
	delete(c.keys, kid)
	c.mu.Unlock()
}

// fetchSet performs the outbound GET and parses the key set.
func (c *Cache) fetchSet(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrKeySourceUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrKeySourceUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: request returned status %d", ErrKeySourceUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", ErrKeySourceUnreachable, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrKeySourceUnreachable, maxBodySize)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse JWKS: %w", ErrKeySourceUnreachable, err)
	}

	return set, nil
}

func newSigningKey(kid string, key jwk.Key, fetchedAt time.Time) (*SigningKey, error) {
	switch kty := key.KeyType(); kty {
	case jwa.RSA, jwa.EC, jwa.OKP:
	default:
		return nil, fmt.Errorf("%w: key type %q", ErrUnsupportedKey, kty)
	}

	pub, err := key.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
	}

	var raw any
	if err := pub.Raw(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
	}

	var alg string
	if a := key.Algorithm(); a != nil {
		alg = a.String()
	}

	return &SigningKey{
		KeyID:     kid,
		Algorithm: alg,
		Key:       raw,
		FetchedAt: fetchedAt,
	}, nil
}
