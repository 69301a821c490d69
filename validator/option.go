package validator

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	// ErrKeySourceRequired is returned when New is called without WithKeySource.
	ErrKeySourceRequired = errors.New("key source is required (use WithKeySource)")

	// ErrAudienceRequired is returned when New is called without WithAudience.
	ErrAudienceRequired = errors.New("audience is required (use WithAudience)")

	// ErrUnsupportedAlgorithm is returned for unknown and symmetric algorithms.
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithKeySource sets where signing keys are looked up by key identifier.
// This is a required option.
func WithKeySource(source KeySource) Option {
	return func(v *Validator) error {
		if source == nil {
			return errors.New("key source cannot be nil")
		}
		v.keySource = source
		return nil
	}
}

// WithAlgorithm pins the signature algorithm tokens must be signed with.
// Defaults to RS256. HMAC algorithms are rejected: a verifier holding only
// public keys must never accept a shared-secret signature.
func WithAlgorithm(algorithm SignatureAlgorithm) Option {
	return func(v *Validator) error {
		alg, err := ParseAlgorithm(string(algorithm))
		if err != nil {
			return err
		}
		v.signatureAlgorithm = alg
		return nil
	}
}

// ParseAlgorithm returns the SignatureAlgorithm named s, e.g. "RS256".
func ParseAlgorithm(s string) (SignatureAlgorithm, error) {
	algorithm := SignatureAlgorithm(s)
	if _, ok := allowedSigningAlgorithms[algorithm]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
	return algorithm, nil
}

// WithAudience sets the audience (aud) tokens must have been issued for.
// This is a required option.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.audience = audience
		return nil
	}
}

// WithIssuer additionally requires the iss claim to equal issuerURL.
func WithIssuer(issuerURL string) Option {
	return func(v *Validator) error {
		if issuerURL == "" {
			return errors.New("issuer cannot be empty")
		}
		if _, err := url.Parse(issuerURL); err != nil {
			return fmt.Errorf("invalid issuer URL: %w", err)
		}
		v.issuer = issuerURL
		return nil
	}
}

// WithLeeway sets the clock skew tolerated on time-based claims.
// Defaults to DefaultLeeway.
func WithLeeway(leeway time.Duration) Option {
	return func(v *Validator) error {
		if leeway < 0 {
			return errors.New("leeway cannot be negative")
		}
		v.leeway = leeway
		return nil
	}
}

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		v.logger = logger
		return nil
	}
}
