package core

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fabiensh/library-api/metrics"
	"github.com/fabiensh/library-api/permission"
)

// Validator turns a raw token into a verified Identity.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (*Identity, error)
}

// Logger defines an optional logging interface for the core.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Authentication tells whether a route without a permission requirement
// still needs a token.
type Authentication int

const (
	// AuthRequired rejects requests without a token.
	AuthRequired Authentication = iota
	// AuthOptional lets requests without a token through anonymously.
	// A token that is present must still be valid.
	AuthOptional
)

// Core is the framework-agnostic guard engine.
type Core struct {
	validator Validator
	logger    Logger
	tracer    trace.Tracer
	metrics   metrics.Recorder
}

// Authenticate validates token and returns the caller's identity.
// An empty token fails with ErrNoAuthorizationHeader.
func (c *Core) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, NewValidationError(ErrorCodeTokenMissing, "no access token can be found in the Authorization header", nil)
	}

	start := time.Now()
	identity, err := c.validator.ValidateToken(ctx, token)
	duration := time.Since(start)

	if err != nil {
		if c.logger != nil {
			if errors.Is(err, ErrKeySourceUnreachable) {
				c.logger.Error("signing keys could not be fetched", "error", err, "duration", duration)
			} else {
				c.logger.Warn("token validation failed", "error", err, "duration", duration)
			}
		}
		return nil, err
	}

	if c.logger != nil {
		c.logger.Debug("token validated successfully", "subject", identity.Subject, "duration", duration)
	}

	return identity, nil
}

// Authorize enforces requirement against the identity's permissions.
func (c *Core) Authorize(identity *Identity, requirement *permission.Requirement) error {
	if err := requirement.Enforce(identity.Permissions); err != nil {
		if c.logger != nil {
			c.logger.Warn("permission denied",
				"subject", identity.Subject,
				"matcher", requirement.Matcher(),
				"required", requirement.Required(),
				"granted", identity.Permissions.Sorted())
		}
		return err
	}
	return nil
}

// CheckToken runs the full guard for one request:
// UNAUTHENTICATED → AUTHENTICATED → AUTHORIZED.
//
//   - With a requirement, a valid token is always needed and its
//     permissions must satisfy the requirement.
//   - Without a requirement, auth decides whether a missing token is an
//     error (AuthRequired) or yields (nil, nil) (AuthOptional).
//
// Later steps never run when an earlier one fails.
func (c *Core) CheckToken(
	ctx context.Context,
	token string,
	requirement *permission.Requirement,
	auth Authentication,
) (*Identity, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "auth.check", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	outcome := "authorized"
	defer func() {
		span.SetAttributes(attribute.String("auth.status", outcome))
		c.metrics.IncCounter("auth_checks_total", map[string]string{"outcome": outcome})
		c.metrics.ObserveHistogram("auth_check_duration_seconds", time.Since(start).Seconds(), map[string]string{})
	}()

	if token == "" && requirement == nil && auth == AuthOptional {
		if c.logger != nil {
			c.logger.Debug("no token provided, but credentials are optional")
		}
		outcome = "anonymous"
		return nil, nil
	}

	identity, err := c.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNoAuthorizationHeader) {
			outcome = "missing_token"
		} else {
			outcome = "invalid_token"
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if requirement == nil {
		outcome = "authenticated"
		span.SetAttributes(attribute.String("auth.subject", identity.Subject))
		return identity, nil
	}

	if err := c.Authorize(identity, requirement); err != nil {
		outcome = "forbidden"
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("auth.subject", identity.Subject),
		attribute.String("auth.requirement", requirement.String()),
	)
	return identity, nil
}
