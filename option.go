package libraryapi

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/metrics"
)

var (
	// ErrValidatorNil is returned when New is called without a validator.
	ErrValidatorNil = errors.New("validator cannot be nil (use WithValidator)")

	// ErrErrorHandlerNil is returned when WithErrorHandler receives nil.
	ErrErrorHandlerNil = errors.New("errorHandler cannot be nil")

	// ErrTokenExtractorNil is returned when WithTokenExtractor receives nil.
	ErrTokenExtractorNil = errors.New("tokenExtractor cannot be nil")

	// ErrExclusionUrlsEmpty is returned when WithExclusionURLs receives no URL.
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")

	// ErrLoggerNil is returned when WithLogger receives nil.
	ErrLoggerNil = errors.New("logger cannot be nil")
)

// Option configures the Guard.
// Returns error for validation failures.
type Option func(*Guard) error

// WithValidator sets the validator used to verify tokens (REQUIRED).
// *validator.Validator satisfies core.Validator.
//
// Example:
//
//	v, err := validator.New(
//	    validator.WithKeySource(cache),
//	    validator.WithAudience("library-api"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	guard, err := libraryapi.New(libraryapi.WithValidator(v))
func WithValidator(v core.Validator) Option {
	return func(g *Guard) error {
		if v == nil {
			return ErrValidatorNil
		}
		g.validator = v
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests should have their token
// validated.
//
// Handlers built with Require or MustRequire validate OPTIONS requests
// regardless.
//
// Default: true (OPTIONS requests are validated)
func WithValidateOnOptions(value bool) Option {
	return func(g *Guard) error {
		g.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called when a request is rejected.
//
// Default: the JSON handler described by DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(g *Guard) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		g.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(g *Guard) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		g.tokenExtractor = e
		return nil
	}
}

// WithExclusionURLs configures paths or full URLs that bypass the Guard.
// Handlers built with Require or MustRequire are never bypassed.
func WithExclusionURLs(exclusions []string) Option {
	return func(g *Guard) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		g.exclusionURLHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets an optional logger for the Guard and its core.
//
// Example:
//
//	guard, err := libraryapi.New(
//	    libraryapi.WithValidator(v),
//	    libraryapi.WithLogger(libraryapi.NewLogrusLogger(logrus.StandardLogger())),
//	)
func WithLogger(logger Logger) Option {
	return func(g *Guard) error {
		if logger == nil {
			return ErrLoggerNil
		}
		g.logger = logger
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer of the core.
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Guard) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		g.tracer = tracer
		return nil
	}
}

// WithMetrics sets the recorder for check outcomes and latency.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(g *Guard) error {
		if recorder == nil {
			return errors.New("metrics recorder cannot be nil")
		}
		g.metrics = recorder
		return nil
	}
}
