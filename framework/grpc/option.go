package grpcguard

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/metrics"
	"github.com/fabiensh/library-api/permission"
)

// Option configures the Interceptor.
type Option func(*Interceptor) error

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core for consistent logging across the stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// coreBuilder helps build a core.Core with accumulated options.
type coreBuilder struct {
	validator core.Validator
	logger    Logger
	tracer    trace.Tracer
	metrics   metrics.Recorder
}

func (b *coreBuilder) build() (*core.Core, error) {
	if b.validator == nil {
		return nil, errors.New("validator is required, use WithValidator option")
	}

	opts := []core.Option{core.WithValidator(b.validator)}
	if b.logger != nil {
		opts = append(opts, core.WithLogger(b.logger))
	}
	if b.tracer != nil {
		opts = append(opts, core.WithTracer(b.tracer))
	}
	if b.metrics != nil {
		opts = append(opts, core.WithMetrics(b.metrics))
	}

	return core.New(opts...)
}

// WithValidator sets the token validator (REQUIRED).
//
// Example:
//
//	interceptor, err := grpcguard.New(
//	    grpcguard.WithValidator(v),
//	    grpcguard.WithRequirement("/library.Books/Create", permission.MatchAll, permission.BookManage),
//	)
func WithValidator(v core.Validator) Option {
	return func(i *Interceptor) error {
		if v == nil {
			return errors.New("validator cannot be nil")
		}
		i.coreBuilder.validator = v
		return nil
	}
}

// WithRequirement attaches a permission requirement to a full method name
// ("/package.Service/Method"). An invalid requirement fails New.
func WithRequirement(method string, matcher permission.Matcher, perms ...permission.Permission) Option {
	return func(i *Interceptor) error {
		if method == "" {
			return errors.New("method cannot be empty")
		}
		requirement, err := permission.NewRequirement(matcher, perms...)
		if err != nil {
			return fmt.Errorf("requirement for %s: %w", method, err)
		}
		i.requirements[method] = requirement
		return nil
	}
}

// WithCredentialsOptional lets calls without a token reach methods that
// have no requirement. Methods with a requirement always need a token.
//
// Default: false (credentials required)
func WithCredentialsOptional(optional bool) Option {
	return func(i *Interceptor) error {
		if optional {
			i.auth = core.AuthOptional
		} else {
			i.auth = core.AuthRequired
		}
		return nil
	}
}

// WithLogger sets an optional logger for the interceptor and its core.
func WithLogger(logger Logger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.coreBuilder.logger = logger
		i.logger = logger
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer of the core.
func WithTracer(tracer trace.Tracer) Option {
	return func(i *Interceptor) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		i.coreBuilder.tracer = tracer
		return nil
	}
}

// WithMetrics sets the metrics recorder of the core.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(i *Interceptor) error {
		if recorder == nil {
			return errors.New("metrics recorder cannot be nil")
		}
		i.coreBuilder.metrics = recorder
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor function.
// Default is MetadataTokenExtractor.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods excludes methods from token validation, e.g.
// "/grpc.health.v1.Health/Check". Methods with a requirement stay guarded.
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
