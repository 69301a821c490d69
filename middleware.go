package libraryapi

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/metrics"
	"github.com/fabiensh/library-api/permission"
)

// Guard authenticates bearer tokens and enforces permission requirements on
// net/http handlers.
type Guard struct {
	core                *core.Core
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger

	// Temporary fields used during construction
	validator core.Validator
	tracer    trace.Tracer
	metrics   metrics.Recorder
}

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from token validation.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a Guard with the supplied options. WithValidator is required.
//
// Example:
//
//	guard, err := libraryapi.New(
//	    libraryapi.WithValidator(v),
//	    libraryapi.WithLogger(libraryapi.NewLogrusLogger(logrus.StandardLogger())),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create guard: %v", err)
//	}
func New(opts ...Option) (*Guard, error) {
	g := &Guard{
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if g.validator == nil {
		return nil, fmt.Errorf("invalid guard configuration: %w", ErrValidatorNil)
	}

	g.applyDefaults()

	if err := g.createCore(); err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	return g, nil
}

// createCore creates the core.Core instance with the configured options.
func (g *Guard) createCore() error {
	coreOpts := []core.Option{core.WithValidator(g.validator)}
	if g.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(g.logger))
	}
	if g.tracer != nil {
		coreOpts = append(coreOpts, core.WithTracer(g.tracer))
	}
	if g.metrics != nil {
		coreOpts = append(coreOpts, core.WithMetrics(g.metrics))
	}

	c, err := core.New(coreOpts...)
	if err != nil {
		return err
	}
	g.core = c
	return nil
}

// applyDefaults sets default values for optional fields.
func (g *Guard) applyDefaults() {
	if g.errorHandler == nil {
		g.errorHandler = g.defaultErrorHandler
	}
	if g.tokenExtractor == nil {
		g.tokenExtractor = AuthHeaderTokenExtractor
	}
}

// Require returns a middleware that lets a request through only if its token
// is valid and grants the permissions under matcher. An empty permission list,
// an unknown permission or an unknown matcher is reported here, when the route
// is registered, never at request time.
func (g *Guard) Require(matcher permission.Matcher, perms ...permission.Permission) (func(http.Handler) http.Handler, error) {
	requirement, err := permission.NewRequirement(matcher, perms...)
	if err != nil {
		return nil, err
	}
	return g.Handler(requirement, core.AuthRequired), nil
}

// MustRequire is like Require but panics on an invalid requirement.
func (g *Guard) MustRequire(matcher permission.Matcher, perms ...permission.Permission) func(http.Handler) http.Handler {
	mw, err := g.Require(matcher, perms...)
	if err != nil {
		panic(err)
	}
	return mw
}

// Authenticated returns a middleware that requires a valid token without
// checking any permission.
func (g *Guard) Authenticated() func(http.Handler) http.Handler {
	return g.Handler(nil, core.AuthRequired)
}

// Optional returns a middleware that lets anonymous requests through but
// still rejects an invalid token.
func (g *Guard) Optional() func(http.Handler) http.Handler {
	return g.Handler(nil, core.AuthOptional)
}

// Handler builds the middleware for an already validated requirement, which
// may be nil. URL exclusions and the OPTIONS skip only apply to handlers
// without a requirement.
func (g *Guard) Handler(requirement *permission.Requirement, auth core.Authentication) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requirement == nil && g.exclusionURLHandler != nil && g.exclusionURLHandler(r) {
				if g.logger != nil {
					g.logger.Debug("skipping token validation for excluded URL",
						"method", r.Method,
						"path", r.URL.Path)
				}
				next.ServeHTTP(w, r)
				return
			}

			if requirement == nil && !g.validateOnOptions && r.Method == http.MethodOptions {
				if g.logger != nil {
					g.logger.Debug("skipping token validation for OPTIONS request")
				}
				next.ServeHTTP(w, r)
				return
			}

			token, err := g.tokenExtractor(r)
			if err != nil {
				if g.logger != nil {
					g.logger.Warn("failed to extract token from request",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path)
				}
				g.errorHandler(w, r, core.NewValidationError(core.ErrorCodeTokenMalformed, "malformed Authorization header", err))
				return
			}

			identity, err := g.core.CheckToken(r.Context(), token, requirement, auth)
			if err != nil {
				g.errorHandler(w, r, err)
				return
			}

			if identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			r = r.Clone(core.WithIdentity(r.Context(), identity))
			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentity returns the identity stored by the Guard in ctx.
//
// Example:
//
//	identity, err := libraryapi.GetIdentity(r.Context())
//	if err != nil {
//	    http.Error(w, "unauthorized", http.StatusUnauthorized)
//	    return
//	}
//	fmt.Println(identity.Subject)
func GetIdentity(ctx context.Context) (*core.Identity, error) {
	return core.IdentityFromContext(ctx)
}
