package grpcguard

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/permission"
)

// Interceptor guards gRPC methods with bearer tokens and per-method
// permission requirements.
type Interceptor struct {
	core            *core.Core
	tokenExtractor  TokenExtractor
	errorHandler    ErrorHandler
	excludedMethods map[string]bool
	requirements    map[string]*permission.Requirement
	auth            core.Authentication
	logger          Logger

	// Internal builder for accumulating core options
	coreBuilder *coreBuilder
}

// New creates an Interceptor. WithValidator is required.
func New(opts ...Option) (*Interceptor, error) {
	interceptor := &Interceptor{
		tokenExtractor:  MetadataTokenExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
		requirements:    make(map[string]*permission.Requirement),
		auth:            core.AuthRequired,
		coreBuilder:     &coreBuilder{},
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	c, err := interceptor.coreBuilder.build()
	if err != nil {
		return nil, err
	}
	interceptor.core = c

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that checks
// the token and the method's requirement before calling the handler.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excluded(info.FullMethod) {
			if i.logger != nil {
				i.logger.Debug("skipping token validation for excluded method",
					"method", info.FullMethod)
			}
			return handler(ctx, req)
		}

		authorizedCtx, err := i.authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(authorizedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that checks
// the token and the method's requirement before opening the stream.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excluded(info.FullMethod) {
			if i.logger != nil {
				i.logger.Debug("skipping token validation for excluded method",
					"method", info.FullMethod)
			}
			return handler(srv, ss)
		}

		authorizedCtx, err := i.authorize(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          authorizedCtx,
		})
	}
}

// excluded reports whether method skips token validation. A method with a
// requirement is never excluded.
func (i *Interceptor) excluded(method string) bool {
	return i.excludedMethods[method] && i.requirements[method] == nil
}

// authorize extracts and checks the token for method.
func (i *Interceptor) authorize(ctx context.Context, method string) (context.Context, error) {
	token, err := i.tokenExtractor(ctx)
	if err != nil {
		if i.logger != nil {
			i.logger.Warn("failed to extract token from gRPC metadata",
				"error", err,
				"method", method)
		}
		return ctx, i.errorHandler(core.NewValidationError(core.ErrorCodeTokenMalformed, "malformed authorization metadata", err))
	}

	identity, err := i.core.CheckToken(ctx, token, i.requirements[method], i.auth)
	if err != nil {
		return ctx, i.errorHandler(err)
	}

	if identity == nil {
		if i.logger != nil {
			i.logger.Debug("no credentials provided, continuing anonymously",
				"method", method)
		}
		return ctx, nil
	}

	return core.WithIdentity(ctx, identity), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context holding the identity.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// IdentityFromContext returns the identity of the current call.
func IdentityFromContext(ctx context.Context) (*core.Identity, error) {
	identity, err := core.IdentityFromContext(ctx)
	if errors.Is(err, core.ErrIdentityNotFound) {
		return nil, ErrMissingIdentity
	}
	return identity, err
}

// ErrMissingIdentity is returned by IdentityFromContext for anonymous or
// excluded calls.
var ErrMissingIdentity = errors.New("no identity found in gRPC context")
