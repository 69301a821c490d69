package grpcguard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/permission"
)

const (
	validToken   = "valid-token"
	readerToken  = "reader-token"
	expiredToken = "expired-token"

	listBooks  = "/library.Books/List"
	createBook = "/library.Books/Create"
	healthz    = "/grpc.health.v1.Health/Check"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(_ context.Context, token string) (*core.Identity, error) {
	switch token {
	case validToken:
		return &core.Identity{Subject: "librarian", Permissions: permission.NewSet(permission.BookRead, permission.BookManage)}, nil
	case readerToken:
		return &core.Identity{Subject: "reader", Permissions: permission.NewSet(permission.BookRead)}, nil
	case expiredToken:
		return nil, core.NewValidationError(core.ErrorCodeTokenExpired, "token expired", nil)
	default:
		return nil, errors.New("boom")
	}
}

func newTestInterceptor(t *testing.T, opts ...Option) *Interceptor {
	t.Helper()

	opts = append([]Option{
		WithValidator(stubValidator{}),
		WithRequirement(listBooks, permission.MatchAll, permission.BookRead),
		WithRequirement(createBook, permission.MatchAll, permission.BookManage),
	}, opts...)

	interceptor, err := New(opts...)
	require.NoError(t, err)
	return interceptor
}

func incoming(authorization ...string) context.Context {
	md := metadata.MD{}
	for _, value := range authorization {
		md.Append("authorization", value)
	}
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestUnaryServerInterceptor(t *testing.T) {
	tests := []struct {
		name        string
		ctx         context.Context
		method      string
		wantCode    codes.Code
		wantSubject string
	}{
		{
			name:        "authorized",
			ctx:         incoming("Bearer " + validToken),
			method:      createBook,
			wantCode:    codes.OK,
			wantSubject: "librarian",
		},
		{
			name:        "lowercase scheme",
			ctx:         incoming("bearer " + readerToken),
			method:      listBooks,
			wantCode:    codes.OK,
			wantSubject: "reader",
		},
		{
			name:     "no metadata",
			ctx:      context.Background(),
			method:   listBooks,
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "insufficient permissions",
			ctx:      incoming("Bearer " + readerToken),
			method:   createBook,
			wantCode: codes.PermissionDenied,
		},
		{
			name:     "expired token",
			ctx:      incoming("Bearer " + expiredToken),
			method:   listBooks,
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "malformed metadata",
			ctx:      incoming("Basic dXNlcjpwYXNz"),
			method:   listBooks,
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "multiple authorization entries",
			ctx:      incoming("Bearer "+validToken, "Bearer "+readerToken),
			method:   listBooks,
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "unexpected validator error",
			ctx:      incoming("Bearer other"),
			method:   listBooks,
			wantCode: codes.Internal,
		},
		{
			name:        "method without requirement",
			ctx:         incoming("Bearer " + readerToken),
			method:      "/library.Books/Get",
			wantCode:    codes.OK,
			wantSubject: "reader",
		},
		{
			name:     "excluded method",
			ctx:      context.Background(),
			method:   healthz,
			wantCode: codes.OK,
		},
	}

	interceptor := newTestInterceptor(t, WithExcludedMethods(healthz))

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var called bool
			handler := func(ctx context.Context, _ any) (any, error) {
				called = true
				identity, err := IdentityFromContext(ctx)
				if tc.wantSubject == "" {
					assert.ErrorIs(t, err, ErrMissingIdentity)
				} else {
					require.NoError(t, err)
					assert.Equal(t, tc.wantSubject, identity.Subject)
				}
				return "ok", nil
			}

			resp, err := interceptor.UnaryServerInterceptor()(tc.ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, handler)

			assert.Equal(t, tc.wantCode, status.Code(err))
			assert.Equal(t, tc.wantCode == codes.OK, called)
			if tc.wantCode == codes.OK {
				assert.Equal(t, "ok", resp)
			} else {
				assert.Nil(t, resp)
			}
		})
	}
}

func TestUnaryServerInterceptor_ExclusionKeepsRequirement(t *testing.T) {
	interceptor := newTestInterceptor(t, WithExcludedMethods(createBook))

	_, err := interceptor.UnaryServerInterceptor()(context.Background(), nil,
		&grpc.UnaryServerInfo{FullMethod: createBook},
		func(context.Context, any) (any, error) {
			t.Fatal("handler should not be called")
			return nil, nil
		})

	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestUnaryServerInterceptor_CredentialsOptional(t *testing.T) {
	interceptor := newTestInterceptor(t, WithCredentialsOptional(true))
	unary := interceptor.UnaryServerInterceptor()

	handler := func(ctx context.Context, _ any) (any, error) {
		assert.False(t, core.HasIdentity(ctx))
		return "ok", nil
	}

	_, err := unary(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/library.Books/Get"}, handler)
	assert.NoError(t, err)

	_, err = unary(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: listBooks}, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "a requirement always needs a token")

	_, err = unary(incoming("Bearer "+expiredToken), nil, &grpc.UnaryServerInfo{FullMethod: "/library.Books/Get"}, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "a present token must be valid")
}

type testServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *testServerStream) Context() context.Context {
	return s.ctx
}

func TestStreamServerInterceptor(t *testing.T) {
	interceptor := newTestInterceptor(t)
	stream := interceptor.StreamServerInterceptor()

	t.Run("authorized stream carries the identity", func(t *testing.T) {
		handler := func(_ any, ss grpc.ServerStream) error {
			identity, err := IdentityFromContext(ss.Context())
			require.NoError(t, err)
			assert.Equal(t, "reader", identity.Subject)
			return nil
		}

		err := stream(nil, &testServerStream{ctx: incoming("Bearer " + readerToken)}, &grpc.StreamServerInfo{FullMethod: listBooks}, handler)
		assert.NoError(t, err)
	})

	t.Run("denied stream never reaches the handler", func(t *testing.T) {
		handler := func(any, grpc.ServerStream) error {
			t.Fatal("handler should not be called")
			return nil
		}

		err := stream(nil, &testServerStream{ctx: incoming("Bearer " + readerToken)}, &grpc.StreamServerInfo{FullMethod: createBook}, handler)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{
			name:    "missing validator",
			wantErr: "validator is required",
		},
		{
			name:    "nil validator",
			opts:    []Option{WithValidator(nil)},
			wantErr: "validator cannot be nil",
		},
		{
			name: "empty requirement",
			opts: []Option{
				WithValidator(stubValidator{}),
				WithRequirement(listBooks, permission.MatchAll),
			},
			wantErr: "at least one permission must be specified",
		},
		{
			name: "empty method",
			opts: []Option{
				WithValidator(stubValidator{}),
				WithRequirement("", permission.MatchAll, permission.BookRead),
			},
			wantErr: "method cannot be empty",
		},
		{
			name:    "nil extractor",
			opts:    []Option{WithValidator(stubValidator{}), WithTokenExtractor(nil)},
			wantErr: "token extractor cannot be nil",
		},
		{
			name:    "nil error handler",
			opts:    []Option{WithValidator(stubValidator{}), WithErrorHandler(nil)},
			wantErr: "error handler cannot be nil",
		},
		{
			name:    "nil logger",
			opts:    []Option{WithValidator(stubValidator{}), WithLogger(nil)},
			wantErr: "logger cannot be nil",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.opts...)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestWithErrorHandler(t *testing.T) {
	var got error
	interceptor := newTestInterceptor(t, WithErrorHandler(func(err error) error {
		got = err
		return status.Error(codes.Aborted, "custom")
	}))

	_, err := interceptor.UnaryServerInterceptor()(incoming("Bearer "+readerToken), nil,
		&grpc.UnaryServerInfo{FullMethod: createBook},
		func(context.Context, any) (any, error) { return nil, nil })

	assert.Equal(t, codes.Aborted, status.Code(err))
	var denied *permission.DeniedError
	require.ErrorAs(t, got, &denied)
	assert.Equal(t, []string{"book:manage"}, denied.Required)
	assert.Equal(t, []string{"book:read"}, denied.Granted)
}

func TestMetadataTokenExtractor(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		wantToken string
		wantErr   error
	}{
		{name: "no metadata", ctx: context.Background()},
		{name: "no authorization", ctx: incoming()},
		{name: "bearer", ctx: incoming("Bearer abc"), wantToken: "abc"},
		{name: "wrong scheme", ctx: incoming("Token abc"), wantErr: ErrInvalidAuthFormat},
		{name: "missing token", ctx: incoming("Bearer"), wantErr: ErrInvalidAuthFormat},
		{name: "multiple", ctx: incoming("Bearer a", "Bearer b"), wantErr: ErrMultipleAuthHeaders},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token, err := MetadataTokenExtractor(tc.ctx)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.wantToken, token)
		})
	}
}

func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"missing token", core.NewValidationError(core.ErrorCodeTokenMissing, "missing", nil), codes.Unauthenticated},
		{"unknown key", core.NewValidationError(core.ErrorCodeKeyNotFound, "kid", nil), codes.Unauthenticated},
		{"key source down", core.NewValidationError(core.ErrorCodeKeySourceUnreachable, "jwks", nil), codes.Unauthenticated},
		{"audience", core.NewValidationError(core.ErrorCodeInvalidAudience, "aud", nil), codes.Unauthenticated},
		{"wrapped sentinel", errors.Join(core.ErrSignatureInvalid), codes.Unauthenticated},
		{"denied", permission.Enforce(permission.NewSet(permission.LoanApprove), permission.MatchAll, permission.NewSet()), codes.PermissionDenied},
		{"unexpected", errors.New("boom"), codes.Internal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, status.Code(DefaultErrorHandler(tc.err)))
		})
	}
}
