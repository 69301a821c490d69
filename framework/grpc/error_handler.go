package grpcguard

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/permission"
)

// ErrorHandler converts a rejection into a gRPC status error.
type ErrorHandler func(error) error

// DefaultErrorHandler maps authentication failures to codes.Unauthenticated,
// permission denials to codes.PermissionDenied and anything else to
// codes.Internal.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		return mapValidationError(validationErr)
	}

	var denied *permission.DeniedError
	if errors.As(err, &denied) {
		return status.Errorf(codes.PermissionDenied, "insufficient permissions: required %s of [%s], granted [%s]",
			denied.Matcher,
			strings.Join(denied.Required, ", "),
			strings.Join(denied.Granted, ", "))
	}

	if core.IsAuthenticationError(err) {
		return status.Error(codes.Unauthenticated, err.Error())
	}

	return status.Error(codes.Internal, "unable to verify token")
}

// mapValidationError maps core.ValidationError to gRPC status codes.
func mapValidationError(err *core.ValidationError) error {
	switch err.Code {
	case core.ErrorCodeTokenMissing:
		return status.Error(codes.Unauthenticated, "missing credentials")
	case core.ErrorCodeTokenExpired:
		return status.Error(codes.Unauthenticated, "token expired")
	case core.ErrorCodeInvalidSignature:
		return status.Error(codes.Unauthenticated, "invalid signature")
	case core.ErrorCodeTokenMalformed:
		return status.Error(codes.Unauthenticated, "malformed token")
	case core.ErrorCodeKeyNotFound, core.ErrorCodeKeySourceUnreachable:
		return status.Error(codes.Unauthenticated, "unknown signing key")
	case core.ErrorCodeInvalidAudience:
		return status.Error(codes.Unauthenticated, "invalid audience")
	case core.ErrorCodeInvalidIssuer:
		return status.Error(codes.Unauthenticated, "invalid issuer")
	default:
		return status.Error(codes.Internal, "unable to verify token")
	}
}
