package core

import (
	"errors"

	"github.com/fabiensh/library-api/permission"
)

// Sentinel errors of the authentication and authorization taxonomy.
// Every error returned by a Validator or by Core matches one of them with
// errors.Is.
var (
	// ErrNoAuthorizationHeader is returned when the request carries no token.
	ErrNoAuthorizationHeader = errors.New("no access token can be found in the Authorization header")

	// ErrMalformedToken is returned when the token cannot be parsed, has no
	// key identifier or lacks a required claim.
	ErrMalformedToken = errors.New("malformed token")

	// ErrUnknownSigningKey is returned when no published key matches the
	// token's key identifier, or when the key set cannot be fetched.
	ErrUnknownSigningKey = errors.New("unknown signing key")

	// ErrSignatureInvalid is returned when the signature does not verify
	// with the resolved key and the configured algorithm.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrAudienceMismatch is returned when the token was not issued for
	// this API.
	ErrAudienceMismatch = errors.New("audience mismatch")

	// ErrIssuerMismatch is returned when an expected issuer is configured
	// and the token names another one.
	ErrIssuerMismatch = errors.New("issuer mismatch")

	// ErrExpiredToken is returned when the current time falls outside the
	// token's validity window, leeway included.
	ErrExpiredToken = errors.New("token expired")

	// ErrKeySourceUnreachable is never returned alone: it accompanies
	// ErrUnknownSigningKey when the key set endpoint could not be reached,
	// so that outages can be told apart from forged key identifiers.
	ErrKeySourceUnreachable = errors.New("signing key source unreachable")

	// ErrInsufficientPermissions is matched by permission denials.
	ErrInsufficientPermissions = permission.ErrInsufficientPermissions

	// ErrIdentityNotFound is returned when no identity is stored in a context.
	ErrIdentityNotFound = errors.New("identity not found in context")
)

// Error codes, machine-readable and stable.
const (
	ErrorCodeTokenMissing         = "token_missing"
	ErrorCodeTokenMalformed       = "token_malformed"
	ErrorCodeKeyNotFound          = "key_not_found"
	ErrorCodeKeySourceUnreachable = "key_source_unreachable"
	ErrorCodeInvalidSignature     = "invalid_signature"
	ErrorCodeInvalidAudience      = "invalid_audience"
	ErrorCodeInvalidIssuer        = "invalid_issuer"
	ErrorCodeTokenExpired         = "token_expired"
	ErrorCodeConfigInvalid        = "config_invalid"
)

var kindsByCode = map[string][]error{
	ErrorCodeTokenMissing:         {ErrNoAuthorizationHeader},
	ErrorCodeTokenMalformed:       {ErrMalformedToken},
	ErrorCodeKeyNotFound:          {ErrUnknownSigningKey},
	ErrorCodeKeySourceUnreachable: {ErrUnknownSigningKey, ErrKeySourceUnreachable},
	ErrorCodeInvalidSignature:     {ErrSignatureInvalid},
	ErrorCodeInvalidAudience:      {ErrAudienceMismatch},
	ErrorCodeInvalidIssuer:        {ErrIssuerMismatch},
	ErrorCodeTokenExpired:         {ErrExpiredToken},
}

// ValidationError wraps a token validation failure with its code.
// It matches, through errors.Is, the taxonomy sentinel(s) of its code as well
// as the underlying error.
type ValidationError struct {
	// Code is a machine-readable error code (e.g. "token_expired").
	Code string

	// Message is a human-readable error message.
	Message string

	// Details contains the underlying error.
	Details error
}

// NewValidationError creates a new ValidationError with the given code and message.
func NewValidationError(code, message string, details error) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the taxonomy sentinels of the code followed by the
// underlying error.
func (e *ValidationError) Unwrap() []error {
	kinds := kindsByCode[e.Code]
	errs := make([]error, 0, len(kinds)+1)
	errs = append(errs, kinds...)
	if e.Details != nil {
		errs = append(errs, e.Details)
	}
	return errs
}

// IsAuthenticationError reports whether err belongs to the authentication
// part of the taxonomy (answered with 401 / Unauthenticated).
func IsAuthenticationError(err error) bool {
	for _, kind := range []error{
		ErrNoAuthorizationHeader,
		ErrMalformedToken,
		ErrUnknownSigningKey,
		ErrSignatureInvalid,
		ErrAudienceMismatch,
		ErrIssuerMismatch,
		ErrExpiredToken,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
