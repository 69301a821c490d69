package libraryapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/permission"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   any
	}{
		{
			name:       "missing token",
			err:        core.NewValidationError(core.ErrorCodeTokenMissing, "no token", nil),
			wantStatus: http.StatusUnauthorized,
			wantBody:   AuthenticationError{Detail: "No access token can be found in the Authorization header"},
		},
		{
			name:       "bare sentinel",
			err:        core.ErrNoAuthorizationHeader,
			wantStatus: http.StatusUnauthorized,
			wantBody:   AuthenticationError{Detail: "No access token can be found in the Authorization header"},
		},
		{
			name:       "malformed token",
			err:        core.NewValidationError(core.ErrorCodeTokenMalformed, "malformed token", nil),
			wantStatus: http.StatusUnauthorized,
			wantBody:   AuthenticationError{Detail: "The access token is malformed", Resolution: Resolution},
		},
		{
			name:       "unknown key",
			err:        core.NewValidationError(core.ErrorCodeKeyNotFound, "unknown signing key", nil),
			wantStatus: http.StatusUnauthorized,
			wantBody:   AuthenticationError{Detail: "The access token was signed with an unknown key", Resolution: Resolution},
		},
		{
			name:       "invalid audience",
			err:        core.NewValidationError(core.ErrorCodeInvalidAudience, "invalid audience", nil),
			wantStatus: http.StatusUnauthorized,
			wantBody:   AuthenticationError{Detail: "The access token was not issued for this API", Resolution: Resolution},
		},
		{
			name:       "invalid issuer",
			err:        core.NewValidationError(core.ErrorCodeInvalidIssuer, "invalid issuer", nil),
			wantStatus: http.StatusUnauthorized,
			wantBody:   AuthenticationError{Detail: "The access token was issued by an untrusted issuer", Resolution: Resolution},
		},
		{
			name:       "wrapped expiry",
			err:        fmt.Errorf("checking token: %w", core.NewValidationError(core.ErrorCodeTokenExpired, "token has expired", nil)),
			wantStatus: http.StatusUnauthorized,
			wantBody:   AuthenticationError{Detail: "The access token expired", Resolution: Resolution},
		},
		{
			name:       "denied",
			err:        permission.Enforce(permission.NewSet(permission.LoanRead, permission.BookRead), permission.MatchAll, permission.NewSet(permission.LoanRead)),
			wantStatus: http.StatusForbidden,
			wantBody: PermissionError{Detail: PermissionDetail{
				Reason:   "Insufficient permissions",
				Required: []string{"book:read", "loan:read"},
				Granted:  []string{"loan:read"},
				Match:    "all",
			}},
		},
		{
			name:       "anything else",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   AuthenticationError{Detail: "Something went wrong while checking the access token."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ErrorResponse(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			if diff := cmp.Diff(tt.wantBody, body); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultErrorHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	DefaultErrorHandler(recorder, httptest.NewRequest(http.MethodGet, "/", nil), core.ErrNoAuthorizationHeader)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"detail":"No access token can be found in the Authorization header"}`, recorder.Body.String())
}

func TestGuard_defaultErrorHandler_logsInternalErrors(t *testing.T) {
	logger := &recordingLogger{}
	guard, err := New(WithValidator(testValidator()), WithLogger(logger))
	assert.NoError(t, err)

	recorder := httptest.NewRecorder()
	guard.defaultErrorHandler(recorder, httptest.NewRequest(http.MethodGet, "/books", nil), errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, []string{"unexpected error while checking the access token"}, logger.errors)

	recorder = httptest.NewRecorder()
	guard.defaultErrorHandler(recorder, httptest.NewRequest(http.MethodGet, "/books", nil), core.ErrExpiredToken)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Len(t, logger.errors, 1)
}
