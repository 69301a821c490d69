package libraryapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/permission"
)

const (
	// Resolution is the hint attached to every 401 except a missing token.
	Resolution = "You must add a bearer 'Authorization' header with a valid JWT token."

	missingTokenDetail            = "No access token can be found in the Authorization header"
	insufficientPermissionsReason = "Insufficient permissions"
	internalErrorDetail           = "Something went wrong while checking the access token."
)

// ErrorHandler is called when the Guard rejects a request. err matches one of
// the core sentinels: authentication failures are answered with 401,
// ErrInsufficientPermissions with 403 and anything else with 500. A custom
// ErrorHandler MUST keep that split or protected handlers may be reached by
// callers who should have been rejected.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// AuthenticationError is the JSON body of a 401 response.
type AuthenticationError struct {
	Detail     string `json:"detail"`
	Resolution string `json:"resolution,omitempty"`
}

// PermissionError is the JSON body of a 403 response.
type PermissionError struct {
	Detail PermissionDetail `json:"detail"`
}

// PermissionDetail lists the sorted required and granted permissions of a
// denial.
type PermissionDetail struct {
	Reason   string   `json:"reason"`
	Required []string `json:"required"`
	Granted  []string `json:"granted"`
	Match    string   `json:"match,omitempty"`
}

var authenticationDetails = []struct {
	kind   error
	detail string
}{
	{core.ErrMalformedToken, "The access token is malformed"},
	{core.ErrUnknownSigningKey, "The access token was signed with an unknown key"},
	{core.ErrSignatureInvalid, "The access token signature is invalid"},
	{core.ErrAudienceMismatch, "The access token was not issued for this API"},
	{core.ErrIssuerMismatch, "The access token was issued by an untrusted issuer"},
	{core.ErrExpiredToken, "The access token expired"},
}

// ErrorResponse returns the status code and JSON body for err.
func ErrorResponse(err error) (int, any) {
	if errors.Is(err, core.ErrNoAuthorizationHeader) {
		return http.StatusUnauthorized, AuthenticationError{Detail: missingTokenDetail}
	}

	for _, d := range authenticationDetails {
		if errors.Is(err, d.kind) {
			return http.StatusUnauthorized, AuthenticationError{Detail: d.detail, Resolution: Resolution}
		}
	}

	var denied *permission.DeniedError
	if errors.As(err, &denied) {
		return http.StatusForbidden, PermissionError{Detail: PermissionDetail{
			Reason:   insufficientPermissionsReason,
			Required: denied.Required,
			Granted:  denied.Granted,
			Match:    string(denied.Matcher),
		}}
	}

	return http.StatusInternalServerError, AuthenticationError{Detail: internalErrorDetail}
}

// DefaultErrorHandler writes the ErrorResponse of err as JSON.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status, body := ErrorResponse(err)
	writeJSON(w, status, body)
}

// defaultErrorHandler is DefaultErrorHandler plus logging of unexpected
// errors.
func (g *Guard) defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status, body := ErrorResponse(err)
	if status == http.StatusInternalServerError && g.logger != nil {
		g.logger.Error("unexpected error while checking the access token",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
