package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/jwks"
	"github.com/fabiensh/library-api/permission"
)

const (
	// DefaultLeeway is the clock skew tolerated on iat, nbf and exp.
	DefaultLeeway = 10 * time.Second

	permissionsClaim     = "permissions"
	authorizedPartyClaim = "azp"
)

// SignatureAlgorithm is an asymmetric JWS algorithm a Validator can be
// pinned to.
type SignatureAlgorithm string

// Signature algorithms
const (
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	EdDSA = SignatureAlgorithm("EdDSA")
)

var allowedSigningAlgorithms = map[SignatureAlgorithm]jwa.SignatureAlgorithm{
	RS256: jwa.RS256,
	RS384: jwa.RS384,
	RS512: jwa.RS512,
	PS256: jwa.PS256,
	PS384: jwa.PS384,
	PS512: jwa.PS512,
	ES256: jwa.ES256,
	ES384: jwa.ES384,
	ES512: jwa.ES512,
	EdDSA: jwa.EdDSA,
}

// KeySource resolves a key identifier to a public key. *jwks.Cache
// implements it.
type KeySource interface {
	Key(ctx context.Context, kid string) (*jwks.SigningKey, error)
}

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Validator verifies bearer access tokens and turns them into identities.
// It is immutable after New and safe for concurrent use.
type Validator struct {
	keySource          KeySource          // Required.
	audience           string             // Required.
	signatureAlgorithm SignatureAlgorithm // Defaults to RS256.
	issuer             string             // Optional.
	leeway             time.Duration
	now                func() time.Time
	logger             Logger
}

// New sets up a Validator. WithKeySource and WithAudience are required.
//
// Example:
//
//	v, err := validator.New(
//	    validator.WithKeySource(cache),
//	    validator.WithAudience("library-api"),
//	)
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		signatureAlgorithm: RS256,
		leeway:             DefaultLeeway,
		now:                time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.keySource == nil {
		return nil, ErrKeySourceRequired
	}
	if v.audience == "" {
		return nil, ErrAudienceRequired
	}

	return v, nil
}

// ValidateToken runs the verification steps in order and stops at the first
// failure. Every error is a *core.ValidationError.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*core.Identity, error) {
	if tokenString == "" {
		return nil, core.NewValidationError(core.ErrorCodeTokenMissing, "no access token can be found in the Authorization header", nil)
	}

	if err := validateTokenFormat(tokenString); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "malformed token", err)
	}

	msg, err := jws.Parse([]byte(tokenString))
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "could not parse the token", err)
	}
	if len(msg.Signatures()) != 1 {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "malformed token",
			fmt.Errorf("expected one signature, got %d", len(msg.Signatures())))
	}
	headers := msg.Signatures()[0].ProtectedHeaders()

	kid := headers.KeyID()
	if kid == "" {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "malformed token",
			errors.New("no key identifier in the token header"))
	}

	key, err := v.keySource.Key(ctx, kid)
	if err != nil {
		if errors.Is(err, jwks.ErrKeySourceUnreachable) {
			return nil, core.NewValidationError(core.ErrorCodeKeySourceUnreachable, "unknown signing key", err)
		}
		return nil, core.NewValidationError(core.ErrorCodeKeyNotFound, "unknown signing key", err)
	}

	if err := v.verifySignature(tokenString, headers.Algorithm(), key); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidSignature, "signature verification failed", err)
	}

	token := jwt.New()
	if err := json.Unmarshal(msg.Payload(), token); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "could not decode the token claims", err)
	}

	if err := v.validateClaims(token); err != nil {
		return nil, err
	}

	return v.newIdentity(token)
}

// verifySignature checks the signature with the server-side algorithm.
// The token's own "alg" header is only compared, never used.
func (v *Validator) verifySignature(tokenString string, tokenAlg jwa.SignatureAlgorithm, key *jwks.SigningKey) error {
	if err := validateSigningMethod(string(v.signatureAlgorithm), tokenAlg.String()); err != nil {
		return err
	}
	if key.Algorithm != "" && key.Algorithm != string(v.signatureAlgorithm) {
		return fmt.Errorf("key %q is published for %q, not %q", key.KeyID, key.Algorithm, v.signatureAlgorithm)
	}

	alg := allowedSigningAlgorithms[v.signatureAlgorithm]
	if _, err := jws.Verify([]byte(tokenString), jws.WithKey(alg, key.Key)); err != nil {
		return err
	}
	return nil
}

func validateSigningMethod(validAlg, tokenAlg string) error {
	if validAlg != tokenAlg {
		return fmt.Errorf("expected %q signing algorithm but token specified %q", validAlg, tokenAlg)
	}
	return nil
}

// validateClaims checks audience, issuer and the validity window.
func (v *Validator) validateClaims(token jwt.Token) error {
	if !slices.Contains(token.Audience(), v.audience) {
		return core.NewValidationError(core.ErrorCodeInvalidAudience, "invalid audience",
			fmt.Errorf("expected %q, token was issued for %q", v.audience, token.Audience()))
	}

	if v.issuer != "" && token.Issuer() != v.issuer {
		return core.NewValidationError(core.ErrorCodeInvalidIssuer, "invalid issuer",
			fmt.Errorf("expected %q, token was issued by %q", v.issuer, token.Issuer()))
	}

	issuedAt, expiresAt := token.IssuedAt(), token.Expiration()
	if issuedAt.IsZero() || expiresAt.IsZero() {
		return core.NewValidationError(core.ErrorCodeTokenMalformed, "malformed token",
			errors.New("missing required claim: iat and exp must be set"))
	}

	now := v.now()
	if now.Before(issuedAt.Add(-v.leeway)) {
		return core.NewValidationError(core.ErrorCodeTokenExpired, "token has expired",
			fmt.Errorf("token issued in the future (iat %s)", issuedAt.UTC().Format(time.RFC3339)))
	}
	if now.After(expiresAt.Add(v.leeway)) {
		return core.NewValidationError(core.ErrorCodeTokenExpired, "token has expired",
			fmt.Errorf("token expired at %s", expiresAt.UTC().Format(time.RFC3339)))
	}
	if notBefore := token.NotBefore(); !notBefore.IsZero() && now.Before(notBefore.Add(-v.leeway)) {
		return core.NewValidationError(core.ErrorCodeTokenExpired, "token has expired",
			fmt.Errorf("token not valid before %s", notBefore.UTC().Format(time.RFC3339)))
	}

	return nil
}

// newIdentity maps validated claims into an Identity. Extra claims are
// ignored.
func (v *Validator) newIdentity(token jwt.Token) (*core.Identity, error) {
	malformed := func(err error) error {
		return core.NewValidationError(core.ErrorCodeTokenMalformed, "malformed token", err)
	}

	if token.Issuer() == "" {
		return nil, malformed(errors.New("missing required claim: iss"))
	}
	if token.Subject() == "" {
		return nil, malformed(errors.New("missing required claim: sub"))
	}
	if !token.Expiration().After(token.IssuedAt()) {
		return nil, malformed(errors.New("exp must be after iat"))
	}

	azp, err := stringClaim(token, authorizedPartyClaim)
	if err != nil {
		return nil, malformed(err)
	}
	if azp == "" {
		return nil, malformed(errors.New("missing required claim: azp"))
	}

	perms, err := v.permissions(token)
	if err != nil {
		return nil, malformed(err)
	}

	return &core.Identity{
		Issuer:          token.Issuer(),
		Subject:         token.Subject(),
		Audience:        slices.Clone(token.Audience()),
		IssuedAt:        token.IssuedAt().UTC(),
		ExpiresAt:       token.Expiration().UTC(),
		AuthorizedParty: azp,
		Permissions:     perms,
	}, nil
}

// permissions reads the "permissions" claim. An absent claim is an empty
// set; strings outside the known permission set are dropped.
func (v *Validator) permissions(token jwt.Token) (permission.Set, error) {
	raw, ok := token.Get(permissionsClaim)
	if !ok || raw == nil {
		return permission.NewSet(), nil
	}

	values, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("claim %q must be an array of strings", permissionsClaim)
	}

	perms := make([]permission.Permission, 0, len(values))
	for _, value := range values {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("claim %q must be an array of strings", permissionsClaim)
		}
		p, err := permission.Parse(s)
		if err != nil {
			if v.logger != nil {
				v.logger.Debug("ignoring unknown permission", "permission", s, "subject", token.Subject())
			}
			continue
		}
		perms = append(perms, p)
	}

	return permission.NewSet(perms...), nil
}

func stringClaim(token jwt.Token, name string) (string, error) {
	raw, ok := token.Get(name)
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("claim %q must be a string", name)
	}
	return s, nil
}
