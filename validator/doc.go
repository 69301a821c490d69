/*
Package validator verifies RS256 (or another pinned asymmetric algorithm)
access tokens issued by the authorization server and maps them into a
core.Identity.

Verification runs in a fixed order and stops at the first failing step:

 1. an empty token is ErrNoAuthorizationHeader
 2. the token is parsed as a compact JWS; failure is ErrMalformedToken
 3. the protected header must carry a "kid", else ErrMalformedToken
 4. the key is looked up in the KeySource, failure is ErrUnknownSigningKey
 5. the signature is checked with the configured algorithm, else
    ErrSignatureInvalid
 6. the audience must contain the configured value (ErrAudienceMismatch),
    then now must lie in [iat - leeway, exp + leeway] (ErrExpiredToken)
 7. iss, sub, aud, iat, exp and azp are required (ErrMalformedToken)

The "alg" header is compared against the configured algorithm and never
used to pick the verification algorithm.

# Usage

	cache, err := jwks.New(jwks.WithJWKSURL("https://fabien-sh.eu.auth0.com/.well-known/jwks.json"))
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeySource(cache),
	    validator.WithAudience("library-api"),
	    validator.WithLeeway(10*time.Second),
	)
	if err != nil {
	    log.Fatal(err)
	}

	identity, err := v.ValidateToken(ctx, rawToken)

# Permissions

The custom "permissions" claim must be an array of strings when present. An
absent claim yields an empty set. Values outside the known permission set
are dropped and logged at debug level.
*/
package validator
