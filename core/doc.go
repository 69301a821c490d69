/*
Package core is the transport-agnostic half of the Library API guard.

	┌──────────────────────────────────────────────┐
	│  Adapters: net/http, gin, echo, gRPC         │
	└────────────────┬─────────────────────────────┘
	                 ▼
	┌──────────────────────────────────────────────┐
	│  Core: authenticate, then authorize          │
	└────────────────┬─────────────────────────────┘
	                 ▼
	┌──────────────────────────────────────────────┐
	│  Validator (validator package) + jwks.Cache  │
	└──────────────────────────────────────────────┘

Every request goes UNAUTHENTICATED → AUTHENTICATED → AUTHORIZED → HANDLED.
Verification failures leave from UNAUTHENTICATED, permission denials from
AUTHENTICATED; adapters map the former to 401 and the latter to 403.

# Usage

	c, err := core.New(
	    core.WithValidator(v),
	    core.WithLogger(logger),
	)
	if err != nil {
	    log.Fatal(err)
	}

	req := permission.MustRequirement(permission.MatchAll, permission.BookRead)
	identity, err := c.CheckToken(ctx, token, req, core.AuthRequired)
	switch {
	case errors.Is(err, core.ErrInsufficientPermissions):
	    // 403
	case core.IsAuthenticationError(err):
	    // 401
	}

# Errors

All validation failures are *ValidationError values whose Code selects one
of the sentinels (ErrMalformedToken, ErrUnknownSigningKey, ...). A key set
outage is reported as ErrUnknownSigningKey and additionally matches
ErrKeySourceUnreachable, which the Core logs at error level.
*/
package core
