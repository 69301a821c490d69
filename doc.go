/*
Package libraryapi guards the Library API's HTTP handlers with bearer access
tokens and permission requirements.

A request goes through three states. It starts UNAUTHENTICATED; a token that
verifies makes it AUTHENTICATED; a token whose permissions satisfy the route's
requirement makes it AUTHORIZED and the handler runs. A verification failure
answers 401, a permission denial answers 403.

This package is the net/http adapter. The framework/gin, framework/echo and
framework/grpc packages adapt the same Guard to other transports, and core
holds the transport-agnostic logic.

# Quick Start

	cache, err := jwks.New(
	    jwks.WithJWKSURL("https://fabien-sh.eu.auth0.com/.well-known/jwks.json"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeySource(cache),
	    validator.WithAudience("library-api"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	guard, err := libraryapi.New(libraryapi.WithValidator(v))
	if err != nil {
	    log.Fatal(err)
	}

	readBooks, err := guard.Require(permission.MatchAll, permission.BookRead)
	if err != nil {
	    log.Fatal(err) // empty or unknown requirement
	}
	http.Handle("/books", readBooks(booksHandler))

# Accessing the Identity

	func booksHandler(w http.ResponseWriter, r *http.Request) {
	    identity, err := libraryapi.GetIdentity(r.Context())
	    if err != nil {
	        http.Error(w, "unauthorized", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintln(w, identity.Subject, identity.Permissions.Sorted())
	}

# Error Responses

The default error handler writes JSON:

	401 {"detail":"No access token can be found in the Authorization header"}
	401 {"detail":"The access token expired","resolution":"You must add a bearer 'Authorization' header with a valid JWT token."}
	403 {"detail":{"reason":"Insufficient permissions","required":["book:read"],"granted":[],"match":"all"}}

Use WithErrorHandler to replace it.

# Logging

Logger is shaped like log/slog. NewLogrusLogger adapts a logrus logger:

	guard, err := libraryapi.New(
	    libraryapi.WithValidator(v),
	    libraryapi.WithLogger(libraryapi.NewLogrusLogger(logrus.StandardLogger())),
	)
*/
package libraryapi
