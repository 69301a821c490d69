/*
Package jwks fetches and caches the public keys used to verify access tokens.

Keys are published by the authorization server as a JSON Web Key Set and are
looked up by key identifier ("kid"). Each key is cached on its own, with a
fixed time-to-live counted from the moment it was fetched; reads do not extend
it. Several key identifiers may be live at once, which lets the authorization
server rotate keys without downtime.

# Usage

	cache, err := jwks.New(
	    jwks.WithJWKSURL("https://fabien-sh.eu.auth0.com/.well-known/jwks.json"),
	    jwks.WithTTL(time.Hour),
	    jwks.WithTimeout(5*time.Second),
	)
	if err != nil {
	    log.Fatal(err)
	}

	key, err := cache.Key(ctx, kid)

# Failures

  - ErrKeySourceUnreachable: the endpoint could not be reached, timed out,
    answered with a non-2xx status or returned an unparsable document.
    Nothing is cached, the next lookup fetches again.
  - ErrKeyNotFound: the document was fetched but publishes no such kid.
    Nothing is cached either, since a new kid may appear at any time.
  - ErrUnsupportedKey: the matching key is symmetric or otherwise unusable.

# Concurrency

Lookups for a fresh key only take a read lock. Concurrent misses for the same
kid are joined into a single request; a caller whose context is cancelled
stops waiting but the shared fetch still completes and populates the cache.
*/
package jwks
