/*
Package oidc discovers the endpoints of an OpenID Connect provider from its
.well-known/openid-configuration document.

	md, err := oidc.Discover(ctx, &http.Client{Timeout: 5 * time.Second}, "https://fabien-sh.eu.auth0.com/")
	if err != nil {
	    return err
	}
	cache, err := jwks.New(jwks.WithJWKSURL(md.JWKSURI))

The document's issuer must equal the URL it was fetched from, trailing slash
aside.
*/
package oidc
