// Package echoguard adapts the libraryapi Guard to echo.
package echoguard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	libraryapi "github.com/fabiensh/library-api"
	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/permission"
)

// IdentityKey is the echo context key the verified identity is stored under.
const IdentityKey = "identity"

// Guard produces echo middleware from a libraryapi.Guard.
type Guard struct {
	guard *libraryapi.Guard
}

// New wraps guard for echo.
func New(guard *libraryapi.Guard) *Guard {
	return &Guard{guard: guard}
}

// Require is libraryapi.Guard.Require as echo middleware.
func (g *Guard) Require(matcher permission.Matcher, perms ...permission.Permission) (echo.MiddlewareFunc, error) {
	mw, err := g.guard.Require(matcher, perms...)
	if err != nil {
		return nil, err
	}
	return wrap(mw), nil
}

// MustRequire is like Require but panics on an invalid requirement.
func (g *Guard) MustRequire(matcher permission.Matcher, perms ...permission.Permission) echo.MiddlewareFunc {
	return wrap(g.guard.MustRequire(matcher, perms...))
}

// Authenticated requires a valid token without checking permissions.
func (g *Guard) Authenticated() echo.MiddlewareFunc {
	return wrap(g.guard.Authenticated())
}

// Optional lets anonymous requests through but rejects invalid tokens.
func (g *Guard) Optional() echo.MiddlewareFunc {
	return wrap(g.guard.Optional())
}

func wrap(mw func(http.Handler) http.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			var handler http.HandlerFunc = func(_ http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)

				if identity, err := core.IdentityFromContext(r.Context()); err == nil {
					c.Set(IdentityKey, identity)
				}

				nextErr = next(c)
			}

			// A rejection is already written by the guard's error handler.
			mw(handler).ServeHTTP(c.Response(), c.Request())
			return nextErr
		}
	}
}

// GetIdentity extracts the identity from the echo context.
func GetIdentity(c echo.Context) (*core.Identity, bool) {
	identity, ok := c.Get(IdentityKey).(*core.Identity)
	return identity, ok && identity != nil
}
