// Package ginguard adapts the libraryapi Guard to gin.
package ginguard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	libraryapi "github.com/fabiensh/library-api"
	"github.com/fabiensh/library-api/core"
	"github.com/fabiensh/library-api/permission"
)

// IdentityKey is the gin context key the verified identity is stored under.
const IdentityKey = "identity"

var (
	ErrMissingIdentity = errors.New("no identity found in gin context")
	ErrInvalidIdentity = errors.New("invalid identity type in gin context")
)

// Guard produces gin handlers from a libraryapi.Guard. Rejections are
// written by the Guard's error handler and abort the chain.
type Guard struct {
	guard *libraryapi.Guard
}

// New wraps guard for gin.
func New(guard *libraryapi.Guard) *Guard {
	return &Guard{guard: guard}
}

// Require is libraryapi.Guard.Require as a gin handler.
func (g *Guard) Require(matcher permission.Matcher, perms ...permission.Permission) (gin.HandlerFunc, error) {
	mw, err := g.guard.Require(matcher, perms...)
	if err != nil {
		return nil, err
	}
	return wrap(mw), nil
}

// MustRequire is like Require but panics on an invalid requirement.
func (g *Guard) MustRequire(matcher permission.Matcher, perms ...permission.Permission) gin.HandlerFunc {
	return wrap(g.guard.MustRequire(matcher, perms...))
}

// Authenticated requires a valid token without checking permissions.
func (g *Guard) Authenticated() gin.HandlerFunc {
	return wrap(g.guard.Authenticated())
}

// Optional lets anonymous requests through but rejects invalid tokens.
func (g *Guard) Optional() gin.HandlerFunc {
	return wrap(g.guard.Optional())
}

func wrap(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		encounteredError := true
		var handler http.HandlerFunc = func(_ http.ResponseWriter, r *http.Request) {
			encounteredError = false
			c.Request = r

			if identity, err := core.IdentityFromContext(r.Context()); err == nil {
				c.Set(IdentityKey, identity)
			}

			c.Next()
		}

		mw(handler).ServeHTTP(c.Writer, c.Request)

		if encounteredError {
			c.Abort()
		}
	}
}

// GetIdentity returns the identity stored by the guard handlers.
func GetIdentity(c *gin.Context) (*core.Identity, error) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return nil, ErrMissingIdentity
	}

	identity, ok := value.(*core.Identity)
	if !ok {
		return nil, ErrInvalidIdentity
	}

	return identity, nil
}
