package core

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	identityKey contextKey = iota
)

// IdentityFromContext returns the identity stored by a guard.
func IdentityFromContext(ctx context.Context) (*Identity, error) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	if !ok || identity == nil {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}

// WithIdentity stores identity in the context.
// This is a helper for adapters to call after a successful check.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// HasIdentity checks if an identity exists in the context.
func HasIdentity(ctx context.Context) bool {
	_, err := IdentityFromContext(ctx)
	return err == nil
}
