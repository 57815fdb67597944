// ABOUTME: Principal identity type produced by the authentication adapter.
// ABOUTME: Provides WithPrincipal/FromContext for propagating identity via context.

package auth

import (
	"context"
	"slices"
)

// Principal holds the authenticated caller identity for one request.
// It is constructed fresh per request by the adapter and never mutated
// afterwards.
type Principal struct {
	// ID is the unique identity within the auth domain (username, email, ...).
	ID string `json:"identity"`
	// DisplayName is a human-readable name; defaults to ID.
	DisplayName string `json:"display_name"`
	// Authenticated reports whether the caller presented valid credentials.
	Authenticated bool `json:"is_authenticated"`
	// Permissions are the scopes granted to the caller for this request.
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the principal holds the given permission.
func (p *Principal) HasPermission(perm string) bool {
	return p != nil && slices.Contains(p.Permissions, perm)
}

// principalKey is the key type for storing a Principal in context.Context.
type principalKey struct{}

// WithPrincipal returns a new context with the Principal attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the Principal from the context, returning nil if not
// present (unauthenticated request or auth disabled).
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// MustFromContext retrieves the Principal from the context, panicking if not
// present. Use in handlers that are only reachable behind the auth middleware.
func MustFromContext(ctx context.Context) *Principal {
	p := FromContext(ctx)
	if p == nil {
		panic("auth: Principal not found in context")
	}
	return p
}
