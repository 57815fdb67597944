// ABOUTME: Normalizes heterogeneous authenticator return values into a Principal.
// ABOUTME: Single ordered-priority matcher; the union of accepted shapes is closed.

package auth

import "fmt"

// Credentials is the explicit (permissions, principal) pair an authenticator
// may return. Principal accepts any of the identity shapes listed on
// NormalizeCredentials.
type Credentials struct {
	Permissions []string
	Principal   any
}

// PermissionCarrier is an identity object that carries its own permissions.
type PermissionCarrier interface {
	Permissions() []string
}

// IdentityCarrier is any object exposing a unique identity string.
type IdentityCarrier interface {
	Identity() string
}

// DisplayNameCarrier optionally supplies a display name; defaults to the
// identity when absent.
type DisplayNameCarrier interface {
	DisplayName() string
}

// AuthenticatedCarrier optionally reports authentication state; defaults to
// true when absent.
type AuthenticatedCarrier interface {
	IsAuthenticated() bool
}

// NormalizeCredentials converts an authenticator return value into a
// Principal. Accepted shapes, in priority order:
//
//  1. Credentials (or *Credentials): the explicit pair.
//  2. Principal (or *Principal): already conformant, permissions kept as-is.
//  3. A PermissionCarrier: the value is the identity and supplies permissions.
//  4. A map containing a "permissions" key: the map is the identity.
//  5. Anything else: the identity, with an empty permission set.
//
// The identity itself is then normalized via NormalizePrincipal.
func NormalizeCredentials(v any) (*Principal, error) {
	var perms []string
	identity := v

	switch val := v.(type) {
	case Credentials:
		perms = val.Permissions
		identity = val.Principal
	case *Credentials:
		perms = val.Permissions
		identity = val.Principal
	case Principal:
		perms = val.Permissions
	case *Principal:
		if val == nil {
			return nil, fmt.Errorf("%w: nil principal", ErrInvalidIdentity)
		}
		perms = val.Permissions
	default:
		if pc, ok := v.(PermissionCarrier); ok {
			perms = pc.Permissions()
		} else if m, ok := v.(map[string]any); ok {
			if raw, found := m["permissions"]; found {
				p, err := toStringSlice(raw)
				if err != nil {
					return nil, fmt.Errorf("permissions key: %w", err)
				}
				perms = p
			}
		}
	}

	p, err := NormalizePrincipal(identity)
	if err != nil {
		return nil, err
	}
	p.Permissions = perms
	return p, nil
}

// NormalizePrincipal converts an identity value into a *Principal. Accepted
// shapes, in priority order: an existing *Principal or Principal (passed
// through, with the display name defaulted), an IdentityCarrier (wrapped with
// defaults), a bare string, or a map containing an "identity" key. Anything
// else is an ErrInvalidIdentity.
func NormalizePrincipal(v any) (*Principal, error) {
	switch val := v.(type) {
	case *Principal:
		if val == nil {
			return nil, fmt.Errorf("%w: nil principal", ErrInvalidIdentity)
		}
		p := *val
		if p.DisplayName == "" {
			p.DisplayName = p.ID
		}
		return &p, nil
	case Principal:
		p := val
		if p.DisplayName == "" {
			p.DisplayName = p.ID
		}
		return &p, nil
	case string:
		return &Principal{ID: val, DisplayName: val, Authenticated: true}, nil
	case map[string]any:
		return principalFromMap(val)
	}

	if ic, ok := v.(IdentityCarrier); ok {
		p := &Principal{ID: ic.Identity(), Authenticated: true}
		p.DisplayName = p.ID
		if dc, ok := v.(DisplayNameCarrier); ok && dc.DisplayName() != "" {
			p.DisplayName = dc.DisplayName()
		}
		if ac, ok := v.(AuthenticatedCarrier); ok {
			p.Authenticated = ac.IsAuthenticated()
		}
		return p, nil
	}

	return nil, fmt.Errorf("%w: expected a Principal, an object with an Identity() method, "+
		"a string, or a map with an %q key; got %T", ErrInvalidIdentity, "identity", v)
}

// principalFromMap builds a Principal from a map shape, honoring the
// optional display_name and is_authenticated keys.
func principalFromMap(m map[string]any) (*Principal, error) {
	id, ok := m["identity"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: map is missing a string %q key", ErrInvalidIdentity, "identity")
	}
	p := &Principal{ID: id, DisplayName: id, Authenticated: true}
	if dn, ok := m["display_name"].(string); ok && dn != "" {
		p.DisplayName = dn
	}
	if ia, ok := m["is_authenticated"].(bool); ok {
		p.Authenticated = ia
	}
	return p, nil
}

// toStringSlice accepts []string or []any-of-strings.
func toStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case []string:
		return val, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string elements, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
}
