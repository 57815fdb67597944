// ABOUTME: Administrative tools: caller introspection and token issuance.
// ABOUTME: token_create requires the "admin" permission and a token store.

package builtins

import (
	"context"
	"fmt"
	"time"

	"github.com/2389/spellbook/internal/auth"
	"github.com/2389/spellbook/internal/catalog"
	"github.com/2389/spellbook/internal/store"
)

// WhoamiInput carries only the injected request context.
type WhoamiInput struct {
	Call *catalog.CallContext `json:"-" inject:"request"`
}

// WhoamiOutput reports the authenticated caller.
type WhoamiOutput struct {
	Identity      string   `json:"identity"`
	DisplayName   string   `json:"display_name"`
	Authenticated bool     `json:"is_authenticated"`
	Permissions   []string `json:"permissions"`
}

// TokenCreateInput is the input for token_create.
type TokenCreateInput struct {
	Identity string   `json:"identity"`
	Scopes   []string `json:"scopes,omitempty"`
	// TTLSeconds bounds the token lifetime; defaults to 24 hours.
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`

	Call *catalog.CallContext `json:"-" inject:"request"`
}

// TokenCreateOutput carries the issued token. The token value appears only
// here; the store keeps metadata alone.
type TokenCreateOutput struct {
	Token     string `json:"token"`
	TokenID   string `json:"token_id"`
	ExpiresAt string `json:"expires_at"`
}

const defaultTokenTTL = 24 * time.Hour

// RegisterAdmin registers the administrative tools on the catalog. The
// verifier signs issued tokens; tokens is the persistence for their metadata.
func RegisterAdmin(c *catalog.Catalog, verifier *auth.JWTVerifier, tokens store.TokenStore) error {
	if _, err := catalog.Register(c, "whoami", "Report the authenticated caller.",
		func(ctx context.Context, in WhoamiInput) (WhoamiOutput, error) {
			p := in.Call.Principal
			if p == nil {
				return WhoamiOutput{}, nil
			}
			return WhoamiOutput{
				Identity:      p.ID,
				DisplayName:   p.DisplayName,
				Authenticated: p.Authenticated,
				Permissions:   p.Permissions,
			}, nil
		}); err != nil {
		return fmt.Errorf("registering whoami: %w", err)
	}

	if _, err := catalog.Register(c, "token_create", "Issue an API token for an identity.",
		func(ctx context.Context, in TokenCreateInput) (TokenCreateOutput, error) {
			if in.Identity == "" {
				return TokenCreateOutput{}, catalog.NewToolError("identity is required")
			}

			ttl := defaultTokenTTL
			if in.TTLSeconds > 0 {
				ttl = time.Duration(in.TTLSeconds) * time.Second
			}

			token, err := verifier.Generate(in.Identity, in.Scopes, ttl)
			if err != nil {
				return TokenCreateOutput{}, fmt.Errorf("signing token: %w", err)
			}

			record := &store.APIToken{
				Identity:  in.Identity,
				Scopes:    in.Scopes,
				ExpiresAt: time.Now().UTC().Add(ttl),
			}
			if p := in.Call.Principal; p != nil {
				record.CreatedBy = p.ID
			}
			if err := tokens.CreateToken(ctx, record); err != nil {
				return TokenCreateOutput{}, fmt.Errorf("recording token: %w", err)
			}

			return TokenCreateOutput{
				Token:     token,
				TokenID:   record.ID,
				ExpiresAt: record.ExpiresAt.Format(time.RFC3339),
			}, nil
		},
		catalog.WithPermissions("admin")); err != nil {
		return fmt.Errorf("registering token_create: %w", err)
	}

	return nil
}
