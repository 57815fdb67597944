// ABOUTME: Per-request caller context consumed by authorization and injection.
// ABOUTME: Carries the live request (when present) and the authenticated principal.

package catalog

import (
	"net/http"

	"github.com/2389/spellbook/internal/auth"
)

// CallContext is the per-request bundle of transport details available for
// authorization and parameter injection. Constructed fresh for each request
// and owned by it; a nil CallContext (or a nil Request) marks a call path
// with no live request, such as the MCP bridge.
type CallContext struct {
	// Request is the live inbound request, or nil when the call path cannot
	// supply one.
	Request *http.Request
	// Principal is the authenticated caller, or nil when unauthenticated or
	// when no authenticator is configured.
	Principal *auth.Principal
}

// Permissions returns the caller's granted permission set, or nil when
// unauthenticated.
func (c *CallContext) Permissions() []string {
	if c == nil || c.Principal == nil {
		return nil
	}
	return c.Principal.Permissions
}

// hasRequest reports whether a live request is available for injection.
func (c *CallContext) hasRequest() bool {
	return c != nil && c.Request != nil
}
