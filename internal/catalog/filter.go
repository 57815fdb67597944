// ABOUTME: Authorization filter shared by tool listing and invocation.
// ABOUTME: Pure predicate over required permissions, granted permissions, and injectability.

package catalog

// IsAllowed reports whether the caller may see or invoke the tool.
//
// A tool that declares an injected call-context parameter is never visible
// through a call path without a live request, regardless of permissions. When
// authorization is disabled, or the tool requires no permissions, the tool is
// otherwise unconditionally visible. Otherwise the tool's required permission
// set must be a subset of the caller's granted set.
func IsAllowed(t *Tool, call *CallContext, authEnabled bool) bool {
	if t.NeedsCallContext() && !call.hasRequest() {
		return false
	}

	if !authEnabled || len(t.Permissions) == 0 {
		return true
	}

	granted := make(map[string]struct{})
	for _, p := range call.Permissions() {
		granted[p] = struct{}{}
	}
	for _, required := range t.Permissions {
		if _, ok := granted[required]; !ok {
			return false
		}
	}
	return true
}
