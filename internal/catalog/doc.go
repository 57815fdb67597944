// ABOUTME: Package documentation for the versioned tool catalog and dispatcher.
// ABOUTME: Explains identifiers, schema derivation, injection, and the call envelope.

// Package catalog implements the versioned tool registry and the invocation
// pipeline that runs registered tools.
//
// Every registered tool is addressed by "name@major.minor.patch". The catalog
// keeps all registered versions plus a latest-per-name index, so callers may
// resolve a bare name to the highest registered version or pin an exact one.
//
// Registration derives JSON Schemas from the Go signature:
//
//	id, err := catalog.Register(c, "add", "Adds two integers.",
//	    func(ctx context.Context, in AddInput) (int, error) { return in.X + in.Y, nil },
//	    catalog.WithVersion("1.2"),
//	    catalog.WithPermissions("math"),
//	)
//
// An input field tagged `inject:"request"` receives the per-request
// *CallContext from the dispatcher instead of caller input; such tools are
// hidden from call paths that cannot supply a live request.
//
// The dispatcher distinguishes pipeline failures (unknown tool, denied,
// invalid input) from tool failures. The former become status errors for the
// transport; the latter are either a *ToolError carried inside a successful
// envelope with success=false, or an opaque internal error.
package catalog
