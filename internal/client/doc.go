// ABOUTME: Package documentation for the HTTP client.
// ABOUTME: Notes the error contract shared with the server.

// Package client is the HTTP client for the spellbook tool server, used by
// the admin CLI and suitable for embedding in other Go programs.
//
// Transport-level failures (denials, unknown tools, schema violations) are
// returned as *APIError with the server's status code. Deliberate tool
// failures are not errors: CallTool returns a response with Success=false
// and the structured report in Output.Err.
package client
