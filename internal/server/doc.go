// ABOUTME: Package documentation for the HTTP transport.
// ABOUTME: Describes the endpoint surface and its status code contract.

// Package server exposes the tool catalog over HTTP.
//
// Endpoints:
//
//	GET  /            landing page
//	GET  /health      liveness
//	GET  /info        server identity and catalog statistics
//	GET  /tools       tools visible to the caller
//	POST /tools/call  invoke a tool
//
// When an authenticator is configured via SetAuthenticator, the /tools
// endpoints require authentication (401 on denial) and tool resolution
// failures report a uniform 403 that does not distinguish absent tools from
// forbidden ones. Without an authenticator, unknown tools are plain 404s.
// Malformed identifiers are 422 and schema violations 400 in both modes.
// Deliberate tool failures are 200s with success=false in the body.
package server
