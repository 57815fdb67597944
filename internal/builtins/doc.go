// ABOUTME: Package documentation for the built-in tools.
// ABOUTME: Lists the base and admin tool sets and their permissions.

// Package builtins registers the server's built-in tools.
//
// Base tools, public:
//
//   - echo: return the given text
//   - add: add two integers
//   - now: report the current server time
//
// Admin tools:
//
//   - whoami: report the authenticated caller (uses the injected request)
//   - token_create: issue an API token, requires the "admin" permission
package builtins
