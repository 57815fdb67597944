// ABOUTME: Package documentation for configuration loading.
// ABOUTME: Shows the YAML layout and environment variable expansion.

// Package config loads the spellbook server configuration from YAML.
//
// Example configuration:
//
//	server:
//	  http_addr: ":8080"
//	  name: spellbook
//	database:
//	  path: /var/lib/spellbook/spellbook.db
//	auth:
//	  mode: jwt
//	  jwt_secret: ${SPELLBOOK_JWT_SECRET}
//	tools:
//	  call_timeout: 30s
//	mcp:
//	  enabled: true
//	logging:
//	  level: info
//	  format: json
//
// ${VAR} references are expanded from the environment before parsing; unset
// variables expand to the empty string.
package config
