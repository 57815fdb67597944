// ABOUTME: Package documentation for the MCP bridge.
// ABOUTME: Describes the JSON-RPC surface and its catalog mapping.

// Package mcp bridges the tool catalog to Model Context Protocol clients over
// the Streamable HTTP transport.
//
// The bridge advertises only the latest version of each tool, under its bare
// name; MCP clients cannot pin versions. Tools that declare an injected
// request parameter are not reachable through the bridge at all, since the
// bridge never hands the MCP transport request to a tool.
//
// Dispatch failures map onto JSON-RPC error codes; deliberate tool failures
// become results with isError=true, matching MCP conventions.
package mcp
