// ABOUTME: MCP-compatible HTTP bridge exposing catalog tools to external agents.
// ABOUTME: Implements Streamable HTTP transport with in-memory session management.

package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/spellbook/internal/auth"
	"github.com/2389/spellbook/internal/catalog"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2025-03-26": true,
	"2025-11-25": true,
}

// latestProtocolVersion is the version we advertise in initialize responses.
const latestProtocolVersion = "2025-11-25"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// ToolInfo represents an MCP tool definition.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListToolsResult is the result for tools/list.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

// CallToolParams are the params for tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult is the result for tools/call.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents content in a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Config holds configuration for the MCP bridge.
type Config struct {
	Catalog    *catalog.Catalog
	Dispatcher *catalog.Dispatcher
	Logger     *slog.Logger
	// Name and Version identify the server in initialize responses.
	Name    string
	Version string
	// SessionTTL bounds how long an idle session stays valid. Zero means the
	// default of 30 minutes.
	SessionTTL time.Duration
}

// Server bridges the tool catalog to MCP clients. Only the latest version of
// each tool is exposed; MCP has no identifier versioning. Tools that require
// an injected request are not reachable through the bridge.
type Server struct {
	catalog    *catalog.Catalog
	dispatcher *catalog.Dispatcher
	logger     *slog.Logger
	name       string
	version    string
	sessions   *sessionStore
}

// NewServer creates a new MCP bridge with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "spellbook"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		catalog:    cfg.Catalog,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
		name:       name,
		version:    version,
		sessions:   newSessionStore(cfg.SessionTTL, defaultMaxSessions),
	}, nil
}

// Close stops the session store's background cleanup.
func (s *Server) Close() {
	s.sessions.Close()
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/mcp", s.Handler())
}

// Handler returns the MCP endpoint handler, for mounting behind middleware.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleMCP)
}

// handleMCP is the single MCP endpoint supporting POST and DELETE per the
// Streamable HTTP transport spec.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleDelete terminates a session.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}
	if !s.sessions.delete(sessionID) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.logger.Info("MCP session terminated", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// handlePost processes JSON-RPC messages sent via HTTP POST.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	protoVersion := r.Header.Get("Mcp-Protocol-Version")

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendError(w, nil, JSONRPCParseError, "failed to read request body", nil)
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendError(w, nil, JSONRPCInvalidRequest, "request body too large", nil)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendError(w, nil, JSONRPCParseError, "invalid JSON", nil)
		return
	}
	if req.JSONRPC != "2.0" {
		s.sendError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}

	isInitialize := req.Method == "initialize"
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	if !isInitialize && protoVersion != "" && !supportedProtocolVersions[protoVersion] {
		http.Error(w, "Bad Request: unsupported MCP-Protocol-Version", http.StatusBadRequest)
		return
	}

	// Non-initialize requests require a valid session.
	if !isInitialize && !isNotification {
		if sessionID == "" {
			http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
			return
		}
		if _, ok := s.sessions.get(sessionID); !ok {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
	}

	// Notifications: accept and return 202 with no body.
	if isNotification {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, req)
	case "tools/list":
		s.handleToolsList(w, r, req)
	case "tools/call":
		s.handleToolsCall(w, r, req)
	default:
		s.sendError(w, req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

// handleInitialize handles the MCP initialize handshake and creates a session.
func (s *Server) handleInitialize(w http.ResponseWriter, req JSONRPCRequest) {
	sess := s.sessions.create(latestProtocolVersion)
	s.logger.Info("MCP session created", "session_id", sess.id)

	w.Header().Set("Mcp-Session-Id", sess.id)
	s.sendResult(w, req.ID, map[string]any{
		"protocolVersion": latestProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	})
}

// bridgeCallContext builds the catalog call context for an MCP request. The
// bridge never forwards the HTTP request itself, so request-injected tools
// stay invisible here.
func bridgeCallContext(r *http.Request) *catalog.CallContext {
	return &catalog.CallContext{Principal: auth.FromContext(r.Context())}
}

// handleToolsList handles tools/list requests. Only the latest version of
// each tool is advertised, under its bare name.
func (s *Server) handleToolsList(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	defs := s.catalog.List(bridgeCallContext(r))

	result := ListToolsResult{Tools: make([]ToolInfo, 0, len(defs))}
	for _, def := range defs {
		tool, err := s.catalog.Resolve(def.ID)
		if err != nil || !s.catalog.Latest(tool) {
			continue
		}
		schema, err := json.Marshal(def.InputSchema)
		if err != nil {
			s.logger.Warn("marshaling tool schema", "tool_id", def.ID, "error", err)
			continue
		}
		result.Tools = append(result.Tools, ToolInfo{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		})
	}

	s.logger.Debug("tools/list", "count", len(result.Tools))
	s.sendResult(w, req.ID, result)
}

// handleToolsCall handles tools/call requests.
func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	var params CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}
	if params.Name == "" {
		s.sendError(w, req.ID, JSONRPCInvalidParams, "tool name is required", nil)
		return
	}

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}

	callReq := catalog.CallRequest{ToolID: params.Name, Input: args}

	resp, err := s.dispatcher.Dispatch(r.Context(), bridgeCallContext(r), callReq)
	if err != nil {
		var se *catalog.StatusError
		if errors.As(err, &se) {
			code := JSONRPCInvalidParams
			if se.Code >= http.StatusInternalServerError {
				code = JSONRPCInternalError
			}
			s.sendError(w, req.ID, code, se.Message, nil)
			return
		}
		s.sendError(w, req.ID, JSONRPCInternalError, "internal error", nil)
		return
	}

	var result CallToolResult
	if resp.Output.Err != nil {
		result = CallToolResult{
			Content: []Content{{Type: "text", Text: resp.Output.Err.Message}},
			IsError: true,
		}
	} else {
		text, merr := json.Marshal(resp.Output.Value)
		if merr != nil {
			s.sendError(w, req.ID, JSONRPCInternalError, "encoding tool output", nil)
			return
		}
		result = CallToolResult{Content: []Content{{Type: "text", Text: string(text)}}}
	}

	s.logger.Debug("tools/call complete",
		"tool_name", params.Name,
		"call_id", resp.CallID,
		"is_error", result.IsError,
	)
	s.sendResult(w, req.ID, result)
}

// sendResult writes a JSON-RPC success response.
func (s *Server) sendResult(w http.ResponseWriter, id json.RawMessage, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

// sendError writes a JSON-RPC error response.
func (s *Server) sendError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message, Data: data},
	})
}
