// ABOUTME: HTTP transport for the tool server: listing, invocation, health, info.
// ABOUTME: Authentication is optional and attaches exactly once, before serving.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/2389/spellbook/internal/auth"
	"github.com/2389/spellbook/internal/catalog"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Config holds configuration for the HTTP server.
type Config struct {
	Catalog    *catalog.Catalog
	Dispatcher *catalog.Dispatcher
	Logger     *slog.Logger
	// Name and Version are reported on the info endpoint.
	Name    string
	Version string
}

// Server exposes the catalog and dispatcher over HTTP.
type Server struct {
	catalog    *catalog.Catalog
	dispatcher *catalog.Dispatcher
	logger     *slog.Logger
	name       string
	version    string

	mu      sync.Mutex
	adapter *auth.Adapter
}

// New creates a Server over the given catalog and dispatcher.
func New(cfg Config) (*Server, error) {
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
	}, nil
}

// SetAuthenticator installs the authenticator function and switches the
// catalog into authorization-gated mode. May be called at most once, before
// the server starts handling requests.
func (s *Server) SetAuthenticator(handler any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adapter != nil {
		return auth.ErrAlreadyConfigured
	}
	adapter, err := auth.NewAdapter(handler, s.logger.With("component", "auth"))
	if err != nil {
		return fmt.Errorf("configuring authenticator: %w", err)
	}
	s.adapter = adapter
	s.catalog.EnableAuth()
	s.logger.Info("authentication enabled")
	return nil
}

// Middleware returns the authentication middleware, for wrapping handlers
// mounted outside this server's own routes. Without an authenticator it
// passes handlers through unchanged.
func (s *Server) Middleware() func(http.Handler) http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adapter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.adapter.Middleware()
}

// Handler builds the HTTP handler with all routes registered. Tool routes are
// wrapped in the authentication middleware when an authenticator is
// configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /info", s.handleInfo)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	var tools http.Handler = http.HandlerFunc(s.handleTools)
	var call http.Handler = http.HandlerFunc(s.handleCall)

	s.mu.Lock()
	if s.adapter != nil {
		mw := s.adapter.Middleware()
		tools = mw(tools)
		call = mw(call)
	}
	s.mu.Unlock()

	mux.Handle("GET /tools", tools)
	mux.Handle("POST /tools/call", call)
	return mux
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo reports server identity and catalog statistics.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         s.name,
		"version":      s.version,
		"tool_count":   s.catalog.Len(),
		"auth_enabled": s.catalog.AuthEnabled(),
	})
}

// handleRoot serves a minimal landing page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, landingPage, s.name, s.name, s.version)
}

const landingPage = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>%s</h1>
<p>version %s</p>
<ul>
<li><a href="/tools">GET /tools</a> - list available tools</li>
<li>POST /tools/call - invoke a tool</li>
<li><a href="/health">GET /health</a> - liveness</li>
<li><a href="/info">GET /info</a> - server info</li>
</ul>
</body>
</html>
`

// handleTools lists the tools visible to the caller.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	call := &catalog.CallContext{
		Request:   r,
		Principal: auth.FromContext(r.Context()),
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.catalog.List(call)})
}

// handleCall runs one tool invocation.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var req catalog.CallRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ToolID == "" {
		writeError(w, http.StatusUnprocessableEntity, "tool_id is required")
		return
	}

	call := &catalog.CallContext{
		Request:   r,
		Principal: auth.FromContext(r.Context()),
	}

	resp, err := s.dispatcher.Dispatch(r.Context(), call, req)
	if err != nil {
		var se *catalog.StatusError
		if errors.As(err, &se) {
			writeError(w, se.Code, se.Message)
			return
		}
		s.logger.Error("dispatch failed", "error", err, "tool_id", req.ToolID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
