// ABOUTME: HTTP endpoint tests for the tool server.
// ABOUTME: Covers open mode, authenticated mode, and the status code contract.

package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/spellbook/internal/auth"
	"github.com/2389/spellbook/internal/catalog"
)

var jwtSecret = []byte("server-test-secret-32-bytes-long")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type addInput struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func newTestServer(t *testing.T, authenticated bool) *Server {
	t.Helper()
	c := catalog.New(testLogger())

	_, err := catalog.Register(c, "add", "Adds two integers.",
		func(ctx context.Context, in addInput) (int, error) { return in.X + in.Y, nil })
	require.NoError(t, err)

	_, err = catalog.Register(c, "secret", "Requires clearance.",
		func(ctx context.Context, in addInput) (int, error) { return in.X * in.Y, nil },
		catalog.WithPermissions("clearance"))
	require.NoError(t, err)

	_, err = catalog.Register(c, "flaky", "Reports a structured failure.",
		func(ctx context.Context, in addInput) (int, error) {
			return 0, catalog.NewToolError("try later")
		})
	require.NoError(t, err)

	s, err := New(Config{
		Catalog:    c,
		Dispatcher: catalog.NewDispatcher(c, testLogger()),
		Logger:     testLogger(),
		Name:       "spellbook-test",
		Version:    "0.0.1",
	})
	require.NoError(t, err)

	if authenticated {
		verifier := auth.NewJWTVerifier(jwtSecret)
		require.NoError(t, s.SetAuthenticator(verifier.Handler()))
	}
	return s
}

func bearerToken(t *testing.T, scopes ...string) string {
	t.Helper()
	token, err := auth.NewJWTVerifier(jwtSecret).Generate("user-1", scopes, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func doCall(t *testing.T, h http.Handler, authHeader, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("POST", "/tools/call", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		r.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func doList(t *testing.T, h http.Handler, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("GET", "/tools", nil)
	if authHeader != "" {
		r.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func listedNames(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Tools []catalog.Definition `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	names := make([]string, len(body.Tools))
	for i, d := range body.Tools {
		names[i] = d.Name
	}
	return names
}

func TestHealthAndInfo(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "spellbook-test", info["name"])
	assert.Equal(t, float64(3), info["tool_count"])
	assert.Equal(t, false, info["auth_enabled"])
}

func TestRootServesLandingPage(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "spellbook-test")
}

func TestListTools_OpenMode(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := doList(t, h, "")
	require.Equal(t, http.StatusOK, rec.Code)
	// Without auth every tool is visible, permissions or not.
	assert.Equal(t, []string{"add", "secret", "flaky"}, listedNames(t, rec))
}

func TestCallTool_Success(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := doCall(t, h, "", `{"tool_id":"add","input":{"x":2,"y":3}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp catalog.CallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.CallID)
	assert.Equal(t, float64(5), resp.Output.Value)
}

func TestCallTool_EchoesCallID(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := doCall(t, h, "", `{"tool_id":"add","input":{"x":2,"y":3},"call_id":"my-call-42"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp catalog.CallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "my-call-42", resp.CallID)
}

func TestCallTool_StatusContractOpenMode(t *testing.T) {
	h := newTestServer(t, false).Handler()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknown tool", `{"tool_id":"missing"}`, http.StatusNotFound},
		{"malformed identifier", `{"tool_id":"add@not.a.version"}`, http.StatusUnprocessableEntity},
		{"missing tool_id", `{}`, http.StatusUnprocessableEntity},
		{"schema violation", `{"tool_id":"add","input":{"x":"two","y":3}}`, http.StatusBadRequest},
		{"invalid body", `{not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doCall(t, h, "", tt.body)
			assert.Equal(t, tt.code, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCallTool_ToolErrorIs200(t *testing.T) {
	h := newTestServer(t, false).Handler()

	rec := doCall(t, h, "", `{"tool_id":"flaky","input":{"x":1,"y":2}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp catalog.CallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Output.Err)
	assert.Equal(t, "try later", resp.Output.Err.Message)
}

func TestAuthenticatedMode_RequiresToken(t *testing.T) {
	h := newTestServer(t, true).Handler()

	assert.Equal(t, http.StatusUnauthorized, doList(t, h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doCall(t, h, "", `{"tool_id":"add"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, doList(t, h, "Bearer not-a-token").Code)

	// Health and info stay open.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticatedMode_FiltersListing(t *testing.T) {
	h := newTestServer(t, true).Handler()

	rec := doList(t, h, bearerToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"add", "flaky"}, listedNames(t, rec))

	rec = doList(t, h, bearerToken(t, "clearance"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"add", "secret", "flaky"}, listedNames(t, rec))
}

func TestAuthenticatedMode_UniformDenial(t *testing.T) {
	h := newTestServer(t, true).Handler()
	token := bearerToken(t)

	missing := doCall(t, h, token, `{"tool_id":"nonexistent"}`)
	forbidden := doCall(t, h, token, `{"tool_id":"secret","input":{"x":1,"y":2}}`)

	require.Equal(t, http.StatusForbidden, missing.Code)
	require.Equal(t, http.StatusForbidden, forbidden.Code)

	var missingBody, forbiddenBody map[string]string
	require.NoError(t, json.Unmarshal(missing.Body.Bytes(), &missingBody))
	require.NoError(t, json.Unmarshal(forbidden.Body.Bytes(), &forbiddenBody))
	assert.Equal(t, missingBody["error"], forbiddenBody["error"])
}

func TestAuthenticatedMode_ScopedCall(t *testing.T) {
	h := newTestServer(t, true).Handler()

	rec := doCall(t, h, bearerToken(t, "clearance"), `{"tool_id":"secret","input":{"x":3,"y":4}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp catalog.CallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, float64(12), resp.Output.Value)
}

func TestSetAuthenticator_Once(t *testing.T) {
	s := newTestServer(t, true)
	err := s.SetAuthenticator(auth.NewJWTVerifier(jwtSecret).Handler())
	assert.ErrorIs(t, err, auth.ErrAlreadyConfigured)
}
