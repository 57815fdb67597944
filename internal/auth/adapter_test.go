// ABOUTME: Unit tests for the authenticator adapter.
// ABOUTME: Covers setup-time signature validation and per-request extraction.

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAdapter_RejectsNonFunctions(t *testing.T) {
	for _, handler := range []any{nil, "not a function", 42, struct{}{}} {
		if _, err := NewAdapter(handler, discardLogger()); err == nil {
			t.Errorf("NewAdapter(%T) should have returned an error", handler)
		}
	}
}

func TestNewAdapter_RejectsVariadic(t *testing.T) {
	_, err := NewAdapter(func(headers ...Headers) (string, error) { return "", nil }, discardLogger())
	if err == nil {
		t.Fatal("NewAdapter() should have rejected a variadic authenticator")
	}
}

func TestNewAdapter_RejectsUnsupportedParameter(t *testing.T) {
	_, err := NewAdapter(func(n int) (string, error) { return "", nil }, discardLogger())
	if !errors.Is(err, ErrUnsupportedParameter) {
		t.Fatalf("NewAdapter() error = %v, want ErrUnsupportedParameter", err)
	}
	// The failure names what would have been accepted.
	if !strings.Contains(err.Error(), "auth.Authorization") {
		t.Errorf("error should list supported types, got: %v", err)
	}
}

func TestNewAdapter_RejectsBadReturnShapes(t *testing.T) {
	tests := []struct {
		name    string
		handler any
	}{
		{"no results", func(a Authorization) {}},
		{"only error", func(a Authorization) error { return nil }},
		{"three results", func(a Authorization) (string, string, error) { return "", "", nil }},
		{"second result not error", func(a Authorization) (string, string) { return "", "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAdapter(tt.handler, discardLogger()); err == nil {
				t.Error("NewAdapter() should have returned an error")
			}
		})
	}
}

func TestAdapter_ExtractsDeclaredParameters(t *testing.T) {
	var (
		gotAuth   Authorization
		gotPath   Path
		gotMethod Method
		gotQuery  Query
		gotBody   RawBody
	)
	adapter, err := NewAdapter(func(a Authorization, p Path, m Method, q Query, b RawBody) (string, error) {
		gotAuth, gotPath, gotMethod, gotQuery, gotBody = a, p, m, q, b
		return "user-1", nil
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}

	r := httptest.NewRequest("POST", "/tools/call?tenant=42", strings.NewReader(`{"hello":true}`))
	r.Header.Set("Authorization", "Bearer abc")

	p, err := adapter.Authenticate(context.Background(), r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if p.ID != "user-1" {
		t.Errorf("Principal.ID = %q, want %q", p.ID, "user-1")
	}
	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer abc")
	}
	if gotPath != "/tools/call" {
		t.Errorf("Path = %q, want %q", gotPath, "/tools/call")
	}
	if gotMethod != "POST" {
		t.Errorf("Method = %q, want %q", gotMethod, "POST")
	}
	if gotQuery.Get("tenant") != "42" {
		t.Errorf("Query tenant = %q, want %q", gotQuery.Get("tenant"), "42")
	}
	if string(gotBody) != `{"hello":true}` {
		t.Errorf("RawBody = %q", gotBody)
	}

	// The body must remain readable downstream.
	rest, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("reading restored body: %v", err)
	}
	if string(rest) != `{"hello":true}` {
		t.Errorf("restored body = %q", rest)
	}
}

func TestAdapter_PassesRequestAndContext(t *testing.T) {
	type ctxKey struct{}
	adapter, err := NewAdapter(func(ctx context.Context, r *http.Request) (string, error) {
		if ctx.Value(ctxKey{}) != "present" {
			return "", errors.New("context value missing")
		}
		return r.Header.Get("X-Identity"), nil
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}

	r := httptest.NewRequest("GET", "/tools", nil)
	r.Header.Set("X-Identity", "user-9")
	ctx := context.WithValue(context.Background(), ctxKey{}, "present")

	p, err := adapter.Authenticate(ctx, r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if p.ID != "user-9" {
		t.Errorf("Principal.ID = %q, want %q", p.ID, "user-9")
	}
}

func TestAdapter_DenialPassesThrough(t *testing.T) {
	adapter, err := NewAdapter(func(a Authorization) (string, error) {
		return "", ErrUnauthenticated
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}

	_, err = adapter.Authenticate(context.Background(), httptest.NewRequest("GET", "/tools", nil))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Authenticate() error = %v, want ErrUnauthenticated", err)
	}
}

func TestAdapter_FailureIsNotADenial(t *testing.T) {
	adapter, err := NewAdapter(func(a Authorization) (string, error) {
		return "", errors.New("identity provider unreachable")
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}

	_, err = adapter.Authenticate(context.Background(), httptest.NewRequest("GET", "/tools", nil))
	if err == nil {
		t.Fatal("Authenticate() should have returned an error")
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Error("an authenticator failure must not be reported as a denial")
	}
}

func TestAdapter_SingleResultHandler(t *testing.T) {
	adapter, err := NewAdapter(func(a Authorization) string {
		return "always-on"
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}

	p, err := adapter.Authenticate(context.Background(), httptest.NewRequest("GET", "/tools", nil))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if p.ID != "always-on" {
		t.Errorf("Principal.ID = %q, want %q", p.ID, "always-on")
	}
}

func TestAdapter_BlockingHandlerHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	adapter, err := NewAdapter(func(a Authorization) (string, error) {
		<-release
		return "too-late", nil
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = adapter.Authenticate(ctx, httptest.NewRequest("GET", "/tools", nil))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Authenticate() error = %v, want context.DeadlineExceeded", err)
	}
}
