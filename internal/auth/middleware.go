// ABOUTME: HTTP middleware running the authentication adapter per request.
// ABOUTME: Denials render as 401; authenticator failures as 500, never as denials.

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Middleware returns an HTTP middleware that authenticates every request
// through the adapter and attaches the resulting Principal to the request
// context via WithPrincipal.
func (a *Adapter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r.Context(), r)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					writeAuthError(w, http.StatusUnauthorized, err.Error())
					return
				}
				a.logger.Error("authenticator error", "error", err, "path", r.URL.Path)
				writeAuthError(w, http.StatusInternalServerError, "authentication failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// writeAuthError writes a JSON error body with the given status.
func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
